package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	UserID       string         `json:"user_id"`
	PlanID       string         `json:"plan_id"`
	Tier         string         `json:"tier"`
	Amount       int64          `json:"amount"`
	Currency     string         `json:"currency"`
	BillingCycle string         `json:"billing_cycle"`
	StartAt      *time.Time     `json:"start_at,omitempty"`
	TrialDays    int            `json:"trial_days,omitempty"`
	IsBundle     bool           `json:"is_bundle,omitempty"`
	BundleItems  []string       `json:"bundle_items,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// UpdateRequest carries the whitelisted mutable fields. Nil pointers leave
// the stored value untouched.
type UpdateRequest struct {
	PlanID        *string        `json:"plan_id,omitempty"`
	Tier          *string        `json:"tier,omitempty"`
	Amount        *int64         `json:"amount,omitempty"`
	Currency      *string        `json:"currency,omitempty"`
	NextPaymentAt *time.Time     `json:"next_payment_at,omitempty"`
	TrialEndAt    *time.Time     `json:"trial_end_at,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type ChangePlanRequest struct {
	PlanID string `json:"plan_id"`
	Tier   string `json:"tier"`
}

type ListRequest struct {
	UserID string
	Status string
}

type SweepResult struct {
	Overdue   int `json:"overdue"`
	Expired   int `json:"expired"`
	Cancelled int `json:"cancelled"`
}

//go:generate mockgen -source=service.go -destination=./mocks/mock_service.go -package=mocks
type Service interface {
	Create(ctx context.Context, req CreateRequest) (Subscription, error)
	Get(ctx context.Context, id string) (Subscription, error)
	List(ctx context.Context, req ListRequest) ([]Subscription, error)
	Update(ctx context.Context, id string, req UpdateRequest) error
	Pause(ctx context.Context, id string) error
	Resume(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string, immediate bool) error
	Upgrade(ctx context.Context, id string, req ChangePlanRequest) error
	Downgrade(ctx context.Context, id string, req ChangePlanRequest) error
	GetActive(ctx context.Context, userID string) (Subscription, error)
	ExpireOverdue(ctx context.Context, now time.Time) (SweepResult, error)
}

var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidPlan          = errors.New("invalid_plan")
	ErrInvalidCycle         = errors.New("invalid_billing_cycle")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidTransition    = errors.New("invalid_transition")
	ErrNoActiveSubscription = errors.New("no_active_subscription")
)

// ParseID parses a snowflake ID string, mapping failure to the given error.
func ParseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
