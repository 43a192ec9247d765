// Package domain contains persistence models for subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status represents lifecycle states for a subscription.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// BillingCycle is the renewal interval of a subscription.
type BillingCycle string

const (
	CycleWeekly    BillingCycle = "weekly"
	CycleMonthly   BillingCycle = "monthly"
	CycleQuarterly BillingCycle = "quarterly"
	CycleYearly    BillingCycle = "yearly"
)

// Subscription captures a learner's billing agreement. Rows are never hard
// deleted; cancelled and expired are terminal statuses.
type Subscription struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID            snowflake.ID      `gorm:"not null;index" json:"user_id"`
	PlanID            string            `gorm:"type:text;not null" json:"plan_id"`
	Tier              string            `gorm:"type:text;not null" json:"tier"`
	Status            Status            `gorm:"type:text;not null;index" json:"status"`
	Amount            int64             `gorm:"not null" json:"amount"`
	Currency          string            `gorm:"type:text;not null" json:"currency"`
	BillingCycle      BillingCycle      `gorm:"type:text;not null" json:"billing_cycle"`
	StartAt           time.Time         `gorm:"not null" json:"start_at"`
	NextPaymentAt     time.Time         `gorm:"not null;index" json:"next_payment_at"`
	TrialEndAt        *time.Time        `gorm:"" json:"trial_end_at,omitempty"`
	CancelAtPeriodEnd bool              `gorm:"not null;default:false" json:"cancel_at_period_end"`
	IsBundle          bool              `gorm:"not null;default:false" json:"is_bundle"`
	BundleItems       datatypes.JSON    `gorm:"type:jsonb" json:"bundle_items,omitempty"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	PausedAt          *time.Time        `gorm:"" json:"paused_at,omitempty"`
	ResumedAt         *time.Time        `gorm:"" json:"resumed_at,omitempty"`
	CancelledAt       *time.Time        `gorm:"" json:"cancelled_at,omitempty"`
	ExpiredAt         *time.Time        `gorm:"" json:"expired_at,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// ActivePointer marks at most one subscription per user as the active one.
type ActivePointer struct {
	UserID         snowflake.ID `gorm:"primaryKey"`
	SubscriptionID snowflake.ID `gorm:"not null"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ActivePointer) TableName() string { return "user_active_subscriptions" }

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusExpired
}

// ValidCycle reports whether the billing cycle is one of the supported intervals.
func ValidCycle(cycle BillingCycle) bool {
	switch cycle {
	case CycleWeekly, CycleMonthly, CycleQuarterly, CycleYearly:
		return true
	default:
		return false
	}
}
