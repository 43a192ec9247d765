package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/clock"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/config"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	repo       subscriptiondomain.Repository
	policy     *config.PolicyHolder
	dispatcher *events.Dispatcher
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       subscriptiondomain.Repository
	Policy     *config.PolicyHolder
	Dispatcher *events.Dispatcher
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("subscription.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		policy:     p.Policy,
		dispatcher: p.Dispatcher,
	}
}

func (s *Service) Create(ctx context.Context, req subscriptiondomain.CreateRequest) (subscriptiondomain.Subscription, error) {
	userID, err := subscriptiondomain.ParseID(strings.TrimSpace(req.UserID), subscriptiondomain.ErrInvalidUser)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidPlan
	}

	cycle := subscriptiondomain.BillingCycle(strings.ToLower(strings.TrimSpace(req.BillingCycle)))
	if cycle == "" {
		cycle = subscriptiondomain.CycleMonthly
	}
	if !subscriptiondomain.ValidCycle(cycle) {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidCycle
	}

	now := s.clock.Now()
	startAt := now
	if req.StartAt != nil && !req.StartAt.IsZero() {
		startAt = req.StartAt.UTC()
	}

	subscription := subscriptiondomain.Subscription{
		ID:            s.genID.Generate(),
		UserID:        userID,
		PlanID:        planID,
		Tier:          strings.ToLower(strings.TrimSpace(req.Tier)),
		Status:        subscriptiondomain.StatusActive,
		Amount:        req.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		BillingCycle:  cycle,
		StartAt:       startAt,
		NextPaymentAt: NextPaymentDate(startAt, cycle),
		IsBundle:      req.IsBundle,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if subscription.Currency == "" {
		subscription.Currency = "USD"
	}
	if req.TrialDays > 0 {
		trialEnd := startAt.AddDate(0, 0, req.TrialDays)
		subscription.TrialEndAt = &trialEnd
		subscription.Status = subscriptiondomain.StatusPending
	}
	if len(req.BundleItems) > 0 {
		raw, err := json.Marshal(req.BundleItems)
		if err != nil {
			return subscriptiondomain.Subscription{}, err
		}
		subscription.IsBundle = true
		subscription.BundleItems = datatypes.JSON(raw)
	}
	if req.Metadata != nil {
		subscription.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &subscription); err != nil {
			return err
		}
		if subscription.Status == subscriptiondomain.StatusActive {
			return s.repo.SetActivePointer(ctx, tx, userID, subscription.ID)
		}
		return nil
	}); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	s.publish(ctx, events.SubscriptionCreated, &subscription)
	return subscription, nil
}

func (s *Service) Get(ctx context.Context, id string) (subscriptiondomain.Subscription, error) {
	subscriptionID, err := subscriptiondomain.ParseID(strings.TrimSpace(id), subscriptiondomain.ErrInvalidSubscription)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, subscriptionID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if item == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req subscriptiondomain.ListRequest) ([]subscriptiondomain.Subscription, error) {
	var userID snowflake.ID
	if strings.TrimSpace(req.UserID) != "" {
		parsed, err := subscriptiondomain.ParseID(strings.TrimSpace(req.UserID), subscriptiondomain.ErrInvalidUser)
		if err != nil {
			return nil, err
		}
		userID = parsed
	}

	status := subscriptiondomain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	return s.repo.List(ctx, s.db, userID, status)
}

// Update mutates the whitelisted fields only. Status is never writable here;
// use the transition methods.
func (s *Service) Update(ctx context.Context, id string, req subscriptiondomain.UpdateRequest) error {
	subscriptionID, err := subscriptiondomain.ParseID(strings.TrimSpace(id), subscriptiondomain.ErrInvalidSubscription)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, subscriptionID)
	if err != nil {
		return err
	}
	if item == nil {
		return subscriptiondomain.ErrSubscriptionNotFound
	}

	fields := map[string]any{"updated_at": s.clock.Now()}
	if req.PlanID != nil {
		planID := strings.TrimSpace(*req.PlanID)
		if planID == "" {
			return subscriptiondomain.ErrInvalidPlan
		}
		fields["plan_id"] = planID
	}
	if req.Tier != nil {
		fields["tier"] = strings.ToLower(strings.TrimSpace(*req.Tier))
	}
	if req.Amount != nil {
		fields["amount"] = *req.Amount
	}
	if req.Currency != nil {
		fields["currency"] = strings.ToUpper(strings.TrimSpace(*req.Currency))
	}
	if req.NextPaymentAt != nil {
		fields["next_payment_at"] = req.NextPaymentAt.UTC()
	}
	if req.TrialEndAt != nil {
		fields["trial_end_at"] = req.TrialEndAt.UTC()
	}
	if req.Metadata != nil {
		fields["metadata"] = datatypes.JSONMap(req.Metadata)
	}

	return s.repo.UpdateFields(ctx, s.db, subscriptionID, fields)
}

func (s *Service) Pause(ctx context.Context, id string) error {
	return s.transition(ctx, id, subscriptiondomain.StatusPaused, func(sub *subscriptiondomain.Subscription, now time.Time, fields map[string]any) {
		fields["paused_at"] = now
	}, events.SubscriptionPaused)
}

// Resume reactivates a paused subscription and restarts the billing clock
// from now rather than the original anchor date.
func (s *Service) Resume(ctx context.Context, id string) error {
	return s.transition(ctx, id, subscriptiondomain.StatusActive, func(sub *subscriptiondomain.Subscription, now time.Time, fields map[string]any) {
		fields["resumed_at"] = now
		fields["next_payment_at"] = NextPaymentDate(now, sub.BillingCycle)
	}, events.SubscriptionResumed)
}

func (s *Service) Cancel(ctx context.Context, id string, immediate bool) error {
	if !immediate {
		subscriptionID, err := subscriptiondomain.ParseID(strings.TrimSpace(id), subscriptiondomain.ErrInvalidSubscription)
		if err != nil {
			return err
		}
		item, err := s.repo.FindByID(ctx, s.db, subscriptionID)
		if err != nil {
			return err
		}
		if item == nil {
			return subscriptiondomain.ErrSubscriptionNotFound
		}
		if item.Status != subscriptiondomain.StatusActive {
			return subscriptiondomain.ErrInvalidTransition
		}
		return s.repo.UpdateFields(ctx, s.db, subscriptionID, map[string]any{
			"cancel_at_period_end": true,
			"updated_at":           s.clock.Now(),
		})
	}

	return s.transition(ctx, id, subscriptiondomain.StatusCancelled, func(sub *subscriptiondomain.Subscription, now time.Time, fields map[string]any) {
		fields["cancelled_at"] = now
	}, events.SubscriptionCancelled)
}

func (s *Service) Upgrade(ctx context.Context, id string, req subscriptiondomain.ChangePlanRequest) error {
	return s.changePlan(ctx, id, req, events.SubscriptionUpgraded)
}

func (s *Service) Downgrade(ctx context.Context, id string, req subscriptiondomain.ChangePlanRequest) error {
	return s.changePlan(ctx, id, req, events.SubscriptionDowngraded)
}

func (s *Service) GetActive(ctx context.Context, userID string) (subscriptiondomain.Subscription, error) {
	parsed, err := subscriptiondomain.ParseID(strings.TrimSpace(userID), subscriptiondomain.ErrInvalidUser)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	pointer, err := s.repo.FindActivePointer(ctx, s.db, parsed)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if pointer == nil {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrNoActiveSubscription
	}

	item, err := s.repo.FindByID(ctx, s.db, pointer.SubscriptionID)
	if err != nil {
		return subscriptiondomain.Subscription{}, err
	}
	if item == nil || item.Status != subscriptiondomain.StatusActive {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrNoActiveSubscription
	}
	return *item, nil
}

// ExpireOverdue is the daily maintenance sweep. Every active subscription
// past its next payment date gets an overdue event; those past the grace
// period are expired, and at-period-end cancels are finalized.
func (s *Service) ExpireOverdue(ctx context.Context, now time.Time) (subscriptiondomain.SweepResult, error) {
	var result subscriptiondomain.SweepResult

	graceDays := s.policy.Get().GraceDays
	overdue, err := s.repo.FindOverdue(ctx, s.db, now, 0)
	if err != nil {
		return result, err
	}

	for i := range overdue {
		sub := overdue[i]

		if sub.CancelAtPeriodEnd {
			if err := s.applyTransition(ctx, &sub, subscriptiondomain.StatusCancelled, now, map[string]any{"cancelled_at": now}); err != nil {
				s.log.Warn("period-end cancel failed", zap.String("subscription_id", sub.ID.String()), zap.Error(err))
				continue
			}
			result.Cancelled++
			s.publish(ctx, events.SubscriptionCancelled, &sub)
			continue
		}

		result.Overdue++
		s.publish(ctx, events.SubscriptionOverdue, &sub)

		graceEnd := sub.NextPaymentAt.AddDate(0, 0, graceDays)
		if now.Before(graceEnd) {
			continue
		}

		if err := s.applyTransition(ctx, &sub, subscriptiondomain.StatusExpired, now, map[string]any{"expired_at": now}); err != nil {
			s.log.Warn("auto-expiry failed", zap.String("subscription_id", sub.ID.String()), zap.Error(err))
			continue
		}
		result.Expired++
		s.publish(ctx, events.SubscriptionExpired, &sub)
	}

	return result, nil
}

func (s *Service) changePlan(ctx context.Context, id string, req subscriptiondomain.ChangePlanRequest, kind events.Kind) error {
	subscriptionID, err := subscriptiondomain.ParseID(strings.TrimSpace(id), subscriptiondomain.ErrInvalidSubscription)
	if err != nil {
		return err
	}
	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		return subscriptiondomain.ErrInvalidPlan
	}

	item, err := s.repo.FindByID(ctx, s.db, subscriptionID)
	if err != nil {
		return err
	}
	if item == nil {
		return subscriptiondomain.ErrSubscriptionNotFound
	}
	if item.Status != subscriptiondomain.StatusActive {
		return subscriptiondomain.ErrInvalidTransition
	}

	previousTier := item.Tier
	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, s.db, subscriptionID, map[string]any{
		"plan_id":    planID,
		"tier":       strings.ToLower(strings.TrimSpace(req.Tier)),
		"updated_at": now,
	}); err != nil {
		return err
	}

	item.PlanID = planID
	item.Tier = strings.ToLower(strings.TrimSpace(req.Tier))
	s.publishWith(ctx, kind, item, events.Payload{"previous_tier": previousTier})
	return nil
}

type mutator func(sub *subscriptiondomain.Subscription, now time.Time, fields map[string]any)

func (s *Service) transition(ctx context.Context, id string, target subscriptiondomain.Status, mutate mutator, kind events.Kind) error {
	subscriptionID, err := subscriptiondomain.ParseID(strings.TrimSpace(id), subscriptiondomain.ErrInvalidSubscription)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, subscriptionID)
	if err != nil {
		return err
	}
	if item == nil {
		return subscriptiondomain.ErrSubscriptionNotFound
	}
	if !isTransitionAllowed(item.Status, target) {
		return subscriptiondomain.ErrInvalidTransition
	}

	now := s.clock.Now()
	fields := map[string]any{}
	mutate(item, now, fields)

	if err := s.applyTransition(ctx, item, target, now, fields); err != nil {
		return err
	}

	s.publish(ctx, kind, item)
	return nil
}

func (s *Service) applyTransition(ctx context.Context, sub *subscriptiondomain.Subscription, target subscriptiondomain.Status, now time.Time, fields map[string]any) error {
	fields["status"] = target
	fields["updated_at"] = now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateFields(ctx, tx, sub.ID, fields); err != nil {
			return err
		}
		switch target {
		case subscriptiondomain.StatusActive:
			return s.repo.SetActivePointer(ctx, tx, sub.UserID, sub.ID)
		case subscriptiondomain.StatusCancelled, subscriptiondomain.StatusExpired:
			return s.repo.ClearActivePointer(ctx, tx, sub.UserID, sub.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sub.Status = target
	sub.UpdatedAt = now
	return nil
}

func (s *Service) publish(ctx context.Context, kind events.Kind, sub *subscriptiondomain.Subscription) {
	s.publishWith(ctx, kind, sub, nil)
}

func (s *Service) publishWith(ctx context.Context, kind events.Kind, sub *subscriptiondomain.Subscription, extra events.Payload) {
	payload := events.Payload{
		"subscription_id": sub.ID.String(),
		"user_id":         sub.UserID.String(),
		"plan_id":         sub.PlanID,
		"tier":            sub.Tier,
		"status":          string(sub.Status),
		"billing_cycle":   string(sub.BillingCycle),
		"amount":          sub.Amount,
		"currency":        sub.Currency,
		"next_payment_at": sub.NextPaymentAt.Format(time.RFC3339),
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.dispatcher.Publish(ctx, kind, payload)
}

func isTransitionAllowed(current, target subscriptiondomain.Status) bool {
	switch current {
	case subscriptiondomain.StatusPending:
		return target == subscriptiondomain.StatusActive || target == subscriptiondomain.StatusCancelled
	case subscriptiondomain.StatusActive:
		return target == subscriptiondomain.StatusPaused ||
			target == subscriptiondomain.StatusCancelled ||
			target == subscriptiondomain.StatusExpired
	case subscriptiondomain.StatusPaused:
		return target == subscriptiondomain.StatusActive || target == subscriptiondomain.StatusCancelled
	default:
		return false
	}
}
