package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/clock"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/config"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/repository"
	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type eventRecorder struct {
	mu    sync.Mutex
	kinds []events.Kind
}

func (r *eventRecorder) Handle(_ context.Context, kind events.Kind, _ events.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *eventRecorder) Kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupService(t *testing.T, fake *clock.FakeClock) (subscriptiondomain.Service, *gorm.DB, *eventRecorder) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&subscriptiondomain.Subscription{}, &subscriptiondomain.ActivePointer{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	recorder := &eventRecorder{}
	dispatcher := events.NewDispatcher(zap.NewNop())
	dispatcher.Subscribe(recorder)

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      mustNode(t),
		Clock:      fake,
		Repo:       repository.Provide(),
		Policy:     config.NewStaticPolicyHolder(config.DefaultBillingPolicy()),
		Dispatcher: dispatcher,
	})
	return svc, db, recorder
}

func TestCreateDefaultsToActiveMonthly(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.January, 15))
	svc, _, recorder := setupService(t, fake)
	ctx := context.Background()

	sub, err := svc.Create(ctx, subscriptiondomain.CreateRequest{
		UserID: "101",
		PlanID: "plan-premium",
		Tier:   "premium",
		Amount: 2999,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if sub.Status != subscriptiondomain.StatusActive {
		t.Fatalf("status = %s, want active", sub.Status)
	}
	if sub.BillingCycle != subscriptiondomain.CycleMonthly {
		t.Fatalf("cycle = %s, want monthly", sub.BillingCycle)
	}
	if want := date(2024, time.February, 15); !sub.NextPaymentAt.Equal(want) {
		t.Fatalf("next payment = %v, want %v", sub.NextPaymentAt, want)
	}

	active, err := svc.GetActive(ctx, "101")
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.ID != sub.ID {
		t.Fatalf("active pointer = %s, want %s", active.ID, sub.ID)
	}

	kinds := recorder.Kinds()
	if len(kinds) != 1 || kinds[0] != events.SubscriptionCreated {
		t.Fatalf("events = %v, want [subscription_created]", kinds)
	}
}

func TestCreateWithTrialStartsPending(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.March, 1))
	svc, _, _ := setupService(t, fake)

	sub, err := svc.Create(context.Background(), subscriptiondomain.CreateRequest{
		UserID:    "102",
		PlanID:    "plan-basic",
		TrialDays: 14,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sub.Status != subscriptiondomain.StatusPending {
		t.Fatalf("status = %s, want pending", sub.Status)
	}
	if sub.TrialEndAt == nil || !sub.TrialEndAt.Equal(date(2024, time.March, 15)) {
		t.Fatalf("trial end = %v, want 2024-03-15", sub.TrialEndAt)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.January, 1))
	svc, _, _ := setupService(t, fake)
	ctx := context.Background()

	if _, err := svc.Create(ctx, subscriptiondomain.CreateRequest{PlanID: "p"}); !errors.Is(err, subscriptiondomain.ErrInvalidUser) {
		t.Fatalf("missing user: got %v", err)
	}
	if _, err := svc.Create(ctx, subscriptiondomain.CreateRequest{UserID: "1"}); !errors.Is(err, subscriptiondomain.ErrInvalidPlan) {
		t.Fatalf("missing plan: got %v", err)
	}
	if _, err := svc.Create(ctx, subscriptiondomain.CreateRequest{UserID: "1", PlanID: "p", BillingCycle: "fortnightly"}); !errors.Is(err, subscriptiondomain.ErrInvalidCycle) {
		t.Fatalf("bad cycle: got %v", err)
	}
}

func TestPauseResumeRecomputesNextPayment(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.January, 15))
	svc, _, recorder := setupService(t, fake)
	ctx := context.Background()

	sub, err := svc.Create(ctx, subscriptiondomain.CreateRequest{UserID: "103", PlanID: "plan"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Pause(ctx, sub.ID.String()); err != nil {
		t.Fatalf("pause: %v", err)
	}

	// Pausing a paused subscription is a state conflict.
	if err := svc.Pause(ctx, sub.ID.String()); !errors.Is(err, subscriptiondomain.ErrInvalidTransition) {
		t.Fatalf("double pause: got %v", err)
	}

	fake.Advance(20 * 24 * time.Hour)
	if err := svc.Resume(ctx, sub.ID.String()); err != nil {
		t.Fatalf("resume: %v", err)
	}

	resumed, err := svc.Get(ctx, sub.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if want := date(2024, time.March, 4); !resumed.NextPaymentAt.Equal(want) {
		t.Fatalf("next payment after resume = %v, want %v", resumed.NextPaymentAt, want)
	}

	kinds := recorder.Kinds()
	want := []events.Kind{events.SubscriptionCreated, events.SubscriptionPaused, events.SubscriptionResumed}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestResumeNonPausedFails(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.January, 15))
	svc, _, _ := setupService(t, fake)
	ctx := context.Background()

	sub, err := svc.Create(ctx, subscriptiondomain.CreateRequest{UserID: "104", PlanID: "plan"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Resume(ctx, sub.ID.String()); !errors.Is(err, subscriptiondomain.ErrInvalidTransition) {
		t.Fatalf("resume active: got %v", err)
	}
}

func TestCancelImmediateClearsActivePointer(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.January, 15))
	svc, _, _ := setupService(t, fake)
	ctx := context.Background()

	sub, err := svc.Create(ctx, subscriptiondomain.CreateRequest{UserID: "105", PlanID: "plan"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Cancel(ctx, sub.ID.String(), true); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got, err := svc.Get(ctx, sub.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != subscriptiondomain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}

	if _, err := svc.GetActive(ctx, "105"); !errors.Is(err, subscriptiondomain.ErrNoActiveSubscription) {
		t.Fatalf("get active after cancel: got %v", err)
	}

	// Terminal states admit no further transitions.
	if err := svc.Pause(ctx, sub.ID.String()); !errors.Is(err, subscriptiondomain.ErrInvalidTransition) {
		t.Fatalf("pause cancelled: got %v", err)
	}
}

func TestCancelAtPeriodEndStaysActive(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.January, 15))
	svc, _, _ := setupService(t, fake)
	ctx := context.Background()

	sub, err := svc.Create(ctx, subscriptiondomain.CreateRequest{UserID: "106", PlanID: "plan"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Cancel(ctx, sub.ID.String(), false); err != nil {
		t.Fatalf("cancel at period end: %v", err)
	}

	got, err := svc.Get(ctx, sub.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != subscriptiondomain.StatusActive {
		t.Fatalf("status = %s, want active", got.Status)
	}
	if !got.CancelAtPeriodEnd {
		t.Fatal("cancel_at_period_end not set")
	}
}

func TestUpgradeRequiresActive(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.January, 15))
	svc, _, recorder := setupService(t, fake)
	ctx := context.Background()

	sub, err := svc.Create(ctx, subscriptiondomain.CreateRequest{UserID: "107", PlanID: "plan-basic", Tier: "basic"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Upgrade(ctx, sub.ID.String(), subscriptiondomain.ChangePlanRequest{PlanID: "plan-pro", Tier: "pro"}); err != nil {
		t.Fatalf("upgrade: %v", err)
	}

	got, err := svc.Get(ctx, sub.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Tier != "pro" || got.PlanID != "plan-pro" {
		t.Fatalf("after upgrade: plan=%s tier=%s", got.PlanID, got.Tier)
	}

	if err := svc.Pause(ctx, sub.ID.String()); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := svc.Downgrade(ctx, sub.ID.String(), subscriptiondomain.ChangePlanRequest{PlanID: "plan-basic", Tier: "basic"}); !errors.Is(err, subscriptiondomain.ErrInvalidTransition) {
		t.Fatalf("downgrade paused: got %v", err)
	}

	kinds := recorder.Kinds()
	sawUpgrade := false
	for _, k := range kinds {
		if k == events.SubscriptionUpgraded {
			sawUpgrade = true
		}
	}
	if !sawUpgrade {
		t.Fatalf("events = %v, want subscription_upgraded present", kinds)
	}
}

func TestExpireOverdueHonorsGracePeriod(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.January, 1))
	svc, _, recorder := setupService(t, fake)
	ctx := context.Background()

	sub, err := svc.Create(ctx, subscriptiondomain.CreateRequest{UserID: "108", PlanID: "plan"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Due 2024-02-01. Within the 7 day grace window it stays active.
	result, err := svc.ExpireOverdue(ctx, date(2024, time.February, 3))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Overdue != 1 || result.Expired != 0 {
		t.Fatalf("within grace: %+v", result)
	}

	got, _ := svc.Get(ctx, sub.ID.String())
	if got.Status != subscriptiondomain.StatusActive {
		t.Fatalf("status within grace = %s, want active", got.Status)
	}

	// Past the grace window it expires.
	result, err = svc.ExpireOverdue(ctx, date(2024, time.February, 9))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Expired != 1 {
		t.Fatalf("past grace: %+v", result)
	}

	got, _ = svc.Get(ctx, sub.ID.String())
	if got.Status != subscriptiondomain.StatusExpired {
		t.Fatalf("status past grace = %s, want expired", got.Status)
	}

	sawExpired := false
	for _, k := range recorder.Kinds() {
		if k == events.SubscriptionExpired {
			sawExpired = true
		}
	}
	if !sawExpired {
		t.Fatal("subscription_expired event not published")
	}
}

func TestExpireOverdueCancelsPendingCancellation(t *testing.T) {
	fake := clock.NewFakeClock(date(2024, time.January, 1))
	svc, _, _ := setupService(t, fake)
	ctx := context.Background()

	sub, err := svc.Create(ctx, subscriptiondomain.CreateRequest{UserID: "109", PlanID: "plan"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Cancel(ctx, sub.ID.String(), false); err != nil {
		t.Fatalf("cancel at period end: %v", err)
	}

	result, err := svc.ExpireOverdue(ctx, date(2024, time.February, 2))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Cancelled != 1 {
		t.Fatalf("sweep result: %+v", result)
	}

	got, _ := svc.Get(ctx, sub.ID.String())
	if got.Status != subscriptiondomain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
}
