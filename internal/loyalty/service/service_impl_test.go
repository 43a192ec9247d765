package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/clock"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/config"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	loyaltydomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/domain"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/repository"
	membershipdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/domain"
	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type subscriptionStub struct {
	getActive func(ctx context.Context, userID string) (subscriptiondomain.Subscription, error)
	update    func(ctx context.Context, id string, req subscriptiondomain.UpdateRequest) error
}

func (s *subscriptionStub) Create(context.Context, subscriptiondomain.CreateRequest) (subscriptiondomain.Subscription, error) {
	return subscriptiondomain.Subscription{}, nil
}
func (s *subscriptionStub) Get(context.Context, string) (subscriptiondomain.Subscription, error) {
	return subscriptiondomain.Subscription{}, nil
}
func (s *subscriptionStub) List(context.Context, subscriptiondomain.ListRequest) ([]subscriptiondomain.Subscription, error) {
	return nil, nil
}
func (s *subscriptionStub) Update(ctx context.Context, id string, req subscriptiondomain.UpdateRequest) error {
	if s.update != nil {
		return s.update(ctx, id, req)
	}
	return nil
}
func (s *subscriptionStub) Pause(context.Context, string) error                                { return nil }
func (s *subscriptionStub) Resume(context.Context, string) error                               { return nil }
func (s *subscriptionStub) Cancel(context.Context, string, bool) error                         { return nil }
func (s *subscriptionStub) Upgrade(context.Context, string, subscriptiondomain.ChangePlanRequest) error {
	return nil
}
func (s *subscriptionStub) Downgrade(context.Context, string, subscriptiondomain.ChangePlanRequest) error {
	return nil
}
func (s *subscriptionStub) GetActive(ctx context.Context, userID string) (subscriptiondomain.Subscription, error) {
	if s.getActive != nil {
		return s.getActive(ctx, userID)
	}
	return subscriptiondomain.Subscription{}, subscriptiondomain.ErrNoActiveSubscription
}
func (s *subscriptionStub) ExpireOverdue(context.Context, time.Time) (subscriptiondomain.SweepResult, error) {
	return subscriptiondomain.SweepResult{}, nil
}

type membershipStub struct {
	hasLevel func(ctx context.Context, userID, requiredLevelID string) (bool, error)
}

func (m *membershipStub) CreateLevel(context.Context, membershipdomain.CreateLevelRequest) (membershipdomain.Level, error) {
	return membershipdomain.Level{}, nil
}
func (m *membershipStub) ListLevels(context.Context) ([]membershipdomain.Level, error) {
	return nil, nil
}
func (m *membershipStub) GetLevel(context.Context, string) (membershipdomain.Level, error) {
	return membershipdomain.Level{}, nil
}
func (m *membershipStub) SetLevel(context.Context, string, string, map[string]any) error { return nil }
func (m *membershipStub) HasLevel(ctx context.Context, userID, requiredLevelID string) (bool, error) {
	if m.hasLevel != nil {
		return m.hasLevel(ctx, userID, requiredLevelID)
	}
	return false, nil
}
func (m *membershipStub) CanAccessContent(context.Context, string, string, string) (membershipdomain.Decision, error) {
	return membershipdomain.Decision{}, nil
}
func (m *membershipStub) RecordUsage(context.Context, string, string) error            { return nil }
func (m *membershipStub) SetContentRule(context.Context, string, string, string) error { return nil }
func (m *membershipStub) History(context.Context, string, int) ([]membershipdomain.LevelHistory, error) {
	return nil, nil
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

type fixture struct {
	svc           loyaltydomain.Service
	clock         *clock.FakeClock
	subscriptions *subscriptionStub
	memberships   *membershipStub
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	return setupServiceWithPolicy(t, config.DefaultBillingPolicy())
}

func setupServiceWithPolicy(t *testing.T, policy config.BillingPolicy) *fixture {
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

	if err := db.AutoMigrate(
		&loyaltydomain.Account{},
		&loyaltydomain.Transaction{},
		&loyaltydomain.Reward{},
		&loyaltydomain.MilestoneAward{},
		&loyaltydomain.DiscountCode{},
		&loyaltydomain.TierBoost{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	fake := clock.NewFakeClock(time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))
	subscriptions := &subscriptionStub{}
	memberships := &membershipStub{}

	svc := NewService(ServiceParam{
		DB:            db,
		Log:           zap.NewNop(),
		GenID:         mustNode(t),
		Clock:         fake,
		Repo:          repository.Provide(),
		Policy:        config.NewStaticPolicyHolder(policy),
		Dispatcher:    events.NewDispatcher(zap.NewNop()),
		Subscriptions: subscriptions,
		Memberships:   memberships,
	})
	return &fixture{svc: svc, clock: fake, subscriptions: subscriptions, memberships: memberships}
}

func TestAwardKeepsRunningTotals(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "301", Points: 30}); err != nil {
		t.Fatalf("award: %v", err)
	}
	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "301", Points: 40, Description: "course completed"}); err != nil {
		t.Fatalf("award: %v", err)
	}

	balance, err := f.svc.Balance(ctx, "301")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 70 {
		t.Fatalf("balance = %d, want 70", balance)
	}

	history, err := f.svc.History(ctx, "301", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history))
	}
	// Newest first.
	if history[0].RunningTotal != 70 || history[1].RunningTotal != 30 {
		t.Fatalf("running totals = %d, %d; want 70, 30", history[0].RunningTotal, history[1].RunningTotal)
	}
	if history[0].Type != "earn" {
		t.Fatalf("type = %s, want earn", history[0].Type)
	}
}

func TestAwardGrantsMilestoneBonusOnce(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "302", Points: 120}); err != nil {
		t.Fatalf("award: %v", err)
	}

	// 120 crosses the 100 threshold, granting the 50 point bonus.
	balance, err := f.svc.Balance(ctx, "302")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 170 {
		t.Fatalf("balance = %d, want 170", balance)
	}

	history, err := f.svc.History(ctx, "302", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history))
	}
	if history[0].Type != "milestone_bonus" {
		t.Fatalf("newest type = %s, want milestone_bonus", history[0].Type)
	}

	// Dipping below and re-crossing the threshold does not grant it again.
	if err := f.svc.Deduct(ctx, loyaltydomain.AwardRequest{UserID: "302", Points: 100}); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "302", Points: 100}); err != nil {
		t.Fatalf("award: %v", err)
	}
	balance, err = f.svc.Balance(ctx, "302")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 170 {
		t.Fatalf("balance after re-cross = %d, want 170", balance)
	}
}

func TestAwardCrossingSeveralThresholds(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "303", Points: 600}); err != nil {
		t.Fatalf("award: %v", err)
	}

	// 600 crosses 100 and 500 in one award: 600 + 50 + 50.
	balance, err := f.svc.Balance(ctx, "303")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 700 {
		t.Fatalf("balance = %d, want 700", balance)
	}
}

func TestDeductNeverGoesBelowZero(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "304", Points: 50}); err != nil {
		t.Fatalf("award: %v", err)
	}

	err := f.svc.Deduct(ctx, loyaltydomain.AwardRequest{UserID: "304", Points: 80})
	if !errors.Is(err, loyaltydomain.ErrInsufficientPoints) {
		t.Fatalf("overdraw: got %v", err)
	}

	balance, err := f.svc.Balance(ctx, "304")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 50 {
		t.Fatalf("balance = %d, want 50 untouched", balance)
	}
}

func TestAwardRejectsNonPositivePoints(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "305", Points: 0}); !errors.Is(err, loyaltydomain.ErrInvalidPoints) {
		t.Fatalf("zero points: got %v", err)
	}
	if err := f.svc.Deduct(ctx, loyaltydomain.AwardRequest{UserID: "305", Points: -5}); !errors.Is(err, loyaltydomain.ErrInvalidPoints) {
		t.Fatalf("negative points: got %v", err)
	}
}

func TestCanRedeemRefusesWithReason(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	reward, err := f.svc.CreateReward(ctx, loyaltydomain.CreateRewardRequest{
		Name: "10% Discount", Type: "discount", Cost: 100, Value: 10,
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	err = f.svc.CanRedeem(ctx, "306", reward.ID.String())
	var redeemErr *loyaltydomain.RedeemError
	if !errors.As(err, &redeemErr) {
		t.Fatalf("want RedeemError, got %v", err)
	}
	if redeemErr.Reason != "Insufficient points" {
		t.Fatalf("reason = %q", redeemErr.Reason)
	}

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "306", Points: 99}); err != nil {
		t.Fatalf("award: %v", err)
	}
	if err := f.svc.CanRedeem(ctx, "306", reward.ID.String()); !errors.As(err, &redeemErr) {
		t.Fatalf("99 of 100 points: got %v", err)
	}

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "306", Points: 1}); err != nil {
		t.Fatalf("award: %v", err)
	}
	if err := f.svc.CanRedeem(ctx, "306", reward.ID.String()); err != nil {
		t.Fatalf("exact cost should redeem: %v", err)
	}
}

func TestCanRedeemChecksConditions(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "307", Points: 90}); err != nil {
		t.Fatalf("award: %v", err)
	}

	subscriptionGated, err := f.svc.CreateReward(ctx, loyaltydomain.CreateRewardRequest{
		Name: "Extension", Type: "extension", Cost: 50, Value: 7,
		Conditions: map[string]any{"active_subscription": true},
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	err = f.svc.CanRedeem(ctx, "307", subscriptionGated.ID.String())
	var redeemErr *loyaltydomain.RedeemError
	if !errors.As(err, &redeemErr) {
		t.Fatalf("no subscription: got %v", err)
	}
	if redeemErr.Reason != "An active subscription is required" {
		t.Fatalf("reason = %q", redeemErr.Reason)
	}

	levelGated, err := f.svc.CreateReward(ctx, loyaltydomain.CreateRewardRequest{
		Name: "VIP Perk", Type: "discount", Cost: 50, Value: 20,
		Conditions: map[string]any{"membership_level": "premium"},
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	if err := f.svc.CanRedeem(ctx, "307", levelGated.ID.String()); !errors.As(err, &redeemErr) {
		t.Fatalf("basic member: got %v", err)
	}

	f.memberships.hasLevel = func(context.Context, string, string) (bool, error) { return true, nil }
	if err := f.svc.CanRedeem(ctx, "307", levelGated.ID.String()); err != nil {
		t.Fatalf("premium member refused: %v", err)
	}
}

func TestRedeemDiscountIssuesCode(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "308", Points: 90}); err != nil {
		t.Fatalf("award: %v", err)
	}
	reward, err := f.svc.CreateReward(ctx, loyaltydomain.CreateRewardRequest{
		Name: "10% Discount", Type: "discount", Cost: 60, Value: 10,
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	result, err := f.svc.Redeem(ctx, "308", reward.ID.String())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.DiscountCode == "" {
		t.Fatal("no discount code issued")
	}

	balance, err := f.svc.Balance(ctx, "308")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 30 {
		t.Fatalf("balance = %d, want 30", balance)
	}

	history, err := f.svc.History(ctx, "308", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history[0].Type != "redeem" || history[0].Points != -60 {
		t.Fatalf("newest entry = %s %d, want redeem -60", history[0].Type, history[0].Points)
	}
}

func TestRedeemRefundsWhenApplyFails(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "309", Points: 90}); err != nil {
		t.Fatalf("award: %v", err)
	}
	reward, err := f.svc.CreateReward(ctx, loyaltydomain.CreateRewardRequest{
		Name: "7 Day Extension", Type: "extension", Cost: 60, Value: 7,
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	// No active subscription: the extension cannot apply after the points
	// were deducted, so the deduction must be compensated.
	_, err = f.svc.Redeem(ctx, "309", reward.ID.String())
	if !errors.Is(err, subscriptiondomain.ErrNoActiveSubscription) {
		t.Fatalf("redeem: got %v", err)
	}

	balance, err := f.svc.Balance(ctx, "309")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 90 {
		t.Fatalf("balance = %d, want 90 restored", balance)
	}

	history, err := f.svc.History(ctx, "309", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if history[0].Type != "refund" {
		t.Fatalf("newest entry = %s, want refund", history[0].Type)
	}
}

func TestRedeemExtensionMovesNextPayment(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	nextPayment := time.Date(2024, time.July, 1, 12, 0, 0, 0, time.UTC)
	f.subscriptions.getActive = func(context.Context, string) (subscriptiondomain.Subscription, error) {
		return subscriptiondomain.Subscription{
			ID:            snowflake.ID(9001),
			Status:        subscriptiondomain.StatusActive,
			NextPaymentAt: nextPayment,
		}, nil
	}
	var updated *time.Time
	f.subscriptions.update = func(_ context.Context, _ string, req subscriptiondomain.UpdateRequest) error {
		updated = req.NextPaymentAt
		return nil
	}

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "310", Points: 90}); err != nil {
		t.Fatalf("award: %v", err)
	}
	reward, err := f.svc.CreateReward(ctx, loyaltydomain.CreateRewardRequest{
		Name: "7 Day Extension", Type: "extension", Cost: 60, Value: 7,
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	result, err := f.svc.Redeem(ctx, "310", reward.ID.String())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.ExtendedDays != 7 {
		t.Fatalf("extended days = %d, want 7", result.ExtendedDays)
	}
	if updated == nil || !updated.Equal(nextPayment.AddDate(0, 0, 7)) {
		t.Fatalf("next payment = %v, want %v", updated, nextPayment.AddDate(0, 0, 7))
	}
}

func TestTierBoostExpires(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "311", Points: 90}); err != nil {
		t.Fatalf("award: %v", err)
	}
	reward, err := f.svc.CreateReward(ctx, loyaltydomain.CreateRewardRequest{
		Name: "Tier Boost", Type: "upgrade", Cost: 60, Value: 0,
		Conditions: map[string]any{"boost_tier": "pro"},
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	result, err := f.svc.Redeem(ctx, "311", reward.ID.String())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.BoostTier != "pro" {
		t.Fatalf("boost tier = %s, want pro", result.BoostTier)
	}

	removed, err := f.svc.ExpireTierBoosts(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0 while boost is live", removed)
	}

	f.clock.Advance(31 * 24 * time.Hour)
	removed, err = f.svc.ExpireTierBoosts(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func TestTierBoostExpiryFollowsPolicy(t *testing.T) {
	policy := config.DefaultBillingPolicy()
	policy.RewardExpiryDays = 10
	f := setupServiceWithPolicy(t, policy)
	ctx := context.Background()

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "315", Points: 90}); err != nil {
		t.Fatalf("award: %v", err)
	}
	reward, err := f.svc.CreateReward(ctx, loyaltydomain.CreateRewardRequest{
		Name: "Short Boost", Type: "upgrade", Cost: 60, Value: 0,
		Conditions: map[string]any{"boost_tier": "pro"},
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}
	if _, err := f.svc.Redeem(ctx, "315", reward.ID.String()); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	f.clock.Advance(9 * 24 * time.Hour)
	removed, err := f.svc.ExpireTierBoosts(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0 inside the policy window", removed)
	}

	f.clock.Advance(2 * 24 * time.Hour)
	removed, err = f.svc.ExpireTierBoosts(ctx)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1 past the policy window", removed)
	}
}

func TestInactiveRewardCannotBeRedeemed(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	inactive := false
	reward, err := f.svc.CreateReward(ctx, loyaltydomain.CreateRewardRequest{
		Name: "Retired Perk", Type: "discount", Cost: 10, Value: 5, Active: &inactive,
	})
	if err != nil {
		t.Fatalf("create reward: %v", err)
	}

	if err := f.svc.Award(ctx, loyaltydomain.AwardRequest{UserID: "312", Points: 50}); err != nil {
		t.Fatalf("award: %v", err)
	}
	if err := f.svc.CanRedeem(ctx, "312", reward.ID.String()); !errors.Is(err, loyaltydomain.ErrRewardInactive) {
		t.Fatalf("inactive reward: got %v", err)
	}
}
