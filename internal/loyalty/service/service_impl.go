package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/clock"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/config"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	loyaltydomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/domain"
	membershipdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/domain"
	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          loyaltydomain.Repository
	Policy        *config.PolicyHolder
	Dispatcher    *events.Dispatcher
	Subscriptions subscriptiondomain.Service
	Memberships   membershipdomain.Service
}

type service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	repo          loyaltydomain.Repository
	policy        *config.PolicyHolder
	dispatcher    *events.Dispatcher
	subscriptions subscriptiondomain.Service
	memberships   membershipdomain.Service
}

func NewService(p ServiceParam) loyaltydomain.Service {
	return &service{
		db:            p.DB,
		log:           p.Log.Named("loyalty.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		policy:        p.Policy,
		dispatcher:    p.Dispatcher,
		subscriptions: p.Subscriptions,
		memberships:   p.Memberships,
	}
}

func (s *service) Award(ctx context.Context, req loyaltydomain.AwardRequest) error {
	userID, err := subscriptiondomain.ParseID(req.UserID, loyaltydomain.ErrInvalidUser)
	if err != nil {
		return err
	}
	if req.Points <= 0 {
		return loyaltydomain.ErrInvalidPoints
	}

	txnType := req.Type
	if txnType == "" {
		txnType = "earn"
	}

	now := s.clock.Now()
	var newBalance int
	var bonuses []int

	err = s.db.Transaction(func(tx *gorm.DB) error {
		newBalance, err = s.applyDelta(ctx, tx, userID, req.Points, txnType, req.Description, req.Metadata, now)
		if err != nil {
			return err
		}

		// Milestone bonuses are one-time per threshold. Crossing several
		// thresholds in a single award grants each of them.
		policy := s.policy.Get()
		for _, threshold := range policy.MilestoneThresholds {
			if newBalance < threshold || policy.MilestoneBonus <= 0 {
				continue
			}
			granted, err := s.repo.HasMilestone(ctx, tx, userID, threshold)
			if err != nil {
				return err
			}
			if granted {
				continue
			}
			if err := s.repo.InsertMilestone(ctx, tx, &loyaltydomain.MilestoneAward{
				UserID:    userID,
				Threshold: threshold,
				GrantedAt: now,
			}); err != nil {
				return err
			}
			newBalance, err = s.applyDelta(ctx, tx, userID, policy.MilestoneBonus, "milestone_bonus",
				fmt.Sprintf("Milestone bonus for reaching %d points", threshold),
				map[string]any{"threshold": threshold}, now)
			if err != nil {
				return err
			}
			bonuses = append(bonuses, threshold)
		}
		return nil
	})
	if err != nil {
		return err
	}

	payload := events.Payload{
		"user_id": userID.String(),
		"points":  req.Points,
		"type":    txnType,
		"balance": newBalance,
	}
	if len(bonuses) > 0 {
		payload["milestones"] = bonuses
	}
	s.dispatcher.Publish(ctx, events.PointsAwarded, payload)
	return nil
}

func (s *service) Deduct(ctx context.Context, req loyaltydomain.AwardRequest) error {
	userID, err := subscriptiondomain.ParseID(req.UserID, loyaltydomain.ErrInvalidUser)
	if err != nil {
		return err
	}
	if req.Points <= 0 {
		return loyaltydomain.ErrInvalidPoints
	}

	txnType := req.Type
	if txnType == "" {
		txnType = "spend"
	}

	now := s.clock.Now()
	var newBalance int

	err = s.db.Transaction(func(tx *gorm.DB) error {
		newBalance, err = s.applyDelta(ctx, tx, userID, -req.Points, txnType, req.Description, req.Metadata, now)
		return err
	})
	if err != nil {
		return err
	}

	s.dispatcher.Publish(ctx, events.PointsDeducted, events.Payload{
		"user_id": userID.String(),
		"points":  req.Points,
		"type":    txnType,
		"balance": newBalance,
	})
	return nil
}

// applyDelta moves points on the account and records the ledger entry. It
// must run inside a transaction. The balance never goes below zero.
func (s *service) applyDelta(ctx context.Context, tx *gorm.DB, userID snowflake.ID, points int, txnType, description string, metadata map[string]any, now time.Time) (int, error) {
	account, err := s.repo.FindAccount(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	balance := 0
	if account != nil {
		balance = account.Balance
	}
	if points < 0 && balance+points < 0 {
		return 0, loyaltydomain.ErrInsufficientPoints
	}
	balance += points

	if err := s.repo.UpsertAccount(ctx, tx, &loyaltydomain.Account{
		UserID:    userID,
		Balance:   balance,
		UpdatedAt: now,
	}); err != nil {
		return 0, err
	}

	if err := s.repo.InsertTransaction(ctx, tx, &loyaltydomain.Transaction{
		ID:           s.genID.Generate(),
		UserID:       userID,
		Points:       points,
		Type:         txnType,
		Description:  description,
		Metadata:     datatypes.JSONMap(metadata),
		RunningTotal: balance,
		CreatedAt:    now,
	}); err != nil {
		return 0, err
	}

	if err := s.repo.TrimTransactions(ctx, tx, userID, loyaltydomain.HistoryCap); err != nil {
		return 0, err
	}
	return balance, nil
}

func (s *service) Balance(ctx context.Context, userIDStr string) (int, error) {
	userID, err := subscriptiondomain.ParseID(userIDStr, loyaltydomain.ErrInvalidUser)
	if err != nil {
		return 0, err
	}
	account, err := s.repo.FindAccount(ctx, s.db, userID)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.Balance, nil
}

func (s *service) History(ctx context.Context, userIDStr string, limit int) ([]loyaltydomain.Transaction, error) {
	userID, err := subscriptiondomain.ParseID(userIDStr, loyaltydomain.ErrInvalidUser)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > loyaltydomain.HistoryCap {
		limit = loyaltydomain.HistoryCap
	}
	return s.repo.ListTransactions(ctx, s.db, userID, limit)
}

func (s *service) CreateReward(ctx context.Context, req loyaltydomain.CreateRewardRequest) (loyaltydomain.Reward, error) {
	if req.Name == "" || req.Cost <= 0 {
		return loyaltydomain.Reward{}, loyaltydomain.ErrInvalidReward
	}
	rewardType := loyaltydomain.RewardType(req.Type)
	switch rewardType {
	case loyaltydomain.RewardDiscount, loyaltydomain.RewardCourse, loyaltydomain.RewardProduct,
		loyaltydomain.RewardExtension, loyaltydomain.RewardUpgrade:
	default:
		return loyaltydomain.Reward{}, loyaltydomain.ErrInvalidReward
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	reward := loyaltydomain.Reward{
		ID:         s.genID.Generate(),
		Name:       req.Name,
		Type:       rewardType,
		Cost:       req.Cost,
		Value:      req.Value,
		Active:     active,
		Conditions: datatypes.JSONMap(req.Conditions),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertReward(ctx, s.db, &reward); err != nil {
		return loyaltydomain.Reward{}, err
	}
	return reward, nil
}

func (s *service) ListRewards(ctx context.Context, activeOnly bool) ([]loyaltydomain.Reward, error) {
	return s.repo.ListRewards(ctx, s.db, activeOnly)
}

func (s *service) CanRedeem(ctx context.Context, userIDStr, rewardIDStr string) error {
	_, _, err := s.checkRedeemable(ctx, userIDStr, rewardIDStr)
	return err
}

func (s *service) checkRedeemable(ctx context.Context, userIDStr, rewardIDStr string) (snowflake.ID, *loyaltydomain.Reward, error) {
	userID, err := subscriptiondomain.ParseID(userIDStr, loyaltydomain.ErrInvalidUser)
	if err != nil {
		return 0, nil, err
	}
	rewardID, err := subscriptiondomain.ParseID(rewardIDStr, loyaltydomain.ErrInvalidReward)
	if err != nil {
		return 0, nil, err
	}

	reward, err := s.repo.FindReward(ctx, s.db, rewardID)
	if err != nil {
		return 0, nil, err
	}
	if reward == nil {
		return 0, nil, loyaltydomain.ErrRewardNotFound
	}
	if !reward.Active {
		return 0, nil, loyaltydomain.ErrRewardInactive
	}

	account, err := s.repo.FindAccount(ctx, s.db, userID)
	if err != nil {
		return 0, nil, err
	}
	balance := 0
	if account != nil {
		balance = account.Balance
	}
	if balance < reward.Cost {
		return 0, nil, &loyaltydomain.RedeemError{Reason: "Insufficient points"}
	}

	if err := s.checkConditions(ctx, userIDStr, balance, reward.Conditions); err != nil {
		return 0, nil, err
	}
	return userID, reward, nil
}

func (s *service) checkConditions(ctx context.Context, userIDStr string, balance int, conditions map[string]any) error {
	if len(conditions) == 0 {
		return nil
	}

	if raw, ok := conditions["active_subscription"]; ok {
		if required, _ := raw.(bool); required {
			_, err := s.subscriptions.GetActive(ctx, userIDStr)
			if errors.Is(err, subscriptiondomain.ErrNoActiveSubscription) {
				return &loyaltydomain.RedeemError{Reason: "An active subscription is required"}
			}
			if err != nil {
				return err
			}
		}
	}

	if raw, ok := conditions["membership_level"]; ok {
		levelID, _ := raw.(string)
		if levelID != "" {
			has, err := s.memberships.HasLevel(ctx, userIDStr, levelID)
			if err != nil {
				return err
			}
			if !has {
				return &loyaltydomain.RedeemError{Reason: fmt.Sprintf("Membership level %s or higher is required", levelID)}
			}
		}
	}

	if raw, ok := conditions["min_balance"]; ok {
		min := 0
		switch v := raw.(type) {
		case float64:
			min = int(v)
		case int:
			min = v
		}
		if balance < min {
			return &loyaltydomain.RedeemError{Reason: fmt.Sprintf("A balance of at least %d points is required", min)}
		}
	}
	return nil
}

func (s *service) Redeem(ctx context.Context, userIDStr, rewardIDStr string) (loyaltydomain.RedeemResult, error) {
	userID, reward, err := s.checkRedeemable(ctx, userIDStr, rewardIDStr)
	if err != nil {
		return loyaltydomain.RedeemResult{}, err
	}

	now := s.clock.Now()
	metadata := map[string]any{"reward_id": reward.ID.String(), "reward_type": string(reward.Type)}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.applyDelta(ctx, tx, userID, -reward.Cost, "redeem",
			fmt.Sprintf("Redeemed %s", reward.Name), metadata, now)
		return err
	})
	if err != nil {
		return loyaltydomain.RedeemResult{}, err
	}

	result, err := s.applyReward(ctx, userIDStr, userID, reward, now)
	if err != nil {
		// The deduction already committed. Put the points back so a failed
		// side effect never costs the user anything.
		refundErr := s.db.Transaction(func(tx *gorm.DB) error {
			_, err := s.applyDelta(ctx, tx, userID, reward.Cost, "refund",
				fmt.Sprintf("Refund for failed redemption of %s", reward.Name), metadata, now)
			return err
		})
		if refundErr != nil {
			s.log.Error("redemption refund failed",
				zap.String("user_id", userID.String()),
				zap.String("reward_id", reward.ID.String()),
				zap.Error(refundErr))
		}
		return loyaltydomain.RedeemResult{}, err
	}

	s.dispatcher.Publish(ctx, events.RewardRedeemed, events.Payload{
		"user_id":     userID.String(),
		"reward_id":   reward.ID.String(),
		"reward_type": string(reward.Type),
		"cost":        reward.Cost,
	})
	return result, nil
}

func (s *service) applyReward(ctx context.Context, userIDStr string, userID snowflake.ID, reward *loyaltydomain.Reward, now time.Time) (loyaltydomain.RedeemResult, error) {
	result := loyaltydomain.RedeemResult{
		RewardID:   reward.ID.String(),
		RewardType: string(reward.Type),
	}

	switch reward.Type {
	case loyaltydomain.RewardDiscount:
		code := &loyaltydomain.DiscountCode{
			Code:      uuid.NewString(),
			UserID:    userID,
			Percent:   reward.Value,
			ExpiresAt: now.AddDate(0, 0, s.policy.Get().RewardExpiryDays),
			CreatedAt: now,
		}
		if err := s.repo.InsertDiscountCode(ctx, s.db, code); err != nil {
			return result, err
		}
		result.DiscountCode = code.Code

	case loyaltydomain.RewardExtension:
		sub, err := s.subscriptions.GetActive(ctx, userIDStr)
		if err != nil {
			return result, err
		}
		next := sub.NextPaymentAt.AddDate(0, 0, reward.Value)
		if err := s.subscriptions.Update(ctx, sub.ID.String(), subscriptiondomain.UpdateRequest{
			NextPaymentAt: &next,
		}); err != nil {
			return result, err
		}
		result.ExtendedDays = reward.Value

	case loyaltydomain.RewardUpgrade:
		tier := "premium"
		if raw, ok := reward.Conditions["boost_tier"]; ok {
			if v, _ := raw.(string); v != "" {
				tier = v
			}
		}
		boost := &loyaltydomain.TierBoost{
			ID:        s.genID.Generate(),
			UserID:    userID,
			Tier:      tier,
			ExpiresAt: now.AddDate(0, 0, s.policy.Get().RewardExpiryDays),
			CreatedAt: now,
		}
		if err := s.repo.InsertTierBoost(ctx, s.db, boost); err != nil {
			return result, err
		}
		result.BoostTier = tier

	case loyaltydomain.RewardCourse, loyaltydomain.RewardProduct:
		payload := events.Payload{
			"user_id":     userID.String(),
			"reward_id":   reward.ID.String(),
			"reward_type": string(reward.Type),
		}
		if raw, ok := reward.Conditions["course_id"]; ok {
			payload["course_id"] = raw
		}
		s.dispatcher.Publish(ctx, events.CourseGranted, payload)
	}
	return result, nil
}

func (s *service) ExpireTierBoosts(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteExpiredTierBoosts(ctx, s.db, s.clock.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("expired tier boosts", zap.Int64("count", removed))
	}
	return int(removed), nil
}
