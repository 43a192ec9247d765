package domain

import (
	"context"
	"errors"
)

type AwardRequest struct {
	UserID      string         `json:"user_id"`
	Points      int            `json:"points"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type CreateRewardRequest struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Cost       int            `json:"cost"`
	Value      int            `json:"value"`
	Active     *bool          `json:"active,omitempty"`
	Conditions map[string]any `json:"conditions,omitempty"`
}

// RedeemResult describes the applied side effect.
type RedeemResult struct {
	RewardID     string `json:"reward_id"`
	RewardType   string `json:"reward_type"`
	DiscountCode string `json:"discount_code,omitempty"`
	BoostTier    string `json:"boost_tier,omitempty"`
	ExtendedDays int    `json:"extended_days,omitempty"`
}

type Service interface {
	Award(ctx context.Context, req AwardRequest) error
	Deduct(ctx context.Context, req AwardRequest) error
	Balance(ctx context.Context, userID string) (int, error)
	History(ctx context.Context, userID string, limit int) ([]Transaction, error)
	CreateReward(ctx context.Context, req CreateRewardRequest) (Reward, error)
	ListRewards(ctx context.Context, activeOnly bool) ([]Reward, error)
	CanRedeem(ctx context.Context, userID, rewardID string) error
	Redeem(ctx context.Context, userID, rewardID string) (RedeemResult, error)
	ExpireTierBoosts(ctx context.Context) (int, error)
}

var (
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidPoints      = errors.New("invalid_points")
	ErrInvalidReward      = errors.New("invalid_reward")
	ErrRewardNotFound     = errors.New("reward_not_found")
	ErrRewardInactive     = errors.New("reward_inactive")
	ErrInsufficientPoints = errors.New("insufficient_points")
)

// RedeemError carries the human-readable reason a redemption was refused.
type RedeemError struct {
	Reason string
}

func (e *RedeemError) Error() string { return e.Reason }
