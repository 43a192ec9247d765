// Package domain contains persistence models for the loyalty ledger.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Account holds a user's current point balance. The balance is derived
// state; transactions are the source of truth for how it got there.
type Account struct {
	UserID    snowflake.ID `gorm:"primaryKey"`
	Balance   int          `gorm:"not null;default:0"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "loyalty_accounts" }

// Transaction is one signed ledger movement. History is trimmed to the
// most recent entries per user (HistoryCap).
type Transaction struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID      `gorm:"not null;index" json:"user_id"`
	Points       int               `gorm:"not null" json:"points"`
	Type         string            `gorm:"type:text;not null" json:"type"`
	Description  string            `gorm:"type:text" json:"description"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	RunningTotal int               `gorm:"not null" json:"running_total"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "loyalty_transactions" }

// HistoryCap bounds per-user transaction history.
const HistoryCap = 200

// RewardType distinguishes the side effect a redemption applies.
type RewardType string

const (
	RewardDiscount  RewardType = "discount"
	RewardCourse    RewardType = "course"
	RewardProduct   RewardType = "product"
	RewardExtension RewardType = "extension"
	RewardUpgrade   RewardType = "upgrade"
)

// Reward is a catalog entry users spend points on.
type Reward struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name       string            `gorm:"type:text;not null" json:"name"`
	Type       RewardType        `gorm:"type:text;not null" json:"type"`
	Cost       int               `gorm:"not null" json:"cost"`
	Value      int               `gorm:"not null" json:"value"`
	Active     bool              `gorm:"not null;default:true" json:"active"`
	Conditions datatypes.JSONMap `gorm:"type:jsonb" json:"conditions,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Reward) TableName() string { return "loyalty_rewards" }

// MilestoneAward records a one-time threshold bonus grant.
type MilestoneAward struct {
	UserID    snowflake.ID `gorm:"primaryKey"`
	Threshold int          `gorm:"primaryKey"`
	GrantedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (MilestoneAward) TableName() string { return "loyalty_milestone_awards" }

// DiscountCode is the artifact of a discount redemption: single use,
// percentage off, expiring.
type DiscountCode struct {
	Code      string       `gorm:"primaryKey;type:text" json:"code"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	Percent   int          `gorm:"not null" json:"percent"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	Redeemed  bool         `gorm:"not null;default:false" json:"redeemed"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (DiscountCode) TableName() string { return "loyalty_discount_codes" }

// TierBoost is a temporary tier elevation bought with points.
type TierBoost struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"user_id"`
	Tier      string       `gorm:"type:text;not null" json:"tier"`
	ExpiresAt time.Time    `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (TierBoost) TableName() string { return "loyalty_tier_boosts" }
