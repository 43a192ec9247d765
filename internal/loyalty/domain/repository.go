package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindAccount(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Account, error)
	UpsertAccount(ctx context.Context, db *gorm.DB, account *Account) error
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]Transaction, error)
	TrimTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID, keep int) error
	InsertReward(ctx context.Context, db *gorm.DB, reward *Reward) error
	FindReward(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Reward, error)
	ListRewards(ctx context.Context, db *gorm.DB, activeOnly bool) ([]Reward, error)
	HasMilestone(ctx context.Context, db *gorm.DB, userID snowflake.ID, threshold int) (bool, error)
	InsertMilestone(ctx context.Context, db *gorm.DB, award *MilestoneAward) error
	InsertDiscountCode(ctx context.Context, db *gorm.DB, code *DiscountCode) error
	InsertTierBoost(ctx context.Context, db *gorm.DB, boost *TierBoost) error
	DeleteExpiredTierBoosts(ctx context.Context, db *gorm.DB, before time.Time) (int64, error)
}
