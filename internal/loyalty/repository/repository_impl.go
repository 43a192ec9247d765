package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	loyaltydomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() loyaltydomain.Repository {
	return &repo{}
}

func (r *repo) FindAccount(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*loyaltydomain.Account, error) {
	var account loyaltydomain.Account
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repo) UpsertAccount(ctx context.Context, db *gorm.DB, account *loyaltydomain.Account) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(account).Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *loyaltydomain.Transaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]loyaltydomain.Transaction, error) {
	stmt := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var items []loyaltydomain.Transaction
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// TrimTransactions drops everything older than the newest `keep` entries.
func (r *repo) TrimTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID, keep int) error {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&loyaltydomain.Transaction{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(keep).
		Pluck("id", &ids).Error
	if err != nil {
		return err
	}
	if len(ids) < keep {
		return nil
	}
	return db.WithContext(ctx).
		Where("user_id = ? AND id NOT IN ?", userID, ids).
		Delete(&loyaltydomain.Transaction{}).Error
}

func (r *repo) InsertReward(ctx context.Context, db *gorm.DB, reward *loyaltydomain.Reward) error {
	return db.WithContext(ctx).Create(reward).Error
}

func (r *repo) FindReward(ctx context.Context, db *gorm.DB, id snowflake.ID) (*loyaltydomain.Reward, error) {
	var reward loyaltydomain.Reward
	err := db.WithContext(ctx).Where("id = ?", id).First(&reward).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reward, nil
}

func (r *repo) ListRewards(ctx context.Context, db *gorm.DB, activeOnly bool) ([]loyaltydomain.Reward, error) {
	stmt := db.WithContext(ctx).Order("cost ASC")
	if activeOnly {
		stmt = stmt.Where("active = ?", true)
	}
	var rewards []loyaltydomain.Reward
	if err := stmt.Find(&rewards).Error; err != nil {
		return nil, err
	}
	return rewards, nil
}

func (r *repo) HasMilestone(ctx context.Context, db *gorm.DB, userID snowflake.ID, threshold int) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&loyaltydomain.MilestoneAward{}).
		Where("user_id = ? AND threshold = ?", userID, threshold).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertMilestone(ctx context.Context, db *gorm.DB, award *loyaltydomain.MilestoneAward) error {
	return db.WithContext(ctx).Create(award).Error
}

func (r *repo) InsertDiscountCode(ctx context.Context, db *gorm.DB, code *loyaltydomain.DiscountCode) error {
	return db.WithContext(ctx).Create(code).Error
}

func (r *repo) InsertTierBoost(ctx context.Context, db *gorm.DB, boost *loyaltydomain.TierBoost) error {
	return db.WithContext(ctx).Create(boost).Error
}

func (r *repo) DeleteExpiredTierBoosts(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&loyaltydomain.TierBoost{})
	return result.RowsAffected, result.Error
}
