package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscription *subscriptiondomain.Subscription) error {
	return db.WithContext(ctx).Create(subscription).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var item subscriptiondomain.Subscription
	err := db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, userID snowflake.ID, status subscriptiondomain.Status) ([]subscriptiondomain.Subscription, error) {
	stmt := db.WithContext(ctx).Order("created_at DESC")
	if userID != 0 {
		stmt = stmt.Where("user_id = ?", userID)
	}
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	var items []subscriptiondomain.Subscription
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&subscriptiondomain.Subscription{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) FindOverdue(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]subscriptiondomain.Subscription, error) {
	stmt := db.WithContext(ctx).
		Where("status = ? AND next_payment_at < ?", subscriptiondomain.StatusActive, before).
		Order("next_payment_at ASC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var items []subscriptiondomain.Subscription
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetActivePointer(ctx context.Context, db *gorm.DB, userID, subscriptionID snowflake.ID) error {
	pointer := subscriptiondomain.ActivePointer{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		UpdatedAt:      time.Now().UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"subscription_id", "updated_at"}),
	}).Create(&pointer).Error
}

func (r *repo) ClearActivePointer(ctx context.Context, db *gorm.DB, userID, subscriptionID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("user_id = ? AND subscription_id = ?", userID, subscriptionID).
		Delete(&subscriptiondomain.ActivePointer{}).Error
}

func (r *repo) FindActivePointer(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*subscriptiondomain.ActivePointer, error) {
	var pointer subscriptiondomain.ActivePointer
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&pointer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pointer, nil
}
