package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	automationdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() automationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, automation *automationdomain.Automation) error {
	return db.WithContext(ctx).Create(automation).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*automationdomain.Automation, error) {
	var automation automationdomain.Automation
	err := db.WithContext(ctx).Where("id = ?", id).First(&automation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &automation, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status automationdomain.Status, triggerType string) ([]automationdomain.Automation, error) {
	stmt := db.WithContext(ctx).Order("created_at ASC, id ASC")
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if triggerType != "" {
		stmt = stmt.Where("trigger_type = ?", triggerType)
	}
	var items []automationdomain.Automation
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&automationdomain.Automation{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&automationdomain.Automation{}).Error
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, log *automationdomain.RunLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) ListLogs(ctx context.Context, db *gorm.DB, automationID snowflake.ID, limit int) ([]automationdomain.RunLog, error) {
	stmt := db.WithContext(ctx).
		Where("automation_id = ?", automationID).
		Order("triggered_at DESC, id DESC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var logs []automationdomain.RunLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *repo) DeleteLogs(ctx context.Context, db *gorm.DB, automationID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("automation_id = ?", automationID).
		Delete(&automationdomain.RunLog{}).Error
}
