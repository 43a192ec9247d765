package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	membershipdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() membershipdomain.Repository {
	return &repo{}
}

func (r *repo) InsertLevel(ctx context.Context, db *gorm.DB, level *membershipdomain.Level) error {
	return db.WithContext(ctx).Create(level).Error
}

func (r *repo) FindLevel(ctx context.Context, db *gorm.DB, levelID string) (*membershipdomain.Level, error) {
	var level membershipdomain.Level
	err := db.WithContext(ctx).Where("id = ?", levelID).First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

func (r *repo) ListLevels(ctx context.Context, db *gorm.DB) ([]membershipdomain.Level, error) {
	var levels []membershipdomain.Level
	if err := db.WithContext(ctx).Order("priority ASC").Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *repo) LowestLevel(ctx context.Context, db *gorm.DB) (*membershipdomain.Level, error) {
	var level membershipdomain.Level
	err := db.WithContext(ctx).Order("priority ASC").First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &level, nil
}

func (r *repo) FindUserLevel(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*membershipdomain.UserLevel, error) {
	var userLevel membershipdomain.UserLevel
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&userLevel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &userLevel, nil
}

func (r *repo) UpsertUserLevel(ctx context.Context, db *gorm.DB, userLevel *membershipdomain.UserLevel) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"level_id", "updated_at"}),
	}).Create(userLevel).Error
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, entry *membershipdomain.LevelHistory) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]membershipdomain.LevelHistory, error) {
	stmt := db.WithContext(ctx).Where("user_id = ?", userID).Order("assigned_at DESC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var entries []membershipdomain.LevelHistory
	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) FindContentRule(ctx context.Context, db *gorm.DB, contentType, contentID string) (*membershipdomain.ContentRule, error) {
	var rule membershipdomain.ContentRule
	err := db.WithContext(ctx).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repo) UpsertContentRule(ctx context.Context, db *gorm.DB, rule *membershipdomain.ContentRule) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_type"}, {Name: "content_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"required_level_id"}),
	}).Create(rule).Error
}

func (r *repo) UsageCount(ctx context.Context, db *gorm.DB, userID snowflake.ID, kind string) (int, error) {
	var usage membershipdomain.UsageCount
	err := db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", userID, kind).
		First(&usage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return usage.Count, nil
}

func (r *repo) IncrementUsage(ctx context.Context, db *gorm.DB, userID snowflake.ID, kind string) error {
	usage := membershipdomain.UsageCount{
		UserID:    userID,
		Kind:      kind,
		Count:     1,
		UpdatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "kind"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count":      gorm.Expr("count + 1"),
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&usage).Error
}
