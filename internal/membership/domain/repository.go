package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertLevel(ctx context.Context, db *gorm.DB, level *Level) error
	FindLevel(ctx context.Context, db *gorm.DB, levelID string) (*Level, error)
	ListLevels(ctx context.Context, db *gorm.DB) ([]Level, error)
	LowestLevel(ctx context.Context, db *gorm.DB) (*Level, error)
	FindUserLevel(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*UserLevel, error)
	UpsertUserLevel(ctx context.Context, db *gorm.DB, userLevel *UserLevel) error
	InsertHistory(ctx context.Context, db *gorm.DB, entry *LevelHistory) error
	ListHistory(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]LevelHistory, error)
	FindContentRule(ctx context.Context, db *gorm.DB, contentType, contentID string) (*ContentRule, error)
	UpsertContentRule(ctx context.Context, db *gorm.DB, rule *ContentRule) error
	UsageCount(ctx context.Context, db *gorm.DB, userID snowflake.ID, kind string) (int, error)
	IncrementUsage(ctx context.Context, db *gorm.DB, userID snowflake.ID, kind string) error
}
