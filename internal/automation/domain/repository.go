package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, automation *Automation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Automation, error)
	List(ctx context.Context, db *gorm.DB, status Status, triggerType string) ([]Automation, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	InsertLog(ctx context.Context, db *gorm.DB, log *RunLog) error
	ListLogs(ctx context.Context, db *gorm.DB, automationID snowflake.ID, limit int) ([]RunLog, error)
	DeleteLogs(ctx context.Context, db *gorm.DB, automationID snowflake.ID) error
}
