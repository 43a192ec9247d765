package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	List(ctx context.Context, db *gorm.DB, userID snowflake.ID, status Status) ([]Subscription, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	FindOverdue(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]Subscription, error)
	SetActivePointer(ctx context.Context, db *gorm.DB, userID, subscriptionID snowflake.ID) error
	ClearActivePointer(ctx context.Context, db *gorm.DB, userID, subscriptionID snowflake.ID) error
	FindActivePointer(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*ActivePointer, error)
}
