// Package domain contains persistence models for membership levels and
// content access rules.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Level is a static catalog entry. Priority orders access: a higher number
// grants everything a lower one does.
type Level struct {
	ID            string         `gorm:"primaryKey;type:text" json:"id"`
	Name          string         `gorm:"type:text;not null" json:"name"`
	Capabilities  datatypes.JSON `gorm:"type:jsonb" json:"capabilities"`
	Priority      int            `gorm:"not null" json:"priority"`
	CourseLimit   int            `gorm:"not null;default:-1" json:"course_limit"`
	DownloadLimit int            `gorm:"not null;default:-1" json:"download_limit"`
	SupportLevel  string         `gorm:"type:text" json:"support_level"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Level) TableName() string { return "membership_levels" }

// UserLevel points a user at their current level.
type UserLevel struct {
	UserID    snowflake.ID `gorm:"primaryKey"`
	LevelID   string       `gorm:"type:text;not null"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UserLevel) TableName() string { return "user_membership_levels" }

// LevelHistory is the append-only log of level assignments.
type LevelHistory struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	UserID     snowflake.ID      `gorm:"not null;index"`
	LevelID    string            `gorm:"type:text;not null"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	AssignedAt time.Time         `gorm:"not null"`
}

// TableName sets the database table name.
func (LevelHistory) TableName() string { return "membership_level_history" }

// ContentRule is a per-content required-level override. It beats the
// type-generic check when present.
type ContentRule struct {
	ContentType     string    `gorm:"primaryKey;type:text"`
	ContentID       string    `gorm:"primaryKey;type:text"`
	RequiredLevelID string    `gorm:"type:text;not null"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ContentRule) TableName() string { return "membership_content_rules" }

// UsageCount tracks per-user consumption against level caps.
type UsageCount struct {
	UserID    snowflake.ID `gorm:"primaryKey"`
	Kind      string       `gorm:"primaryKey;type:text"`
	Count     int          `gorm:"not null;default:0"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (UsageCount) TableName() string { return "membership_usage_counts" }

const (
	UsageKindCourse   = "course"
	UsageKindDownload = "download"
)

// Unlimited marks a cap that is never enforced.
const Unlimited = -1
