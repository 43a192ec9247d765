package domain

import (
	"context"
	"errors"
)

// Decision explains a content access verdict.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type CreateLevelRequest struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Capabilities  []string `json:"capabilities,omitempty"`
	Priority      int      `json:"priority"`
	CourseLimit   int      `json:"course_limit"`
	DownloadLimit int      `json:"download_limit"`
	SupportLevel  string   `json:"support_level,omitempty"`
}

type Service interface {
	CreateLevel(ctx context.Context, req CreateLevelRequest) (Level, error)
	ListLevels(ctx context.Context) ([]Level, error)
	GetLevel(ctx context.Context, userID string) (Level, error)
	SetLevel(ctx context.Context, userID, levelID string, metadata map[string]any) error
	HasLevel(ctx context.Context, userID, requiredLevelID string) (bool, error)
	CanAccessContent(ctx context.Context, userID, contentType, contentID string) (Decision, error)
	RecordUsage(ctx context.Context, userID, kind string) error
	SetContentRule(ctx context.Context, contentType, contentID, requiredLevelID string) error
	History(ctx context.Context, userID string, limit int) ([]LevelHistory, error)
}

var (
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidLevel     = errors.New("invalid_level")
	ErrLevelNotFound    = errors.New("level_not_found")
	ErrLevelExists      = errors.New("level_exists")
	ErrNoLevelsSeeded   = errors.New("no_membership_levels")
	ErrInvalidUsageKind = errors.New("invalid_usage_kind")
)
