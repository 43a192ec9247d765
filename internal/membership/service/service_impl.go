package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/clock"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	membershipdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/domain"
	"github.com/Faiver55/skylearn-billing-pro-sub005/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	clock      clock.Clock
	repo       membershipdomain.Repository
	dispatcher *events.Dispatcher
}

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       membershipdomain.Repository
	Dispatcher *events.Dispatcher
}

func NewService(p ServiceParam) membershipdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("membership.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		dispatcher: p.Dispatcher,
	}
}

func (s *Service) CreateLevel(ctx context.Context, req membershipdomain.CreateLevelRequest) (membershipdomain.Level, error) {
	levelID := strings.ToLower(strings.TrimSpace(req.ID))
	if levelID == "" || strings.TrimSpace(req.Name) == "" {
		return membershipdomain.Level{}, membershipdomain.ErrInvalidLevel
	}

	level := membershipdomain.Level{
		ID:            levelID,
		Name:          strings.TrimSpace(req.Name),
		Priority:      req.Priority,
		CourseLimit:   req.CourseLimit,
		DownloadLimit: req.DownloadLimit,
		SupportLevel:  strings.TrimSpace(req.SupportLevel),
		CreatedAt:     s.clock.Now(),
	}
	if len(req.Capabilities) > 0 {
		raw, err := json.Marshal(req.Capabilities)
		if err != nil {
			return membershipdomain.Level{}, err
		}
		level.Capabilities = datatypes.JSON(raw)
	}

	// The primary key carries uniqueness; let the insert race and map
	// the constraint violation instead of checking first.
	if err := s.repo.InsertLevel(ctx, s.db, &level); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return membershipdomain.Level{}, membershipdomain.ErrLevelExists
		}
		return membershipdomain.Level{}, err
	}
	return level, nil
}

func (s *Service) ListLevels(ctx context.Context) ([]membershipdomain.Level, error) {
	return s.repo.ListLevels(ctx, s.db)
}

// GetLevel resolves the user's current level, defaulting to the lowest
// priority level in the catalog when the user has no assignment yet.
func (s *Service) GetLevel(ctx context.Context, userID string) (membershipdomain.Level, error) {
	parsed, err := parseUserID(userID)
	if err != nil {
		return membershipdomain.Level{}, err
	}

	userLevel, err := s.repo.FindUserLevel(ctx, s.db, parsed)
	if err != nil {
		return membershipdomain.Level{}, err
	}
	if userLevel != nil {
		level, err := s.repo.FindLevel(ctx, s.db, userLevel.LevelID)
		if err != nil {
			return membershipdomain.Level{}, err
		}
		if level != nil {
			return *level, nil
		}
	}

	lowest, err := s.repo.LowestLevel(ctx, s.db)
	if err != nil {
		return membershipdomain.Level{}, err
	}
	if lowest == nil {
		return membershipdomain.Level{}, membershipdomain.ErrNoLevelsSeeded
	}
	return *lowest, nil
}

// SetLevel validates the target level exists, stores the pointer and
// appends a history entry in one transaction. Unknown levels leave the
// user's assignment untouched.
func (s *Service) SetLevel(ctx context.Context, userID, levelID string, metadata map[string]any) error {
	parsed, err := parseUserID(userID)
	if err != nil {
		return err
	}

	levelID = strings.ToLower(strings.TrimSpace(levelID))
	level, err := s.repo.FindLevel(ctx, s.db, levelID)
	if err != nil {
		return err
	}
	if level == nil {
		return membershipdomain.ErrLevelNotFound
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpsertUserLevel(ctx, tx, &membershipdomain.UserLevel{
			UserID:    parsed,
			LevelID:   levelID,
			UpdatedAt: now,
		}); err != nil {
			return err
		}
		entry := membershipdomain.LevelHistory{
			ID:         s.genID.Generate(),
			UserID:     parsed,
			LevelID:    levelID,
			AssignedAt: now,
		}
		if metadata != nil {
			entry.Metadata = datatypes.JSONMap(metadata)
		}
		return s.repo.InsertHistory(ctx, tx, &entry)
	})
	if err != nil {
		return err
	}

	s.dispatcher.Publish(ctx, events.MembershipLevelChanged, events.Payload{
		"user_id":  parsed.String(),
		"level_id": levelID,
		"priority": level.Priority,
	})
	return nil
}

// HasLevel compares priorities: the user qualifies when their level's
// priority is at least the required level's. Unknown levels never qualify.
func (s *Service) HasLevel(ctx context.Context, userID, requiredLevelID string) (bool, error) {
	required, err := s.repo.FindLevel(ctx, s.db, strings.ToLower(strings.TrimSpace(requiredLevelID)))
	if err != nil {
		return false, err
	}
	if required == nil {
		return false, nil
	}

	current, err := s.GetLevel(ctx, userID)
	if err != nil {
		return false, err
	}
	return current.Priority >= required.Priority, nil
}

func (s *Service) CanAccessContent(ctx context.Context, userID, contentType, contentID string) (membershipdomain.Decision, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	contentID = strings.TrimSpace(contentID)

	current, err := s.GetLevel(ctx, userID)
	if err != nil {
		return membershipdomain.Decision{}, err
	}

	// Per-content override wins over the type-generic rule.
	if contentID != "" {
		rule, err := s.repo.FindContentRule(ctx, s.db, contentType, contentID)
		if err != nil {
			return membershipdomain.Decision{}, err
		}
		if rule != nil {
			ok, err := s.HasLevel(ctx, userID, rule.RequiredLevelID)
			if err != nil {
				return membershipdomain.Decision{}, err
			}
			if !ok {
				return membershipdomain.Decision{Reason: fmt.Sprintf("requires membership level %q", rule.RequiredLevelID)}, nil
			}
			return s.checkUsageCap(ctx, userID, contentType, current)
		}
	}

	return s.checkUsageCap(ctx, userID, contentType, current)
}

func (s *Service) checkUsageCap(ctx context.Context, userID, contentType string, level membershipdomain.Level) (membershipdomain.Decision, error) {
	var limit int
	switch contentType {
	case membershipdomain.UsageKindCourse:
		limit = level.CourseLimit
	case membershipdomain.UsageKindDownload:
		limit = level.DownloadLimit
	default:
		return membershipdomain.Decision{Allowed: true}, nil
	}

	if limit == membershipdomain.Unlimited {
		return membershipdomain.Decision{Allowed: true}, nil
	}

	parsed, err := parseUserID(userID)
	if err != nil {
		return membershipdomain.Decision{}, err
	}
	used, err := s.repo.UsageCount(ctx, s.db, parsed, contentType)
	if err != nil {
		return membershipdomain.Decision{}, err
	}
	if used >= limit {
		return membershipdomain.Decision{Reason: fmt.Sprintf("%s limit of %d reached", contentType, limit)}, nil
	}
	return membershipdomain.Decision{Allowed: true}, nil
}

func (s *Service) RecordUsage(ctx context.Context, userID, kind string) error {
	parsed, err := parseUserID(userID)
	if err != nil {
		return err
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind != membershipdomain.UsageKindCourse && kind != membershipdomain.UsageKindDownload {
		return membershipdomain.ErrInvalidUsageKind
	}
	return s.repo.IncrementUsage(ctx, s.db, parsed, kind)
}

func (s *Service) SetContentRule(ctx context.Context, contentType, contentID, requiredLevelID string) error {
	requiredLevelID = strings.ToLower(strings.TrimSpace(requiredLevelID))
	level, err := s.repo.FindLevel(ctx, s.db, requiredLevelID)
	if err != nil {
		return err
	}
	if level == nil {
		return membershipdomain.ErrLevelNotFound
	}

	return s.repo.UpsertContentRule(ctx, s.db, &membershipdomain.ContentRule{
		ContentType:     strings.ToLower(strings.TrimSpace(contentType)),
		ContentID:       strings.TrimSpace(contentID),
		RequiredLevelID: requiredLevelID,
		CreatedAt:       s.clock.Now(),
	})
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]membershipdomain.LevelHistory, error) {
	parsed, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, s.db, parsed, limit)
}

func parseUserID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, membershipdomain.ErrInvalidUser
	}
	return id, nil
}
