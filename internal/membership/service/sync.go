package service

import (
	"context"
	"strings"

	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/config"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/events"
	membershipdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/domain"
	"go.uber.org/zap"
)

// Sync keeps membership levels in step with subscription lifecycle events.
// Created/upgraded/downgraded map the subscription tier through the policy's
// tier→level table; cancellation and expiry always drop to the lowest level.
type Sync struct {
	log    *zap.Logger
	svc    membershipdomain.Service
	policy *config.PolicyHolder
}

func NewSync(log *zap.Logger, svc membershipdomain.Service, policy *config.PolicyHolder) *Sync {
	return &Sync{
		log:    log.Named("membership.sync"),
		svc:    svc,
		policy: policy,
	}
}

// Register subscribes the sync to the subscription lifecycle events.
func (s *Sync) Register(dispatcher *events.Dispatcher) {
	dispatcher.Subscribe(s,
		events.SubscriptionCreated,
		events.SubscriptionResumed,
		events.SubscriptionUpgraded,
		events.SubscriptionDowngraded,
		events.SubscriptionCancelled,
		events.SubscriptionExpired,
	)
}

func (s *Sync) Handle(ctx context.Context, kind events.Kind, payload events.Payload) {
	userID, _ := payload["user_id"].(string)
	if strings.TrimSpace(userID) == "" {
		return
	}

	metadata := map[string]any{
		"source": string(kind),
	}
	if id, ok := payload["subscription_id"].(string); ok {
		metadata["subscription_id"] = id
	}

	var levelID string
	switch kind {
	case events.SubscriptionCancelled, events.SubscriptionExpired:
		lowest, err := s.lowestLevelID(ctx)
		if err != nil {
			s.log.Warn("lowest level lookup failed", zap.Error(err))
			return
		}
		levelID = lowest
	default:
		tier, _ := payload["tier"].(string)
		levelID = s.levelForTier(tier)
		if levelID == "" {
			s.log.Debug("no level mapping for tier", zap.String("tier", tier))
			return
		}
	}

	if err := s.svc.SetLevel(ctx, userID, levelID, metadata); err != nil {
		s.log.Warn("level sync failed",
			zap.String("user_id", userID),
			zap.String("level_id", levelID),
			zap.Error(err),
		)
	}
}

func (s *Sync) levelForTier(tier string) string {
	tier = strings.ToLower(strings.TrimSpace(tier))
	if tier == "" {
		return ""
	}
	return s.policy.Get().TierLevelMap[tier]
}

func (s *Sync) lowestLevelID(ctx context.Context) (string, error) {
	levels, err := s.svc.ListLevels(ctx)
	if err != nil {
		return "", err
	}
	if len(levels) == 0 {
		return "", membershipdomain.ErrNoLevelsSeeded
	}
	lowest := levels[0]
	for _, level := range levels[1:] {
		if level.Priority < lowest.Priority {
			lowest = level
		}
	}
	return lowest.ID, nil
}
