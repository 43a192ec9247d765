package scheduler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/clock"
	loyaltydomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/domain"
	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	Log             *zap.Logger
	Clock           clock.Clock
	SubscriptionSvc subscriptiondomain.Service
	LoyaltySvc      loyaltydomain.Service
	Lock            *SweepLock `optional:"true"`
	Config          Config     `optional:"true"`
}

// Scheduler drives the periodic maintenance sweep: expiring overdue
// subscriptions past their grace window and clearing lapsed tier boosts.
type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	subscriptionSvc subscriptiondomain.Service
	loyaltySvc      loyaltydomain.Service
	lock            *SweepLock
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.SubscriptionSvc == nil || p.LoyaltySvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		subscriptionSvc: p.SubscriptionSvc,
		loyaltySvc:      p.LoyaltySvc,
		lock:            p.Lock,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	jobRuns.WithLabelValues(name).Inc()

	err := fn(ctx)
	jobDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}

	jobErrors.WithLabelValues(name).Inc()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err))
		return nil
	}
	return err
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	if s.lock != nil {
		lease, owned, err := s.lock.Acquire(parent, s.cfg.LockTTL)
		if err != nil {
			s.log.Warn("sweep lock unavailable, running unguarded", zap.Error(err))
		} else if !owned {
			lockSkips.Inc()
			return nil
		} else {
			defer func() {
				if err := s.lock.Release(parent, lease); err != nil {
					s.log.Warn("sweep lock release failed", zap.Error(err))
				}
			}()
		}
	}

	var err error
	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"expire_subscriptions", s.ExpireSubscriptionsJob},
		{"expire_tier_boosts", s.ExpireTierBoostsJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty EnabledJobs list enables everything.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) ExpireSubscriptionsJob(ctx context.Context) error {
	now := s.clock.Now()
	result, err := s.subscriptionSvc.ExpireOverdue(ctx, now)
	if err != nil {
		return err
	}
	if result.Overdue > 0 || result.Expired > 0 || result.Cancelled > 0 {
		s.log.Info("subscription sweep",
			zap.Int("overdue", result.Overdue),
			zap.Int("expired", result.Expired),
			zap.Int("cancelled", result.Cancelled))
	}
	return nil
}

func (s *Scheduler) ExpireTierBoostsJob(ctx context.Context) error {
	_, err := s.loyaltySvc.ExpireTierBoosts(ctx)
	return err
}
