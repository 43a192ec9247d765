package scheduler

import (
	"context"

	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideSweepLock),
	fx.Provide(New),
	fx.Invoke(Run),
)

// ProvideSweepLock wires the sweep lock when Redis is configured. Without
// Redis the scheduler runs unguarded, which is fine for a single replica.
func ProvideSweepLock(cfg config.Config) *SweepLock {
	if cfg.RedisAddr == "" {
		return nil
	}
	return NewSweepLock(redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}))
}

func Run(lc fx.Lifecycle, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
