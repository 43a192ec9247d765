package migration

import (
	automationdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/automation/domain"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/config"
	loyaltydomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/domain"
	membershipdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/domain"
	"github.com/Faiver55/skylearn-billing-pro-sub005/internal/seed"
	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite installs rely on AutoMigrate.
			if err := conn.AutoMigrate(
				&subscriptiondomain.Subscription{},
				&subscriptiondomain.ActivePointer{},
				&membershipdomain.Level{},
				&membershipdomain.UserLevel{},
				&membershipdomain.LevelHistory{},
				&membershipdomain.ContentRule{},
				&membershipdomain.UsageCount{},
				&loyaltydomain.Account{},
				&loyaltydomain.Transaction{},
				&loyaltydomain.Reward{},
				&loyaltydomain.MilestoneAward{},
				&loyaltydomain.DiscountCode{},
				&loyaltydomain.TierBoost{},
				&automationdomain.Automation{},
				&automationdomain.RunLog{},
			); err != nil {
				return err
			}
		}

		if err := seed.EnsureDefaultLevels(conn); err != nil {
			return err
		}
		return seed.EnsureStarterRewards(conn)
	}),
)
