// Package seed bootstraps a fresh installation with the default membership
// catalog and a starter reward so the system is usable out of the box.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	loyaltydomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/loyalty/domain"
	membershipdomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/membership/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type defaultLevel struct {
	ID            string
	Name          string
	Capabilities  []string
	Priority      int
	CourseLimit   int
	DownloadLimit int
	SupportLevel  string
}

var defaultLevels = []defaultLevel{
	{
		ID:            "free",
		Name:          "Free",
		Capabilities:  []string{"read"},
		Priority:      0,
		CourseLimit:   1,
		DownloadLimit: 0,
		SupportLevel:  "community",
	},
	{
		ID:            "basic",
		Name:          "Basic",
		Capabilities:  []string{"read", "download"},
		Priority:      10,
		CourseLimit:   5,
		DownloadLimit: 20,
		SupportLevel:  "email",
	},
	{
		ID:            "premium",
		Name:          "Premium",
		Capabilities:  []string{"read", "download", "certificates"},
		Priority:      20,
		CourseLimit:   25,
		DownloadLimit: membershipdomain.Unlimited,
		SupportLevel:  "priority",
	},
	{
		ID:            "pro",
		Name:          "Pro",
		Capabilities:  []string{"read", "download", "certificates", "live_sessions"},
		Priority:      30,
		CourseLimit:   membershipdomain.Unlimited,
		DownloadLimit: membershipdomain.Unlimited,
		SupportLevel:  "dedicated",
	},
}

// EnsureDefaultLevels inserts the built-in membership levels when missing.
// Existing rows are left untouched so operator edits survive restarts.
func EnsureDefaultLevels(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, def := range defaultLevels {
			capabilities, err := json.Marshal(def.Capabilities)
			if err != nil {
				return err
			}
			level := membershipdomain.Level{
				ID:            def.ID,
				Name:          def.Name,
				Capabilities:  datatypes.JSON(capabilities),
				Priority:      def.Priority,
				CourseLimit:   def.CourseLimit,
				DownloadLimit: def.DownloadLimit,
				SupportLevel:  def.SupportLevel,
				CreatedAt:     time.Now().UTC(),
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&level).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsureStarterRewards seeds an initial reward catalog when empty.
func EnsureStarterRewards(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&loyaltydomain.Reward{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		rewards := []loyaltydomain.Reward{
			{
				ID:        node.Generate(),
				Name:      "10% Discount",
				Type:      loyaltydomain.RewardDiscount,
				Cost:      100,
				Value:     10,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
			{
				ID:        node.Generate(),
				Name:      "7 Day Subscription Extension",
				Type:      loyaltydomain.RewardExtension,
				Cost:      250,
				Value:     7,
				Active:    true,
				Conditions: datatypes.JSONMap{
					"active_subscription": true,
				},
				CreatedAt: time.Now().UTC(),
			},
		}
		for i := range rewards {
			if err := tx.Create(&rewards[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
