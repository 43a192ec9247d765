package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingPolicy holds operator-tunable billing behavior: how long an overdue
// subscription survives before auto-expiry, which membership level each
// subscription tier maps to, and the loyalty milestone thresholds.
type BillingPolicy struct {
	GraceDays          int              `mapstructure:"graceDays"`
	TierLevelMap       map[string]string `mapstructure:"tierLevelMap"`
	MilestoneThresholds []int            `mapstructure:"milestoneThresholds"`
	MilestoneBonus     int              `mapstructure:"milestoneBonus"`
	RewardExpiryDays   int              `mapstructure:"rewardExpiryDays"`
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		GraceDays: 7,
		TierLevelMap: map[string]string{
			"basic":   "basic",
			"premium": "premium",
			"pro":     "pro",
		},
		MilestoneThresholds: []int{100, 500, 1000, 2500},
		MilestoneBonus:      50,
		RewardExpiryDays:    30,
	}
}

// PolicyHolder keeps the current BillingPolicy behind an atomic value so a
// config file edit takes effect without a restart.
type PolicyHolder struct {
	current atomic.Value // holds BillingPolicy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/skylearn")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SKYLEARN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingPolicy()
	v.SetDefault("billing.graceDays", defaults.GraceDays)
	v.SetDefault("billing.tierLevelMap", defaults.TierLevelMap)
	v.SetDefault("billing.milestoneThresholds", defaults.MilestoneThresholds)
	v.SetDefault("billing.milestoneBonus", defaults.MilestoneBonus)
	v.SetDefault("billing.rewardExpiryDays", defaults.RewardExpiryDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy BillingPolicy
	if err := v.UnmarshalKey("billing", &policy); err != nil {
		return nil, err
	}
	if err := validateBillingPolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingPolicy
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-policy] reload failed: %v", err)
			return
		}
		if err := validateBillingPolicy(updated); err != nil {
			log.Printf("[billing-policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder returns a holder pinned to the given policy. Used in tests.
func NewStaticPolicyHolder(policy BillingPolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *PolicyHolder) Get() BillingPolicy {
	return h.current.Load().(BillingPolicy)
}

func validateBillingPolicy(policy BillingPolicy) error {
	if policy.GraceDays < 0 {
		return errors.New("billing.graceDays cannot be negative")
	}
	if policy.MilestoneBonus < 0 {
		return errors.New("billing.milestoneBonus cannot be negative")
	}
	if policy.RewardExpiryDays <= 0 {
		return errors.New("billing.rewardExpiryDays must be positive")
	}
	return nil
}
