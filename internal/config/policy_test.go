package config

import "testing"

func TestDefaultBillingPolicy(t *testing.T) {
	policy := DefaultBillingPolicy()

	if policy.GraceDays != 7 {
		t.Fatalf("grace days = %d, want 7", policy.GraceDays)
	}
	if policy.MilestoneBonus != 50 {
		t.Fatalf("milestone bonus = %d, want 50", policy.MilestoneBonus)
	}
	if len(policy.MilestoneThresholds) == 0 {
		t.Fatal("no milestone thresholds")
	}
	if policy.RewardExpiryDays <= 0 {
		t.Fatal("reward expiry must be positive")
	}
	if policy.TierLevelMap["premium"] != "premium" {
		t.Fatalf("tier map premium = %q", policy.TierLevelMap["premium"])
	}
}

func TestValidateBillingPolicy(t *testing.T) {
	valid := DefaultBillingPolicy()
	if err := validateBillingPolicy(valid); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	negativeGrace := valid
	negativeGrace.GraceDays = -1
	if err := validateBillingPolicy(negativeGrace); err == nil {
		t.Fatal("negative grace days accepted")
	}

	zeroExpiry := valid
	zeroExpiry.RewardExpiryDays = 0
	if err := validateBillingPolicy(zeroExpiry); err == nil {
		t.Fatal("zero reward expiry accepted")
	}
}

func TestStaticPolicyHolder(t *testing.T) {
	policy := DefaultBillingPolicy()
	policy.GraceDays = 3

	holder := NewStaticPolicyHolder(policy)
	if got := holder.Get().GraceDays; got != 3 {
		t.Fatalf("grace days = %d, want 3", got)
	}
}
