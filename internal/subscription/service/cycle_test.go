package service

import (
	"testing"
	"time"

	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestNextPaymentDateMonthly(t *testing.T) {
	cases := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{"mid_month", date(2024, time.January, 15), date(2024, time.February, 15)},
		{"month_end_leap", date(2024, time.January, 31), date(2024, time.February, 29)},
		{"month_end_non_leap", date(2023, time.January, 31), date(2023, time.February, 28)},
		{"short_to_long", date(2024, time.April, 30), date(2024, time.May, 30)},
		{"december_rollover", date(2024, time.December, 31), date(2025, time.January, 31)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NextPaymentDate(tc.from, subscriptiondomain.CycleMonthly)
			if !got.Equal(tc.want) {
				t.Fatalf("NextPaymentDate(%v) = %v, want %v", tc.from, got, tc.want)
			}
		})
	}
}

func TestNextPaymentDateWeekly(t *testing.T) {
	from := date(2024, time.February, 26)
	want := date(2024, time.March, 4)
	if got := NextPaymentDate(from, subscriptiondomain.CycleWeekly); !got.Equal(want) {
		t.Fatalf("weekly: got %v, want %v", got, want)
	}
}

func TestNextPaymentDateQuarterly(t *testing.T) {
	from := date(2024, time.November, 30)
	want := date(2025, time.February, 28)
	if got := NextPaymentDate(from, subscriptiondomain.CycleQuarterly); !got.Equal(want) {
		t.Fatalf("quarterly: got %v, want %v", got, want)
	}
}

func TestNextPaymentDateYearly(t *testing.T) {
	from := date(2024, time.February, 29)
	want := date(2025, time.February, 28)
	if got := NextPaymentDate(from, subscriptiondomain.CycleYearly); !got.Equal(want) {
		t.Fatalf("yearly: got %v, want %v", got, want)
	}
}
