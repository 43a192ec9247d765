package service

import (
	"time"

	subscriptiondomain "github.com/Faiver55/skylearn-billing-pro-sub005/internal/subscription/domain"
)

// NextPaymentDate advances t by one billing interval using calendar-correct
// arithmetic. Month and year additions clamp to the last day of the target
// month rather than overflowing: Jan 31 + 1 month = Feb 29 (leap) or Feb 28.
func NextPaymentDate(t time.Time, cycle subscriptiondomain.BillingCycle) time.Time {
	switch cycle {
	case subscriptiondomain.CycleWeekly:
		return t.AddDate(0, 0, 7)
	case subscriptiondomain.CycleMonthly:
		return addMonthsClamped(t, 1)
	case subscriptiondomain.CycleQuarterly:
		return addMonthsClamped(t, 3)
	case subscriptiondomain.CycleYearly:
		return addMonthsClamped(t, 12)
	default:
		return t
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	targetMonth := time.Month(int(month) + months)
	firstOfTarget := time.Date(year, targetMonth, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := lastDayOfMonth(firstOfTarget); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
