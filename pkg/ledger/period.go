package ledger

import (
	"time"

	"github.com/fluentive/entitlements/pkg/catalog"
)

// PeriodStart computes the deterministic start instant of the quota period
// containing now: UTC midnight for daily quotas, Monday UTC midnight for
// weekly ones. Counters are keyed by this instant instead of a free-floating
// "last reset" timestamp, so retries and concurrent callers always agree on
// which counter they are touching.
func PeriodStart(p catalog.QuotaPeriod, now time.Time) (time.Time, error) {
	now = now.UTC()
	switch p {
	case catalog.QuotaPerDay:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	case catalog.QuotaPerWeek:
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		// Monday-based week offset: Monday=0 ... Sunday=6.
		offset := (int(now.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset), nil
	default:
		return time.Time{}, ErrUnknownPeriod
	}
}

// PeriodEnd returns the first instant of the following period.
func PeriodEnd(p catalog.QuotaPeriod, start time.Time) (time.Time, error) {
	switch p {
	case catalog.QuotaPerDay:
		return start.AddDate(0, 0, 1), nil
	case catalog.QuotaPerWeek:
		return start.AddDate(0, 0, 7), nil
	default:
		return time.Time{}, ErrUnknownPeriod
	}
}
