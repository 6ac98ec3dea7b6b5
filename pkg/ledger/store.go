package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key identifies one usage counter. PeriodStart must come from PeriodStart so
// every replica addresses the same counter for the same instant.
type Key struct {
	UserID      uuid.UUID
	FeatureKey  string
	PeriodStart time.Time
}

// String renders the key in the form used for Redis keys and log attributes.
func (k Key) String() string {
	return fmt.Sprintf("usage:%s:%s:%d", k.UserID, k.FeatureKey, k.PeriodStart.Unix())
}

// Store is the usage ledger. The decision engine is its only writer.
//
// Increment is the single atomic primitive the whole quota mechanism rests
// on: "increment if current count is still below limit, else leave the
// counter untouched". Implementations must guarantee that two concurrent
// calls at the quota boundary cannot both be granted. An implementation that
// detects a conflicting concurrent write it cannot resolve atomically may
// return ErrConflict; callers retry a bounded number of times.
type Store interface {
	// Increment applies the conditional increment. It returns the counter
	// value after the call and whether the increment was applied. A denied
	// call leaves the stored count unchanged. Limits <= 0 never grant.
	Increment(ctx context.Context, key Key, limit int) (count int, granted bool, err error)

	// Count returns the current counter value, zero if the counter does not
	// exist yet.
	Count(ctx context.Context, key Key) (int, error)

	// Sweep removes counters whose period started before cutoff. Old
	// counters are inert, so sweeping is purely a space reclaim.
	Sweep(ctx context.Context, cutoff time.Time) (removed int, err error)
}
