package catalog

import (
	"errors"
	"fmt"
	"time"
)

// Category groups features for presentation and reporting.
// It never participates in access decisions.
type Category string

const (
	CategoryGames         Category = "games"
	CategoryCommunication Category = "communication"
	CategoryLearning      Category = "learning"
	CategorySocial        Category = "social"
	CategoryPremium       Category = "premium"
)

// QuotaPeriod is the reset cadence for a feature's free-usage quota.
type QuotaPeriod string

const (
	QuotaPerDay  QuotaPeriod = "per_day"
	QuotaPerWeek QuotaPeriod = "per_week"
)

// Valid reports whether the period is one of the supported cadences.
func (p QuotaPeriod) Valid() bool {
	return p == QuotaPerDay || p == QuotaPerWeek
}

// Unlimited marks a quota with no cap. A paid feature with FreeLimit set to
// Unlimited is usable by every plan without touching the usage ledger; this is
// distinct from IsPaid == false and must not be collapsed into it.
const Unlimited = -1

// Feature is a single gateable capability as registered by the admin surface.
// Records are read-only to the decision engine; Key is immutable once clients
// reference it.
type Feature struct {
	Key           string      `json:"key" bson:"_id"`
	Category      Category    `json:"category" bson:"category"`
	IsPaid        bool        `json:"is_paid" bson:"is_paid"`
	RequiredPlan  string      `json:"required_plan" bson:"required_plan"`
	FreeLimit     int         `json:"free_limit" bson:"free_limit"`
	FreeLimitType QuotaPeriod `json:"free_limit_type" bson:"free_limit_type"`
	ShowInMenu    bool        `json:"show_in_menu" bson:"show_in_menu"`
	RequiresAuth  bool        `json:"requires_auth" bson:"requires_auth"`
	IsActive      bool        `json:"is_active" bson:"is_active"`
	UpdatedAt     time.Time   `json:"updated_at,omitzero" bson:"updated_at"`
}

// QuotaLimited reports whether granting this feature may require a ledger
// increment: paid, with a positive per-period free allowance.
func (f *Feature) QuotaLimited() bool {
	return f.IsPaid && f.FreeLimit > 0
}

// Validate checks structural invariants before a feature enters the store.
func (f *Feature) Validate() error {
	if f.Key == "" {
		return errors.Join(ErrInvalidFeature, errors.New("feature key cannot be empty"))
	}
	if f.FreeLimit < Unlimited {
		return errors.Join(ErrInvalidFeature,
			fmt.Errorf("feature %s has invalid free limit %d", f.Key, f.FreeLimit))
	}
	if f.IsPaid && f.FreeLimit > 0 && !f.FreeLimitType.Valid() {
		return errors.Join(ErrInvalidFeature,
			fmt.Errorf("feature %s has invalid quota period %q", f.Key, f.FreeLimitType))
	}
	return nil
}
