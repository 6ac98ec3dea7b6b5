package plan

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Entitlement maps a user to their current plan. Expiry is stored raw and
// evaluated at decision time; it is never eagerly collapsed into a boolean so
// a lagging background job can never leave an expired user with paid access.
type Entitlement struct {
	UserID    uuid.UUID
	PlanID    string
	ExpiresAt *time.Time // nil means no expiry (e.g. lifetime or free plan)
	UpdatedAt time.Time
}

// EffectiveRankAt resolves the rank the user actually holds at the given
// instant: the stored plan's rank, or FreeRank once the expiry has passed.
func (e *Entitlement) EffectiveRankAt(h *Hierarchy, now time.Time) int {
	if e == nil {
		return FreeRank
	}
	if e.ExpiresAt != nil && now.After(*e.ExpiresAt) {
		return FreeRank
	}
	return h.RankOf(e.PlanID)
}

// EntitlementStore persists the user → plan mapping. The payment collaborator
// is the only writer; the decision engine only reads.
type EntitlementStore interface {
	// Get retrieves the entitlement for a user.
	// Returns ErrEntitlementNotFound if the user never held a plan.
	Get(ctx context.Context, userID uuid.UUID) (*Entitlement, error)

	// Set creates or replaces the entitlement for a user.
	Set(ctx context.Context, userID uuid.UUID, planID string, expiresAt *time.Time) error
}

// ChangeKind classifies plan change events reported by the payment
// collaborator.
type ChangeKind string

const (
	ChangeUpgrade      ChangeKind = "upgrade"
	ChangeRenewal      ChangeKind = "renewal"
	ChangeCancellation ChangeKind = "cancellation"
	ChangeExpiry       ChangeKind = "expiry"
)

// Change is one plan change event.
type Change struct {
	UserID    uuid.UUID  `json:"user_id"`
	Kind      ChangeKind `json:"kind"`
	PlanID    string     `json:"plan_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ApplyChange records a plan change event against the entitlement store.
// Upgrades and renewals must name a known tier; cancellations and expiries
// drop the user to the free tier regardless of payload.
func ApplyChange(ctx context.Context, store EntitlementStore, h *Hierarchy, c Change) error {
	if c.UserID == uuid.Nil {
		return errors.Join(ErrInvalidChange, errors.New("user ID is required"))
	}

	switch c.Kind {
	case ChangeUpgrade, ChangeRenewal:
		if _, ok := h.ByID(c.PlanID); !ok {
			return errors.Join(ErrInvalidChange, ErrPlanNotFound)
		}
		return store.Set(ctx, c.UserID, c.PlanID, c.ExpiresAt)
	case ChangeCancellation, ChangeExpiry:
		return store.Set(ctx, c.UserID, h.Free().ID, nil)
	default:
		return errors.Join(ErrInvalidChange, errors.New("unknown change kind"))
	}
}
