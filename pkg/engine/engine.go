package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluentive/entitlements/pkg/catalog"
	"github.com/fluentive/entitlements/pkg/ledger"
	"github.com/fluentive/entitlements/pkg/plan"
)

// Identity is the caller as established by the session layer. A zero
// Identity is an anonymous request.
type Identity struct {
	UserID        uuid.UUID
	Authenticated bool
}

// Engine is the server-authoritative access decider. It is stateless: any
// number of replicas may run concurrently, with all shared mutable state
// pushed into the ledger's atomic conditional increment.
type Engine struct {
	features     catalog.Store
	plans        *plan.Hierarchy
	entitlements plan.EntitlementStore
	usage        ledger.Store
	log          *slog.Logger
	maxAttempts  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for verification failures. Expected
// denials (wrong plan, quota exhausted, and so on) are never logged.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMaxAttempts bounds the optimistic retry loop around ledger write
// conflicts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.maxAttempts = n
		}
	}
}

// New creates an Engine. Panics if any required dependency is nil to fail
// fast during initialization.
func New(features catalog.Store, plans *plan.Hierarchy, entitlements plan.EntitlementStore, usage ledger.Store, opts ...Option) *Engine {
	if features == nil {
		panic("engine: catalog store is required")
	}
	if plans == nil {
		panic("engine: plan hierarchy is required")
	}
	if entitlements == nil {
		panic("engine: entitlement store is required")
	}
	if usage == nil {
		panic("engine: usage ledger is required")
	}

	e := &Engine{
		features:     features,
		plans:        plans,
		entitlements: entitlements,
		usage:        usage,
		log:          slog.Default(),
		maxAttempts:  3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide resolves whether the identity may use the feature right now.
// Every path returns a verdict; no error escapes this boundary. Any storage
// failure along the way yields a deny with ReasonVerificationFailed — the
// engine fails closed, never open.
func (e *Engine) Decide(ctx context.Context, id Identity, featureKey string, now time.Time) Verdict {
	now = now.UTC()

	f, err := e.features.Get(ctx, featureKey)
	if err != nil {
		if errors.Is(err, catalog.ErrFeatureNotFound) {
			return denyVerdict(ReasonFeatureInactive)
		}
		return e.failClosed(ctx, "catalog lookup failed", featureKey, err)
	}
	if !f.IsActive {
		return denyVerdict(ReasonFeatureInactive)
	}

	if f.RequiresAuth && !id.Authenticated {
		return denyVerdict(ReasonNotAuthenticated)
	}

	// Free features never touch the ledger.
	if !f.IsPaid {
		return allowVerdict()
	}

	rank, verdict, ok := e.effectiveRank(ctx, id, now, featureKey)
	if !ok {
		return verdict
	}

	requiredTier, found := e.plans.ByID(f.RequiredPlan)
	if !found {
		// A feature pointing at an unknown tier is a catalog misconfiguration;
		// denying here keeps the failure closed until the catalog is fixed.
		return e.failClosed(ctx, "feature requires unknown plan", featureKey,
			errors.Join(plan.ErrPlanNotFound, errors.New(f.RequiredPlan)))
	}

	// Qualifying plans are unlimited by definition: no ledger touch, so prior
	// usage in the period never penalizes an upgraded user.
	if rank >= requiredTier.Rank {
		return allowVerdict()
	}

	if f.FreeLimit == catalog.Unlimited {
		return allowVerdict()
	}
	if f.FreeLimit == 0 {
		return denyVerdict(ReasonPlanInsufficient)
	}

	// Quota is charged per user. An anonymous caller has no counter of their
	// own; charging them would pool every visitor onto one shared counter.
	if !id.Authenticated {
		return denyVerdict(ReasonNotAuthenticated)
	}

	return e.chargeQuota(ctx, id, f, now)
}

// effectiveRank loads the user's entitlement and derives the rank they hold
// at this instant. A missing entitlement is simply the free tier.
func (e *Engine) effectiveRank(ctx context.Context, id Identity, now time.Time, featureKey string) (int, Verdict, bool) {
	if !id.Authenticated {
		return plan.FreeRank, Verdict{}, true
	}

	ent, err := e.entitlements.Get(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, plan.ErrEntitlementNotFound) {
			return plan.FreeRank, Verdict{}, true
		}
		return 0, e.failClosed(ctx, "entitlement lookup failed", featureKey, err), false
	}
	return ent.EffectiveRankAt(e.plans, now), Verdict{}, true
}

// chargeQuota performs the atomic read-and-increment against the ledger,
// retrying a bounded number of times when the store reports a conflicting
// concurrent write.
func (e *Engine) chargeQuota(ctx context.Context, id Identity, f *catalog.Feature, now time.Time) Verdict {
	periodStart, err := ledger.PeriodStart(f.FreeLimitType, now)
	if err != nil {
		return e.failClosed(ctx, "invalid quota period", f.Key, err)
	}

	key := ledger.Key{UserID: id.UserID, FeatureKey: f.Key, PeriodStart: periodStart}

	for attempt := 1; ; attempt++ {
		count, granted, err := e.usage.Increment(ctx, key, f.FreeLimit)
		if err != nil {
			if errors.Is(err, ledger.ErrConflict) && attempt < e.maxAttempts {
				continue
			}
			return e.failClosed(ctx, "ledger increment failed", f.Key, err)
		}

		if !granted {
			return denyVerdict(ReasonQuotaExhausted)
		}
		return allowWithRemaining(f.FreeLimit - count)
	}
}

func (e *Engine) failClosed(ctx context.Context, msg, featureKey string, err error) Verdict {
	e.log.ErrorContext(ctx, msg,
		slog.String("feature_key", featureKey),
		slog.Any("error", err),
	)
	return denyVerdict(ReasonVerificationFailed)
}
