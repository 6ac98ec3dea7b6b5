package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluentive/entitlements/pkg/catalog"
	"github.com/fluentive/entitlements/pkg/engine"
	"github.com/fluentive/entitlements/pkg/ledger"
	"github.com/fluentive/entitlements/pkg/plan"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testHierarchy(t *testing.T) *plan.Hierarchy {
	t.Helper()
	h, err := plan.NewHierarchy([]plan.Tier{
		{ID: "free", Name: "Free", Rank: 0},
		{ID: "plus", Name: "Plus", Rank: 1},
		{ID: "premium", Name: "Premium", Rank: 2},
	})
	require.NoError(t, err)
	return h
}

func testCatalog(t *testing.T) *catalog.MemoryStore {
	t.Helper()
	store, err := catalog.NewMemoryStore(
		catalog.Feature{Key: "flashcards", IsActive: true},
		catalog.Feature{Key: "progress_sync", IsActive: true, RequiresAuth: true},
		catalog.Feature{Key: "retired_game", IsActive: false},
		catalog.Feature{Key: "voice_calls", IsPaid: true, RequiredPlan: "premium", FreeLimit: 0, IsActive: true, RequiresAuth: true},
		catalog.Feature{Key: "grammar_tips", IsPaid: true, RequiredPlan: "plus", FreeLimit: catalog.Unlimited, IsActive: true, RequiresAuth: true},
		catalog.Feature{Key: "ai_conversation", IsPaid: true, RequiredPlan: "premium", FreeLimit: 3, FreeLimitType: catalog.QuotaPerDay, IsActive: true, RequiresAuth: true},
		catalog.Feature{Key: "daily_challenge", IsPaid: true, RequiredPlan: "premium", FreeLimit: 2, FreeLimitType: catalog.QuotaPerDay, IsActive: true},
		catalog.Feature{Key: "orphaned", IsPaid: true, RequiredPlan: "enterprise", FreeLimit: 0, IsActive: true, RequiresAuth: true},
	)
	require.NoError(t, err)
	return store
}

type fixture struct {
	engine       *engine.Engine
	entitlements *plan.MemoryStore
	usage        *ledger.MemoryStore
}

func newFixture(t *testing.T, opts ...engine.Option) *fixture {
	t.Helper()
	entitlements := plan.NewMemoryStore()
	usage := ledger.NewMemoryStore()
	return &fixture{
		engine:       engine.New(testCatalog(t), testHierarchy(t), entitlements, usage, opts...),
		entitlements: entitlements,
		usage:        usage,
	}
}

func authedUser(t *testing.T, fx *fixture, planID string, expiresAt *time.Time) engine.Identity {
	t.Helper()
	id := engine.Identity{UserID: uuid.New(), Authenticated: true}
	if planID != "" {
		require.NoError(t, fx.entitlements.Set(context.Background(), id.UserID, planID, expiresAt))
	}
	return id
}

func TestDecideFreeFeatures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fx := newFixture(t)

	t.Run("anonymous user can use free feature", func(t *testing.T) {
		t.Parallel()

		v := fx.engine.Decide(ctx, engine.Identity{}, "flashcards", testNow)
		assert.True(t, v.Allow)
		assert.Equal(t, engine.ReasonOK, v.Reason)
		assert.Nil(t, v.Remaining)
	})

	t.Run("auth-only feature denies anonymous", func(t *testing.T) {
		t.Parallel()

		v := fx.engine.Decide(ctx, engine.Identity{}, "progress_sync", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonNotAuthenticated, v.Reason)
	})

	t.Run("auth-only feature allows authenticated", func(t *testing.T) {
		t.Parallel()

		v := fx.engine.Decide(ctx, authedUser(t, fx, "", nil), "progress_sync", testNow)
		assert.True(t, v.Allow)
	})

	t.Run("inactive feature denied for everyone", func(t *testing.T) {
		t.Parallel()

		v := fx.engine.Decide(ctx, authedUser(t, fx, "premium", nil), "retired_game", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonFeatureInactive, v.Reason)
	})

	t.Run("unknown feature treated as inactive", func(t *testing.T) {
		t.Parallel()

		v := fx.engine.Decide(ctx, engine.Identity{}, "no_such_feature", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonFeatureInactive, v.Reason)
	})
}

func TestDecidePlanGating(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("qualifying plan allows without touching the ledger", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		id := authedUser(t, fx, "premium", nil)

		v := fx.engine.Decide(ctx, id, "ai_conversation", testNow)
		assert.True(t, v.Allow)
		assert.Nil(t, v.Remaining)

		start, err := ledger.PeriodStart(catalog.QuotaPerDay, testNow)
		require.NoError(t, err)
		count, err := fx.usage.Count(ctx, ledger.Key{UserID: id.UserID, FeatureKey: "ai_conversation", PeriodStart: start})
		require.NoError(t, err)
		assert.Equal(t, 0, count, "plan-qualified access must not consume quota")
	})

	t.Run("zero free limit denies lower plans outright", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		v := fx.engine.Decide(ctx, authedUser(t, fx, "plus", nil), "voice_calls", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonPlanInsufficient, v.Reason)
	})

	t.Run("unlimited free limit allows any plan without quota", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		v := fx.engine.Decide(ctx, authedUser(t, fx, "free", nil), "grammar_tips", testNow)
		assert.True(t, v.Allow)
		assert.Nil(t, v.Remaining)
	})

	t.Run("plan expired one second ago is already free", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		expired := testNow.Add(-time.Second)
		v := fx.engine.Decide(ctx, authedUser(t, fx, "premium", &expired), "voice_calls", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonPlanInsufficient, v.Reason)
	})

	t.Run("plan expiring in the future still qualifies", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		future := testNow.Add(time.Hour)
		v := fx.engine.Decide(ctx, authedUser(t, fx, "premium", &future), "voice_calls", testNow)
		assert.True(t, v.Allow)
	})

	t.Run("user without entitlement record is free tier", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		v := fx.engine.Decide(ctx, authedUser(t, fx, "", nil), "voice_calls", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonPlanInsufficient, v.Reason)
	})

	t.Run("feature requiring unknown plan fails closed", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		v := fx.engine.Decide(ctx, authedUser(t, fx, "premium", nil), "orphaned", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonVerificationFailed, v.Reason)
	})
}

func TestDecideQuota(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("free user consumes daily quota then is denied", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		id := authedUser(t, fx, "free", nil)

		for want := 2; want >= 0; want-- {
			v := fx.engine.Decide(ctx, id, "ai_conversation", testNow)
			assert.True(t, v.Allow)
			require.NotNil(t, v.Remaining)
			assert.Equal(t, want, *v.Remaining)
		}

		v := fx.engine.Decide(ctx, id, "ai_conversation", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonQuotaExhausted, v.Reason)

		// The denied attempt must not have grown the counter.
		start, err := ledger.PeriodStart(catalog.QuotaPerDay, testNow)
		require.NoError(t, err)
		count, err := fx.usage.Count(ctx, ledger.Key{UserID: id.UserID, FeatureKey: "ai_conversation", PeriodStart: start})
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("quota resets at the period boundary", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		id := authedUser(t, fx, "free", nil)

		for i := 0; i < 3; i++ {
			v := fx.engine.Decide(ctx, id, "ai_conversation", testNow)
			require.True(t, v.Allow)
		}
		v := fx.engine.Decide(ctx, id, "ai_conversation", testNow)
		require.False(t, v.Allow)

		nextDay := testNow.AddDate(0, 0, 1)
		v = fx.engine.Decide(ctx, id, "ai_conversation", nextDay)
		assert.True(t, v.Allow, "new period starts with a fresh counter")
	})

	t.Run("anonymous callers never share a pooled counter", func(t *testing.T) {
		t.Parallel()

		// daily_challenge does not require auth, but its quota is per user and
		// an anonymous caller holds no user. Every anonymous attempt must be
		// denied without touching the ledger; otherwise all visitors would
		// drain one counter keyed by the zero UUID.
		fx := newFixture(t)

		for i := 0; i < 3; i++ {
			v := fx.engine.Decide(ctx, engine.Identity{}, "daily_challenge", testNow)
			assert.False(t, v.Allow)
			assert.Equal(t, engine.ReasonNotAuthenticated, v.Reason)
		}

		start, err := ledger.PeriodStart(catalog.QuotaPerDay, testNow)
		require.NoError(t, err)
		count, err := fx.usage.Count(ctx, ledger.Key{UserID: uuid.Nil, FeatureKey: "daily_challenge", PeriodStart: start})
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		// Authenticated users still get their own allowance.
		v := fx.engine.Decide(ctx, authedUser(t, fx, "free", nil), "daily_challenge", testNow)
		assert.True(t, v.Allow)
	})

	t.Run("quota is per user", func(t *testing.T) {
		t.Parallel()

		fx := newFixture(t)
		first := authedUser(t, fx, "free", nil)
		second := authedUser(t, fx, "free", nil)

		for i := 0; i < 3; i++ {
			require.True(t, fx.engine.Decide(ctx, first, "ai_conversation", testNow).Allow)
		}
		require.False(t, fx.engine.Decide(ctx, first, "ai_conversation", testNow).Allow)

		assert.True(t, fx.engine.Decide(ctx, second, "ai_conversation", testNow).Allow)
	})
}

// failingCatalog, failingEntitlements, and failingLedger simulate storage
// outages for the fail-closed paths.
type failingCatalog struct{ err error }

func (f failingCatalog) Get(ctx context.Context, key string) (*catalog.Feature, error) {
	return nil, f.err
}
func (f failingCatalog) List(ctx context.Context) ([]catalog.Feature, error) { return nil, f.err }
func (f failingCatalog) Version(ctx context.Context) (string, error)         { return "", f.err }
func (f failingCatalog) Put(ctx context.Context, _ *catalog.Feature) error   { return f.err }

type failingEntitlements struct{ err error }

func (f failingEntitlements) Get(ctx context.Context, _ uuid.UUID) (*plan.Entitlement, error) {
	return nil, f.err
}

func (f failingEntitlements) Set(ctx context.Context, _ uuid.UUID, _ string, _ *time.Time) error {
	return f.err
}

type failingLedger struct {
	err   error
	calls int
}

func (f *failingLedger) Increment(ctx context.Context, _ ledger.Key, _ int) (int, bool, error) {
	f.calls++
	return 0, false, f.err
}
func (f *failingLedger) Count(ctx context.Context, _ ledger.Key) (int, error) { return 0, f.err }
func (f *failingLedger) Sweep(ctx context.Context, _ time.Time) (int, error)  { return 0, f.err }

func TestDecideFailsClosed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("backend down")

	t.Run("catalog outage", func(t *testing.T) {
		t.Parallel()

		e := engine.New(failingCatalog{err: boom}, testHierarchy(t), plan.NewMemoryStore(), ledger.NewMemoryStore())
		v := e.Decide(ctx, engine.Identity{UserID: uuid.New(), Authenticated: true}, "flashcards", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonVerificationFailed, v.Reason)
	})

	t.Run("entitlement outage", func(t *testing.T) {
		t.Parallel()

		e := engine.New(testCatalog(t), testHierarchy(t), failingEntitlements{err: boom}, ledger.NewMemoryStore())
		v := e.Decide(ctx, engine.Identity{UserID: uuid.New(), Authenticated: true}, "voice_calls", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonVerificationFailed, v.Reason)
	})

	t.Run("ledger outage", func(t *testing.T) {
		t.Parallel()

		e := engine.New(testCatalog(t), testHierarchy(t), plan.NewMemoryStore(), &failingLedger{err: boom})
		v := e.Decide(ctx, engine.Identity{UserID: uuid.New(), Authenticated: true}, "ai_conversation", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonVerificationFailed, v.Reason)
	})

	t.Run("entitlement outage does not affect free features", func(t *testing.T) {
		t.Parallel()

		e := engine.New(testCatalog(t), testHierarchy(t), failingEntitlements{err: boom}, ledger.NewMemoryStore())
		v := e.Decide(ctx, engine.Identity{UserID: uuid.New(), Authenticated: true}, "flashcards", testNow)
		assert.True(t, v.Allow, "free features never consult the entitlement store")
	})
}

func TestDecideConflictRetry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("persistent conflicts exhaust attempts and fail closed", func(t *testing.T) {
		t.Parallel()

		conflicting := &failingLedger{err: ledger.ErrConflict}
		e := engine.New(testCatalog(t), testHierarchy(t), plan.NewMemoryStore(), conflicting,
			engine.WithMaxAttempts(3))

		v := e.Decide(ctx, engine.Identity{UserID: uuid.New(), Authenticated: true}, "ai_conversation", testNow)
		assert.False(t, v.Allow)
		assert.Equal(t, engine.ReasonVerificationFailed, v.Reason)
		assert.Equal(t, 3, conflicting.calls)
	})

	t.Run("transient conflict resolved by retry", func(t *testing.T) {
		t.Parallel()

		backing := ledger.NewMemoryStore()
		flaky := &conflictOnceLedger{inner: backing}
		e := engine.New(testCatalog(t), testHierarchy(t), plan.NewMemoryStore(), flaky)

		v := e.Decide(ctx, engine.Identity{UserID: uuid.New(), Authenticated: true}, "ai_conversation", testNow)
		assert.True(t, v.Allow)
		require.NotNil(t, v.Remaining)
		assert.Equal(t, 2, *v.Remaining)
	})
}

// conflictOnceLedger reports a write conflict on the first increment only.
type conflictOnceLedger struct {
	inner    ledger.Store
	rejected bool
}

func (l *conflictOnceLedger) Increment(ctx context.Context, key ledger.Key, limit int) (int, bool, error) {
	if !l.rejected {
		l.rejected = true
		return 0, false, ledger.ErrConflict
	}
	return l.inner.Increment(ctx, key, limit)
}

func (l *conflictOnceLedger) Count(ctx context.Context, key ledger.Key) (int, error) {
	return l.inner.Count(ctx, key)
}

func (l *conflictOnceLedger) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	return l.inner.Sweep(ctx, cutoff)
}
