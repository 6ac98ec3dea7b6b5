package entitlementcache

import (
	"context"
	"sync"
	"time"

	"github.com/fluentive/entitlements/pkg/catalog"
	"github.com/fluentive/entitlements/pkg/plan"
)

// Advisory is a client-local access guess. It exists to render menus and
// badges without a network round trip and is never authoritative: anything
// the client cannot prove from the catalog and its own plan state is
// AdvisoryAskServer.
type Advisory int

const (
	// AdvisoryDeny means the client can already tell the feature is not
	// available (inactive, auth required, plan too low with no free quota).
	AdvisoryDeny Advisory = iota
	// AdvisoryAllow means the feature is provably available without touching
	// the usage ledger (free, unlimited, or plan-qualified).
	AdvisoryAllow
	// AdvisoryAskServer means the answer depends on ledger state the client
	// has no reliable view of. The gate must consult the server.
	AdvisoryAskServer
)

// Identity is the client's local view of who is signed in and what plan they
// hold. Plan expiry stays raw here too and is evaluated per call.
type Identity struct {
	Authenticated bool
	PlanID        string
	PlanExpiresAt *time.Time
}

// SnapshotSource fetches the catalog snapshot, typically over HTTP. When the
// server reports the given version is still current, implementations return
// (nil, true, nil).
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context, haveVersion string) (snap *catalog.Snapshot, notModified bool, err error)
}

// Cache is the client entitlement cache: a time-boxed mirror of the feature
// catalog plus locally known plan state. It only ever drives UI affordances;
// paid actions are gated by the server regardless of what this cache says.
type Cache struct {
	source SnapshotSource
	plans  *plan.Hierarchy
	ttl    time.Duration

	mu        sync.RWMutex
	features  map[string]catalog.Feature
	version   string
	fetchedAt time.Time
	identity  Identity

	refreshMu     sync.Mutex
	cancelRefresh context.CancelFunc
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets how long a snapshot is considered fresh. Default 5 minutes.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New creates a cache over the given snapshot source and tier hierarchy.
func New(source SnapshotSource, plans *plan.Hierarchy, opts ...CacheOption) *Cache {
	if source == nil {
		panic("entitlementcache: snapshot source is required")
	}
	if plans == nil {
		panic("entitlementcache: plan hierarchy is required")
	}

	c := &Cache{
		source:   source,
		plans:    plans,
		ttl:      5 * time.Minute,
		features: make(map[string]catalog.Feature),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetIdentity records the locally known auth and plan state, typically after
// sign-in or a subscription change pushed by the app backend.
func (c *Cache) SetIdentity(id Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = id
}

// Refresh pulls a fresh catalog snapshot. A refresh already in flight is
// superseded (its context cancelled), not queued, so rapid foreground cycles
// cannot build a backlog. Failures leave the previous snapshot in place:
// stale advisory data is harmless because the gate re-verifies server-side.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	if c.cancelRefresh != nil {
		c.cancelRefresh()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancelRefresh = cancel
	c.refreshMu.Unlock()
	defer cancel()

	c.mu.RLock()
	haveVersion := c.version
	c.mu.RUnlock()

	snap, notModified, err := c.source.FetchSnapshot(ctx, haveVersion)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A refresh superseded after its fetch returned must not commit: the
	// superseding refresh owns the next snapshot swap.
	if err := ctx.Err(); err != nil {
		return err
	}
	c.fetchedAt = time.Now()
	if notModified {
		return nil
	}

	features := make(map[string]catalog.Feature, len(snap.Features))
	for _, f := range snap.Features {
		features[f.Key] = f
	}
	c.features = features
	c.version = snap.Version
	return nil
}

// Stale reports whether the snapshot is past its TTL (or never loaded).
func (c *Cache) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt.IsZero() || time.Since(c.fetchedAt) > c.ttl
}

// Version returns the catalog version the cache currently mirrors.
func (c *Cache) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Info returns the cached definition for a feature key, if present.
func (c *Cache) Info(key string) (*catalog.Feature, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, ok := c.features[key]
	if !ok {
		return nil, false
	}
	return &f, true
}

// AdvisoryAccess is the boolean convenience over Advise: true only when the
// client can prove access locally. Suitable for enabling a button; never for
// gating the action behind it.
func (c *Cache) AdvisoryAccess(key string) bool {
	return c.Advise(key, time.Now()) == AdvisoryAllow
}

// Advise runs the plan-level decision steps against cached data. It mirrors
// the server's logic up to the point where the usage ledger would be
// consulted; the client has no reliable view of the ledger, so quota-limited
// access is never guessed.
func (c *Cache) Advise(key string, now time.Time) Advisory {
	c.mu.RLock()
	f, ok := c.features[key]
	id := c.identity
	c.mu.RUnlock()

	if !ok {
		// Unknown feature: the catalog may be stale, let the server decide.
		return AdvisoryAskServer
	}
	if !f.IsActive {
		return AdvisoryDeny
	}
	if f.RequiresAuth && !id.Authenticated {
		return AdvisoryDeny
	}
	if !f.IsPaid {
		return AdvisoryAllow
	}

	requiredTier, found := c.plans.ByID(f.RequiredPlan)
	if !found {
		return AdvisoryAskServer
	}

	rank := plan.FreeRank
	if id.Authenticated {
		ent := plan.Entitlement{PlanID: id.PlanID, ExpiresAt: id.PlanExpiresAt}
		rank = ent.EffectiveRankAt(c.plans, now)
	}
	if rank >= requiredTier.Rank {
		return AdvisoryAllow
	}

	if f.FreeLimit == catalog.Unlimited {
		return AdvisoryAllow
	}
	if f.FreeLimit == 0 {
		return AdvisoryDeny
	}

	// Quota is charged per user, so anonymous callers cannot hold one.
	if !id.Authenticated {
		return AdvisoryDeny
	}

	return AdvisoryAskServer
}
