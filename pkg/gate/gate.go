package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/fluentive/entitlements/pkg/async"
	"github.com/fluentive/entitlements/pkg/entitlementcache"
)

// Reason codes the gate can produce locally. Server-side reasons pass
// through the Result untouched.
const (
	ReasonOK                 = "ok"
	ReasonVerificationFailed = "verification_failed"
)

// Decision is the server's verdict as received over the wire.
type Decision struct {
	CanAccess bool   `json:"canAccess"`
	Reason    string `json:"reason"`
	Remaining *int   `json:"remaining,omitempty"`
}

// DecisionClient performs the authoritative server round trip.
type DecisionClient interface {
	Decide(ctx context.Context, featureKey string) (*Decision, error)
}

// UsageRecorder receives best-effort usage notifications after a granted
// action. This feeds client-side analytics and UI counters only; the
// authoritative ledger increment already happened server-side.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, featureKey string) error
}

// Result describes how an invocation ended.
type Result struct {
	State     State
	Reason    string
	Remaining *int
}

// Gate wraps feature invocations. Free features (per the advisory cache) run
// immediately; paid features require a fresh server verdict first, and any
// failure to obtain one denies the action. The advisory cache is never
// consulted as a fallback for paid features — that would reopen the exact
// tamper vector the server check exists to close.
type Gate struct {
	cache    *entitlementcache.Cache
	client   DecisionClient
	recorder UsageRecorder
	timeout  time.Duration
	log      *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithTimeout bounds the authoritative server check. A check that exceeds it
// is treated as verification failure, never as a grant. Default 3 seconds.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithUsageRecorder attaches a best-effort usage notification sink.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(g *Gate) { g.recorder = r }
}

// WithLogger sets the logger for verification failures.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// New creates a Gate. Panics if cache or client is nil to fail fast during
// initialization.
func New(cache *entitlementcache.Cache, client DecisionClient, opts ...Option) *Gate {
	if cache == nil {
		panic("gate: entitlement cache is required")
	}
	if client == nil {
		panic("gate: decision client is required")
	}

	g := &Gate{
		cache:   cache,
		client:  client,
		timeout: 3 * time.Second,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke runs action behind the feature gate.
//
// The returned error is ErrAccessDenied or ErrVerificationFailed when the
// action was not allowed to run, or whatever the action itself returned.
// A non-nil Result is always returned for UI messaging.
func (g *Gate) Invoke(ctx context.Context, featureKey string, action func(context.Context) error) (*Result, error) {
	inv := newInvocation()

	// Only a cached definition that is provably free skips the server.
	// Unknown features are treated as paid: verify first.
	if f, ok := g.cache.Info(featureKey); ok && !f.IsPaid {
		return g.execute(ctx, inv, featureKey, action, &Decision{CanAccess: true, Reason: ReasonOK}, false)
	}

	_ = inv.to(StateChecking)

	checkCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	decision, err := g.client.Decide(checkCtx, featureKey)
	if err != nil {
		// Transport failure, timeout, malformed response: all collapse into
		// a closed gate. Falling back to the advisory cache here is the one
		// mistake this package must never make.
		g.log.WarnContext(ctx, "access verification failed",
			slog.String("feature_key", featureKey),
			slog.Any("error", err),
		)
		_ = inv.to(StateError)
		_ = inv.to(StateDenied)
		_ = inv.to(StateDone)
		return &Result{State: StateDenied, Reason: ReasonVerificationFailed}, ErrVerificationFailed
	}

	if !decision.CanAccess {
		_ = inv.to(StateDenied)
		_ = inv.to(StateDone)
		return &Result{State: StateDenied, Reason: decision.Reason, Remaining: decision.Remaining}, ErrAccessDenied
	}

	return g.execute(ctx, inv, featureKey, action, decision, true)
}

// execute runs the protected action and, for server-granted invocations,
// fires the async usage notification. The notification is fire-and-forget:
// its failure must not roll back an action that already ran.
func (g *Gate) execute(ctx context.Context, inv *invocation, featureKey string, action func(context.Context) error, decision *Decision, notify bool) (*Result, error) {
	_ = inv.to(StateGranted)
	_ = inv.to(StateExecuting)

	actionErr := action(ctx)

	_ = inv.to(StateDone)

	if notify && g.recorder != nil {
		// Detached from the request context so a finished request cannot
		// cancel the notification mid-flight.
		async.Async(context.WithoutCancel(ctx), featureKey, func(ctx context.Context, key string) (struct{}, error) {
			if err := g.recorder.RecordUsage(ctx, key); err != nil {
				g.log.DebugContext(ctx, "usage notification failed",
					slog.String("feature_key", key),
					slog.Any("error", err),
				)
			}
			return struct{}{}, nil
		})
	}

	return &Result{State: StateDone, Reason: decision.Reason, Remaining: decision.Remaining}, actionErr
}
