package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fluentive/entitlements/pkg/catalog"
	"github.com/fluentive/entitlements/pkg/engine"
	"github.com/fluentive/entitlements/pkg/plan"
)

// IdentityResolver extracts the caller's identity from the request. The
// session/auth system is an external collaborator; deployments plug in
// whatever middleware it provides.
type IdentityResolver func(*http.Request) engine.Identity

// Deps wires the router's collaborators.
type Deps struct {
	Engine       *engine.Engine
	Catalog      catalog.Store
	Plans        *plan.Hierarchy
	Entitlements plan.EntitlementStore
	Identity     IdentityResolver

	// SnapshotMaxAge is advertised to client caches via Cache-Control.
	SnapshotMaxAge time.Duration

	// HealthProbes are checked by /healthz.
	HealthProbes []func(context.Context) error

	Log *slog.Logger
}

// NewRouter builds the service's HTTP handler. Panics on missing required
// dependencies to fail fast during initialization.
func NewRouter(deps Deps) http.Handler {
	if deps.Engine == nil {
		panic("api: engine is required")
	}
	if deps.Catalog == nil {
		panic("api: catalog store is required")
	}
	if deps.Plans == nil {
		panic("api: plan hierarchy is required")
	}
	if deps.Entitlements == nil {
		panic("api: entitlement store is required")
	}
	if deps.Identity == nil {
		panic("api: identity resolver is required")
	}
	if deps.SnapshotMaxAge <= 0 {
		deps.SnapshotMaxAge = 5 * time.Minute
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth(deps))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/access/decide", handleDecide(deps))
		r.Get("/catalog", handleCatalogSnapshot(deps))
		r.Post("/plan/events", handlePlanEvent(deps))
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, probe := range deps.HealthProbes {
			if err := probe(r.Context()); err != nil {
				deps.Log.ErrorContext(r.Context(), "readiness check failed", slog.Any("error", err))
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("NOT_READY"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
