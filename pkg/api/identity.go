package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fluentive/entitlements/pkg/engine"
)

// HeaderIdentity resolves the caller from the given header, expected to hold
// a user UUID injected by an upstream auth proxy. Absent or malformed values
// resolve to an anonymous identity.
func HeaderIdentity(header string) IdentityResolver {
	return func(r *http.Request) engine.Identity {
		raw := r.Header.Get(header)
		if raw == "" {
			return engine.Identity{}
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			return engine.Identity{}
		}
		return engine.Identity{UserID: userID, Authenticated: true}
	}
}
