package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fluentive/entitlements/pkg/catalog"
	"github.com/fluentive/entitlements/pkg/plan"
)

type decideRequest struct {
	FeatureKey string `json:"featureKey"`
}

// handleDecide is the authoritative access check. It always answers 200 with
// a verdict for well-formed requests; denials are successful responses, not
// HTTP errors.
func handleDecide(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req decideRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
		if strings.TrimSpace(req.FeatureKey) == "" {
			respondError(w, http.StatusBadRequest, "invalid_request", "featureKey is required")
			return
		}

		id := deps.Identity(r)
		verdict := deps.Engine.Decide(r.Context(), id, req.FeatureKey, time.Now())
		respondJSON(w, http.StatusOK, verdict)
	}
}

// handleCatalogSnapshot serves the full catalog for client advisory caches,
// with ETag revalidation so unchanged catalogs cost a 304.
func handleCatalogSnapshot(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := catalog.TakeSnapshot(r.Context(), deps.Catalog)
		if err != nil {
			deps.Log.ErrorContext(r.Context(), "catalog snapshot failed", slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, "internal", "catalog unavailable")
			return
		}

		etag := fmt.Sprintf("%q", snap.Version)
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(deps.SnapshotMaxAge.Seconds())))

		if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		respondJSON(w, http.StatusOK, snap)
	}
}

func etagMatches(headerValue, etag string) bool {
	for _, candidate := range strings.Split(headerValue, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

// handlePlanEvent ingests plan change events from the payment collaborator.
func handlePlanEvent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var change plan.Change
		if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}

		if err := plan.ApplyChange(r.Context(), deps.Entitlements, deps.Plans, change); err != nil {
			if errors.Is(err, plan.ErrInvalidChange) {
				respondError(w, http.StatusBadRequest, "invalid_change", err.Error())
				return
			}
			deps.Log.ErrorContext(r.Context(), "plan change failed",
				slog.String("user_id", change.UserID.String()),
				slog.String("kind", string(change.Kind)),
				slog.Any("error", err),
			)
			respondError(w, http.StatusInternalServerError, "internal", "failed to record plan change")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
