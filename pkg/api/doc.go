// Package api exposes the entitlement service over HTTP: the authoritative
// access decision endpoint, the catalog snapshot feed for client caches, the
// plan change ingestion hook, and a readiness probe.
package api
