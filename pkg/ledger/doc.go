// Package ledger tracks per-user, per-feature usage counters scoped to
// deterministic quota periods.
//
// A counter is keyed by (user, feature, period start) where period start is
// computed from the feature's quota cadence and the current time. New periods
// get fresh counters implicitly; old ones become inert and are reclaimed by
// Sweep (or Redis TTL) without being load-bearing.
//
// The Store contract centers on one primitive: an atomic conditional
// increment ("increment iff count < limit"). This is what keeps quota
// accounting exact when many stateless replicas serve concurrent requests
// for the same user; see the engine package for the retry policy around it.
package ledger
