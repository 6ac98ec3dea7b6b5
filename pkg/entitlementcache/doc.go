// Package entitlementcache is the client-side advisory mirror of the feature
// catalog.
//
// The cache answers "should this button look enabled?" instantly from local
// data; it deliberately cannot answer "may this action run?" for any
// quota-limited feature, because the usage ledger lives server-side only.
// Keeping the advisory path and the authoritative path in separate packages
// (this one and gate) is intentional: merging them is how client-side trust
// bugs happen.
package entitlementcache
