// Package plan models the subscription tier hierarchy and the user → plan
// mapping the decision engine reads at verification time.
//
// Tiers form a total order (free < basic < premium < pro by default); the
// engine compares a feature's required rank against the rank a user
// effectively holds right now. Effective rank is always derived from
// (stored plan, expiry, now) via Entitlement.EffectiveRankAt — expiry is
// never pre-computed into a stored boolean.
//
// The hierarchy itself is deployment configuration loaded once from YAML;
// user entitlements are written only by the payment collaborator through
// ApplyChange.
package plan
