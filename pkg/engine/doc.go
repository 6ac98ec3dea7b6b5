// Package engine implements the server-authoritative access decision for
// paid product features.
//
// Decide is a pure function of (user plan, feature definition, ledger state,
// clock): it loads the feature, derives the rank the user effectively holds
// right now, and, for quota-limited features, charges the usage ledger
// through an atomic conditional increment. Denied checks never mutate the
// ledger, so a user who upgrades after exhausting their free allowance is
// not penalized for earlier denied attempts.
//
// The engine never returns an error: every failure mode collapses into a
// deny verdict. Expected denials carry their reason code for UI messaging;
// infrastructure failures become ReasonVerificationFailed and are logged.
package engine
