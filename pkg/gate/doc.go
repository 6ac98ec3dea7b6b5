// Package gate orchestrates feature invocations on the client.
//
// Invoke consults the advisory entitlement cache only to fast-path features
// that are free; every paid feature requires a synchronous, time-bounded
// server verdict before the protected action runs. When that round trip
// cannot complete the gate fails closed and the action does not run — a hung
// or failed check must never silently become a grant.
//
// After a server-granted action the gate fires an asynchronous, best-effort
// usage notification for client-side counters. The authoritative ledger
// increment already happened server-side, so a lost notification costs
// nothing but a slightly stale UI number.
package gate
