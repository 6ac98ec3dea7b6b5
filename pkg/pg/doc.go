// Package pg manages the Postgres connection pool used by the plan
// entitlement store and the usage ledger.
//
// Configuration is environment-driven; Connect retries with backoff so the
// service survives starting before the database, and Migrate applies the
// goose migrations that define the user_entitlements and usage_counters
// schemas.
package pg
