// Package redis manages the Redis connection backing the usage ledger's
// primary store. Configuration is environment-driven and Connect retries so
// service startup tolerates Redis coming up late.
package redis
