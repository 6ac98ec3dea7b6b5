// Package mongo manages the connection to the product's document store,
// which backs the feature catalog. Configuration is environment-driven and
// Connect retries so startup tolerates the database coming up late.
package mongo
