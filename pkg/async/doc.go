// Package async provides a minimal Future abstraction over goroutines, used
// for fire-and-forget work like the gate's usage notifications.
package async
