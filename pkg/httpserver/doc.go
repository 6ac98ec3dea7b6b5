// Package httpserver wraps net/http with environment-driven configuration
// and graceful shutdown tied to context cancellation and OS signals.
package httpserver
