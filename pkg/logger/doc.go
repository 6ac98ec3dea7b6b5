// Package logger builds the service's slog.Logger from environment
// configuration: JSON in production, text for local development.
package logger
