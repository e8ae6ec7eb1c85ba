// Package logger defines the structured logging interface used throughout the
// keyforge service. The production implementation lives in
// internal/infrastructure/monitoring and is backed by zap.
package logger

import "context"

// Fields carries structured key/value pairs attached to a log entry.
// Secret material must never be placed in a field; callers log secret
// references or key identifiers only.
type Fields map[string]interface{}

// Logger is the context-aware structured logging interface.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Fields)
	Info(ctx context.Context, msg string, fields ...Fields)
	Warn(ctx context.Context, msg string, fields ...Fields)
	Error(ctx context.Context, msg string, err error, fields ...Fields)
	Fatal(ctx context.Context, msg string, err error, fields ...Fields)

	// WithFields returns a logger that attaches the fields to every entry.
	WithFields(fields Fields) Logger

	// WithComponent returns a logger scoped to a named component.
	WithComponent(component string) Logger
}
