// Package logger provides slog-based structured logging for the library.
//
// The default logger writes text to stderr at Info level; embedding
// applications can replace it with Set or build a context-scoped child with
// WithContext. Nothing here writes to stdout — stdout belongs to callers.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}

// Init builds and installs a logger writing to w.
// If jsonOutput is true, records are formatted as JSON for production.
func Init(w io.Writer, jsonOutput bool, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	current.Store(slog.New(handler))
}

// Set installs an externally constructed logger.
func Set(l *slog.Logger) {
	if l != nil {
		current.Store(l)
	}
}

// Slog returns the installed logger.
func Slog() *slog.Logger {
	return current.Load()
}

// Context keys for structured logging.
type contextKey string

const (
	ContextKeyExecutionID contextKey = "execution_id"
	ContextKeySessionID   contextKey = "session_id"
	ContextKeyProvider    contextKey = "provider"
)

// WithContext returns a logger enriched with well-known context fields.
func WithContext(ctx context.Context) *slog.Logger {
	l := Slog()
	if v := ctx.Value(ContextKeyExecutionID); v != nil {
		l = l.With("execution_id", v)
	}
	if v := ctx.Value(ContextKeySessionID); v != nil {
		l = l.With("session_id", v)
	}
	if v := ctx.Value(ContextKeyProvider); v != nil {
		l = l.With("provider", v)
	}
	return l
}

// InfoContext logs an info message with context fields.
func InfoContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

// WarnContext logs a warning with context fields.
func WarnContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

// ErrorContext logs an error with context fields.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}

// DebugContext logs debug info with context fields.
func DebugContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}
