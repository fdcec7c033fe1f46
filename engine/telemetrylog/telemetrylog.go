// Package telemetrylog provides the module's structured logging facade:
// a slog.Logger wrapper that injects a correlation id (session id,
// request id, or similar) into every record without callers having to
// thread slog.Attr plumbing through every function signature.
package telemetrylog

import (
	"context"
	"log/slog"
	"os"
)

type correlationKey struct{}

// WithCorrelationID returns a context carrying id, picked up by any
// logger created via FromContext.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// correlationIDFrom returns the correlation id stored in ctx, or "".
func correlationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// New returns a slog.Logger writing JSON to os.Stdout at level, tagged
// with component.
func New(component string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("component", component)
}

// FromContext returns base with a "correlation_id" attribute attached
// if ctx carries one, otherwise base unchanged.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := correlationIDFrom(ctx); id != "" {
		return base.With("correlation_id", id)
	}
	return base
}
