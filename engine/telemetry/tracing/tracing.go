// Package tracing provides trace/span-id extraction for log
// correlation and a thin wrapper (StartSpan) around the module's
// OpenTelemetry tracer.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope name registered with the
// global OpenTelemetry tracer provider.
const TracerName = "github.com/lattice-gfx/frameipc"

// Tracer returns the module's tracer from the currently configured
// global TracerProvider.
func Tracer() trace.Tracer { return otel.Tracer(TracerName) }

// StartSpan starts a span named name under ctx, returning the updated
// context and an end function to defer.
func StartSpan(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := Tracer().Start(ctx, name)
	return ctx, func() { span.End() }
}

// IDsFromContext returns the trace and span id hex strings for ctx's
// current span, or ("", "") if ctx carries no valid span context — for
// attaching to log records.
func IDsFromContext(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}
	return sc.TraceID().String(), sc.SpanID().String()
}
