package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/sdk/trace"
)

func TestIDsFromContextEmptyWithoutSpan(t *testing.T) {
	traceID, spanID := IDsFromContext(context.Background())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)
}

func TestIDsFromContextPopulatedWithSpan(t *testing.T) {
	tp := trace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer(TracerName).Start(context.Background(), "test-span")
	defer span.End()

	traceID, spanID := IDsFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.NotEmpty(t, spanID)
}
