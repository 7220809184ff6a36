package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Nop discards everything. Used by tests and when telemetry setup fails.
type Nop struct{}

var nopTracer = noop.NewTracerProvider().Tracer("inventa")

func (Nop) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return nopTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (Nop) RecordVisit(context.Context, string, string, string, time.Duration, int) {}

func (Nop) RecordErrors(context.Context, string, string, int) {}

func (Nop) RecordProfile(context.Context, string) {}
