// Package perf records OpenTelemetry spans for every phase of a builder run
// and keeps them in memory so they can be inspected or exported.
package perf

import (
	"context"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/meza/project-builder"

var (
	mu       sync.Mutex
	exporter *spanExporter
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
)

func init() {
	Reset()
}

// Reset drops all recorded spans and starts a fresh tracer provider.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	if provider != nil {
		_ = provider.Shutdown(context.Background())
	}

	exporter = newSpanExporter()
	provider = sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer = provider.Tracer(tracerName)
}

func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	mu.Lock()
	current := tracer
	mu.Unlock()

	return current.Start(ctx, name, opts...)
}

// SnapshotSpans returns every span that has ended so far.
func SnapshotSpans() ([]sdktrace.ReadOnlySpan, error) {
	mu.Lock()
	current := exporter
	mu.Unlock()

	return current.Snapshot(), nil
}
