package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// TracePolicy names the tracers and spans a filtering provider suppresses.
// Suppressed tracers yield no-op tracers outright; suppressed spans become
// no-op spans inside otherwise-active tracers.
type TracePolicy struct {
	DropTracers []string
	DropSpans   []string
}

// QuietTracePolicy suppresses the hot-path instrumentation. A suite sweep
// emits phase and warmup spans for every benchmark; this drops them while
// preserving per-benchmark run spans.
func QuietTracePolicy() TracePolicy {
	return TracePolicy{
		DropTracers: []string{"benchfang.bench.phases"},
		DropSpans:   []string{"bench.warmup"},
	}
}

// NewFilteringTracerProvider wraps delegate so that spans named by policy
// are replaced with no-op spans.
func NewFilteringTracerProvider(delegate trace.TracerProvider, policy TracePolicy) trace.TracerProvider {
	return &filteringTracerProvider{
		delegate:    delegate,
		noop:        nooptrace.NewTracerProvider(),
		dropTracers: nameSet(policy.DropTracers),
		dropSpans:   nameSet(policy.DropSpans),
	}
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}

	return set
}

// filteringTracerProvider applies a TracePolicy on top of a real provider.
type filteringTracerProvider struct {
	embedded.TracerProvider

	delegate    trace.TracerProvider
	noop        trace.TracerProvider
	dropTracers map[string]bool
	dropSpans   map[string]bool
}

// Tracer returns a tracer for the given name, no-op when policy drops it.
func (f *filteringTracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if f.dropTracers[name] {
		return f.noop.Tracer(name, opts...)
	}

	actual := f.delegate.Tracer(name, opts...)

	if len(f.dropSpans) > 0 {
		return &filteringTracer{
			delegate:  actual,
			noop:      f.noop.Tracer(name, opts...),
			dropSpans: f.dropSpans,
		}
	}

	return actual
}

// filteringTracer drops the policy's span names and delegates the rest.
type filteringTracer struct {
	embedded.Tracer

	delegate  trace.Tracer
	noop      trace.Tracer
	dropSpans map[string]bool
}

// Start creates a span, returning a no-op span for dropped names.
func (f *filteringTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if f.dropSpans[name] {
		return f.noop.Start(ctx, name, opts...)
	}

	return f.delegate.Start(ctx, name, opts...)
}
