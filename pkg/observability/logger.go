package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID   = "trace_id"
	attrSpanID    = "span_id"
	attrService   = "service"
	attrEnv       = "env"
	attrMode      = "mode"
	attrBenchmark = "benchmark"
)

// benchmarkKey is the context key for the benchmark name in flight.
type benchmarkKey struct{}

// ContextWithBenchmark tags ctx with the benchmark currently executing.
// Log records emitted under this context carry a "benchmark" attribute.
func ContextWithBenchmark(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, benchmarkKey{}, name)
}

// BenchmarkFromContext returns the benchmark name tagged on ctx, if any.
func BenchmarkFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(benchmarkKey{}).(string)

	return name, ok
}

// TracingHandler is an [slog.Handler] that stamps every record with the
// OpenTelemetry trace context (trace_id, span_id) and the benchmark name
// carried by the context. Service attributes (service, env, mode) are
// pre-attached at construction so they stay at the top level even when
// groups are used.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps an [slog.Handler] with trace-context stamping.
// Service attributes are attached to the inner handler up front so they
// appear at the top level regardless of subsequent WithGroup calls.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{
		inner: inner.WithAttrs(attrs),
	}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle stamps trace and benchmark attributes from ctx, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if name, ok := BenchmarkFromContext(ctx); ok {
		record.AddAttrs(slog.String(attrBenchmark, name))
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes on the inner handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{
		inner: th.inner.WithAttrs(attrs),
	}
}

// WithGroup returns a new TracingHandler with a group prefix on the inner handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{
		inner: th.inner.WithGroup(name),
	}
}
