package observability

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var BuildResource = buildResource

// SamplerRecordsRoot reports whether the sampler resolved from cfg records
// a root span. This exercises sampler selection without exposing the
// Sampler interface.
func SamplerRecordsRoot(cfg Config) bool {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(selectSampler(cfg)),
	)

	_, span := tp.Tracer("probe").Start(context.Background(), "root")
	span.End()

	// Shutdown clears the exporter, so count first.
	recorded := len(exporter.GetSpans())

	shutdownErr := tp.Shutdown(context.Background())
	if shutdownErr != nil {
		return false
	}

	return recorded > 0
}
