package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRunsTotal    = "benchfang.runs.total"
	metricRunDuration  = "benchfang.run.duration.seconds"
	metricErrorsTotal  = "benchfang.errors.total"
	metricInflightRuns = "benchfang.inflight.runs"

	attrStatus  = "status"
	statusError = "error"
)

// durationBucketBoundaries covers 5ms to 600s for benchmark runs that range
// from quick micro-suites to long sweeps collecting thousands of samples.
var durationBucketBoundaries = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// RunMetrics holds the OTel instruments for Rate, Error, Duration metrics
// over benchmark runs.
type RunMetrics struct {
	runsTotal    metric.Int64Counter
	runDuration  metric.Float64Histogram
	errorsTotal  metric.Int64Counter
	inflightRuns metric.Int64UpDownCounter
}

// NewRunMetrics creates run metric instruments from the given meter.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RunMetrics{
		runsTotal:    b.counter(metricRunsTotal, "Total number of benchmark runs", "{run}"),
		runDuration:  b.histogram(metricRunDuration, "Benchmark run wall time in seconds", "s", durationBucketBoundaries...),
		errorsTotal:  b.counter(metricErrorsTotal, "Total number of failed runs", "{error}"),
		inflightRuns: b.upDownCounter(metricInflightRuns, "Number of in-flight benchmark runs", "{run}"),
	}

	err := b.instrumentErr()
	if err != nil {
		return nil, err
	}

	return rm, nil
}

// RecordRun records a completed benchmark run with its name, status, and wall time.
func (rm *RunMetrics) RecordRun(ctx context.Context, benchmark, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrBenchmark, benchmark),
		attribute.String(attrStatus, status),
	)

	rm.runsTotal.Add(ctx, 1, attrs)
	rm.runDuration.Record(ctx, duration.Seconds(), attrs)

	if status == statusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrBenchmark, benchmark),
		))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *RunMetrics) TrackInflight(ctx context.Context, benchmark string) func() {
	attrs := metric.WithAttributes(attribute.String(attrBenchmark, benchmark))
	rm.inflightRuns.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRuns.Add(ctx, -1, attrs)
	}
}
