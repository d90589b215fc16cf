package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSamplesTotal      = "benchfang.engine.samples.total"
	metricOutliersTotal     = "benchfang.engine.outliers.total"
	metricReclassifiedTotal = "benchfang.engine.reclassified.total"
	metricResamplesTotal    = "benchfang.engine.resamples.total"
	metricPhaseDuration     = "benchfang.engine.phase.duration.seconds"

	attrFilter = "filter"
	attrPhase  = "phase"
)

// EngineMetrics holds OTel instruments for engine-specific metrics.
type EngineMetrics struct {
	samplesTotal      metric.Int64Counter
	outliersTotal     metric.Int64Counter
	reclassifiedTotal metric.Int64Counter
	resamplesTotal    metric.Int64Counter
	phaseDuration     metric.Float64Histogram
}

// EngineStats holds the statistics for a single analyzed benchmark,
// decoupled from harness types.
type EngineStats struct {
	Samples          int64
	TemporalOutliers int64
	DensityOutliers  int64
	Reclassified     int64
	Resamples        int64
	CollectDuration  time.Duration
	FilterDuration   time.Duration
	AnalyzeDuration  time.Duration
}

// NewEngineMetrics creates engine metric instruments from the given meter.
func NewEngineMetrics(mt metric.Meter) (*EngineMetrics, error) {
	b := newMetricBuilder(mt)

	em := &EngineMetrics{
		samplesTotal:      b.counter(metricSamplesTotal, "Total timing samples ingested", "{sample}"),
		outliersTotal:     b.counter(metricOutliersTotal, "Samples rejected as outliers by filter stage", "{sample}"),
		reclassifiedTotal: b.counter(metricReclassifiedTotal, "Withheld samples retroactively admitted by the temporal filter", "{sample}"),
		resamplesTotal:    b.counter(metricResamplesTotal, "Bootstrap replicas drawn", "{replica}"),
		phaseDuration:     b.histogram(metricPhaseDuration, "Per-phase engine duration in seconds", "s", durationBucketBoundaries...),
	}

	err := b.instrumentErr()
	if err != nil {
		return nil, err
	}

	return em, nil
}

// RecordAnalysis records engine statistics for a completed benchmark analysis.
// Safe to call on a nil receiver (no-op).
func (em *EngineMetrics) RecordAnalysis(ctx context.Context, stats EngineStats) {
	if em == nil {
		return
	}

	em.samplesTotal.Add(ctx, stats.Samples)
	em.reclassifiedTotal.Add(ctx, stats.Reclassified)
	em.resamplesTotal.Add(ctx, stats.Resamples)

	temporalAttrs := metric.WithAttributes(attribute.String(attrFilter, "temporal"))
	em.outliersTotal.Add(ctx, stats.TemporalOutliers, temporalAttrs)

	densityAttrs := metric.WithAttributes(attribute.String(attrFilter, "density"))
	em.outliersTotal.Add(ctx, stats.DensityOutliers, densityAttrs)

	em.recordPhase(ctx, "collect", stats.CollectDuration)
	em.recordPhase(ctx, "filter", stats.FilterDuration)
	em.recordPhase(ctx, "analyze", stats.AnalyzeDuration)
}

func (em *EngineMetrics) recordPhase(ctx context.Context, phase string, d time.Duration) {
	if d <= 0 {
		return
	}

	em.phaseDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrPhase, phase)))
}
