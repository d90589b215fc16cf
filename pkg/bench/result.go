package bench

import (
	"time"

	"github.com/Sumatoshi-tech/benchfang/pkg/bootstrap"
	"github.com/Sumatoshi-tech/benchfang/pkg/observability"
	"github.com/Sumatoshi-tech/benchfang/pkg/safeconv"
)

// Result carries everything one benchmark run produced: the bootstrap
// estimates plus the sample accounting of every pipeline stage.
type Result struct {
	// Benchmark is the name of the measured benchmark, when known.
	Benchmark string

	// Report holds the bootstrap estimates over the accepted samples.
	Report bootstrap.Report

	// Samples is the number of samples that survived both filter stages.
	Samples uint64

	// Iterations is the number of timed iterations collected.
	Iterations int

	// Warmup is the number of untimed iterations run before collection.
	Warmup int

	// TemporalOutliers counts samples the sliding-window stage rejected.
	TemporalOutliers int64

	// DensityOutliers counts samples the density stage rejected.
	DensityOutliers int64

	// Reclassified counts withheld samples the temporal stage later
	// admitted after all.
	Reclassified int64

	// Resamples is the number of bootstrap replicas drawn.
	Resamples int

	// Elapsed is the total wall time of the run including warmup.
	Elapsed time.Duration

	// CollectDuration is the wall time of the timed collection loop.
	CollectDuration time.Duration

	// FilterDuration is the wall time of both filter stages.
	FilterDuration time.Duration

	// AnalyzeDuration is the wall time of the bootstrap analysis.
	AnalyzeDuration time.Duration
}

// EngineStats flattens the result into the observability stats shape.
func (r *Result) EngineStats() observability.EngineStats {
	return observability.EngineStats{
		Samples:          safeconv.SafeInt64(r.Samples),
		TemporalOutliers: r.TemporalOutliers,
		DensityOutliers:  r.DensityOutliers,
		Reclassified:     r.Reclassified,
		Resamples:        int64(r.Resamples),
		CollectDuration:  r.CollectDuration,
		FilterDuration:   r.FilterDuration,
		AnalyzeDuration:  r.AnalyzeDuration,
	}
}
