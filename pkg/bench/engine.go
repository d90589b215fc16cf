package bench

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/benchfang/pkg/bootstrap"
	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
	"github.com/Sumatoshi-tech/benchfang/pkg/outlier"
	"github.com/Sumatoshi-tech/benchfang/pkg/safeconv"
)

// phasesTracerName is the OTel tracer name for engine phase spans. Spans
// from this tracer are verbose diagnostics and are suppressed unless phase
// tracing is enabled.
const phasesTracerName = "benchfang.bench.phases"

// ErrNoSamples is returned when an Engine is handed an empty sample slice.
var ErrNoSamples = errors.New("bench: no samples to analyze")

// EngineOptions configures an Engine.
//
// A zero-value EngineOptions is valid and means: default temporal window,
// both filter stages enabled with their package defaults, default bootstrap
// settings, a wall-clock seed and a discard logger.
type EngineOptions struct {
	// TemporalWindow is the sliding window length for interrupt rejection.
	// Zero means outlier.DefaultWindow; negative disables the temporal
	// stage.
	TemporalWindow int

	// Temporal configures the sliding-window interrupt filter.
	Temporal outlier.TemporalOptions

	// DisableDensity turns off the histogram density stage.
	DisableDensity bool

	// Density configures the density filter.
	Density outlier.DensityOptions

	// Bootstrap configures the resampling analyzer.
	Bootstrap bootstrap.Options

	// Seed seeds the deterministic resampling generator. Zero derives a
	// seed from the wall clock.
	Seed uint64

	// Tracer creates phase spans. When nil, the global provider's tracer
	// is used.
	Tracer trace.Tracer

	// Logger is the structured logger for pipeline diagnostics. When nil,
	// a discard logger is used. A non-nil Logger also backfills the nested
	// filter and bootstrap options that carry none.
	Logger *slog.Logger
}

// Engine runs the filtering and analysis pipeline over raw duration
// samples. One instance is created per measured benchmark and reused across
// Process calls; histogram storage is recycled through an internal pool.
//
// Not safe for concurrent use.
type Engine struct {
	window       int
	temporalOpts outlier.TemporalOptions
	density      *outlier.DensityFilter
	analyzer     *bootstrap.Analyzer
	rng          *dist.RNG
	pool         *dist.Pool
	tr           trace.Tracer
	logger       *slog.Logger
}

// NewEngine returns an Engine configured by opts. Panics when the temporal
// window is positive but below outlier.MinWindow, or when the nested filter
// and bootstrap options are unusable.
func NewEngine(opts EngineOptions) *Engine {
	window := opts.TemporalWindow

	switch {
	case window == 0:
		window = outlier.DefaultWindow
	case window < 0:
		window = 0
	case window < outlier.MinWindow:
		panic("bench: temporal windows need at least three samples")
	}

	if opts.Logger != nil {
		if opts.Temporal.Logger == nil {
			opts.Temporal.Logger = opts.Logger
		}

		if opts.Density.Logger == nil {
			opts.Density.Logger = opts.Logger
		}

		if opts.Bootstrap.Logger == nil {
			opts.Bootstrap.Logger = opts.Logger
		}
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // wall-clock seed.
	}

	e := &Engine{
		window:       window,
		temporalOpts: opts.Temporal,
		analyzer:     bootstrap.NewAnalyzer(opts.Bootstrap),
		rng:          dist.NewRNG(seed),
		pool:         dist.NewPool(),
		tr:           opts.Tracer,
		logger:       logOrDiscard(opts.Logger),
	}

	if !opts.DisableDensity {
		e.density = outlier.NewDensityFilter(opts.Density)
	}

	return e
}

// Resamples returns the configured number of bootstrap rounds.
func (e *Engine) Resamples() int {
	return e.analyzer.Resamples()
}

// Confidence returns the configured two-sided confidence level.
func (e *Engine) Confidence() float64 {
	return e.analyzer.Confidence()
}

// Process filters raw duration samples in their arrival order and estimates
// the population statistics of the survivors. Samples stream through the
// temporal stage first, the survivors fill a pooled histogram, the density
// stage rejects low-weight bins, and the bootstrap analyzer reports over
// what remains.
func (e *Engine) Process(ctx context.Context, samples []int64) (*Result, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	res := &Result{
		Iterations: len(samples),
		Resamples:  e.analyzer.Resamples(),
	}

	filterStart := time.Now()

	ctx, filterSpan := e.tracer().Start(ctx, "bench.filter",
		trace.WithAttributes(attribute.Int("bench.collected", len(samples))))

	d := e.filter(samples, res)

	filterSpan.SetAttributes(
		attribute.Int64("bench.outliers.temporal", res.TemporalOutliers),
		attribute.Int64("bench.outliers.density", res.DensityOutliers),
		attribute.Int64("bench.reclassified", res.Reclassified),
	)
	filterSpan.End()

	res.FilterDuration = time.Since(filterStart)

	analyzeStart := time.Now()

	_, analyzeSpan := e.tracer().Start(ctx, "bench.analyze",
		trace.WithAttributes(
			attribute.Int64("bench.accepted", safeconv.SafeInt64(d.Len())),
			attribute.Int("bench.resamples", res.Resamples),
		))

	res.Report = e.analyzer.Apply(e.rng, d)
	res.Samples = d.Len()

	analyzeSpan.End()

	res.AnalyzeDuration = time.Since(analyzeStart)

	e.pool.PutDistribution(d)

	e.logger.DebugContext(ctx, "engine processed samples",
		"collected", res.Iterations,
		"accepted", res.Samples,
		"temporal_outliers", res.TemporalOutliers,
		"density_outliers", res.DensityOutliers,
		"reclassified", res.Reclassified,
	)

	return res, nil
}

// filter routes samples into a pooled builder, applies the density stage to
// the built histogram, and returns the surviving distribution. Temporal
// routing needs more samples than the window holds; shorter inputs skip
// straight to the histogram.
func (e *Engine) filter(samples []int64, res *Result) *dist.Distribution {
	builder := e.pool.Get()

	if e.window > 0 && len(samples) > e.window {
		e.routeTemporal(samples, builder, res)
	} else {
		for _, s := range samples {
			builder.Insert(s)
		}
	}

	d := builder.Build()

	if e.density != nil && d.Len() > 0 {
		removed := e.density.Apply(d)
		res.DensityOutliers = safeconv.SafeInt64(removed)
	}

	return d
}

// routeTemporal streams samples through a temporal filter seeded with the
// first window. A flagged sample is withheld from the builder until the
// filter clears it; clearing admits the withheld value retroactively, while
// a new flag or the end of the stream rejects it for good.
func (e *Engine) routeTemporal(samples []int64, builder *dist.Builder, res *Result) {
	seed := samples[:e.window]
	filter := outlier.NewTemporalFilter(seed, e.temporalOpts)

	flagged, hasPending := filter.Outlier()
	withhold := hasPending

	for _, s := range seed {
		if withhold && s == flagged {
			withhold = false

			continue
		}

		builder.Insert(s)
	}

	for _, s := range samples[e.window:] {
		verdict := filter.Apply(s)

		if verdict.PreviousNotOutlier {
			builder.Insert(verdict.PreviousInput)
			res.Reclassified++

			hasPending = false
		}

		if verdict.CurrentIsOutlier {
			if hasPending {
				// The earlier suspect left the window without being
				// cleared; it stays rejected.
				res.TemporalOutliers++
			}

			hasPending = true

			continue
		}

		builder.Insert(s)
	}

	if hasPending {
		res.TemporalOutliers++
	}
}

// tracer returns the configured tracer, falling back to the global provider.
func (e *Engine) tracer() trace.Tracer {
	if e.tr != nil {
		return e.tr
	}

	return otel.Tracer(phasesTracerName)
}
