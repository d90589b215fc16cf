package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/benchfang/pkg/observability"
)

// tracerName is the OTel tracer name for harness run spans.
const tracerName = "benchfang.bench"

// Run statuses reported to the run metrics.
const (
	statusOK    = "ok"
	statusError = "error"
)

// Options configures a Runner.
//
// A zero-value Options is valid and means: default sample and warmup
// counts, no wall-clock budget, both filter stages enabled with their
// package defaults, no metrics, and a discard logger.
type Options struct {
	// Samples is the number of timed iterations to collect. Zero means
	// DefaultSamples.
	Samples int

	// Warmup is the number of untimed iterations run before collection.
	// Zero means DefaultWarmup; negative disables warmup.
	Warmup int

	// MaxDuration caps the wall time of the collection loop. Zero means no
	// cap; collection then runs until Samples iterations finish. At least
	// one iteration always runs.
	MaxDuration time.Duration

	// Engine configures the filtering and analysis pipeline.
	Engine EngineOptions

	// RunMetrics receives per-run rate, error and duration metrics. When
	// nil, no run metrics are recorded.
	RunMetrics *observability.RunMetrics

	// EngineMetrics receives per-run filter and analysis statistics. When
	// nil, no engine metrics are recorded.
	EngineMetrics *observability.EngineMetrics

	// Tracer creates run spans. When nil, the global provider's tracer is
	// used.
	Tracer trace.Tracer

	// Logger is the structured logger for harness diagnostics. When nil,
	// a discard logger is used. A non-nil Logger also backfills the engine
	// options when those carry none.
	Logger *slog.Logger
}

// Runner measures one benchmark at a time: untimed warmup, timed collection
// under iteration and wall-clock budgets, then the engine's filter and
// analysis stages.
//
// Not safe for concurrent use.
type Runner struct {
	samples       int
	warmup        int
	maxDuration   time.Duration
	engine        *Engine
	runMetrics    *observability.RunMetrics
	engineMetrics *observability.EngineMetrics
	tr            trace.Tracer
	logger        *slog.Logger
}

// NewRunner returns a Runner configured by opts. Panics when the sample
// count is negative or the engine options are unusable.
func NewRunner(opts Options) *Runner {
	if opts.Samples < 0 {
		panic("bench: sample counts must not be negative")
	}

	samples := opts.Samples
	if samples == 0 {
		samples = DefaultSamples
	}

	warmup := opts.Warmup

	switch {
	case warmup == 0:
		warmup = DefaultWarmup
	case warmup < 0:
		warmup = 0
	}

	if opts.Logger != nil && opts.Engine.Logger == nil {
		opts.Engine.Logger = opts.Logger
	}

	if opts.Tracer != nil && opts.Engine.Tracer == nil {
		opts.Engine.Tracer = opts.Tracer
	}

	return &Runner{
		samples:       samples,
		warmup:        warmup,
		maxDuration:   opts.MaxDuration,
		engine:        NewEngine(opts.Engine),
		runMetrics:    opts.RunMetrics,
		engineMetrics: opts.EngineMetrics,
		tr:            opts.Tracer,
		logger:        logOrDiscard(opts.Logger),
	}
}

// Run measures the benchmark and returns the analyzed result. The context
// aborts warmup and collection between iterations; a wall-clock budget, by
// contrast, ends collection early but still analyzes what was gathered.
func (r *Runner) Run(ctx context.Context, bm Benchmark) (*Result, error) {
	start := time.Now()

	// Context-aware log records emitted anywhere below carry the name.
	ctx = observability.ContextWithBenchmark(ctx, bm.Name)

	ctx, span := r.tracer().Start(ctx, "bench.run",
		trace.WithAttributes(
			attribute.String("bench.name", bm.Name),
			attribute.Int("bench.samples", r.samples),
			attribute.Int("bench.warmup", r.warmup),
		))
	defer span.End()

	if r.runMetrics != nil {
		done := r.runMetrics.TrackInflight(ctx, bm.Name)
		defer done()
	}

	r.warmupLoop(ctx, bm)

	collectStart := time.Now()

	raw, collectErr := r.collect(ctx, bm)
	if collectErr != nil {
		r.recordRun(ctx, bm.Name, statusError, time.Since(start))

		return nil, collectErr
	}

	collectDuration := time.Since(collectStart)

	res, processErr := r.engine.Process(ctx, raw)
	if processErr != nil {
		r.recordRun(ctx, bm.Name, statusError, time.Since(start))

		return nil, fmt.Errorf("bench %s: %w", bm.Name, processErr)
	}

	res.Benchmark = bm.Name
	res.Warmup = r.warmup
	res.CollectDuration = collectDuration
	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.Int64("bench.accepted", res.EngineStats().Samples),
		attribute.Int64("bench.outliers.temporal", res.TemporalOutliers),
		attribute.Int64("bench.outliers.density", res.DensityOutliers),
	)

	r.engineMetrics.RecordAnalysis(ctx, res.EngineStats())
	r.recordRun(ctx, bm.Name, statusOK, res.Elapsed)

	r.logger.InfoContext(ctx, "bench.complete",
		"samples", res.Samples,
		"mean_ns", res.Report.Mean.Sample,
		"temporal_outliers", res.TemporalOutliers,
		"density_outliers", res.DensityOutliers,
		"elapsed", res.Elapsed,
	)

	return res, nil
}

// warmupLoop runs untimed iterations so caches and the scheduler settle
// before collection. Context cancellation stops it between iterations; the
// collection loop then surfaces the error.
func (r *Runner) warmupLoop(ctx context.Context, bm Benchmark) {
	if r.warmup == 0 {
		return
	}

	_, span := r.tracer().Start(ctx, "bench.warmup",
		trace.WithAttributes(attribute.Int("bench.iterations", r.warmup)))
	defer span.End()

	var b B

	for range r.warmup {
		if ctx.Err() != nil {
			return
		}

		b.measure(bm.Fn)
	}
}

// collect runs the timed iterations, stopping early when the wall-clock
// budget runs out or the context is cancelled. The budget is checked
// between iterations, so the first sample is always collected.
func (r *Runner) collect(ctx context.Context, bm Benchmark) ([]int64, error) {
	ctx, span := r.phasesTracer().Start(ctx, "bench.collect",
		trace.WithAttributes(attribute.Int("bench.samples", r.samples)))
	defer span.End()

	var deadline time.Time
	if r.maxDuration > 0 {
		deadline = time.Now().Add(r.maxDuration)
	}

	raw := make([]int64, 0, r.samples)

	var b B

	for range r.samples {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("bench %s: collection interrupted: %w", bm.Name, ctxErr)
		}

		if len(raw) > 0 && !deadline.IsZero() && time.Now().After(deadline) {
			r.logger.WarnContext(ctx, "bench.budget_exhausted",
				"collected", len(raw),
				"target", r.samples,
			)

			break
		}

		raw = append(raw, b.measure(bm.Fn))
	}

	span.SetAttributes(attribute.Int("bench.collected", len(raw)))

	return raw, nil
}

// recordRun reports one finished run to the run metrics, if configured.
func (r *Runner) recordRun(ctx context.Context, benchmark, status string, elapsed time.Duration) {
	if r.runMetrics == nil {
		return
	}

	r.runMetrics.RecordRun(ctx, benchmark, status, elapsed)
}

// tracer returns the configured tracer, falling back to the global provider.
func (r *Runner) tracer() trace.Tracer {
	if r.tr != nil {
		return r.tr
	}

	return otel.Tracer(tracerName)
}

// phasesTracer returns the tracer for phase spans. A configured tracer
// covers both span families; only the fallback splits them so phase spans
// stay suppressible.
func (r *Runner) phasesTracer() trace.Tracer {
	if r.tr != nil {
		return r.tr
	}

	return otel.Tracer(phasesTracerName)
}

// logOrDiscard returns l, or a logger that drops every record when l is nil.
func logOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
