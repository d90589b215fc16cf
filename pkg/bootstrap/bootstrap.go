// Package bootstrap estimates population statistics of benchmark timings
// through bootstrap resampling.
//
// An Analyzer measures a fixed set of statistics on an input distribution,
// draws repeated same-size resamples with replacement, measures the same
// statistics on every replica, and reads confidence intervals off the sorted
// replica values. Means are folded through an exact accumulator, so
// cancellation between large timing values cannot bias the estimate.
//
// An Analyzer is not safe for concurrent use.
package bootstrap

import (
	"io"
	"log/slog"
	"math"
	"slices"

	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
	"github.com/Sumatoshi-tech/benchfang/pkg/exactsum"
)

// Analyzer defaults.
const (
	// DefaultConfidence is the two-sided confidence level of reported
	// intervals.
	DefaultConfidence = 0.95

	// DefaultResamples is the number of bootstrap rounds per Apply.
	DefaultResamples = 200
)

// Quantile probabilities of the tracked statistics.
const (
	lowTailProb     = 0.01
	centerStartProb = 0.05
	centerEndProb   = 0.95
	highTailProb    = 0.99
)

// Row indexes of the tracked statistics.
const (
	statMean = iota
	statLowTail
	statCenterStart
	statCenterEnd
	statHighTail
	statCenterWidth
	numStatistics
)

// Options configures an Analyzer.
//
// A zero-value Options is valid and means: default confidence, default
// resample count, plus a discard logger.
type Options struct {
	// Confidence is the two-sided confidence level of reported intervals,
	// strictly between 0 and 1. Zero means DefaultConfidence.
	Confidence float64

	// Resamples is the number of bootstrap rounds per Apply, at least one.
	// Zero means DefaultResamples.
	Resamples int

	// Logger is the structured logger for analyzer diagnostics.
	// When nil, a discard logger is used.
	Logger *slog.Logger
}

// withDefaults fills zero fields with the package defaults.
func (o Options) withDefaults() Options {
	if o.Confidence == 0 {
		o.Confidence = DefaultConfidence
	}

	if o.Resamples == 0 {
		o.Resamples = DefaultResamples
	}

	return o
}

// logger returns the configured logger, or a discard logger if nil.
func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Estimate is one statistic with its bootstrap confidence interval.
type Estimate struct {
	// Sample is the statistic measured on the input distribution itself.
	Sample float64

	// Center is the median of the bootstrap replica values.
	Center float64

	// Low and High bound the two-sided confidence interval read from the
	// replica quantiles.
	Low  float64
	High float64
}

// Report holds the estimates of one Apply call.
type Report struct {
	// Samples is the input distribution's total sample count.
	Samples uint64

	// Min and Max are the input distribution's extreme values.
	Min int64
	Max int64

	// Confidence is the two-sided level of the reported intervals.
	Confidence float64

	// Mean is the arithmetic mean over all samples.
	Mean Estimate

	// LowTail and HighTail are the 1st and 99th percentiles.
	LowTail  Estimate
	HighTail Estimate

	// CenterStart and CenterEnd are the 5th and 95th percentiles, and
	// CenterWidth is their distance, a dispersion measure robust to the
	// remaining tail samples.
	CenterStart Estimate
	CenterEnd   Estimate
	CenterWidth Estimate
}

// Analyzer estimates population statistics of a sample distribution. One
// instance is created per measured metric and reused across Apply calls; the
// resample builder and the per-statistic replica rows are allocated once.
type Analyzer struct {
	confidence float64
	resamples  int

	builder *dist.Builder
	rows    [numStatistics][]float64
	acc     exactsum.Accumulator

	logger *slog.Logger
}

// NewAnalyzer returns an Analyzer configured by opts. Panics unless the
// confidence level lies strictly between 0 and 1 and the resample count is
// positive.
func NewAnalyzer(opts Options) *Analyzer {
	opts = opts.withDefaults()

	if opts.Confidence <= 0 || opts.Confidence >= 1 {
		panic("bootstrap: confidence must lie strictly between 0 and 1")
	}

	if opts.Resamples < 1 {
		panic("bootstrap: at least one resample is required")
	}

	analyzer := &Analyzer{
		confidence: opts.Confidence,
		resamples:  opts.Resamples,
		builder:    dist.NewBuilder(),
		logger:     opts.logger(),
	}

	for kind := range analyzer.rows {
		analyzer.rows[kind] = make([]float64, opts.Resamples)
	}

	return analyzer
}

// Confidence returns the configured two-sided confidence level.
func (a *Analyzer) Confidence() float64 {
	return a.confidence
}

// Resamples returns the configured number of bootstrap rounds.
func (a *Analyzer) Resamples() int {
	return a.resamples
}

// Apply measures d and reports every tracked statistic with its bootstrap
// confidence interval. rng drives the resampling draws; equal seeds and
// equal inputs reproduce the report exactly.
func (a *Analyzer) Apply(rng *dist.RNG, d *dist.Distribution) Report {
	report := Report{
		Samples:    d.Len(),
		Min:        d.Min(),
		Max:        d.Max(),
		Confidence: a.confidence,
	}

	var sample [numStatistics]float64

	a.measure(d, &sample)

	for round := range a.resamples {
		replica := a.builder.Resample(rng, d)

		var measured [numStatistics]float64

		a.measure(replica, &measured)

		for kind := range a.rows {
			a.rows[kind][round] = measured[kind]
		}

		a.builder = replica.Reset()
	}

	for kind := range a.rows {
		slices.Sort(a.rows[kind])
	}

	report.Mean = a.estimate(statMean, &sample)
	report.LowTail = a.estimate(statLowTail, &sample)
	report.CenterStart = a.estimate(statCenterStart, &sample)
	report.CenterEnd = a.estimate(statCenterEnd, &sample)
	report.HighTail = a.estimate(statHighTail, &sample)
	report.CenterWidth = a.estimate(statCenterWidth, &sample)

	a.logger.Debug("bootstrap analysis complete",
		"samples", report.Samples,
		"resamples", a.resamples,
		"mean_center", report.Mean.Center,
		"mean_low", report.Mean.Low,
		"mean_high", report.Mean.High)

	return report
}

// measure fills out with every tracked statistic of d.
func (a *Analyzer) measure(d *dist.Distribution, out *[numStatistics]float64) {
	centerStart := d.Quantile(centerStartProb)
	centerEnd := d.Quantile(centerEndProb)

	out[statMean] = a.mean(d)
	out[statLowTail] = float64(d.Quantile(lowTailProb))
	out[statCenterStart] = float64(centerStart)
	out[statCenterEnd] = float64(centerEnd)
	out[statHighTail] = float64(d.Quantile(highTailProb))
	out[statCenterWidth] = float64(centerEnd - centerStart)
}

// mean returns the arithmetic mean of d. Each bin contributes its value
// scaled by its occurrence share; the per-bin rounding of that share is the
// only inexact step, as the contributions are summed without rounding.
func (a *Analyzer) mean(d *dist.Distribution) float64 {
	a.acc.Reset()

	total := float64(d.Len())

	for idx := range d.NumBins() {
		share := float64(d.BinCount(idx)) / total

		a.acc.Add(float64(d.BinValue(idx)) * share)
	}

	return a.acc.Float64()
}

// estimate builds the Estimate of one statistic from its sample value and
// its sorted replica row.
func (a *Analyzer) estimate(kind int, sample *[numStatistics]float64) Estimate {
	row := a.rows[kind]

	return Estimate{
		Sample: sample[kind],
		Center: rowQuantile(row, 0.5),
		Low:    rowQuantile(row, (1-a.confidence)/2),
		High:   rowQuantile(row, (1+a.confidence)/2),
	}
}

// rowQuantile returns the p-th quantile of a sorted replica row, linearly
// interpolating between neighboring order statistics.
func rowQuantile(sorted []float64, p float64) float64 {
	idx := p * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
