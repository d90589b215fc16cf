// Package outlier removes measurement artifacts from benchmark timing data.
//
// Two independent filters cover the two artifact classes. DensityFilter is a
// batch filter over a built histogram: bins whose kernel-density weight sits
// far below their peers are rejected as global outliers. TemporalFilter is an
// online sliding-window filter that catches scheduler interrupts, which show
// up as at most one extreme sample per window.
//
// Neither filter is safe for concurrent use.
package outlier

import (
	"io"
	"log/slog"
	"math"

	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
)

// Density filter defaults.
const (
	// DefaultNeighborDecay is the exponent of the inverse-distance decay
	// applied to neighbor contributions.
	DefaultNeighborDecay = 2.0

	// DefaultNeighborContribution is the share of a bin's weight supplied
	// by its neighbors, split evenly between the two.
	DefaultNeighborContribution = 0.25

	// DefaultOutlierThreshold is the relative weight at or below which a
	// bin is rejected outright, cap permitting.
	DefaultOutlierThreshold = 0.005

	// DefaultMaxOutlierFraction caps the share of samples one Apply call
	// may reject.
	DefaultMaxOutlierFraction = 0.05

	// DefaultLog2Scale converts relative weights to integer scores with
	// two decimal digits of log2 resolution.
	DefaultLog2Scale = 100.0
)

// DensityOptions configures a DensityFilter.
//
// A zero-value DensityOptions is valid and means: default decay, shares,
// thresholds and scale, plus a discard logger.
type DensityOptions struct {
	// NeighborDecay is the inverse-distance decay exponent for neighbor
	// contributions. Zero means DefaultNeighborDecay.
	NeighborDecay float64

	// NeighborContribution is the weight share supplied by neighbors.
	// Zero means DefaultNeighborContribution. Must stay below 1.
	NeighborContribution float64

	// OutlierThreshold is the relative weight at or below which bins are
	// rejected outright. Zero means DefaultOutlierThreshold.
	OutlierThreshold float64

	// MaxOutlierFraction caps the rejected share of samples. Zero means
	// DefaultMaxOutlierFraction. Must stay below 1.
	MaxOutlierFraction float64

	// Log2Scale is the weight-to-score resolution. Zero means
	// DefaultLog2Scale.
	Log2Scale float64

	// Logger is the structured logger for filter diagnostics.
	// When nil, a discard logger is used.
	Logger *slog.Logger
}

// withDefaults fills zero fields with the package defaults.
func (o DensityOptions) withDefaults() DensityOptions {
	if o.NeighborDecay == 0 {
		o.NeighborDecay = DefaultNeighborDecay
	}

	if o.NeighborContribution == 0 {
		o.NeighborContribution = DefaultNeighborContribution
	}

	if o.OutlierThreshold == 0 {
		o.OutlierThreshold = DefaultOutlierThreshold
	}

	if o.MaxOutlierFraction == 0 {
		o.MaxOutlierFraction = DefaultMaxOutlierFraction
	}

	if o.Log2Scale == 0 {
		o.Log2Scale = DefaultLog2Scale
	}

	return o
}

// logger returns the configured logger, or a discard logger if nil.
func (o DensityOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return discardLogger()
}

// DensityFilter classifies histogram bins as outliers by their kernel-density
// weight. One instance is reused across Apply calls; the score and rejection
// histograms of the most recent call are recycled into the next one instead
// of being reallocated.
type DensityFilter struct {
	decay        float64
	contribution float64
	threshold    float64
	maxFraction  float64
	log2Scale    float64

	weights []float64
	scores  *dist.Recyclable
	rejects *dist.Recyclable

	logger *slog.Logger
}

// NewDensityFilter returns a filter configured by opts. Panics when a share
// or threshold is 1 or above, since such a filter could reject every bin.
func NewDensityFilter(opts DensityOptions) *DensityFilter {
	opts = opts.withDefaults()

	if opts.NeighborContribution >= 1 || opts.MaxOutlierFraction >= 1 || opts.OutlierThreshold >= 1 {
		panic("outlier: density filter shares and thresholds must stay below 1")
	}

	return &DensityFilter{
		decay:        opts.NeighborDecay,
		contribution: opts.NeighborContribution,
		threshold:    opts.OutlierThreshold,
		maxFraction:  opts.MaxOutlierFraction,
		log2Scale:    opts.Log2Scale,
		scores:       dist.NewRecyclable(),
		rejects:      dist.NewRecyclable(),
		logger:       opts.logger(),
	}
}

// Apply rejects the outlier bins of target in place and returns the number
// of samples removed. The per-bin score histogram is available via LastScores
// and the removed bins via LastRejections until the next Apply.
func (f *DensityFilter) Apply(target *dist.Distribution) uint64 {
	total := target.Len()

	f.computeWeights(target)
	f.computeScores(target)

	if target.NumBins() == 1 {
		// A lone bin has no peers to be judged against.
		f.clearRejections()

		return 0
	}

	threshold, found := f.scoreThreshold(total)
	if !found {
		f.clearRejections()
		f.logger.Debug("density filter kept every bin",
			"bins", target.NumBins(),
			"samples", total,
		)

		return 0
	}

	rejected := f.rejects.TakeBuilder()

	removedBins := target.RejectBins(func(idx int) bool {
		return f.score(f.weights[idx]) <= threshold
	}, rejected)

	doAssert(removedBins > 0)

	f.rejects.Store(rejected.Build())

	removed := total - target.Len()

	f.logger.Debug("density filter rejected bins",
		"rejected_bins", removedBins,
		"rejected_samples", removed,
		"score_threshold", threshold,
		"remaining_samples", target.Len(),
	)

	return removed
}

// LastScores returns the score histogram from the most recent Apply, or nil
// before the first call. Valid only until the next Apply.
func (f *DensityFilter) LastScores() *dist.Distribution {
	return f.scores.Stored()
}

// LastRejections returns the bins removed by the most recent Apply, or nil
// when it rejected nothing. Valid only until the next Apply.
func (f *DensityFilter) LastRejections() *dist.Distribution {
	return f.rejects.Stored()
}

// computeWeights fills f.weights with the relative density weight of every
// target bin, normalized into (0, 1] by the heaviest bin. A bin's absolute
// weight blends its own occurrence share with that of its neighbors, each
// neighbor decayed by its gap relative to the smallest inter-bin gap.
func (f *DensityFilter) computeWeights(target *dist.Distribution) {
	numBins := target.NumBins()

	if cap(f.weights) < numBins {
		f.weights = make([]float64, numBins)
	} else {
		f.weights = f.weights[:numBins]
	}

	if numBins == 1 {
		f.weights[0] = 1

		return
	}

	maxCount := uint64(0)

	for idx := range numBins {
		if count := target.BinCount(idx); count > maxCount {
			maxCount = count
		}
	}

	minGap := float64(target.MinDifference())
	selfShare := 1 - f.contribution
	neighborShare := f.contribution / 2

	maxWeight := 0.0

	for idx := range numBins {
		weight := selfShare * f.relCount(target, maxCount, idx)

		if idx > 0 {
			gap := float64(target.BinValue(idx) - target.BinValue(idx-1))
			weight += neighborShare * f.relCount(target, maxCount, idx-1) * math.Pow(gap/minGap, -f.decay)
		}

		if idx < numBins-1 {
			gap := float64(target.BinValue(idx+1) - target.BinValue(idx))
			weight += neighborShare * f.relCount(target, maxCount, idx+1) * math.Pow(gap/minGap, -f.decay)
		}

		f.weights[idx] = weight

		if weight > maxWeight {
			maxWeight = weight
		}
	}

	for idx := range f.weights {
		f.weights[idx] /= maxWeight
	}
}

// relCount returns the occurrence count of bin idx normalized by the
// heaviest bin.
func (f *DensityFilter) relCount(target *dist.Distribution, maxCount uint64, idx int) float64 {
	return float64(target.BinCount(idx)) / float64(maxCount)
}

// computeScores rebuilds the score histogram: one entry per target bin at
// that bin's integer score, weighted by its occurrence count.
func (f *DensityFilter) computeScores(target *dist.Distribution) {
	builder := f.scores.TakeBuilder()

	for idx := range target.NumBins() {
		builder.InsertN(f.score(f.weights[idx]), target.BinCount(idx))
	}

	f.scores.Store(builder.Build())
}

// score maps a relative weight in (0, 1] to the integer log2 scale,
// saturating at math.MinInt64.
func (f *DensityFilter) score(weight float64) int64 {
	scaled := math.Round(f.log2Scale * math.Log2(weight))

	if scaled < math.MinInt64 {
		return math.MinInt64
	}

	return int64(scaled)
}

// scoreThreshold returns the score at or below which target bins should be
// rejected. The candidate is the deepest score bin at or below the configured
// weight threshold, or the lowest score bin when none reaches that far; it is
// then walked downward until the cumulative rejected count fits the cap.
// found is false when even the lowest score bin exceeds the cap.
func (f *DensityFilter) scoreThreshold(total uint64) (threshold int64, found bool) {
	scores := f.scores.Stored()

	// The rejection cap never falls below one sample.
	limit := math.Max(1, f.maxFraction*float64(total))

	fit := -1
	lo, hi := 0, scores.NumBins()-1

	for lo <= hi {
		mid := (lo + hi) / 2

		if float64(scores.CumulativeCount(mid)) <= limit {
			fit = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if fit < 0 {
		return 0, false
	}

	configured := f.score(f.threshold)
	candidate := 0

	lo, hi = 0, scores.NumBins()-1
	for lo <= hi {
		mid := (lo + hi) / 2

		if scores.BinValue(mid) <= configured {
			candidate = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	return scores.BinValue(min(candidate, fit)), true
}

// clearRejections recycles the rejection storage while leaving LastRejections
// absent.
func (f *DensityFilter) clearRejections() {
	f.rejects.StoreBuilder(f.rejects.TakeBuilder())
}

// discardLogger returns a logger that drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doAssert(condition bool) {
	if !condition {
		panic("outlier internal assertion failed")
	}
}
