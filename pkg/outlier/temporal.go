package outlier

import (
	"log/slog"
)

// Temporal filter defaults.
const (
	// DefaultWindow is the sliding window length used when callers have no
	// reason to pick another.
	DefaultWindow = 10

	// MinWindow is the smallest usable window; below it the single-outlier
	// hypothesis has nothing to lean on.
	MinWindow = 3

	// DefaultTolerance dilates the empirical spread when deriving the
	// upper outlier bound.
	DefaultTolerance = 0.1
)

// TemporalOptions configures a TemporalFilter.
//
// A zero-value TemporalOptions is valid and means: default tolerance and a
// discard logger.
type TemporalOptions struct {
	// Tolerance dilates the window spread when deriving the upper outlier
	// bound. Zero means DefaultTolerance.
	Tolerance float64

	// Logger is the structured logger for filter diagnostics.
	// When nil, a discard logger is used.
	Logger *slog.Logger
}

// logger returns the configured logger, or a discard logger if nil.
func (o TemporalOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}

	return discardLogger()
}

// Verdict is the outcome of feeding one sample through a TemporalFilter.
//
// When PreviousNotOutlier is set, a sample flagged by an earlier call has
// been proven normal after all; callers must route PreviousInput into the
// accepted dataset alongside the current sample.
type Verdict struct {
	CurrentIsOutlier   bool
	PreviousNotOutlier bool
	PreviousInput      int64
}

// TemporalFilter flags scheduler interrupts in a stream of duration samples.
//
// It keeps a fixed circular window over the most recent samples and tolerates
// at most one outlier inside it: a sample is suspect only while it exceeds
// the tolerated spread of its peers, and later evidence (a duplicate, a
// larger extreme, a widened spread) reclassifies it retroactively. Interrupts
// only ever add time, so there is no lower bound.
//
// Not safe for concurrent use.
type TemporalFilter struct {
	window []int64
	next   int

	min      int64
	minCount int

	max      int64
	maxCount int

	maxNormal      int64
	maxNormalCount int

	upperTolerance float64
	outlierIdx     int

	tolerance float64
	logger    *slog.Logger
}

// NewTemporalFilter seeds a filter with the initial window contents; the
// window length stays len(seed) for the filter's lifetime. Panics when seed
// holds fewer than MinWindow samples. At most one seed sample can be flagged
// already; Outlier reports it so callers can withhold it from the accepted
// dataset.
func NewTemporalFilter(seed []int64, opts TemporalOptions) *TemporalFilter {
	if len(seed) < MinWindow {
		panic("outlier: temporal filter windows need at least three samples")
	}

	tolerance := opts.Tolerance
	if tolerance == 0 {
		tolerance = DefaultTolerance
	}

	f := &TemporalFilter{
		window:     append([]int64(nil), seed...),
		outlierIdx: -1,
		tolerance:  tolerance,
		logger:     opts.logger(),
	}

	f.seedExtrema()
	f.refreshTolerance()

	if f.maxCount == 1 && float64(f.max) > f.upperTolerance {
		f.outlierIdx = f.indexOf(f.max)
		f.logger.Debug("temporal filter flagged seed sample",
			"input", f.max,
			"upper_tolerance", f.upperTolerance,
		)
	}

	return f
}

// Apply feeds one sample through the filter. The oldest window slot is
// evicted, the sample takes its place, and the verdict classifies it against
// the tolerated spread of its window peers.
func (f *TemporalFilter) Apply(input int64) Verdict {
	slot := f.next

	f.evict()

	f.window[slot] = input
	f.next = (slot + 1) % len(f.window)

	var verdict Verdict

	switch {
	case input < f.min:
		f.min, f.minCount = input, 1
		f.refreshTolerance()
		f.reclassifyMax(&verdict)

	case input > f.max:
		f.supersedeMax(&verdict)
		f.max, f.maxCount = input, 1
		f.refreshTolerance()

	case input == f.max:
		f.repeatMax(&verdict)

	case input > f.maxNormal:
		f.maxNormal, f.maxNormalCount = input, 1
		f.refreshTolerance()
		f.reclassifyMax(&verdict)

	default:
		if input == f.min {
			f.minCount++
		}

		if input == f.maxNormal {
			f.maxNormalCount++
		}
	}

	if float64(input) > f.upperTolerance {
		verdict.CurrentIsOutlier = true
		f.outlierIdx = slot

		f.logger.Debug("temporal filter flagged sample",
			"input", input,
			"upper_tolerance", f.upperTolerance,
		)
	}

	return verdict
}

// Outlier returns the currently flagged sample value, if any.
func (f *TemporalFilter) Outlier() (int64, bool) {
	if f.outlierIdx < 0 {
		return 0, false
	}

	return f.window[f.outlierIdx], true
}

// Window returns the sliding window length.
func (f *TemporalFilter) Window() int {
	return len(f.window)
}

// --- Transitions ---.

// supersedeMax demotes the current maximum to the normal spread ahead of a
// larger arrival. Only one interrupt fits in a window, so a flagged maximum
// is cleared and reported once something larger supersedes it.
func (f *TemporalFilter) supersedeMax(verdict *Verdict) {
	if f.outlierIdx >= 0 {
		f.outlierIdx = -1
		verdict.PreviousNotOutlier = true
		verdict.PreviousInput = f.max

		f.logger.Debug("temporal filter reclassified sample",
			"input", f.max,
			"reason", "superseded by larger extreme",
		)
	}

	if f.max > f.maxNormal {
		f.maxNormal, f.maxNormalCount = f.max, f.maxCount
	}
}

// repeatMax records another occurrence of the current maximum. A repeated
// extreme cannot be a scheduler interrupt, so a flagged maximum is cleared
// and reported, and the normal spread widens up to it.
func (f *TemporalFilter) repeatMax(verdict *Verdict) {
	f.maxCount++

	if f.maxNormal == f.max {
		f.maxNormalCount++

		return
	}

	wasFlagged := f.outlierIdx >= 0

	f.maxNormal, f.maxNormalCount = f.max, f.maxCount
	f.refreshTolerance()

	if wasFlagged {
		f.outlierIdx = -1
		verdict.PreviousNotOutlier = true
		verdict.PreviousInput = f.max

		f.logger.Debug("temporal filter reclassified sample",
			"input", f.max,
			"reason", "repeated extreme",
		)
	}
}

// reclassifyMax clears the flagged maximum when a widened tolerance has
// caught up with it.
func (f *TemporalFilter) reclassifyMax(verdict *Verdict) {
	if f.outlierIdx < 0 || float64(f.max) > f.upperTolerance {
		return
	}

	f.outlierIdx = -1
	verdict.PreviousNotOutlier = true
	verdict.PreviousInput = f.max

	f.maxNormal, f.maxNormalCount = f.max, f.maxCount
	f.refreshTolerance()

	f.logger.Debug("temporal filter reclassified sample",
		"input", f.max,
		"reason", "tolerance widened",
	)
}

// --- Window bookkeeping ---.

// evict removes the oldest window slot from the extremum bookkeeping,
// rescanning the window when its value was the last occurrence of an
// extremum.
func (f *TemporalFilter) evict() {
	departing := f.window[f.next]

	if f.next == f.outlierIdx {
		f.outlierIdx = -1
	}

	if departing == f.min {
		f.minCount--
	}

	if departing == f.max {
		f.maxCount--
	}

	if departing == f.maxNormal {
		f.maxNormalCount--
	}

	if f.minCount == 0 || f.maxCount == 0 || f.maxNormalCount == 0 {
		f.rescanExtrema(f.next)
		f.refreshTolerance()
	}
}

// rescanExtrema rebuilds min, max and maxNormal from the window, skipping
// the slot being evicted. A still-flagged slot stays out of the normal
// spread; without one the maximum itself is the largest normal value.
func (f *TemporalFilter) rescanExtrema(skip int) {
	first := true

	for idx, value := range f.window {
		if idx == skip {
			continue
		}

		if first {
			f.min, f.max = value, value
			first = false

			continue
		}

		if value < f.min {
			f.min = value
		}

		if value > f.max {
			f.max = value
		}
	}

	f.minCount = f.countMatching(f.min, skip)
	f.maxCount = f.countMatching(f.max, skip)

	if f.outlierIdx < 0 {
		f.maxNormal, f.maxNormalCount = f.max, f.maxCount

		return
	}

	f.maxNormal = f.min

	for idx, value := range f.window {
		if idx == skip || idx == f.outlierIdx {
			continue
		}

		if value > f.maxNormal {
			f.maxNormal = value
		}
	}

	f.maxNormalCount = f.countMatching(f.maxNormal, skip)
}

// seedExtrema derives the initial extrema from a freshly copied window. With
// a unique maximum the normal spread ends at the second-largest value, so the
// maximum itself stays a candidate outlier.
func (f *TemporalFilter) seedExtrema() {
	f.min, f.max = f.window[0], f.window[0]

	for _, value := range f.window[1:] {
		if value < f.min {
			f.min = value
		}

		if value > f.max {
			f.max = value
		}
	}

	f.minCount = f.countMatching(f.min, -1)
	f.maxCount = f.countMatching(f.max, -1)

	if f.maxCount > 1 {
		f.maxNormal, f.maxNormalCount = f.max, f.maxCount

		return
	}

	f.maxNormal = f.min

	for _, value := range f.window {
		if value > f.maxNormal && value < f.max {
			f.maxNormal = value
		}
	}

	f.maxNormalCount = f.countMatching(f.maxNormal, -1)
}

// refreshTolerance rederives the upper outlier bound by dilating the normal
// spread.
func (f *TemporalFilter) refreshTolerance() {
	spread := float64(f.maxNormal - f.min)
	f.upperTolerance = float64(f.maxNormal) + f.tolerance*spread
}

// countMatching returns how many window slots hold value, ignoring slot skip.
func (f *TemporalFilter) countMatching(value int64, skip int) int {
	count := 0

	for idx, held := range f.window {
		if idx == skip {
			continue
		}

		if held == value {
			count++
		}
	}

	return count
}

// indexOf returns the first window slot holding value.
func (f *TemporalFilter) indexOf(value int64) int {
	for idx, held := range f.window {
		if held == value {
			return idx
		}
	}

	doAssert(false)

	return -1
}
