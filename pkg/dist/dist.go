// Package dist provides a sparse histogram over int64 duration samples with
// a compile-time split between its mutable and frozen states.
//
// A Builder accepts insertions; Build converts the per-bin counts into
// cumulative counts in place and returns a Distribution, which answers
// rank and quantile queries in O(log N). Build and Reset consume their
// receiver, so stale handles panic instead of corrupting shared storage.
// Both states share one growable bin array whose capacity doubles, and a
// Pool recycles those allocations across benchmark iterations.
//
// Neither state is safe for concurrent use.
package dist

import (
	"iter"
)

// bin is one distinct sample value with its occurrence count. In builder
// state count is the per-value count; in built state it is the cumulative
// count up to and including the bin.
type bin struct {
	value int64
	count uint64
}

// Distribution is a frozen sparse histogram. Values are strictly increasing
// and counts are cumulative, so every query reduces to a binary search.
// A Distribution is never empty; Build refuses to freeze an empty Builder.
type Distribution struct {
	bins []bin
}

// Len returns the total number of samples in the distribution.
func (d *Distribution) Len() uint64 {
	d.ensureLive()

	return d.bins[len(d.bins)-1].count
}

// Min returns the smallest sample value.
func (d *Distribution) Min() int64 {
	d.ensureLive()

	return d.bins[0].value
}

// Max returns the largest sample value.
func (d *Distribution) Max() int64 {
	d.ensureLive()

	return d.bins[len(d.bins)-1].value
}

// Nth returns the rank-th sample in ascending order, counting duplicates.
// Panics if rank is not below Len.
func (d *Distribution) Nth(rank uint64) int64 {
	d.ensureLive()

	if rank >= d.Len() {
		panic("dist: rank out of range")
	}

	return d.bins[d.binByRank(rank)].value
}

// Quantile returns the smallest sample value whose cumulative fraction of
// the distribution is at least p. p must be in [0, 1]; Quantile(0) is the
// minimum and Quantile(1) the maximum.
func (d *Distribution) Quantile(p float64) int64 {
	d.ensureLive()

	if !(p >= 0 && p <= 1) {
		panic("dist: quantile probability out of range")
	}

	threshold := p * float64(d.Len())

	lo, hi := 0, len(d.bins)-1
	for lo < hi {
		mid := (lo + hi) / 2

		if float64(d.bins[mid].count) >= threshold {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	return d.bins[lo].value
}

// CountBelow returns how many samples are strictly below value, or at most
// equal to it when includeEqual is set.
func (d *Distribution) CountBelow(value int64, includeEqual bool) uint64 {
	d.ensureLive()

	idx, found := binByValue(d.bins, value, roundBelow)
	if found && !includeEqual {
		idx--
	}

	if idx < 0 {
		return 0
	}

	return d.bins[idx].count
}

// MinDifference returns the smallest gap between adjacent distinct sample
// values. Returns 0 for a single-bin distribution.
func (d *Distribution) MinDifference() int64 {
	d.ensureLive()

	if len(d.bins) == 1 {
		return 0
	}

	smallest := d.bins[1].value - d.bins[0].value

	for idx := 2; idx < len(d.bins); idx++ {
		gap := d.bins[idx].value - d.bins[idx-1].value
		if gap < smallest {
			smallest = gap
		}
	}

	return smallest
}

// Choose returns a sample drawn uniformly by occurrence.
func (d *Distribution) Choose(rng *RNG) int64 {
	d.ensureLive()

	return d.Nth(rng.uint64n(d.Len()))
}

// NumBins returns the number of distinct sample values.
func (d *Distribution) NumBins() int {
	d.ensureLive()

	return len(d.bins)
}

// BinValue returns the sample value of the bin at idx in ascending order.
func (d *Distribution) BinValue(idx int) int64 {
	d.ensureLive()

	return d.bins[idx].value
}

// BinCount returns the occurrence count of the bin at idx.
func (d *Distribution) BinCount(idx int) uint64 {
	d.ensureLive()

	if idx == 0 {
		return d.bins[0].count
	}

	return d.bins[idx].count - d.bins[idx-1].count
}

// CumulativeCount returns the number of samples at or below the bin at idx.
func (d *Distribution) CumulativeCount(idx int) uint64 {
	d.ensureLive()

	return d.bins[idx].count
}

// Densities returns a lazy iterator over (value, density) pairs in ascending
// value order. Density is the bin's occurrence count divided by the distance
// to its nearest neighboring bin; a single-bin distribution uses a distance
// of 1. The iterator is restartable and must not outlive mutations of the
// distribution.
func (d *Distribution) Densities() iter.Seq2[int64, float64] {
	d.ensureLive()

	return func(yield func(int64, float64) bool) {
		for idx := range d.bins {
			count := d.BinCount(idx)

			nearest := int64(1)

			switch {
			case len(d.bins) == 1:
			case idx == 0:
				nearest = d.bins[1].value - d.bins[0].value
			case idx == len(d.bins)-1:
				nearest = d.bins[idx].value - d.bins[idx-1].value
			default:
				nearest = min(d.bins[idx].value-d.bins[idx-1].value, d.bins[idx+1].value-d.bins[idx].value)
			}

			if !yield(d.bins[idx].value, float64(count)/float64(nearest)) {
				return
			}
		}
	}
}

// RejectBins removes every bin whose index is flagged by reject, scanning in
// ascending order and compacting survivors left in place. Removed bins are
// appended to rejected with their original per-bin counts; pass nil to drop
// them. Returns the number of removed bins. Panics if every bin would be
// removed, since a Distribution cannot become empty.
func (d *Distribution) RejectBins(reject func(binIdx int) bool, rejected *Builder) int {
	d.ensureLive()

	removed := 0
	write := 0

	var prevCumulative, removedCount uint64

	for idx := range d.bins {
		cumulative := d.bins[idx].count
		count := cumulative - prevCumulative
		prevCumulative = cumulative

		if reject(idx) {
			if rejected != nil {
				rejected.appendBin(d.bins[idx].value, count)
			}

			removed++
			removedCount += count

			continue
		}

		d.bins[write] = bin{value: d.bins[idx].value, count: cumulative - removedCount}
		write++
	}

	if write == 0 {
		panic("dist: cannot reject every bin")
	}

	d.bins = d.bins[:write]

	return removed
}

// binByRank returns the index of the bin whose cumulative range contains
// rank. rank must be below Len.
func (d *Distribution) binByRank(rank uint64) int {
	lo, hi := 0, len(d.bins)

	for lo < hi {
		mid := (lo + hi) / 2

		if d.bins[mid].count <= rank {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo
}

func (d *Distribution) ensureLive() {
	if d.bins == nil {
		panic("dist: consumed distributions cannot be used")
	}
}
