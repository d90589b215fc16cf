// Package plot renders sample distributions for humans.
//
// The text renderers draw a log-scaled histogram and a quantile table for
// terminals, touching the distribution only through its read-only queries.
// RenderHTML builds a self-contained page with interactive echarts versions
// of the same two views.
package plot

import (
	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
)

const (
	// DefaultBuckets is the histogram resolution of the text renderer.
	DefaultBuckets = 20

	// DefaultBarWidth is the widest text histogram bar, in cells.
	DefaultBarWidth = 40
)

// DefaultPercentiles returns the quantile rows rendered when
// TextOptions.Percentiles is nil.
func DefaultPercentiles() []float64 {
	return []float64{0, 0.01, 0.05, 0.10, 0.25, 0.50, 0.75, 0.90, 0.95, 0.99, 1}
}

// A Bucket is one fixed-width slice of a histogram's value range.
type Bucket struct {
	// Low and High bound the bucket, both inclusive.
	Low, High int64

	// Count is how many samples fall inside the bounds.
	Count uint64
}

// Histogram splits the distribution's value range into at most buckets
// equal-width ranges and counts the samples falling in each. Adjacent
// buckets share no values and together cover [Min, Max], so the counts
// sum to Len. Panics if buckets is not positive.
func Histogram(d *dist.Distribution, buckets int) []Bucket {
	if buckets < 1 {
		panic("plot: histograms need at least one bucket")
	}

	low := d.Min()

	// All range arithmetic runs on uint64 offsets from Min so that spans
	// wider than int64 cannot overflow.
	span := uint64(d.Max()) - uint64(low)

	n := uint64(buckets)
	if span < n {
		n = span + 1
	}

	width := span/n + 1
	used := span/width + 1

	out := make([]Bucket, 0, used)

	for k := range used {
		lowOff := k * width

		highOff := lowOff + width - 1
		if highOff > span {
			highOff = span
		}

		bk := Bucket{
			Low:  low + int64(lowOff),
			High: low + int64(highOff),
		}
		bk.Count = d.CountBelow(bk.High, true) - d.CountBelow(bk.Low, false)

		out = append(out, bk)
	}

	return out
}
