package plot

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
)

// barCell is the fill character of text bars.
const barCell = "█"

// TextOptions configure the terminal renderers. A zero-value TextOptions is
// valid and renders with the package defaults.
type TextOptions struct {
	// Buckets is the number of histogram value ranges. Zero means
	// DefaultBuckets.
	Buckets int

	// BarWidth is the widest bar, in cells. Zero means DefaultBarWidth.
	BarWidth int

	// Percentiles lists the quantile rows as fractions in [0, 1].
	// Nil means DefaultPercentiles.
	Percentiles []float64
}

func (o TextOptions) buckets() int {
	if o.Buckets < 0 {
		panic("plot: bucket counts must not be negative")
	}

	if o.Buckets == 0 {
		return DefaultBuckets
	}

	return o.Buckets
}

func (o TextOptions) barWidth() int {
	if o.BarWidth < 0 {
		panic("plot: bar widths must not be negative")
	}

	if o.BarWidth == 0 {
		return DefaultBarWidth
	}

	return o.BarWidth
}

func (o TextOptions) percentiles() []float64 {
	if o.Percentiles == nil {
		return DefaultPercentiles()
	}

	return o.Percentiles
}

// RenderHistogram writes one line per histogram bucket: the bucket bounds, a
// bar and the sample count. Bars scale with the logarithm of the count, so
// sparse tails stay visible next to a dominant mode.
func RenderHistogram(w io.Writer, d *dist.Distribution, o TextOptions) error {
	hist := Histogram(d, o.buckets())

	maxCount := uint64(0)
	valueWidth := 0

	for _, bk := range hist {
		maxCount = max(maxCount, bk.Count)
		valueWidth = max(valueWidth, len(strconv.FormatInt(bk.Low, 10)))
		valueWidth = max(valueWidth, len(strconv.FormatInt(bk.High, 10)))
	}

	countWidth := len(strconv.FormatUint(maxCount, 10))
	barWidth := o.barWidth()

	var b strings.Builder

	for _, bk := range hist {
		bar := logBar(bk.Count, maxCount, barWidth)
		fmt.Fprintf(&b, "%*d .. %*d  %-*s %*d\n",
			valueWidth, bk.Low, valueWidth, bk.High, barWidth, bar, countWidth, bk.Count)
	}

	return write(w, "histogram", b.String())
}

// RenderQuantiles writes one line per requested percentile: the label, the
// sample value at that rank and a bar marking the value's position between
// Min and Max. Panics if a percentile lies outside [0, 1].
func RenderQuantiles(w io.Writer, d *dist.Distribution, o TextOptions) error {
	ps := o.percentiles()
	span := uint64(d.Max()) - uint64(d.Min())

	labels := make([]string, len(ps))
	values := make([]int64, len(ps))
	labelWidth, valueWidth := 0, 0

	for i, p := range ps {
		if !(p >= 0 && p <= 1) {
			panic("plot: percentiles must lie in [0, 1]")
		}

		labels[i] = "p" + strconv.FormatFloat(p*100, 'g', 6, 64)
		values[i] = d.Quantile(p)

		labelWidth = max(labelWidth, len(labels[i]))
		valueWidth = max(valueWidth, len(strconv.FormatInt(values[i], 10)))
	}

	barWidth := o.barWidth()

	var b strings.Builder

	for i, q := range values {
		bar := positionBar(q, d.Min(), span, barWidth)
		fmt.Fprintf(&b, "%-*s %*d  %s\n", labelWidth, labels[i], valueWidth, q, bar)
	}

	return write(w, "quantiles", b.String())
}

// logBar fills round(width * log2(1+count)/log2(1+maxCount)) cells, with a
// floor of one cell for any non-zero count.
func logBar(count, maxCount uint64, width int) string {
	if count == 0 {
		return ""
	}

	frac := math.Log2(1+float64(count)) / math.Log2(1+float64(maxCount))

	cells := int(math.Round(frac * float64(width)))
	if cells < 1 {
		cells = 1
	}

	return strings.Repeat(barCell, cells)
}

// positionBar fills between one and width cells, linearly mapping value's
// position inside [low, low+span].
func positionBar(value, low int64, span uint64, width int) string {
	frac := 1.0
	if span > 0 {
		frac = float64(uint64(value)-uint64(low)) / float64(span)
	}

	cells := 1 + int(math.Round(frac*float64(width-1)))

	return strings.Repeat(barCell, cells)
}

func write(w io.Writer, what, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}

	return nil
}
