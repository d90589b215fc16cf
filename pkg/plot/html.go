package plot

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
)

const (
	// DefaultHTMLBuckets is the histogram resolution of the HTML renderer.
	DefaultHTMLBuckets = 60

	// quantilePoints is the quantile curve resolution, one point per
	// whole percentile from 0 to 100.
	quantilePoints = 101

	chartWidth  = "100%"
	chartHeight = "420px"
	lineWidth   = 2

	histogramColor = "#5470c6"

	defaultTitle = "Sample distribution"
	defaultUnit  = "ns"
)

// HTMLOptions configure RenderHTML. A zero-value HTMLOptions is valid and
// renders an unnamed page in nanoseconds.
type HTMLOptions struct {
	// Title heads the page and the histogram chart. Empty means
	// "Sample distribution".
	Title string

	// Unit labels the value axes. Empty means "ns".
	Unit string

	// Buckets is the histogram resolution. Zero means DefaultHTMLBuckets.
	Buckets int
}

func (o HTMLOptions) title() string {
	if o.Title == "" {
		return defaultTitle
	}

	return o.Title
}

func (o HTMLOptions) unit() string {
	if o.Unit == "" {
		return defaultUnit
	}

	return o.Unit
}

func (o HTMLOptions) buckets() int {
	if o.Buckets < 0 {
		panic("plot: bucket counts must not be negative")
	}

	if o.Buckets == 0 {
		return DefaultHTMLBuckets
	}

	return o.Buckets
}

// RenderHTML writes a self-contained page holding an interactive histogram,
// the quantile function, and the per-bin density curve of the distribution.
func RenderHTML(w io.Writer, d *dist.Distribution, o HTMLOptions) error {
	page := components.NewPage()
	page.PageTitle = o.title()
	page.SetLayout(components.PageCenterLayout)
	page.AddCharts(histogramChart(d, o), quantileChart(d, o), densityChart(d, o))

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	return nil
}

func histogramChart(d *dist.Distribution, o HTMLOptions) *charts.Bar {
	hist := Histogram(d, o.buckets())

	labels := make([]string, len(hist))
	values := make([]opts.BarData, len(hist))

	for i, bk := range hist {
		labels[i] = strconv.FormatInt(bk.Low, 10)
		values[i] = opts.BarData{Value: bk.Count}
	}

	subtitle := fmt.Sprintf("%d samples in [%d, %d] %s", d.Len(), d.Min(), d.Max(), o.unit())

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: o.title(), Subtitle: subtitle, Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: o.unit()}),
		charts.WithYAxisOpts(opts.YAxis{Name: "samples"}),
	)

	bar.SetXAxis(labels)
	bar.AddSeries("samples", values,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: histogramColor}),
	)

	return bar
}

func quantileChart(d *dist.Distribution, o HTMLOptions) *charts.Line {
	labels := make([]string, quantilePoints)
	values := make([]opts.LineData, quantilePoints)

	for i := range quantilePoints {
		labels[i] = strconv.Itoa(i)
		values[i] = opts.LineData{Value: d.Quantile(float64(i) / (quantilePoints - 1))}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Quantile function", Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "percentile"}),
		charts.WithYAxisOpts(opts.YAxis{Name: o.unit()}),
	)

	line.SetXAxis(labels)
	line.AddSeries("quantile", values,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
		charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
	)

	return line
}

func densityChart(d *dist.Distribution, o HTMLOptions) *charts.Line {
	labels := make([]string, 0, d.NumBins())
	values := make([]opts.LineData, 0, d.NumBins())

	for value, density := range d.Densities() {
		labels = append(labels, strconv.FormatInt(value, 10))
		values = append(values, opts.LineData{Value: density})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Sample density", Left: "center"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: o.unit()}),
		charts.WithYAxisOpts(opts.YAxis{Name: "density"}),
	)

	line.SetXAxis(labels)
	line.AddSeries("density", values,
		charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
	)

	return line
}
