// Package report renders analysis results for terminals.
//
// Table gives one line per benchmark, Summary expands a single run into
// every tracked statistic with its confidence interval, and Compare lays
// two runs side by side with the bootstrap verdict on their difference.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/benchfang/pkg/bench"
	"github.com/Sumatoshi-tech/benchfang/pkg/bootstrap"
	"github.com/Sumatoshi-tech/benchfang/pkg/safeconv"
)

const (
	// defaultUnit suffixes sample values when Options.Unit is empty.
	defaultUnit = "ns"

	// valueDigits is the number of fractional digits kept on estimates.
	valueDigits = 1

	percentFull = 100
)

// Options configure rendering. A zero-value Options is valid and renders
// plain nanosecond tables.
type Options struct {
	// Unit suffixes sample values. Empty means "ns".
	Unit string

	// Color enables ANSI coloring of the Compare verdict.
	Color bool
}

func (o Options) unit() string {
	if o.Unit == "" {
		return defaultUnit
	}

	return o.Unit
}

// value renders an estimate value with thousands separators and the unit.
func (o Options) value(v float64) string {
	return humanize.CommafWithDigits(v, valueDigits) + " " + o.unit()
}

func (o Options) valueInt(v int64) string {
	return humanize.Comma(v) + " " + o.unit()
}

// interval renders the confidence bounds of an estimate.
func (o Options) interval(e bootstrap.Estimate) string {
	return fmt.Sprintf("[%s, %s]", o.value(e.Low), o.value(e.High))
}

// Table writes one row per result: the accepted sample count, the mean with
// its confidence interval, the central percentile window and the rejected
// sample count.
func Table(w io.Writer, results []bench.Result, o Options) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"benchmark", "samples", "mean", "ci", "p5", "p95", "outliers"})

	for _, res := range results {
		rep := res.Report
		tbl.AppendRow(table.Row{
			res.Benchmark,
			comma(rep.Samples),
			o.value(rep.Mean.Sample),
			o.interval(rep.Mean),
			o.value(rep.CenterStart.Sample),
			o.value(rep.CenterEnd.Sample),
			humanize.Comma(res.TemporalOutliers + res.DensityOutliers),
		})
	}

	return write(w, "results table", tbl.Render()+"\n")
}

// Summary writes one result in full: the input range, every statistic with
// its bootstrap interval, and the run accounting.
func Summary(w io.Writer, res bench.Result, o Options) error {
	rep := res.Report

	var b strings.Builder

	if res.Benchmark != "" {
		fmt.Fprintf(&b, "=== %s ===\n", res.Benchmark)
	}

	fmt.Fprintf(&b, "%s samples in [%s, %s] at %.0f%% confidence\n",
		comma(rep.Samples), o.valueInt(rep.Min), o.valueInt(rep.Max),
		rep.Confidence*percentFull)

	tbl := newTable()
	tbl.AppendHeader(table.Row{"statistic", "sample", "center", "low", "high"})

	for _, row := range statisticRows(rep) {
		tbl.AppendRow(table.Row{
			row.name,
			o.value(row.est.Sample),
			o.value(row.est.Center),
			o.value(row.est.Low),
			o.value(row.est.High),
		})
	}

	b.WriteString(tbl.Render())
	b.WriteString("\n")

	fmt.Fprintf(&b, "collected %s, rejected %s temporal and %s density, reclassified %s\n",
		humanize.Comma(int64(res.Iterations)),
		humanize.Comma(res.TemporalOutliers),
		humanize.Comma(res.DensityOutliers),
		humanize.Comma(res.Reclassified))

	if res.Elapsed > 0 {
		fmt.Fprintf(&b, "timing: total %s, collect %s, filter %s, analyze %s\n",
			res.Elapsed, res.CollectDuration, res.FilterDuration, res.AnalyzeDuration)
	}

	return write(w, "summary", b.String())
}

type statisticRow struct {
	name string
	est  bootstrap.Estimate
}

func statisticRows(rep bootstrap.Report) []statisticRow {
	return []statisticRow{
		{"mean", rep.Mean},
		{"p1", rep.LowTail},
		{"p5", rep.CenterStart},
		{"p95", rep.CenterEnd},
		{"p99", rep.HighTail},
		{"center width", rep.CenterWidth},
	}
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	return tbl
}

func comma(n uint64) string {
	return humanize.Comma(safeconv.SafeInt64(n))
}

func write(w io.Writer, what, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write %s: %w", what, err)
	}

	return nil
}
