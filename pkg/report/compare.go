package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/benchfang/pkg/bootstrap"
)

// PercentScale is the ScaledDiv multiplier under which ratio samples read
// as percentages, with 100 meaning no change.
const PercentScale = 100

// A Comparison pairs two analyzed runs with the bootstrap analyses of their
// pairwise difference and scaled ratio.
type Comparison struct {
	// Name labels the compared benchmark. Empty omits the heading.
	Name string

	// Before and After are the per-run analyses.
	Before bootstrap.Report
	After  bootstrap.Report

	// Diff analyzes the pairwise difference, after minus before.
	Diff bootstrap.Report

	// Ratio analyzes the pairwise quotient scaled by PercentScale.
	Ratio bootstrap.Report
}

// Faster reports whether the difference interval lies entirely below zero.
func (c Comparison) Faster() bool {
	return c.Diff.Mean.High < 0
}

// Slower reports whether the difference interval lies entirely above zero.
func (c Comparison) Slower() bool {
	return c.Diff.Mean.Low > 0
}

// Compare writes both runs side by side, then the difference and ratio
// intervals with the verdict. Movement counts only when the difference
// interval excludes zero; anything else renders as no significant change.
func Compare(w io.Writer, c Comparison, o Options) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"run", "samples", "mean", "ci", "p5", "p95"})
	tbl.AppendRow(compareRow("before", c.Before, o))
	tbl.AppendRow(compareRow("after", c.After, o))

	var b strings.Builder

	if c.Name != "" {
		fmt.Fprintf(&b, "=== %s ===\n", c.Name)
	}

	b.WriteString(tbl.Render())
	b.WriteString("\n")

	fmt.Fprintf(&b, "delta %s %s, ratio %s %s: %s\n",
		o.value(c.Diff.Mean.Sample), o.interval(c.Diff.Mean),
		percent(c.Ratio.Mean.Sample), percentInterval(c.Ratio.Mean),
		c.verdict(o))

	return write(w, "comparison", b.String())
}

func compareRow(label string, rep bootstrap.Report, o Options) table.Row {
	return table.Row{
		label,
		comma(rep.Samples),
		o.value(rep.Mean.Sample),
		o.interval(rep.Mean),
		o.value(rep.CenterStart.Sample),
		o.value(rep.CenterEnd.Sample),
	}
}

func (c Comparison) verdict(o Options) string {
	switch {
	case c.Faster():
		return paint(o, color.FgGreen, "faster")
	case c.Slower():
		return paint(o, color.FgRed, "slower")
	default:
		return paint(o, color.FgYellow, "no significant change")
	}
}

func paint(o Options, attr color.Attribute, s string) string {
	painter := color.New(attr)

	if o.Color {
		painter.EnableColor()
	} else {
		painter.DisableColor()
	}

	return painter.Sprint(s)
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func percentInterval(e bootstrap.Estimate) string {
	return fmt.Sprintf("[%.1f%%, %.1f%%]", e.Low, e.High)
}
