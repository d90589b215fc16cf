package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
	"github.com/Sumatoshi-tech/benchfang/pkg/observability"
	"github.com/Sumatoshi-tech/benchfang/pkg/persist"
	"github.com/Sumatoshi-tech/benchfang/pkg/plot"
)

// ErrNegativeSize is returned when a plot dimension flag is negative.
var ErrNegativeSize = errors.New("bucket and width flags must not be negative")

// PlotCommand holds configuration for the plot command.
type PlotCommand struct {
	configPath string
	format     string
	outPath    string
	title      string
	buckets    int
	width      int
}

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	pc := &PlotCommand{}

	cmd := &cobra.Command{
		Use:   "plot <dataset.bfd>",
		Short: "Render a saved distribution as a histogram",
		Long: `Plot renders a saved dataset as a log-scaled text histogram with its
quantile function, or as an HTML page with interactive charts.

The density stage reruns before rendering unless the config disables
it, so plots show the same samples the analyzer would see.`,
		Args: cobra.ExactArgs(1),
		RunE: pc.run,
	}

	cmd.Flags().StringVarP(&pc.configPath, "config", "c", "", "Config file path (default: search for benchfang.yaml)")
	cmd.Flags().StringVarP(&pc.format, "format", "f", "", "Output format: text, html (default: config output.format)")
	cmd.Flags().StringVarP(&pc.outPath, "out", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&pc.title, "title", "", "HTML page title (default: the benchmark name)")
	cmd.Flags().IntVar(&pc.buckets, "buckets", 0, "Histogram bucket cap (0 = renderer default)")
	cmd.Flags().IntVar(&pc.width, "width", 0, "Text bar width in cells (0 = renderer default)")

	return cmd
}

func (pc *PlotCommand) run(cmd *cobra.Command, args []string) error {
	if pc.buckets < 0 || pc.width < 0 {
		return ErrNegativeSize
	}

	cfg, providers, cleanup, err := setup(cmd, pc.configPath, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer cleanup()

	format := pc.format
	if format == "" {
		format = cfg.Output.Format
	}

	switch format {
	case formatText, formatHTML:
	case formatJSON:
		return fmt.Errorf("%w: %q (use the analyze command for json)", ErrUnsupportedFormat, format)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	ds, d, removed, err := restoreDataset(args[0], cfg, providers.Logger)
	if err != nil {
		return err
	}

	providers.Logger.Debug("plotting dataset",
		"benchmark", ds.Benchmark,
		"samples", d.Len(),
		"density_outliers", removed,
	)

	render := func(w io.Writer) error {
		return pc.renderText(w, d)
	}
	if format == formatHTML {
		render = func(w io.Writer) error {
			return pc.renderHTML(w, ds, d)
		}
	}

	return pc.writeOutput(cmd, render)
}

// renderText draws the histogram and the quantile function stacked with a
// blank line between them.
func (pc *PlotCommand) renderText(w io.Writer, d *dist.Distribution) error {
	opts := plot.TextOptions{Buckets: pc.buckets, BarWidth: pc.width}

	err := plot.RenderHistogram(w, d, opts)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w)
	if err != nil {
		return fmt.Errorf("write separator: %w", err)
	}

	return plot.RenderQuantiles(w, d, opts)
}

func (pc *PlotCommand) renderHTML(w io.Writer, ds *persist.Dataset, d *dist.Distribution) error {
	title := pc.title
	if title == "" {
		title = ds.Benchmark
	}

	return plot.RenderHTML(w, d, plot.HTMLOptions{
		Title:   title,
		Unit:    ds.Unit,
		Buckets: pc.buckets,
	})
}

// writeOutput renders to the --out file when one is given, stdout
// otherwise.
func (pc *PlotCommand) writeOutput(cmd *cobra.Command, render func(io.Writer) error) error {
	if pc.outPath == "" {
		return render(cmd.OutOrStdout())
	}

	file, err := os.Create(pc.outPath) //nolint:gosec // user-supplied output path.
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	renderErr := render(file)
	closeErr := file.Close()

	if renderErr != nil {
		return renderErr
	}

	if closeErr != nil {
		return fmt.Errorf("close output: %w", closeErr)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "plot written: %s\n", pc.outPath)

	return nil
}
