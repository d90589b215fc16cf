package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/benchfang/pkg/bench"
	"github.com/Sumatoshi-tech/benchfang/pkg/bootstrap"
	"github.com/Sumatoshi-tech/benchfang/pkg/config"
	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
	"github.com/Sumatoshi-tech/benchfang/pkg/observability"
	"github.com/Sumatoshi-tech/benchfang/pkg/persist"
	"github.com/Sumatoshi-tech/benchfang/pkg/report"
	"github.com/Sumatoshi-tech/benchfang/pkg/safeconv"
)

var (
	// ErrMissingInput is returned when analyze gets neither a file nor a suite.
	ErrMissingInput = errors.New("analyze needs a samples file, a dataset, or --suite")
	// ErrSuiteEntry indicates an incomplete benchmark entry in a suite file.
	ErrSuiteEntry = errors.New("suite entry needs a name and a file")
)

// AnalyzeCommand holds configuration and dependencies for the analyze command.
type AnalyzeCommand struct {
	configPath string
	format     string
	name       string
	suitePath  string
	saveDir    string
	exportPath string
	seed       uint64
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	ac := &AnalyzeCommand{}

	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Filter timing samples and estimate their statistics",
		Long: `Analyze runs the outlier filters over timing samples and reports
bootstrap confidence intervals for their population statistics.

The input is either a text file of integer nanosecond samples, one per
line ("-" reads stdin; blank lines and #-comments are skipped), or a
saved .bfd dataset. Datasets keep no arrival order, so analyzing one
skips the temporal stage and reruns only the density stage.`,
		Args: cobra.MaximumNArgs(1),
		RunE: ac.run,
	}

	cmd.Flags().StringVarP(&ac.configPath, "config", "c", "", "Config file path (default: search for benchfang.yaml)")
	cmd.Flags().StringVarP(&ac.format, "format", "f", "", "Output format: text, json (default: config output.format)")
	cmd.Flags().StringVar(&ac.name, "name", "", "Benchmark name override")
	cmd.Flags().StringVar(&ac.suitePath, "suite", "", "Analyze every entry of a YAML suite file")
	cmd.Flags().StringVar(&ac.saveDir, "save-dataset", "", "Save the raw samples as a dataset in this directory")
	cmd.Flags().StringVar(&ac.exportPath, "export", "", "Write the run export JSON to this path (.json is appended when missing)")
	cmd.Flags().Uint64Var(&ac.seed, "seed", 0, "Resampling seed override (0 = config or wall clock)")

	return cmd
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	if ac.suitePath != "" {
		return ac.runSuite(cmd)
	}

	if len(args) == 0 {
		return ErrMissingInput
	}

	cfg, providers, cleanup, err := setup(cmd, ac.configPath, observability.ModeCLI)
	if err != nil {
		return err
	}
	defer cleanup()

	if cmd.Flags().Changed("seed") {
		cfg.Run.Seed = ac.seed
	}

	format, err := ac.resolveFormat(cfg)
	if err != nil {
		return err
	}

	res, ds, err := ac.analyzeInput(cmd.Context(), cfg, providers, args[0])
	if err != nil {
		return err
	}

	if ac.name != "" {
		res.Benchmark = ac.name
	}

	unit := defaultUnit
	if ds != nil && ds.Unit != "" {
		unit = ds.Unit
	}

	if ac.saveDir != "" && ds != nil {
		err = saveDataset(cmd.ErrOrStderr(), ac.saveDir, ds)
		if err != nil {
			return err
		}
	}

	export := runExport(res, ds, unit)

	if ac.exportPath != "" {
		err = writeExport(ac.exportPath, export)
		if err != nil {
			return err
		}
	}

	return renderResult(cmd.OutOrStdout(), cfg, format, res, export, unit)
}

// resolveFormat picks the output format from the flag or the config and
// rejects formats analyze cannot render.
func (ac *AnalyzeCommand) resolveFormat(cfg *config.Config) (string, error) {
	format := ac.format
	if format == "" {
		format = cfg.Output.Format
	}

	switch format {
	case formatText, formatJSON:
		return format, nil
	case formatHTML:
		return "", fmt.Errorf("%w: %q (use the plot command for html)", ErrUnsupportedFormat, format)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// analyzeInput runs the full pipeline over raw text samples, or the
// restore-and-analyze path over a saved dataset. The returned dataset is
// non-nil when the input was one, or when saving was requested for a raw
// run.
func (ac *AnalyzeCommand) analyzeInput(
	ctx context.Context,
	cfg *config.Config,
	providers observability.Providers,
	input string,
) (*bench.Result, *persist.Dataset, error) {
	if strings.EqualFold(filepath.Ext(input), persist.DatasetExtension) {
		return analyzeDataset(cfg, providers, input)
	}

	samples, label, err := readSamples(input)
	if err != nil {
		return nil, nil, err
	}

	if ac.name != "" {
		label = ac.name
	}

	ctx = observability.ContextWithBenchmark(ctx, label)
	engine := bench.NewEngine(engineOptions(cfg, providers))

	res, err := engine.Process(ctx, samples)
	if err != nil {
		return nil, nil, err
	}

	res.Benchmark = label

	var ds *persist.Dataset

	if ac.saveDir != "" {
		builder := dist.NewBuilder()
		for _, s := range samples {
			builder.Insert(s)
		}

		// Datasets snapshot the raw samples so the filters can rerun
		// with different settings at load time.
		ds = persist.NewDataset(label, defaultUnit, builder.Build())
	}

	return res, ds, nil
}

// analyzeDataset restores a saved dataset and bootstraps over it directly.
func analyzeDataset(cfg *config.Config, providers observability.Providers, path string) (*bench.Result, *persist.Dataset, error) {
	ds, d, removed, err := restoreDataset(path, cfg, providers.Logger)
	if err != nil {
		return nil, nil, err
	}

	analyzer := bootstrap.NewAnalyzer(cfg.BootstrapOptions(providers.Logger))
	rng := dist.NewRNG(resampleSeed(cfg))

	res := &bench.Result{
		Benchmark:       ds.Benchmark,
		Report:          analyzer.Apply(rng, d),
		Samples:         d.Len(),
		Iterations:      safeconv.SafeInt(ds.Samples()),
		DensityOutliers: removed,
		Resamples:       analyzer.Resamples(),
	}

	return res, ds, nil
}

// saveDataset persists ds under dir and tells the user where it went.
func saveDataset(progress io.Writer, dir string, ds *persist.Dataset) error {
	basename := datasetBasename(ds)

	err := persist.SaveDataset(dir, basename, ds)
	if err != nil {
		return err
	}

	fmt.Fprintf(progress, "dataset saved: %s\n", filepath.Join(dir, basename+persist.DatasetExtension))

	return nil
}

// datasetBasename names a saved dataset after its benchmark plus a short
// run ID, so repeated runs of the same benchmark do not clobber each other.
func datasetBasename(ds *persist.Dataset) string {
	return fmt.Sprintf("%s-%.8s", ds.Benchmark, ds.ID)
}

// runExport maps a result into the frozen export document layout. The run
// ID is shared with the dataset when one exists.
func runExport(res *bench.Result, ds *persist.Dataset, unit string) *persist.RunExport {
	id := uuid.New()
	if ds != nil {
		id = ds.ID
	}

	outliers := persist.OutlierExport{
		Temporal:     res.TemporalOutliers,
		Density:      res.DensityOutliers,
		Reclassified: res.Reclassified,
	}

	return persist.NewRunExport(id, res.Benchmark, unit, res.Resamples, res.Report, outliers)
}

// writeExport writes doc as pretty JSON through the persist layer, so
// exports get the same atomic write as datasets.
func writeExport(path string, doc any) error {
	basename := strings.TrimSuffix(filepath.Base(path), ".json")

	return persist.SaveState(filepath.Dir(path), basename, persist.NewJSONCodec(), doc)
}

// renderResult writes one analysis in the chosen format.
func renderResult(w io.Writer, cfg *config.Config, format string, res *bench.Result, export *persist.RunExport, unit string) error {
	if format == formatJSON {
		return encodeJSON(w, export)
	}

	return report.Summary(w, *res, report.Options{Unit: unit, Color: cfg.Output.Color})
}

// encodeJSON writes doc as indented JSON.
func encodeJSON(w io.Writer, doc any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(doc)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// suiteFile is the YAML layout of a benchmark suite.
type suiteFile struct {
	// Name labels the suite in logs.
	Name string `yaml:"name"`

	// Unit overrides the sample unit for every entry, normally "ns".
	Unit string `yaml:"unit"`

	// Benchmarks lists the sample files to analyze.
	Benchmarks []suiteBenchmark `yaml:"benchmarks"`
}

// suiteBenchmark is one entry of a suite file.
type suiteBenchmark struct {
	// Name is the benchmark name used in reports.
	Name string `yaml:"name"`

	// File is the samples file, resolved relative to the suite file.
	File string `yaml:"file"`
}

// loadSuiteFile parses and validates a YAML suite file.
func loadSuiteFile(path string) (*suiteFile, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // user-supplied input path.
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}

	var sf suiteFile

	err = yaml.Unmarshal(raw, &sf)
	if err != nil {
		return nil, fmt.Errorf("parse suite %s: %w", path, err)
	}

	if len(sf.Benchmarks) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptySuite)
	}

	seen := make(map[string]struct{}, len(sf.Benchmarks))

	for idx, entry := range sf.Benchmarks {
		if entry.Name == "" || entry.File == "" {
			return nil, fmt.Errorf("%s: entry %d: %w", path, idx, ErrSuiteEntry)
		}

		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("%s: %q: %w", path, entry.Name, ErrDuplicateBenchmark)
		}

		seen[entry.Name] = struct{}{}
	}

	return &sf, nil
}

// runSuite analyzes every entry of a suite file, bounded by the configured
// parallelism. Each entry gets its own engine; engines are not safe for
// concurrent use.
func (ac *AnalyzeCommand) runSuite(cmd *cobra.Command) error {
	sf, err := loadSuiteFile(ac.suitePath)
	if err != nil {
		return err
	}

	cfg, providers, cleanup, err := setup(cmd, ac.configPath, observability.ModeSuite)
	if err != nil {
		return err
	}
	defer cleanup()

	if cmd.Flags().Changed("seed") {
		cfg.Run.Seed = ac.seed
	}

	format, err := ac.resolveFormat(cfg)
	if err != nil {
		return err
	}

	// Suite progress is scrapeable while the sweep runs: the diagnostics
	// server carries its own Prometheus bridge, so run metrics registered
	// on it need no OTLP collector.
	var runMetrics *observability.RunMetrics

	if cfg.Telemetry.DiagnosticsAddr != "" {
		diag, diagErr := observability.NewDiagnosticsServer(cfg.Telemetry.DiagnosticsAddr)
		if diagErr != nil {
			return diagErr
		}
		defer diag.Close() //nolint:errcheck // best-effort shutdown.

		runMetrics, diagErr = observability.NewRunMetrics(diag.Meter("benchfang"))
		if diagErr != nil {
			return diagErr
		}

		providers.Logger.Info("diagnostics listening", "addr", diag.Addr())
	}

	unit := sf.Unit
	if unit == "" {
		unit = defaultUnit
	}

	baseDir := filepath.Dir(ac.suitePath)
	results := make([]bench.Result, len(sf.Benchmarks))

	group, ctx := errgroup.WithContext(cmd.Context())
	group.SetLimit(cfg.Run.Parallel)

	for idx, entry := range sf.Benchmarks {
		group.Go(func() error {
			entryCtx := observability.ContextWithBenchmark(ctx, entry.Name)
			entryStart := time.Now()

			if runMetrics != nil {
				done := runMetrics.TrackInflight(entryCtx, entry.Name)
				defer done()
			}

			samples, _, readErr := readSamples(resolveSuitePath(baseDir, entry.File))
			if readErr != nil {
				recordSuiteRun(entryCtx, runMetrics, entry.Name, "error", entryStart)

				return fmt.Errorf("%s: %w", entry.Name, readErr)
			}

			engine := bench.NewEngine(engineOptions(cfg, providers))

			res, procErr := engine.Process(entryCtx, samples)
			if procErr != nil {
				recordSuiteRun(entryCtx, runMetrics, entry.Name, "error", entryStart)

				return fmt.Errorf("%s: %w", entry.Name, procErr)
			}

			res.Benchmark = entry.Name
			results[idx] = *res

			recordSuiteRun(entryCtx, runMetrics, entry.Name, "ok", entryStart)

			return nil
		})
	}

	err = group.Wait()
	if err != nil {
		return err
	}

	return ac.renderSuite(cmd.OutOrStdout(), cfg, format, results, unit)
}

// recordSuiteRun reports one finished suite entry to the diagnostics
// metrics, when they are wired.
func recordSuiteRun(ctx context.Context, rm *observability.RunMetrics, name, status string, start time.Time) {
	if rm == nil {
		return
	}

	rm.RecordRun(ctx, name, status, time.Since(start))
}

// resolveSuitePath resolves a suite entry file relative to the suite file.
func resolveSuitePath(baseDir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}

	return filepath.Join(baseDir, file)
}

// renderSuite writes the suite results as a table or a JSON array, and
// exports the array when requested.
func (ac *AnalyzeCommand) renderSuite(w io.Writer, cfg *config.Config, format string, results []bench.Result, unit string) error {
	exports := make([]*persist.RunExport, len(results))
	for idx := range results {
		exports[idx] = runExport(&results[idx], nil, unit)
	}

	if ac.exportPath != "" {
		err := writeExport(ac.exportPath, exports)
		if err != nil {
			return err
		}
	}

	if format == formatJSON {
		return encodeJSON(w, exports)
	}

	return report.Table(w, results, report.Options{Unit: unit, Color: cfg.Output.Color})
}
