// Package commands implements CLI command handlers for benchfang.
package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/benchfang/pkg/bench"
	"github.com/Sumatoshi-tech/benchfang/pkg/config"
	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
	"github.com/Sumatoshi-tech/benchfang/pkg/observability"
	"github.com/Sumatoshi-tech/benchfang/pkg/outlier"
	"github.com/Sumatoshi-tech/benchfang/pkg/persist"
	"github.com/Sumatoshi-tech/benchfang/pkg/safeconv"
	"github.com/Sumatoshi-tech/benchfang/pkg/version"
)

// defaultUnit is the unit of raw text samples.
const defaultUnit = "ns"

// Output format names the commands render.
const (
	formatText = "text"
	formatJSON = "json"
	formatHTML = "html"
)

// shutdownTimeout bounds the telemetry flush on command exit.
const shutdownTimeout = 5 * time.Second

var (
	// ErrUnitMismatch is returned when compared datasets disagree on units.
	ErrUnitMismatch = errors.New("datasets use different units")
	// ErrUnsupportedFormat indicates a format the command cannot render.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrEmptySuite is returned when a suite file lists no benchmarks.
	ErrEmptySuite = errors.New("suite file lists no benchmarks")
	// ErrDuplicateBenchmark indicates a benchmark name used twice in a suite.
	ErrDuplicateBenchmark = errors.New("duplicate benchmark name in suite")
	// ErrNoSamples is returned when an input file holds no usable samples.
	ErrNoSamples = errors.New("input holds no samples")
)

// setup loads the configuration, applies the persistent verbosity flags and
// initializes the observability providers for one command invocation. The
// returned cleanup flushes pending telemetry and must run before the
// command exits.
func setup(cmd *cobra.Command, configPath string, mode observability.AppMode) (*config.Config, observability.Providers, func(), error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, observability.Providers{}, nil, err
	}

	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		cfg.Logging.Level = "error"
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}

	providers, err := observability.Init(observabilityConfig(cfg, mode))
	if err != nil {
		return nil, observability.Providers{}, nil, fmt.Errorf("init observability: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := providers.Shutdown(ctx)
		if shutdownErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "telemetry shutdown: %v\n", shutdownErr)
		}
	}

	return cfg, providers, cleanup, nil
}

// observabilityConfig maps the file configuration onto the observability
// settings. Telemetry export stays disabled unless the config opts in.
func observabilityConfig(cfg *config.Config, mode observability.AppMode) observability.Config {
	obs := observability.DefaultConfig()
	obs.ServiceVersion = version.Version
	obs.Environment = cfg.Telemetry.Environment
	obs.Mode = mode
	obs.LogLevel = parseLogLevel(cfg.Logging.Level)
	obs.LogJSON = cfg.Logging.Format == "json"
	obs.LogWriter = logWriter(cfg.Logging.Output)
	obs.TraceVerbose = cfg.Logging.Level == "debug"

	if cfg.Telemetry.ServiceName != "" {
		obs.ServiceName = cfg.Telemetry.ServiceName
	}

	if cfg.Telemetry.Enabled {
		obs.OTLPEndpoint = cfg.Telemetry.Endpoint
		obs.OTLPInsecure = cfg.Telemetry.Insecure
		obs.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.Headers)
		obs.SampleRatio = cfg.Telemetry.SampleRatio
	}

	return obs
}

// logWriter maps the configured log destination onto a writer. Validation
// restricts the value to stderr or stdout.
func logWriter(output string) io.Writer {
	if output == "stdout" {
		return os.Stdout
	}

	return os.Stderr
}

// parseLogLevel maps a config level string onto a slog level. Unknown
// strings mean info.
func parseLogLevel(level string) slog.Level {
	var parsed slog.Level

	err := parsed.UnmarshalText([]byte(level))
	if err != nil {
		return slog.LevelInfo
	}

	return parsed
}

// engineOptions maps the file configuration and the initialized providers
// onto pipeline options. A disabled temporal section turns into a negative
// window, which the engine reads as "stage off".
func engineOptions(cfg *config.Config, providers observability.Providers) bench.EngineOptions {
	window := cfg.Temporal.Window
	if !cfg.Temporal.Enabled {
		window = -1
	}

	return bench.EngineOptions{
		TemporalWindow: window,
		Temporal:       cfg.TemporalOptions(providers.Logger),
		DisableDensity: !cfg.Density.Enabled,
		Density:        cfg.DensityOptions(providers.Logger),
		Bootstrap:      cfg.BootstrapOptions(providers.Logger),
		Seed:           cfg.Run.Seed,
		Tracer:         providers.Tracer,
		Logger:         providers.Logger,
	}
}

// resampleSeed resolves the configured seed, deriving one from the wall
// clock when the config leaves it at zero.
func resampleSeed(cfg *config.Config) uint64 {
	if cfg.Run.Seed != 0 {
		return cfg.Run.Seed
	}

	return uint64(time.Now().UnixNano()) //nolint:gosec // wall-clock seed.
}

// readSamples reads newline-separated integer samples from path, or from
// stdin when path is "-". Blank lines and lines starting with '#' are
// skipped. The second return value is a benchmark label derived from the
// input name.
func readSamples(path string) ([]int64, string, error) {
	var (
		reader *bufio.Scanner
		label  string
	)

	if path == "-" {
		reader = bufio.NewScanner(os.Stdin)
		label = "stdin"
	} else {
		file, err := os.Open(path) //nolint:gosec // user-supplied input path.
		if err != nil {
			return nil, "", fmt.Errorf("open samples: %w", err)
		}
		defer file.Close() //nolint:errcheck // read-only file.

		reader = bufio.NewScanner(file)
		label = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var samples []int64

	lineNo := 0

	for reader.Scan() {
		lineNo++

		line := strings.TrimSpace(reader.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		value, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("%s:%d: parse sample: %w", label, lineNo, err)
		}

		samples = append(samples, value)
	}

	err := reader.Err()
	if err != nil {
		return nil, "", fmt.Errorf("read samples: %w", err)
	}

	if len(samples) == 0 {
		return nil, "", fmt.Errorf("%s: %w", label, ErrNoSamples)
	}

	return samples, label, nil
}

// restoreDataset loads a saved dataset and rebuilds its distribution,
// applying the density stage when the configuration enables it. Datasets
// keep no arrival order, so the temporal stage never runs here. The third
// return value is the number of samples the density stage removed.
func restoreDataset(path string, cfg *config.Config, logger *slog.Logger) (*persist.Dataset, *dist.Distribution, int64, error) {
	ds, err := persist.LoadDataset(path)
	if err != nil {
		return nil, nil, 0, err
	}

	d, err := ds.Restore()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("restore %s: %w", path, err)
	}

	var removed int64

	if cfg.Density.Enabled && d.Len() > 0 {
		filter := outlier.NewDensityFilter(cfg.DensityOptions(logger))
		removed = safeconv.SafeInt64(filter.Apply(d))
	}

	return ds, d, removed, nil
}
