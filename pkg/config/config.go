// Package config provides configuration loading and validation for the benchfang engine.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/benchfang/pkg/bootstrap"
	"github.com/Sumatoshi-tech/benchfang/pkg/outlier"
)

// Sentinel validation errors.
var (
	ErrInvalidSamples    = errors.New("run samples must be positive")
	ErrInvalidWarmup     = errors.New("run warmup must not be negative")
	ErrInvalidParallel   = errors.New("run parallelism must be positive")
	ErrInvalidConfidence = errors.New("bootstrap confidence must lie strictly between 0 and 1")
	ErrInvalidResamples  = errors.New("bootstrap resamples must be positive")
	ErrInvalidWindow     = errors.New("temporal window is below the usable minimum")
	ErrInvalidTolerance  = errors.New("temporal tolerance must not be negative")
	ErrInvalidDecay      = errors.New("density neighbor decay must be positive")
	ErrInvalidShare      = errors.New("density neighbor contribution must lie in [0, 1)")
	ErrInvalidThreshold  = errors.New("density outlier threshold must lie in (0, 1)")
	ErrInvalidFraction   = errors.New("density max outlier fraction must lie in (0, 1)")
	ErrInvalidLog2Scale  = errors.New("density log2 scale must be positive")
	ErrInvalidFormat     = errors.New("unknown output format")
	ErrInvalidLogOutput  = errors.New("log output must be stderr or stdout")
	ErrInvalidRatio      = errors.New("telemetry sample ratio must lie in [0, 1]")
)

// Config holds all configuration for the benchfang engine.
type Config struct {
	Run       RunConfig       `mapstructure:"run"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Density   DensityConfig   `mapstructure:"density"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// RunConfig holds measurement collection settings.
type RunConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Seed     uint64        `mapstructure:"seed"`
	Samples  int           `mapstructure:"samples"`
	Warmup   int           `mapstructure:"warmup"`
	Parallel int           `mapstructure:"parallel"`
}

// BootstrapConfig holds resampling settings for confidence intervals.
type BootstrapConfig struct {
	Confidence float64 `mapstructure:"confidence"`
	Resamples  int     `mapstructure:"resamples"`
}

// TemporalConfig holds sliding-window outlier rejection settings.
type TemporalConfig struct {
	Tolerance float64 `mapstructure:"tolerance"`
	Window    int     `mapstructure:"window"`
	Enabled   bool    `mapstructure:"enabled"`
}

// DensityConfig holds histogram density outlier rejection settings.
type DensityConfig struct {
	NeighborDecay        float64 `mapstructure:"neighbor_decay"`
	NeighborContribution float64 `mapstructure:"neighbor_contribution"`
	OutlierThreshold     float64 `mapstructure:"outlier_threshold"`
	MaxOutlierFraction   float64 `mapstructure:"max_outlier_fraction"`
	Log2Scale            float64 `mapstructure:"log2_scale"`
	Enabled              bool    `mapstructure:"enabled"`
}

// OutputConfig holds report rendering settings.
type OutputConfig struct {
	Directory string `mapstructure:"directory"`
	Format    string `mapstructure:"format"`
	Color     bool   `mapstructure:"color"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Endpoint        string  `mapstructure:"endpoint"`
	ServiceName     string  `mapstructure:"service_name"`
	Environment     string  `mapstructure:"environment"`
	DiagnosticsAddr string  `mapstructure:"diagnostics_addr"`
	Headers         string  `mapstructure:"headers"`
	SampleRatio     float64 `mapstructure:"sample_ratio"`
	Insecure        bool    `mapstructure:"insecure"`
	Enabled         bool    `mapstructure:"enabled"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	// Set defaults.
	setDefaults(viperCfg)

	// Read config file.
	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("benchfang")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/benchfang")
	}

	// Read environment variables.
	viperCfg.SetEnvPrefix("BENCHFANG")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file.
	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := validateConfig(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Run defaults.
	viperCfg.SetDefault("run.samples", DefaultRunSamples)
	viperCfg.SetDefault("run.warmup", DefaultRunWarmup)
	viperCfg.SetDefault("run.parallel", DefaultRunParallel)
	viperCfg.SetDefault("run.timeout", DefaultRunTimeout)
	viperCfg.SetDefault("run.seed", 0)

	// Bootstrap defaults.
	viperCfg.SetDefault("bootstrap.confidence", bootstrap.DefaultConfidence)
	viperCfg.SetDefault("bootstrap.resamples", bootstrap.DefaultResamples)

	// Temporal filter defaults.
	viperCfg.SetDefault("temporal.enabled", true)
	viperCfg.SetDefault("temporal.window", outlier.DefaultWindow)
	viperCfg.SetDefault("temporal.tolerance", outlier.DefaultTolerance)

	// Density filter defaults.
	viperCfg.SetDefault("density.enabled", true)
	viperCfg.SetDefault("density.neighbor_decay", outlier.DefaultNeighborDecay)
	viperCfg.SetDefault("density.neighbor_contribution", outlier.DefaultNeighborContribution)
	viperCfg.SetDefault("density.outlier_threshold", outlier.DefaultOutlierThreshold)
	viperCfg.SetDefault("density.max_outlier_fraction", outlier.DefaultMaxOutlierFraction)
	viperCfg.SetDefault("density.log2_scale", outlier.DefaultLog2Scale)

	// Output defaults.
	viperCfg.SetDefault("output.directory", DefaultOutputDirectory)
	viperCfg.SetDefault("output.format", DefaultOutputFormat)
	viperCfg.SetDefault("output.color", true)

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)
	viperCfg.SetDefault("logging.output", DefaultLogOutput)

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.enabled", false)
	viperCfg.SetDefault("telemetry.endpoint", "")
	viperCfg.SetDefault("telemetry.service_name", DefaultTelemetryService)
	viperCfg.SetDefault("telemetry.environment", DefaultTelemetryEnvironment)
	viperCfg.SetDefault("telemetry.diagnostics_addr", "")
	viperCfg.SetDefault("telemetry.headers", "")
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultTelemetrySampleRatio)
	viperCfg.SetDefault("telemetry.insecure", false)
}

// validateConfig validates the configuration.
func validateConfig(config *Config) error {
	if config.Run.Samples <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSamples, config.Run.Samples)
	}

	if config.Run.Warmup < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWarmup, config.Run.Warmup)
	}

	if config.Run.Parallel <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidParallel, config.Run.Parallel)
	}

	if config.Bootstrap.Confidence <= 0 || config.Bootstrap.Confidence >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidConfidence, config.Bootstrap.Confidence)
	}

	if config.Bootstrap.Resamples <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidResamples, config.Bootstrap.Resamples)
	}

	if err := validateFilters(config); err != nil {
		return err
	}

	if _, ok := knownFormats[config.Output.Format]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, config.Output.Format)
	}

	if config.Logging.Output != "stderr" && config.Logging.Output != "stdout" {
		return fmt.Errorf("%w: %q", ErrInvalidLogOutput, config.Logging.Output)
	}

	if config.Telemetry.SampleRatio < 0 || config.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidRatio, config.Telemetry.SampleRatio)
	}

	return nil
}

// validateFilters validates the outlier filter sections.
func validateFilters(config *Config) error {
	if config.Temporal.Window < outlier.MinWindow {
		return fmt.Errorf("%w: %d", ErrInvalidWindow, config.Temporal.Window)
	}

	if config.Temporal.Tolerance < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTolerance, config.Temporal.Tolerance)
	}

	if config.Density.NeighborDecay <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDecay, config.Density.NeighborDecay)
	}

	if config.Density.NeighborContribution < 0 || config.Density.NeighborContribution >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidShare, config.Density.NeighborContribution)
	}

	if config.Density.OutlierThreshold <= 0 || config.Density.OutlierThreshold >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, config.Density.OutlierThreshold)
	}

	if config.Density.MaxOutlierFraction <= 0 || config.Density.MaxOutlierFraction >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidFraction, config.Density.MaxOutlierFraction)
	}

	if config.Density.Log2Scale <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidLog2Scale, config.Density.Log2Scale)
	}

	return nil
}

// knownFormats enumerates the output formats the report renderers accept.
var knownFormats = map[string]struct{}{
	"text": {},
	"json": {},
	"html": {},
}

// BootstrapOptions maps the bootstrap section onto analyzer options.
func (c *Config) BootstrapOptions(logger *slog.Logger) bootstrap.Options {
	return bootstrap.Options{
		Confidence: c.Bootstrap.Confidence,
		Resamples:  c.Bootstrap.Resamples,
		Logger:     logger,
	}
}

// TemporalOptions maps the temporal section onto filter options.
func (c *Config) TemporalOptions(logger *slog.Logger) outlier.TemporalOptions {
	return outlier.TemporalOptions{
		Tolerance: c.Temporal.Tolerance,
		Logger:    logger,
	}
}

// DensityOptions maps the density section onto filter options.
func (c *Config) DensityOptions(logger *slog.Logger) outlier.DensityOptions {
	return outlier.DensityOptions{
		NeighborDecay:        c.Density.NeighborDecay,
		NeighborContribution: c.Density.NeighborContribution,
		OutlierThreshold:     c.Density.OutlierThreshold,
		MaxOutlierFraction:   c.Density.MaxOutlierFraction,
		Log2Scale:            c.Density.Log2Scale,
		Logger:               logger,
	}
}
