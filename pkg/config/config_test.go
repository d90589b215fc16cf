package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/benchfang/pkg/bootstrap"
	"github.com/Sumatoshi-tech/benchfang/pkg/config"
	"github.com/Sumatoshi-tech/benchfang/pkg/outlier"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	// Test loading with no config file (should use defaults).
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	// Check default values.
	assert.Equal(t, config.DefaultRunSamples, cfg.Run.Samples)
	assert.Equal(t, config.DefaultRunWarmup, cfg.Run.Warmup)
	assert.InDelta(t, bootstrap.DefaultConfidence, cfg.Bootstrap.Confidence, 0)
	assert.Equal(t, bootstrap.DefaultResamples, cfg.Bootstrap.Resamples)
	assert.Equal(t, outlier.DefaultWindow, cfg.Temporal.Window)
	assert.True(t, cfg.Temporal.Enabled)
	assert.True(t, cfg.Density.Enabled)
	assert.Equal(t, config.DefaultOutputFormat, cfg.Output.Format)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	// Create a temporary config file.
	configContent := `
run:
  samples: 500
  warmup: 10

bootstrap:
  confidence: 0.99
  resamples: 1000

density:
  outlier_threshold: 0.01

output:
  format: "json"
  directory: "/tmp/test-out"
`

	tmpDir := t.TempDir()

	tmpFile, err := os.CreateTemp(tmpDir, "test-config-*.yaml")
	require.NoError(t, err)

	_, writeErr := tmpFile.WriteString(configContent)
	require.NoError(t, writeErr)

	tmpFile.Close()

	// Load config from file.
	cfg, loadErr := config.LoadConfig(tmpFile.Name())
	require.NoError(t, loadErr)

	// Check custom values.
	assert.Equal(t, 500, cfg.Run.Samples)
	assert.Equal(t, 10, cfg.Run.Warmup)
	assert.InDelta(t, 0.99, cfg.Bootstrap.Confidence, 0)
	assert.Equal(t, 1000, cfg.Bootstrap.Resamples)
	assert.InDelta(t, 0.01, cfg.Density.OutlierThreshold, 0)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "/tmp/test-out", cfg.Output.Directory)

	// Untouched sections keep their defaults.
	assert.Equal(t, outlier.DefaultWindow, cfg.Temporal.Window)
	assert.InDelta(t, outlier.DefaultNeighborDecay, cfg.Density.NeighborDecay, 0)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	// Set environment variables.
	t.Setenv("BENCHFANG_RUN_SAMPLES", "200")
	t.Setenv("BENCHFANG_BOOTSTRAP_RESAMPLES", "500")
	t.Setenv("BENCHFANG_OUTPUT_DIRECTORY", "/tmp/env-out")

	// Load config (should pick up environment variables).
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	// Check environment variable values.
	assert.Equal(t, 200, cfg.Run.Samples)
	assert.Equal(t, 500, cfg.Bootstrap.Resamples)
	assert.Equal(t, "/tmp/env-out", cfg.Output.Directory)
}

func TestTimeDurationParsing(t *testing.T) {
	t.Parallel()

	// Test that time durations are parsed correctly.
	configContent := `
run:
  timeout: "90s"
`

	tmpDir := t.TempDir()

	tmpFile, err := os.CreateTemp(tmpDir, "test-duration-*.yaml")
	require.NoError(t, err)

	_, writeErr := tmpFile.WriteString(configContent)
	require.NoError(t, writeErr)

	tmpFile.Close()

	cfg, loadErr := config.LoadConfig(tmpFile.Name())
	require.NoError(t, loadErr)

	// Check time durations.
	assert.Equal(t, 90*time.Second, cfg.Run.Timeout)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "zero_samples",
			content: "run:\n  samples: 0\n",
			wantErr: config.ErrInvalidSamples,
		},
		{
			name:    "negative_warmup",
			content: "run:\n  warmup: -1\n",
			wantErr: config.ErrInvalidWarmup,
		},
		{
			name:    "confidence_above_one",
			content: "bootstrap:\n  confidence: 1.5\n",
			wantErr: config.ErrInvalidConfidence,
		},
		{
			name:    "zero_resamples",
			content: "bootstrap:\n  resamples: 0\n",
			wantErr: config.ErrInvalidResamples,
		},
		{
			name:    "window_below_minimum",
			content: "temporal:\n  window: 2\n",
			wantErr: config.ErrInvalidWindow,
		},
		{
			name:    "negative_tolerance",
			content: "temporal:\n  tolerance: -0.5\n",
			wantErr: config.ErrInvalidTolerance,
		},
		{
			name:    "contribution_at_one",
			content: "density:\n  neighbor_contribution: 1.0\n",
			wantErr: config.ErrInvalidShare,
		},
		{
			name:    "unknown_format",
			content: "output:\n  format: \"xml\"\n",
			wantErr: config.ErrInvalidFormat,
		},
		{
			name:    "unknown_log_output",
			content: "logging:\n  output: \"syslog\"\n",
			wantErr: config.ErrInvalidLogOutput,
		},
		{
			name:    "sample_ratio_above_one",
			content: "telemetry:\n  sample_ratio: 2.0\n",
			wantErr: config.ErrInvalidRatio,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tmpDir := t.TempDir()

			tmpFile, err := os.CreateTemp(tmpDir, "test-invalid-*.yaml")
			require.NoError(t, err)

			_, writeErr := tmpFile.WriteString(tt.content)
			require.NoError(t, writeErr)

			tmpFile.Close()

			_, loadErr := config.LoadConfig(tmpFile.Name())
			assert.ErrorIs(t, loadErr, tt.wantErr)
		})
	}
}

func TestOptionMappers(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	bootOpts := cfg.BootstrapOptions(nil)
	assert.InDelta(t, bootstrap.DefaultConfidence, bootOpts.Confidence, 0)
	assert.Equal(t, bootstrap.DefaultResamples, bootOpts.Resamples)

	tempOpts := cfg.TemporalOptions(nil)
	assert.InDelta(t, outlier.DefaultTolerance, tempOpts.Tolerance, 0)

	densOpts := cfg.DensityOptions(nil)
	assert.InDelta(t, outlier.DefaultNeighborDecay, densOpts.NeighborDecay, 0)
	assert.InDelta(t, outlier.DefaultNeighborContribution, densOpts.NeighborContribution, 0)
	assert.InDelta(t, outlier.DefaultOutlierThreshold, densOpts.OutlierThreshold, 0)
	assert.InDelta(t, outlier.DefaultMaxOutlierFraction, densOpts.MaxOutlierFraction, 0)
	assert.InDelta(t, outlier.DefaultLog2Scale, densOpts.Log2Scale, 0)
}
