package observability

import (
	"bytes"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, "benchfang", cfg.ServiceName)
	assert.Equal(t, ModeCLI, cfg.Mode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, defaultShutdownTimeoutSec, cfg.ShutdownTimeoutSec)
	assert.False(t, cfg.exportEnabled(), "defaults must not expect a collector")
}

func TestConfig_ExportEnabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.OTLPEndpoint = "localhost:4317"

	assert.True(t, cfg.exportEnabled())
}

func TestConfig_LogWriterDefaultsToStderr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, os.Stderr, Config{}.logWriter())

	var buf bytes.Buffer

	assert.Same(t, &buf, Config{LogWriter: &buf}.logWriter())
}

func TestConfig_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5*time.Second, Config{}.shutdownTimeout())
	assert.Equal(t, 5*time.Second, Config{ShutdownTimeoutSec: -3}.shutdownTimeout())
	assert.Equal(t, 30*time.Second, Config{ShutdownTimeoutSec: 30}.shutdownTimeout())
}
