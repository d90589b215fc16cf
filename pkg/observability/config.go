// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for the benchfang engine and CLI.
package observability

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// AppMode identifies the application execution mode.
type AppMode string

const (
	// ModeCLI is the one-shot CLI command execution mode.
	ModeCLI AppMode = "cli"
	// ModeSuite is the long-running suite mode with diagnostics endpoints.
	ModeSuite AppMode = "suite"
)

const (
	// defaultServiceName is the default OTel service name.
	defaultServiceName = "benchfang"

	// defaultShutdownTimeoutSec is the default shutdown timeout in seconds.
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration. The zero value is usable
// but anonymous; DefaultConfig fills in the service identity.
type Config struct {
	// ServiceName, ServiceVersion, and Environment identify the process in
	// the OTel resource. Empty version and environment are omitted.
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Mode identifies how the binary was launched and is stamped on every
	// log record next to the service name.
	Mode AppMode

	// OTLPEndpoint is the gRPC collector address, "host:port". Empty keeps
	// telemetry local: providers become no-op and only logging is live.
	OTLPEndpoint string

	// OTLPHeaders carries extra gRPC metadata for the collector, usually
	// auth tokens.
	OTLPHeaders map[string]string

	// OTLPInsecure disables TLS on the collector connection.
	OTLPInsecure bool

	// DebugTrace forces full sampling and surfaces spans and attributes
	// the quiet defaults hide.
	DebugTrace bool

	// SampleRatio samples traces at the given rate when DebugTrace is off.
	// Zero defers to the environment, then to parent-based always-on.
	SampleRatio float64

	// TraceVerbose keeps hot-path spans (per-phase, warmup). When false,
	// only per-benchmark and command spans are recorded.
	TraceVerbose bool

	// LogLevel is the minimum slog severity.
	LogLevel slog.Level

	// LogJSON switches log output from text to JSON records.
	LogJSON bool

	// LogWriter receives log output. Nil means os.Stderr.
	LogWriter io.Writer

	// ShutdownTimeoutSec bounds the final flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeCLI,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}

// exportEnabled reports whether a collector endpoint was configured.
func (c Config) exportEnabled() bool {
	return c.OTLPEndpoint != ""
}

// logWriter resolves the log destination.
func (c Config) logWriter() io.Writer {
	if c.LogWriter != nil {
		return c.LogWriter
	}

	return os.Stderr
}

// shutdownTimeout resolves the flush deadline, falling back to the default
// for zero and negative settings.
func (c Config) shutdownTimeout() time.Duration {
	secs := c.ShutdownTimeoutSec
	if secs <= 0 {
		secs = defaultShutdownTimeoutSec
	}

	return time.Duration(secs) * time.Second
}
