package config

// Run defaults.
const (
	DefaultRunSamples  = 1000
	DefaultRunWarmup   = 50
	DefaultRunParallel = 1
	DefaultRunTimeout  = "10m"
)

// Output defaults.
const (
	DefaultOutputDirectory = "benchfang-out"
	DefaultOutputFormat    = "text"
)

// Logging defaults.
const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultLogOutput = "stderr"
)

// Telemetry defaults.
const (
	DefaultTelemetryService     = "benchfang"
	DefaultTelemetryEnvironment = "development"
	DefaultTelemetrySampleRatio = 1.0
)
