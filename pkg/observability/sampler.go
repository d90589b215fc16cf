package observability

import (
	"os"
	"strconv"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Standard OTel environment variables for sampler selection.
const (
	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"
)

// samplerFactories maps OTEL_TRACES_SAMPLER values to sampler constructors.
// The argument is the raw OTEL_TRACES_SAMPLER_ARG value.
var samplerFactories = map[string]func(arg string) sdktrace.Sampler{
	"always_on":  func(string) sdktrace.Sampler { return sdktrace.AlwaysSample() },
	"always_off": func(string) sdktrace.Sampler { return sdktrace.NeverSample() },
	"traceidratio": func(arg string) sdktrace.Sampler {
		return sdktrace.TraceIDRatioBased(samplerRatio(arg))
	},
	"parentbased_always_on": func(string) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	},
	"parentbased_always_off": func(string) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	},
	"parentbased_traceidratio": func(arg string) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(samplerRatio(arg)))
	},
}

// selectSampler resolves the trace sampler. The debug flag wins over the
// OTel environment variables, which win over the configured sample ratio.
// Unrecognized selections fall back to parent-based always-on.
func selectSampler(cfg Config) sdktrace.Sampler {
	if cfg.DebugTrace {
		return sdktrace.AlwaysSample()
	}

	if name := os.Getenv(envTracesSampler); name != "" {
		factory, known := samplerFactories[name]
		if known {
			return factory(os.Getenv(envTracesSamplerArg))
		}

		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}

	if cfg.SampleRatio > 0 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

// samplerRatio parses a sampler ratio argument. Empty or unparseable
// arguments count as 1.0.
func samplerRatio(arg string) float64 {
	if arg == "" {
		return 1.0
	}

	ratio, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 1.0
	}

	return ratio
}
