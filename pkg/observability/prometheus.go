package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusBridge exposes OTel instruments to Prometheus scrapes. It owns
// a dedicated registry and MeterProvider, so instruments created through
// [PrometheusBridge.Meter] show up on the handler without a collector in
// between. Each bridge is independent; creating several does not conflict.
type PrometheusBridge struct {
	handler  http.Handler
	provider *sdkmetric.MeterProvider
}

// NewPrometheusBridge wires a fresh Prometheus registry to an OTel
// MeterProvider and returns the bridge serving the scrape endpoint.
func NewPrometheusBridge() (*PrometheusBridge, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return &PrometheusBridge{
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		provider: provider,
	}, nil
}

// Handler returns the /metrics scrape handler.
func (pb *PrometheusBridge) Handler() http.Handler {
	return pb.handler
}

// Meter returns a named meter whose instruments are served by the handler.
func (pb *PrometheusBridge) Meter(name string) metric.Meter {
	return pb.provider.Meter(name)
}

// Shutdown flushes and stops the bridge's meter provider.
func (pb *PrometheusBridge) Shutdown(ctx context.Context) error {
	err := pb.provider.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown prometheus bridge: %w", err)
	}

	return nil
}
