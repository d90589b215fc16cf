package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

// DiagnosticsServer exposes liveness, readiness, and Prometheus scrape
// endpoints over HTTP for suite mode. Metrics served at /metrics come from
// the server's own bridge, so suite instruments registered through
// [DiagnosticsServer.Meter] are scrapeable without an OTLP collector.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
	bridge   *PrometheusBridge
}

// NewDiagnosticsServer starts an HTTP server at addr with /healthz, /readyz,
// and /metrics endpoints. Go runtime metrics are registered on the bridge up
// front; ready checks gate the /readyz response.
func NewDiagnosticsServer(addr string, ready ...ReadyCheck) (*DiagnosticsServer, error) {
	bridge, err := NewPrometheusBridge()
	if err != nil {
		return nil, fmt.Errorf("create prometheus bridge: %w", err)
	}

	_, err = NewRuntimeMetrics(bridge.Meter(meterName))
	if err != nil {
		return nil, fmt.Errorf("register runtime metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(ready...))
	mux.Handle("/metrics", bridge.Handler())

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener, bridge: bridge}, nil
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Meter returns a named meter whose instruments appear at /metrics.
func (d *DiagnosticsServer) Meter(name string) metric.Meter {
	return d.bridge.Meter(name)
}

// Close shuts down the HTTP server and the metrics bridge.
func (d *DiagnosticsServer) Close() error {
	ctx := context.Background()

	return errors.Join(d.server.Shutdown(ctx), d.bridge.Shutdown(ctx))
}
