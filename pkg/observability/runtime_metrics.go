package observability

import (
	"context"
	"fmt"
	"math"
	runtimemetrics "runtime/metrics"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricGoroutines = "benchfang.runtime.goroutines"
	metricThreads    = "benchfang.runtime.threads"
	metricGCCycles   = "benchfang.runtime.gc.cycles"

	// runtime/metrics sample names.
	sampleGoroutines = "/sched/goroutines:goroutines"
	sampleThreads    = "/sched/threads:threads"
	sampleGCCycles   = "/gc/cycles/total:gc-cycles"
)

// RuntimeMetrics exposes Go runtime scheduler and GC activity as OTel
// instruments. Scheduler churn and GC cycles are the main in-process noise
// sources for timing measurements, so suite mode exports them next to the
// run metrics.
type RuntimeMetrics struct {
	goroutines metric.Int64ObservableGauge
	threads    metric.Int64ObservableGauge
	gcCycles   metric.Int64ObservableCounter
}

// NewRuntimeMetrics creates instruments backed by runtime/metrics samples.
// The meter's reader invokes the callback on each collection cycle; no
// manual polling is needed.
func NewRuntimeMetrics(mt metric.Meter) (*RuntimeMetrics, error) {
	b := newMetricBuilder(mt)

	rm := &RuntimeMetrics{
		goroutines: b.gauge(metricGoroutines, "Current number of live goroutines", "{goroutine}"),
		threads:    b.gauge(metricThreads, "Current number of OS threads created by the Go runtime", "{thread}"),
		gcCycles:   b.observableCounter(metricGCCycles, "Completed GC cycles since process start", "{cycle}"),
	}

	err := b.instrumentErr()
	if err != nil {
		return nil, err
	}

	_, err = mt.RegisterCallback(rm.observe, rm.goroutines, rm.threads, rm.gcCycles)
	if err != nil {
		return nil, fmt.Errorf("register runtime metrics callback: %w", err)
	}

	return rm, nil
}

// observe reads runtime/metrics samples and reports them to the OTel observer.
func (rm *RuntimeMetrics) observe(_ context.Context, obs metric.Observer) error {
	samples := []runtimemetrics.Sample{
		{Name: sampleGoroutines},
		{Name: sampleThreads},
		{Name: sampleGCCycles},
	}

	runtimemetrics.Read(samples)

	for idx := range samples {
		val, ok := sampleInt64Value(samples[idx].Value)
		if !ok {
			continue
		}

		switch samples[idx].Name {
		case sampleGoroutines:
			obs.ObserveInt64(rm.goroutines, val)
		case sampleThreads:
			obs.ObserveInt64(rm.threads, val)
		case sampleGCCycles:
			obs.ObserveInt64(rm.gcCycles, val)
		}
	}

	return nil
}

// sampleInt64Value extracts an int64 from a runtime/metrics value,
// handling both Uint64 and Float64 kinds.
func sampleInt64Value(val runtimemetrics.Value) (int64, bool) {
	switch val.Kind() {
	case runtimemetrics.KindUint64:
		u := val.Uint64()
		if u > uint64(math.MaxInt64) {
			return math.MaxInt64, true
		}

		return int64(u), true
	case runtimemetrics.KindFloat64:
		return int64(val.Float64()), true
	case runtimemetrics.KindBad, runtimemetrics.KindFloat64Histogram:
		return 0, false
	default:
		return 0, false
	}
}
