package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/benchfang/pkg/observability"
)

func newEngineMetricsFixture(t *testing.T) (*observability.EngineMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	meter, reader := manualMeter(t)

	em, err := observability.NewEngineMetrics(meter)
	require.NoError(t, err)

	return em, reader
}

func TestNewEngineMetrics(t *testing.T) {
	t.Parallel()

	em, _ := newEngineMetricsFixture(t)
	assert.NotNil(t, em)
}

func TestEngineMetrics_RecordAnalysis(t *testing.T) {
	t.Parallel()

	em, reader := newEngineMetricsFixture(t)

	em.RecordAnalysis(context.Background(), observability.EngineStats{
		Samples:          1000,
		TemporalOutliers: 12,
		DensityOutliers:  8,
		Reclassified:     3,
		Resamples:        200,
		CollectDuration:  2 * time.Second,
		FilterDuration:   50 * time.Millisecond,
		AnalyzeDuration:  300 * time.Millisecond,
	})

	snap := takeMetricSnapshot(t, reader)

	assert.Equal(t, int64(1000), snap.counterValue(t, "benchfang.engine.samples.total"))
	assert.Equal(t, int64(3), snap.counterValue(t, "benchfang.engine.reclassified.total"))
	assert.Equal(t, int64(200), snap.counterValue(t, "benchfang.engine.resamples.total"))

	// Temporal and density rejections land in separate filter series.
	outliers, ok := snap.metric(t, "benchfang.engine.outliers.total").Data.(metricdata.Sum[int64])
	require.True(t, ok, "outliers counter is not an int64 sum")
	assert.Len(t, outliers.DataPoints, 2, "outliers should split by filter attribute")
	assert.Equal(t, int64(20), snap.counterValue(t, "benchfang.engine.outliers.total"))

	phases := snap.histogram(t, "benchfang.engine.phase.duration.seconds")
	assert.Len(t, phases.DataPoints, 3, "collect, filter, and analyze phases should each record")
}

func TestEngineMetrics_RecordAnalysis_SkipsZeroPhases(t *testing.T) {
	t.Parallel()

	em, reader := newEngineMetricsFixture(t)

	// Only the collect duration is set; other phases must not record.
	em.RecordAnalysis(context.Background(), observability.EngineStats{
		Samples:         100,
		CollectDuration: time.Second,
	})

	phases := takeMetricSnapshot(t, reader).histogram(t, "benchfang.engine.phase.duration.seconds")
	assert.Len(t, phases.DataPoints, 1)
}

func TestEngineMetrics_RecordAnalysis_NilReceiver(t *testing.T) {
	t.Parallel()

	var em *observability.EngineMetrics

	// Should not panic.
	em.RecordAnalysis(context.Background(), observability.EngineStats{
		Samples:   10,
		Resamples: 200,
	})
}
