package persist

import (
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/benchfang/pkg/bootstrap"
)

// runSchemaFile is the filename of the embedded run export schema.
const runSchemaFile = "run-schema.json"

//go:embed run-schema.json
var runSchemaFS embed.FS

// RunSchemaVersion is the export layout version written by this package.
const RunSchemaVersion = 1

// EstimateExport is the JSON form of one statistic estimate.
type EstimateExport struct {
	// Sample is the statistic measured on the input distribution.
	Sample float64 `json:"sample"`

	// Center is the bootstrap median of the statistic.
	Center float64 `json:"center"`

	// Low and High bound the confidence interval.
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// OutlierExport summarizes the filtering that preceded an analysis.
type OutlierExport struct {
	// Temporal is the number of samples the temporal filter withheld.
	Temporal int64 `json:"temporal"`

	// Density is the number of samples the density filter rejected.
	Density int64 `json:"density"`

	// Reclassified is the number of retroactive reclassifications.
	Reclassified int64 `json:"reclassified"`
}

// RunExport is the JSON document produced when a run is exported. Its layout
// is frozen by the embedded schema, and `benchfang validate` checks
// documents against it.
type RunExport struct {
	// SchemaVersion is the export layout version.
	SchemaVersion int `json:"schema_version"`

	// ID identifies the run, shared with the saved dataset when one exists.
	ID string `json:"id"`

	// Benchmark is the benchmark name.
	Benchmark string `json:"benchmark"`

	// Unit is the unit of the sample values, normally "ns".
	Unit string `json:"unit"`

	// CreatedAt is the UTC time the export was produced.
	CreatedAt time.Time `json:"created_at"`

	// Samples is the analyzed sample count after filtering.
	Samples uint64 `json:"samples"`

	// Min and Max are the extreme analyzed values.
	Min int64 `json:"min"`
	Max int64 `json:"max"`

	// Confidence is the two-sided confidence level of the intervals.
	Confidence float64 `json:"confidence"`

	// Resamples is the number of bootstrap rounds behind the intervals.
	Resamples int `json:"resamples"`

	// Outliers summarizes the filtering that preceded the analysis.
	Outliers OutlierExport `json:"outliers"`

	// Mean is the arithmetic mean estimate.
	Mean EstimateExport `json:"mean"`

	// LowTail and HighTail are the 1st and 99th percentile estimates.
	LowTail  EstimateExport `json:"low_tail"`
	HighTail EstimateExport `json:"high_tail"`

	// CenterStart, CenterEnd, and CenterWidth describe the central 90% of
	// the samples.
	CenterStart EstimateExport `json:"center_start"`
	CenterEnd   EstimateExport `json:"center_end"`
	CenterWidth EstimateExport `json:"center_width"`
}

// NewRunExport maps an analysis report into the export document layout.
func NewRunExport(id uuid.UUID, benchmark, unit string, resamples int, report bootstrap.Report, outliers OutlierExport) *RunExport {
	return &RunExport{
		SchemaVersion: RunSchemaVersion,
		ID:            id.String(),
		Benchmark:     benchmark,
		Unit:          unit,
		CreatedAt:     time.Now().UTC(),
		Samples:       report.Samples,
		Min:           report.Min,
		Max:           report.Max,
		Confidence:    report.Confidence,
		Resamples:     resamples,
		Outliers:      outliers,
		Mean:          exportEstimate(report.Mean),
		LowTail:       exportEstimate(report.LowTail),
		HighTail:      exportEstimate(report.HighTail),
		CenterStart:   exportEstimate(report.CenterStart),
		CenterEnd:     exportEstimate(report.CenterEnd),
		CenterWidth:   exportEstimate(report.CenterWidth),
	}
}

// exportEstimate converts one estimate to its JSON form.
func exportEstimate(e bootstrap.Estimate) EstimateExport {
	return EstimateExport{
		Sample: e.Sample,
		Center: e.Center,
		Low:    e.Low,
		High:   e.High,
	}
}

// RunSchema returns the embedded JSON schema for exported runs.
func RunSchema() ([]byte, error) {
	data, err := runSchemaFS.ReadFile(runSchemaFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded run schema: %w", err)
	}

	return data, nil
}
