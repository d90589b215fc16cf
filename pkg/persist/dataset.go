package persist

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
)

// Dataset validation errors.
var (
	// ErrEmptyDataset reports a dataset with no bins.
	ErrEmptyDataset = errors.New("persist: dataset has no bins")

	// ErrLengthMismatch reports value and count slices of different lengths.
	ErrLengthMismatch = errors.New("persist: dataset values and counts differ in length")

	// ErrUnsortedValues reports values out of strictly increasing order.
	ErrUnsortedValues = errors.New("persist: dataset values are not strictly increasing")

	// ErrZeroCount reports a bin with a zero occurrence count.
	ErrZeroCount = errors.New("persist: dataset bin has a zero count")

	// ErrLabelTooLong reports a benchmark or unit label beyond the storable
	// size.
	ErrLabelTooLong = errors.New("persist: dataset label is too long")
)

// Dataset is a saveable snapshot of one benchmark's sample distribution
// together with the metadata identifying the run that produced it.
type Dataset struct {
	// ID identifies the run that produced the samples.
	ID uuid.UUID `json:"id"`

	// Benchmark is the name of the benchmark the samples belong to.
	Benchmark string `json:"benchmark"`

	// Unit is the unit of the sample values, normally "ns".
	Unit string `json:"unit"`

	// CreatedAt is the UTC time the snapshot was taken.
	CreatedAt time.Time `json:"created_at"`

	// Values holds the distinct sample values in strictly increasing order.
	Values []int64 `json:"values"`

	// Counts holds the per-value occurrence counts; Counts[i] belongs to
	// Values[i] and is never zero.
	Counts []uint64 `json:"counts"`
}

// NewDataset snapshots d into a Dataset with a fresh run ID. The snapshot
// copies the bins, so d stays usable afterwards.
func NewDataset(benchmark, unit string, d *dist.Distribution) *Dataset {
	numBins := d.NumBins()

	ds := &Dataset{
		ID:        uuid.New(),
		Benchmark: benchmark,
		Unit:      unit,
		CreatedAt: time.Now().UTC(),
		Values:    make([]int64, numBins),
		Counts:    make([]uint64, numBins),
	}

	for idx := range numBins {
		ds.Values[idx] = d.BinValue(idx)
		ds.Counts[idx] = d.BinCount(idx)
	}

	return ds
}

// Samples returns the total number of samples across all bins.
func (ds *Dataset) Samples() uint64 {
	var total uint64

	for _, count := range ds.Counts {
		total += count
	}

	return total
}

// Validate checks the structural invariants of the dataset.
func (ds *Dataset) Validate() error {
	if len(ds.Benchmark) > maxLabelBytes || len(ds.Unit) > maxLabelBytes {
		return ErrLabelTooLong
	}

	if len(ds.Values) != len(ds.Counts) {
		return ErrLengthMismatch
	}

	if len(ds.Values) == 0 {
		return ErrEmptyDataset
	}

	for idx := range ds.Values {
		if idx > 0 && ds.Values[idx] <= ds.Values[idx-1] {
			return ErrUnsortedValues
		}

		if ds.Counts[idx] == 0 {
			return ErrZeroCount
		}
	}

	return nil
}

// Restore rebuilds the sample distribution captured by the dataset.
func (ds *Dataset) Restore() (*dist.Distribution, error) {
	err := ds.Validate()
	if err != nil {
		return nil, err
	}

	builder := dist.NewBuilder()

	for idx, value := range ds.Values {
		builder.InsertN(value, ds.Counts[idx])
	}

	return builder.Build(), nil
}
