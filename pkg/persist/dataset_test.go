package persist

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/benchfang/pkg/dist"
)

// buildDistribution freezes the given value repetitions into a distribution.
func buildDistribution(t *testing.T, pairs map[int64]uint64) *dist.Distribution {
	t.Helper()

	builder := dist.NewBuilder()

	for value, count := range pairs {
		builder.InsertN(value, count)
	}

	return builder.Build()
}

func TestNewDataset_SnapshotsBins(t *testing.T) {
	t.Parallel()

	d := buildDistribution(t, map[int64]uint64{10: 3, 20: 2, 35: 1})

	ds := NewDataset("sort_small", "ns", d)

	assert.NotEqual(t, uuid.Nil, ds.ID)
	assert.Equal(t, "sort_small", ds.Benchmark)
	assert.Equal(t, "ns", ds.Unit)
	assert.False(t, ds.CreatedAt.IsZero())

	assert.Equal(t, []int64{10, 20, 35}, ds.Values)
	assert.Equal(t, []uint64{3, 2, 1}, ds.Counts)
	assert.Equal(t, uint64(6), ds.Samples())

	// The snapshot must not consume the distribution.
	assert.Equal(t, uint64(6), d.Len())
}

func TestDataset_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dataset Dataset
		wantErr error
	}{
		{
			name:    "valid",
			dataset: Dataset{Values: []int64{1, 2, 3}, Counts: []uint64{1, 1, 1}},
			wantErr: nil,
		},
		{
			name:    "length_mismatch",
			dataset: Dataset{Values: []int64{1, 2}, Counts: []uint64{1}},
			wantErr: ErrLengthMismatch,
		},
		{
			name:    "empty",
			dataset: Dataset{},
			wantErr: ErrEmptyDataset,
		},
		{
			name:    "duplicate_value",
			dataset: Dataset{Values: []int64{5, 5}, Counts: []uint64{1, 1}},
			wantErr: ErrUnsortedValues,
		},
		{
			name:    "descending_values",
			dataset: Dataset{Values: []int64{9, 3}, Counts: []uint64{1, 1}},
			wantErr: ErrUnsortedValues,
		},
		{
			name:    "zero_count",
			dataset: Dataset{Values: []int64{1, 2}, Counts: []uint64{1, 0}},
			wantErr: ErrZeroCount,
		},
		{
			name: "benchmark_label_too_long",
			dataset: Dataset{
				Benchmark: strings.Repeat("b", maxLabelBytes+1),
				Values:    []int64{1},
				Counts:    []uint64{1},
			},
			wantErr: ErrLabelTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.dataset.Validate()

			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestDataset_Restore(t *testing.T) {
	t.Parallel()

	original := buildDistribution(t, map[int64]uint64{100: 5, 250: 3, 980: 2})
	ds := NewDataset("hash_wide", "ns", original)

	restored, err := ds.Restore()
	require.NoError(t, err)

	assert.Equal(t, original.Len(), restored.Len())
	assert.Equal(t, original.Min(), restored.Min())
	assert.Equal(t, original.Max(), restored.Max())
	assert.Equal(t, original.Quantile(0.5), restored.Quantile(0.5))
	assert.Equal(t, original.NumBins(), restored.NumBins())
}

func TestDataset_RestoreInvalid(t *testing.T) {
	t.Parallel()

	ds := &Dataset{Values: []int64{1, 2}, Counts: []uint64{1}}

	_, err := ds.Restore()

	assert.ErrorIs(t, err, ErrLengthMismatch)
}
