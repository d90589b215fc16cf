package dist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResample(t *testing.T) {
	t.Parallel()

	t.Run("same_size_subset_values", func(t *testing.T) {
		t.Parallel()

		src := buildFrom(t, 1, 2, 2, 3, 3, 3, 10)
		resampled := NewBuilder().Resample(NewRNG(7), src)

		require.Equal(t, src.Len(), resampled.Len())

		for rank := uint64(0); rank < resampled.Len(); rank++ {
			v := resampled.Nth(rank)
			assert.GreaterOrEqual(t, v, src.Min())
			assert.LessOrEqual(t, v, src.Max())
			assert.Positive(t, src.CountBelow(v, true)-src.CountBelow(v, false))
		}
	})

	t.Run("deterministic_per_seed", func(t *testing.T) {
		t.Parallel()

		src := buildFrom(t, 5, 6, 7, 8, 9, 10, 11, 12)

		first := NewBuilder().Resample(NewRNG(42), src)
		second := NewBuilder().Resample(NewRNG(42), src)

		require.Equal(t, first.Len(), second.Len())

		for rank := uint64(0); rank < first.Len(); rank++ {
			assert.Equal(t, first.Nth(rank), second.Nth(rank))
		}
	})

	t.Run("single_bin_source", func(t *testing.T) {
		t.Parallel()

		src := buildFrom(t, 4, 4, 4)
		resampled := NewBuilder().Resample(NewRNG(1), src)

		assert.Equal(t, uint64(3), resampled.Len())
		assert.Equal(t, int64(4), resampled.Min())
		assert.Equal(t, int64(4), resampled.Max())
	})

	t.Run("nonempty_builder_panics", func(t *testing.T) {
		t.Parallel()

		src := buildFrom(t, 1)
		dirty := NewBuilder()
		dirty.Insert(9)

		assert.Panics(t, func() {
			dirty.Resample(NewRNG(0), src)
		})
	})
}

func TestScale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  []int64
		factor float64
		want   []int64
	}{
		{name: "double", input: []int64{1, 2, 3}, factor: 2.0, want: []int64{2, 4, 6}},
		{name: "halve_rounds_half_away", input: []int64{1, 3, 5}, factor: 0.5, want: []int64{1, 2, 3}},
		{name: "negative_reverses", input: []int64{1, 2, 3}, factor: -1.0, want: []int64{-3, -2, -1}},
		{name: "collision_merges", input: []int64{1, 2}, factor: 0.1, want: []int64{0, 0}},
		{name: "zero_collapses", input: []int64{10, 20, 30}, factor: 0, want: []int64{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := buildFrom(t, tt.input...)
			scaled := NewBuilder().Scale(src, tt.factor)

			require.Equal(t, uint64(len(tt.want)), scaled.Len())

			for rank, want := range tt.want {
				assert.Equal(t, want, scaled.Nth(uint64(rank)))
			}
		})
	}
}

func TestSub(t *testing.T) {
	t.Parallel()

	t.Run("degenerate_sources_fixed_difference", func(t *testing.T) {
		t.Parallel()

		minuend := buildFrom(t, 50, 50, 50, 50)
		subtrahend := buildFrom(t, 20, 20)

		diff := NewBuilder().Sub(NewRNG(3), minuend, subtrahend)

		assert.Equal(t, uint64(2), diff.Len())
		assert.Equal(t, int64(30), diff.Min())
		assert.Equal(t, int64(30), diff.Max())
	})

	t.Run("differences_within_bounds", func(t *testing.T) {
		t.Parallel()

		minuend := buildFrom(t, 10, 20, 30)
		subtrahend := buildFrom(t, 1, 2, 3)

		diff := NewBuilder().Sub(NewRNG(11), minuend, subtrahend)

		require.Equal(t, uint64(3), diff.Len())
		assert.GreaterOrEqual(t, diff.Min(), int64(10-3))
		assert.LessOrEqual(t, diff.Max(), int64(30-1))
	})
}

func TestScaledDiv(t *testing.T) {
	t.Parallel()

	t.Run("degenerate_sources_fixed_ratio", func(t *testing.T) {
		t.Parallel()

		numerator := buildFrom(t, 10, 10)
		denominator := buildFrom(t, 4, 4, 4)

		ratio := NewBuilder().ScaledDiv(NewRNG(5), numerator, denominator, 100)

		assert.Equal(t, uint64(2), ratio.Len())
		assert.Equal(t, int64(250), ratio.Min())
		assert.Equal(t, int64(250), ratio.Max())
	})

	t.Run("zero_denominator_pairs_skipped", func(t *testing.T) {
		t.Parallel()

		numerator := buildFrom(t, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8, 8)
		denominator := buildFrom(t, 0, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2)

		ratio := NewBuilder().ScaledDiv(NewRNG(9), numerator, denominator, 10)

		assert.LessOrEqual(t, ratio.Len(), uint64(12))
		assert.Equal(t, int64(40), ratio.Min())
		assert.Equal(t, int64(40), ratio.Max())
	})

	t.Run("all_zero_denominator_panics", func(t *testing.T) {
		t.Parallel()

		numerator := buildFrom(t, 1)
		denominator := buildFrom(t, 0, 0)

		assert.Panics(t, func() {
			NewBuilder().ScaledDiv(NewRNG(0), numerator, denominator, 1)
		})
	})
}

func TestPool(t *testing.T) {
	t.Parallel()

	t.Run("get_from_empty_allocates", func(t *testing.T) {
		t.Parallel()

		pool := NewPool()
		assert.Equal(t, 0, pool.Size())

		builder := pool.Get()
		assert.Equal(t, 0, builder.NumBins())
	})

	t.Run("lifo_reuse", func(t *testing.T) {
		t.Parallel()

		pool := NewPool()

		first := NewBuilder()
		first.Insert(1)

		second := NewBuilder()

		pool.Put(first)
		pool.Put(second)
		require.Equal(t, 2, pool.Size())

		assert.Same(t, second, pool.Get())
		assert.Same(t, first, pool.Get())
		assert.Equal(t, 0, pool.Size())
	})

	t.Run("put_clears_bins_keeps_capacity", func(t *testing.T) {
		t.Parallel()

		pool := NewPool()

		builder := NewBuilder()
		for v := range int64(50) {
			builder.Insert(v)
		}

		grownCap := cap(builder.bins)
		pool.Put(builder)

		recycled := pool.Get()
		assert.Equal(t, 0, recycled.NumBins())
		assert.Equal(t, grownCap, cap(recycled.bins))
	})

	t.Run("put_distribution_recycles_storage", func(t *testing.T) {
		t.Parallel()

		pool := NewPool()
		built := buildFrom(t, 1, 2, 3)

		pool.PutDistribution(built)
		assert.Equal(t, 1, pool.Size())

		assert.Panics(t, func() {
			built.Len()
		})
	})
}

func TestRecyclable(t *testing.T) {
	t.Parallel()

	t.Run("starts_with_builder_no_stored", func(t *testing.T) {
		t.Parallel()

		recyclable := NewRecyclable()
		assert.Nil(t, recyclable.Stored())

		builder := recyclable.TakeBuilder()
		assert.Equal(t, 0, builder.NumBins())
	})

	t.Run("store_then_take_recycles_allocation", func(t *testing.T) {
		t.Parallel()

		recyclable := NewRecyclable()

		builder := recyclable.TakeBuilder()
		for v := range int64(40) {
			builder.Insert(v)
		}

		grownCap := cap(builder.bins)
		recyclable.Store(builder.Build())
		require.NotNil(t, recyclable.Stored())
		assert.Equal(t, uint64(40), recyclable.Stored().Len())

		recycled := recyclable.TakeBuilder()
		assert.Equal(t, 0, recycled.NumBins())
		assert.Equal(t, grownCap, cap(recycled.bins))
		assert.Nil(t, recyclable.Stored())
	})

	t.Run("store_builder_leaves_stored_absent", func(t *testing.T) {
		t.Parallel()

		recyclable := NewRecyclable()

		builder := recyclable.TakeBuilder()
		recyclable.StoreBuilder(builder)

		assert.Nil(t, recyclable.Stored())
		assert.Same(t, builder, recyclable.TakeBuilder())
	})
}
