package exactsum

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value float64
	}{
		{name: "one", value: 1.0},
		{name: "negative_one", value: -1.0},
		{name: "half", value: 0.5},
		{name: "tenth", value: 0.1},
		{name: "pi", value: math.Pi},
		{name: "large", value: 1.75e300},
		{name: "negative_large", value: -2.5e307},
		{name: "max_float", value: math.MaxFloat64},
		{name: "tiny_normal", value: 3.0e-300},
		{name: "smallest_subnormal", value: math.SmallestNonzeroFloat64},
		{name: "mid_subnormal", value: 4.2e-310},
		{name: "zero", value: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var acc Accumulator

			acc.Add(tt.value)
			assert.Equal(t, tt.value, acc.Float64())
		})
	}
}

func TestAddCancellation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value float64
	}{
		{name: "unit", value: 1.0},
		{name: "fraction", value: 0.1},
		{name: "max_float", value: math.MaxFloat64},
		{name: "subnormal", value: math.SmallestNonzeroFloat64},
		{name: "irrational", value: math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var acc Accumulator

			acc.Add(tt.value)
			acc.Add(-tt.value)

			assert.True(t, acc.IsZero())
			assert.Equal(t, 0.0, acc.Float64())
		})
	}
}

func TestTenTenthsSumToOne(t *testing.T) {
	t.Parallel()

	var acc Accumulator

	var naive float64

	for range 10 {
		acc.Add(0.1)

		naive += 0.1
	}

	// The exact sum of ten binary 0.1 representations rounds to exactly 1.0,
	// which sequential float64 addition famously misses.
	assert.Equal(t, 1.0, acc.Float64())
	assert.NotEqual(t, 1.0, naive)
}

func TestLargeSmallCancellation(t *testing.T) {
	t.Parallel()

	var acc Accumulator

	acc.Add(1.0e100)
	acc.Add(1.0)
	acc.Add(-1.0e100)

	// Naive float64 arithmetic absorbs the 1.0 entirely.
	assert.Equal(t, 1.0, acc.Float64())
}

func TestOrderIndependence(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(0))
	values := make([]float64, 500)

	for i := range values {
		values[i] = (rng.Float64() - 0.5) * math.Pow(10, float64(rng.Intn(40)-20))
	}

	var forward Accumulator

	for _, v := range values {
		forward.Add(v)
	}

	var backward Accumulator

	for i := len(values) - 1; i >= 0; i-- {
		backward.Add(values[i])
	}

	var shuffled Accumulator

	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	for _, v := range values {
		shuffled.Add(v)
	}

	assert.Equal(t, forward.Float64(), backward.Float64())
	assert.Equal(t, forward.Float64(), shuffled.Float64())
}

func TestMatchesBigFloatOracle(t *testing.T) {
	t.Parallel()

	// 2200 bits cover the full fixed-point frame, making big.Float exact here.
	const oraclePrecision = 2200

	rng := rand.New(rand.NewSource(1))

	var acc Accumulator

	oracle := new(big.Float).SetPrec(oraclePrecision)

	var naive float64

	for range 1000 {
		v := (rng.Float64() - 0.5) * 1e6

		acc.Add(v)
		oracle.Add(oracle, new(big.Float).SetPrec(oraclePrecision).SetFloat64(v))

		naive += v
	}

	exact, _ := oracle.Float64()
	ulp := math.Nextafter(exact, math.Inf(1)) - exact

	assert.LessOrEqual(t, math.Abs(acc.Float64()-exact), ulp)
	assert.LessOrEqual(t, math.Abs(acc.Float64()-exact), math.Abs(naive-exact))
}

func TestSignFlip(t *testing.T) {
	t.Parallel()

	var acc Accumulator

	acc.Add(1.0)
	acc.Add(-3.0)
	assert.Equal(t, -2.0, acc.Float64())

	acc.Add(5.0)
	assert.Equal(t, 3.0, acc.Float64())

	acc.Add(-3.0)
	assert.True(t, acc.IsZero())
}

func TestSubnormalAccumulation(t *testing.T) {
	t.Parallel()

	var acc Accumulator

	for range 4 {
		acc.Add(math.SmallestNonzeroFloat64)
	}

	assert.Equal(t, 4*math.SmallestNonzeroFloat64, acc.Float64())
}

func TestReset(t *testing.T) {
	t.Parallel()

	var acc Accumulator

	acc.Add(-42.5)
	require.False(t, acc.IsZero())

	acc.Reset()
	assert.True(t, acc.IsZero())
	assert.Equal(t, 0.0, acc.Float64())

	acc.Add(7.25)
	assert.Equal(t, 7.25, acc.Float64())
}

func TestNonFinitePanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value float64
	}{
		{name: "positive_inf", value: math.Inf(1)},
		{name: "negative_inf", value: math.Inf(-1)},
		{name: "nan", value: math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var acc Accumulator

			assert.Panics(t, func() {
				acc.Add(tt.value)
			})
		})
	}
}

func TestOverflowPanics(t *testing.T) {
	t.Parallel()

	var acc Accumulator

	// The headroom above the largest double absorbs roughly 2^14 max-magnitude
	// additions before carry propagation escapes the word array.
	require.Panics(t, func() {
		for range 1 << 15 {
			acc.Add(math.MaxFloat64)
		}
	})
}
