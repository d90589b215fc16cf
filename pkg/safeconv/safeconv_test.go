package safeconv

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeInt(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   uint64
		want int
	}{
		"zero":              {in: 0, want: 0},
		"small":             {in: 42, want: 42},
		"max_int_exact":     {in: uint64(MaxInt), want: MaxInt},
		"one_past_clamps":   {in: uint64(MaxInt) + 1, want: MaxInt},
		"max_uint64_clamps": {in: math.MaxUint64, want: MaxInt},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, SafeInt(tc.in))
		})
	}
}

func TestSafeInt64(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   uint64
		want int64
	}{
		"zero":              {in: 0, want: 0},
		"small":             {in: 42, want: 42},
		"max_int64_exact":   {in: math.MaxInt64, want: math.MaxInt64},
		"one_past_clamps":   {in: uint64(math.MaxInt64) + 1, want: math.MaxInt64},
		"max_uint64_clamps": {in: math.MaxUint64, want: math.MaxInt64},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, SafeInt64(tc.in))
		})
	}
}

func TestMustUintToInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, MustUintToInt(0))
	assert.Equal(t, MaxInt, MustUintToInt(uint(MaxInt)))

	over := uint(MaxInt) + 1
	assert.PanicsWithValue(t,
		fmt.Sprintf("safeconv: uint %d overflows int", over),
		func() { MustUintToInt(over) })
}

func TestMustIntToUint32(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint32(0), MustIntToUint32(0))
	assert.Equal(t, uint32(math.MaxUint32), MustIntToUint32(math.MaxUint32))

	assert.PanicsWithValue(t,
		"safeconv: int -1 outside uint32 range",
		func() { MustIntToUint32(-1) })
	assert.PanicsWithValue(t,
		fmt.Sprintf("safeconv: int %d outside uint32 range", uint64(math.MaxUint32)+1),
		func() { MustIntToUint32(math.MaxUint32 + 1) })
}
