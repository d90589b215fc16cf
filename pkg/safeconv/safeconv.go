// Package safeconv converts between integer widths without silent
// truncation. Must variants panic when the value cannot be represented;
// Safe variants clamp to the target's maximum.
package safeconv

import (
	"fmt"
	"math"
)

// MaxInt is the largest value an int holds on this platform.
const MaxInt = int(^uint(0) >> 1)

// SafeInt converts uint64 to int, clamping at MaxInt.
func SafeInt(v uint64) int {
	if v > uint64(MaxInt) {
		return MaxInt
	}

	return int(v)
}

// SafeInt64 converts uint64 to int64, clamping at math.MaxInt64.
func SafeInt64(v uint64) int64 {
	if v > uint64(math.MaxInt64) {
		return math.MaxInt64
	}

	return int64(v)
}

// MustUintToInt converts uint to int. It panics on overflow, so callers
// reserve it for values they already bound.
func MustUintToInt(v uint) int {
	if v > uint(MaxInt) {
		panic(fmt.Sprintf("safeconv: uint %d overflows int", v))
	}

	return int(v)
}

// MustIntToUint32 converts int to uint32, panicking when v is negative or
// too wide for 32 bits.
func MustIntToUint32(v int) uint32 {
	if v < 0 || uint64(v) > math.MaxUint32 {
		panic(fmt.Sprintf("safeconv: int %d outside uint32 range", v))
	}

	return uint32(v)
}
