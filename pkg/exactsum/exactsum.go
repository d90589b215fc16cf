// Package exactsum provides exact summation of float64 values through a
// fixed-point sign-magnitude integer wide enough to represent any finite
// double without rounding.
//
// Every addend is decomposed into its IEEE-754 significand and exponent and
// merged into the accumulator word-wise, so the running sum carries no
// rounding error regardless of addition order or magnitude spread. Converting
// back to float64 performs a single correctly-rounded conversion.
package exactsum

import (
	"math"
	"math/bits"
)

// Accumulator word layout constants.
const (
	// wordBits is the number of bits per accumulator word.
	wordBits = 64

	// accumulatorWords sizes the magnitude array. Bit positions for all 2046
	// finite exponents plus a 53-bit significand span 2098 bits; 33 words
	// (2112 bits) leave 14 bits of carry headroom above the largest double.
	accumulatorWords = 33
)

// IEEE-754 binary64 field constants.
const (
	// mantissaBits is the number of explicit significand bits.
	mantissaBits = 52

	// mantissaMask extracts the explicit significand.
	mantissaMask = 1<<mantissaBits - 1

	// implicitBit is the hidden leading significand bit of normal values.
	implicitBit = 1 << mantissaBits

	// exponentMask extracts the biased exponent after shifting.
	exponentMask = 0x7FF

	// nonFiniteExponent is the biased exponent of Inf and NaN.
	nonFiniteExponent = 0x7FF

	// signBitShift is the position of the sign bit.
	signBitShift = 63

	// fixedPointBias aligns word 0 bit 0 with 2^-1074, the smallest subnormal.
	fixedPointBias = 1074
)

// Accumulator is a sign-magnitude fixed-point integer holding the exact sum
// of finite float64 values. The zero value is an empty sum ready for use.
// An Accumulator must not be shared between goroutines without external
// synchronization.
type Accumulator struct {
	words       [accumulatorWords]uint64
	highestWord int
	negative    bool
}

// Add merges a finite value into the running sum without rounding.
// Panics if value is NaN or infinite, or if the sum outgrows the word array
// (keep partial sums in range by normalizing first, e.g. divide by N before
// summing N terms).
func (acc *Accumulator) Add(value float64) {
	significand, bitPos, negative := decompose(value)
	if significand == 0 {
		return
	}

	wordIdx := bitPos / wordBits
	bitOffset := bitPos % wordBits

	// The shifted significand spans at most two adjacent words.
	lo := significand << bitOffset
	hi := significand >> (wordBits - bitOffset)

	if negative == acc.negative {
		acc.addMagnitude(lo, hi, wordIdx)

		return
	}

	if acc.compareMagnitude(lo, hi, wordIdx) >= 0 {
		acc.subMagnitude(lo, hi, wordIdx)

		return
	}

	acc.reverseSubMagnitude(lo, hi, wordIdx)
}

// Float64 returns the nearest float64 to the exact sum. The accumulator is
// not modified. Word contributions are folded lowest first, so the single
// rounding step happens at the final significand boundary and the result is
// the correctly-rounded value of the sum.
func (acc *Accumulator) Float64() float64 {
	var result float64

	for idx := 0; idx <= acc.highestWord; idx++ {
		word := acc.words[idx]
		if word == 0 {
			continue
		}

		result += math.Ldexp(float64(word), idx*wordBits-fixedPointBias)
	}

	if acc.negative {
		result = -result
	}

	return result
}

// IsZero reports whether the exact sum is zero.
func (acc *Accumulator) IsZero() bool {
	for idx := 0; idx <= acc.highestWord; idx++ {
		if acc.words[idx] != 0 {
			return false
		}
	}

	return true
}

// Reset clears the accumulator back to an empty sum, keeping the storage.
func (acc *Accumulator) Reset() {
	for idx := 0; idx <= acc.highestWord; idx++ {
		acc.words[idx] = 0
	}

	acc.highestWord = 0
	acc.negative = false
}

// decompose splits a float64 into a significand, the bit position of the
// significand's lowest bit within the fixed-point frame, and the sign.
// Subnormals share the lowest normal exponent frame and simply lack the
// implicit bit, so both kinds place uniformly.
func decompose(value float64) (significand uint64, bitPos int, negative bool) {
	valueBits := math.Float64bits(value)
	negative = valueBits>>signBitShift != 0
	rawExponent := int(valueBits >> mantissaBits & exponentMask)
	significand = valueBits & mantissaMask

	if rawExponent == nonFiniteExponent {
		panic("exactsum: cannot add a non-finite value")
	}

	if rawExponent == 0 {
		rawExponent = 1
	} else {
		significand |= implicitBit
	}

	return significand, rawExponent - 1, negative
}

// addMagnitude adds the two-word addend at wordIdx into the magnitude,
// propagating carries upward and advancing the highest-word cursor.
func (acc *Accumulator) addMagnitude(lo, hi uint64, wordIdx int) {
	var carry uint64

	acc.words[wordIdx], carry = bits.Add64(acc.words[wordIdx], lo, 0)
	acc.words[wordIdx+1], carry = bits.Add64(acc.words[wordIdx+1], hi, carry)

	top := wordIdx
	if acc.words[wordIdx+1] != 0 {
		top = wordIdx + 1
	}

	for idx := wordIdx + 2; carry != 0; idx++ {
		if idx == accumulatorWords {
			panic("exactsum: accumulator overflow, normalize inputs before summing")
		}

		acc.words[idx], carry = bits.Add64(acc.words[idx], 0, carry)
		if acc.words[idx] != 0 {
			top = idx
		}
	}

	if top > acc.highestWord {
		acc.highestWord = top
	}
}

// subMagnitude subtracts the two-word addend at wordIdx from the magnitude.
// The magnitude must be at least as large as the addend.
func (acc *Accumulator) subMagnitude(lo, hi uint64, wordIdx int) {
	var borrow uint64

	acc.words[wordIdx], borrow = bits.Sub64(acc.words[wordIdx], lo, 0)
	acc.words[wordIdx+1], borrow = bits.Sub64(acc.words[wordIdx+1], hi, borrow)

	for idx := wordIdx + 2; borrow != 0; idx++ {
		acc.words[idx], borrow = bits.Sub64(acc.words[idx], 0, borrow)
	}

	acc.trimHighestWord()
}

// reverseSubMagnitude replaces the magnitude with addend-minus-magnitude and
// flips the stored sign. The addend must be strictly larger than the
// magnitude, so no borrow can escape the addend's top word.
func (acc *Accumulator) reverseSubMagnitude(lo, hi uint64, wordIdx int) {
	var borrow uint64

	for idx := range wordIdx {
		acc.words[idx], borrow = bits.Sub64(0, acc.words[idx], borrow)
	}

	acc.words[wordIdx], borrow = bits.Sub64(lo, acc.words[wordIdx], borrow)
	acc.words[wordIdx+1], borrow = bits.Sub64(hi, acc.words[wordIdx+1], borrow)
	doAssert(borrow == 0)

	acc.negative = !acc.negative
	acc.highestWord = wordIdx + 1
	acc.trimHighestWord()
}

// compareMagnitude compares the stored magnitude against the two-word addend
// at wordIdx. Returns +1 if the magnitude is larger, -1 if smaller, 0 if equal.
func (acc *Accumulator) compareMagnitude(lo, hi uint64, wordIdx int) int {
	top := acc.highestWord
	if wordIdx+1 > top {
		top = wordIdx + 1
	}

	for idx := top; idx >= 0; idx-- {
		var addendWord uint64

		switch idx {
		case wordIdx + 1:
			addendWord = hi
		case wordIdx:
			addendWord = lo
		}

		switch {
		case acc.words[idx] > addendWord:
			return 1
		case acc.words[idx] < addendWord:
			return -1
		}
	}

	return 0
}

// trimHighestWord walks the cursor down to the highest nonzero word and
// normalizes the sign of an all-zero magnitude.
func (acc *Accumulator) trimHighestWord() {
	for acc.highestWord > 0 && acc.words[acc.highestWord] == 0 {
		acc.highestWord--
	}

	if acc.highestWord == 0 && acc.words[0] == 0 {
		acc.negative = false
	}
}

func doAssert(condition bool) {
	if !condition {
		panic("exactsum internal error")
	}
}
