package dist

import "math"

// Resample draws a same-size bootstrap resample of src with replacement and
// returns it built. The receiver must be an empty Builder and is consumed.
// Draws are rank-uniform, so each sample occurrence is equally likely; the
// result is identical in distribution to repeatedly inserting src.Choose,
// but bins are batch-appended in one ascending pass.
func (b *Builder) Resample(rng *RNG, src *Distribution) *Distribution {
	b.ensureEmpty()
	src.ensureLive()

	total := src.Len()
	counts := make([]uint64, len(src.bins))

	for range total {
		counts[src.binByRank(rng.uint64n(total))]++
	}

	for idx, count := range counts {
		if count != 0 {
			b.appendBin(src.bins[idx].value, count)
		}
	}

	return b.Build()
}

// Scale multiplies every sample of src by factor, rounding to the nearest
// integer, and returns the scaled distribution. The receiver must be an
// empty Builder and is consumed. Scaled values must stay within int64 range.
func (b *Builder) Scale(src *Distribution, factor float64) *Distribution {
	b.ensureEmpty()
	src.ensureLive()

	scaled := func(idx int) int64 {
		return int64(math.Round(float64(src.bins[idx].value) * factor))
	}

	// A negative factor reverses the value order, so walk the source
	// backwards to keep appends ascending.
	if factor < 0 {
		for idx := len(src.bins) - 1; idx >= 0; idx-- {
			b.appendBin(scaled(idx), src.BinCount(idx))
		}
	} else {
		for idx := range src.bins {
			b.appendBin(scaled(idx), src.BinCount(idx))
		}
	}

	return b.Build()
}

// Sub pairs random samples of minuend and subtrahend and collects their
// differences, drawing as many pairs as the smaller input holds. The
// receiver must be an empty Builder and is consumed.
func (b *Builder) Sub(rng *RNG, minuend, subtrahend *Distribution) *Distribution {
	b.ensureEmpty()
	minuend.ensureLive()
	subtrahend.ensureLive()

	pairs := min(minuend.Len(), subtrahend.Len())

	for range pairs {
		b.Insert(minuend.Choose(rng) - subtrahend.Choose(rng))
	}

	return b.Build()
}

// ScaledDiv pairs random samples of numerator and denominator and collects
// their ratios multiplied by scale and rounded to the nearest integer,
// drawing as many pairs as the smaller input holds. Pairs with a zero
// denominator sample are skipped; panics if every pair is skipped. The
// receiver must be an empty Builder and is consumed.
func (b *Builder) ScaledDiv(rng *RNG, numerator, denominator *Distribution, scale float64) *Distribution {
	b.ensureEmpty()
	numerator.ensureLive()
	denominator.ensureLive()

	pairs := min(numerator.Len(), denominator.Len())

	for range pairs {
		num := numerator.Choose(rng)

		den := denominator.Choose(rng)
		if den == 0 {
			continue
		}

		b.Insert(int64(math.Round(scale * float64(num) / float64(den))))
	}

	if len(b.bins) == 0 {
		panic("dist: scaled ratios require a nonzero denominator sample")
	}

	return b.Build()
}

// ensureEmpty panics unless the Builder is live and has no bins yet.
func (b *Builder) ensureEmpty() {
	b.ensureLive()

	if len(b.bins) != 0 {
		panic("dist: derived distributions require an empty builder")
	}
}
