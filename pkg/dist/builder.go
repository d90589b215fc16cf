package dist

// Storage growth constants.
const (
	// growthFactor doubles bin capacity whenever insertion exhausts it,
	// keeping insert amortized O(1).
	growthFactor = 2

	// minCapacity is the first allocation size for bin storage.
	minCapacity = 4
)

// rounding selects which bin a value search resolves to when the probe value
// has no exact match.
type rounding int

const (
	// roundNearest resolves to the bin closest to the probe, breaking ties
	// toward the lower bin.
	roundNearest rounding = iota

	// roundBelow resolves to the greatest bin strictly below the probe,
	// or index -1 when none exists.
	roundBelow

	// roundAbove resolves to the smallest bin strictly above the probe,
	// or index len(bins) when none exists.
	roundAbove
)

// Builder is a sparse histogram under construction. Create one with
// NewBuilder or recycle a Distribution via Reset; the zero value is not
// usable. Build consumes the Builder.
type Builder struct {
	bins []bin
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{bins: []bin{}}
}

// Insert adds a single sample.
func (b *Builder) Insert(value int64) {
	b.InsertN(value, 1)
}

// InsertN adds count occurrences of value. Inserting zero copies is a no-op.
func (b *Builder) InsertN(value int64, count uint64) {
	b.ensureLive()

	if count == 0 {
		return
	}

	idx, found := binByValue(b.bins, value, roundAbove)
	if found {
		b.bins[idx].count += count

		return
	}

	b.insertBinAt(idx, value, count)
}

// NumBins returns the number of distinct values inserted so far.
func (b *Builder) NumBins() int {
	b.ensureLive()

	return len(b.bins)
}

// Build freezes the histogram by converting per-bin counts into cumulative
// counts in place and returns the resulting Distribution. The Builder is
// consumed and must not be used afterwards. Panics on an empty Builder.
func (b *Builder) Build() *Distribution {
	b.ensureLive()

	if len(b.bins) == 0 {
		panic("dist: cannot build an empty distribution")
	}

	for idx := 1; idx < len(b.bins); idx++ {
		b.bins[idx].count += b.bins[idx-1].count
	}

	built := &Distribution{bins: b.bins}
	b.bins = nil

	return built
}

// Reset consumes a Distribution and returns an empty Builder reusing its
// allocation. The Distribution must not be used afterwards.
func (d *Distribution) Reset() *Builder {
	d.ensureLive()

	recycled := &Builder{bins: d.bins[:0]}
	d.bins = nil

	return recycled
}

// insertBinAt places a new bin at idx, shifting later bins right and
// doubling the backing array when full.
func (b *Builder) insertBinAt(idx int, value int64, count uint64) {
	if len(b.bins) == cap(b.bins) {
		grown := make([]bin, len(b.bins)+1, max(cap(b.bins)*growthFactor, minCapacity))
		copy(grown, b.bins[:idx])
		copy(grown[idx+1:], b.bins[idx:])
		grown[idx] = bin{value: value, count: count}
		b.bins = grown

		return
	}

	b.bins = b.bins[:len(b.bins)+1]
	copy(b.bins[idx+1:], b.bins[idx:])
	b.bins[idx] = bin{value: value, count: count}
}

// appendBin adds a bin known to sort at or after the current last bin,
// merging counts on an equal value. Used by batch derivations that produce
// values in ascending order.
func (b *Builder) appendBin(value int64, count uint64) {
	if last := len(b.bins) - 1; last >= 0 && b.bins[last].value == value {
		b.bins[last].count += count

		return
	}

	doAssert(len(b.bins) == 0 || b.bins[len(b.bins)-1].value < value)
	b.insertBinAt(len(b.bins), value, count)
}

func (b *Builder) ensureLive() {
	if b.bins == nil {
		panic("dist: consumed builders cannot be used")
	}
}

// binByValue locates the bin for probe under the given rounding policy.
// An exact match returns that bin with found set regardless of policy.
// Otherwise the policy picks a neighbor, with sentinel indexes -1 and
// len(bins) at the extremes as documented on the rounding constants.
func binByValue(bins []bin, probe int64, policy rounding) (idx int, found bool) {
	lo, hi := 0, len(bins)

	for lo < hi {
		mid := (lo + hi) / 2

		if bins[mid].value < probe {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	if lo < len(bins) && bins[lo].value == probe {
		return lo, true
	}

	switch policy {
	case roundAbove:
		return lo, false
	case roundBelow:
		return lo - 1, false
	default:
	}

	switch {
	case lo == 0:
		return 0, false
	case lo == len(bins):
		return len(bins) - 1, false
	case distance(probe, bins[lo].value) < distance(bins[lo-1].value, probe):
		return lo, false
	default:
		return lo - 1, false
	}
}

// distance returns the gap between two ordered int64 values. Two's
// complement subtraction keeps the result exact even when the signed
// difference would overflow.
func distance(low, high int64) uint64 {
	return uint64(high) - uint64(low)
}

func doAssert(condition bool) {
	if !condition {
		panic("dist internal error")
	}
}
