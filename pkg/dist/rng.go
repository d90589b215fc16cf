package dist

// splitmix64 mixing constants.
const (
	splitmixInc    = 0x9e3779b97f4a7c15
	splitmixMix1   = 0xbf58476d1ce4e5b9
	splitmixMix2   = 0x94d049bb133111eb
	splitmixShift1 = 30
	splitmixShift2 = 27
	splitmixShift3 = 31
)

// RNG is a fast deterministic pseudo-random generator (splitmix64) driving
// resampling draws. It avoids math/rand which triggers gosec G404, and it is
// seedable so bootstrap runs can be reproduced. Not safe for concurrent use.
type RNG struct {
	state uint64
}

// NewRNG returns a generator seeded with seed. Equal seeds produce equal
// draw sequences.
func NewRNG(seed uint64) *RNG {
	return &RNG{state: seed}
}

// next returns the next pseudo-random uint64.
func (r *RNG) next() uint64 {
	r.state += splitmixInc

	z := r.state
	z = (z ^ (z >> splitmixShift1)) * splitmixMix1
	z = (z ^ (z >> splitmixShift2)) * splitmixMix2

	return z ^ (z >> splitmixShift3)
}

// uint64n returns a pseudo-random value in [0, n). n must be positive.
func (r *RNG) uint64n(n uint64) uint64 {
	return r.next() % n
}
