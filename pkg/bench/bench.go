// Package bench measures code under test and feeds the timings through the
// benchfang analysis pipeline.
//
// A Runner measures one benchmark: untimed warmup, timed collection under
// iteration and wall-clock budgets, then an Engine that routes the raw
// durations through the temporal filter, builds a histogram, rejects
// low-density bins, and bootstrap-analyzes what remains. A Suite bundles
// named benchmarks behind a name filter, fans them out across goroutines,
// and checkpoints completed results between runs.
//
// Runners and Engines are not safe for concurrent use; the Suite gives every
// benchmark its own.
package bench

import (
	"time"
)

// Collection defaults.
const (
	// DefaultSamples is the timed iteration count used when callers have no
	// reason to pick another.
	DefaultSamples = 1000

	// DefaultWarmup is the untimed iteration count run before collection.
	DefaultWarmup = 50
)

// Func is a benchmark body. The runner times one call per sample; bodies
// with setup or teardown exclude it through the timer controls on B.
type Func func(*B)

// Benchmark pairs a name with the function to measure.
type Benchmark struct {
	Name string
	Fn   Func
}

// B carries timer control into a benchmark function. The runner measures
// the wall time of each call; only the stretches where the timer runs count
// toward the sample.
type B struct {
	start   time.Time
	elapsed time.Duration
	timing  bool
}

// StartTimer resumes timing after StopTimer. The runner starts the timer
// before every call, so bodies without setup never need it.
func (b *B) StartTimer() {
	if b.timing {
		return
	}

	b.start = time.Now()
	b.timing = true
}

// StopTimer pauses timing around setup or teardown work.
func (b *B) StopTimer() {
	if !b.timing {
		return
	}

	b.elapsed += time.Since(b.start)
	b.timing = false
}

// ResetTimer discards the time measured so far in this call.
func (b *B) ResetTimer() {
	b.elapsed = 0

	if b.timing {
		b.start = time.Now()
	}
}

// measure runs fn once with a running timer and returns the timed duration
// in nanoseconds.
func (b *B) measure(fn Func) int64 {
	b.elapsed = 0
	b.start = time.Now()
	b.timing = true

	fn(b)

	b.StopTimer()

	return b.elapsed.Nanoseconds()
}
