package bench_test

import (
	"context"
	"regexp"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/benchfang/pkg/bench"
)

// suiteOptions keeps suite tests fast: few samples, no warmup.
func suiteOptions() bench.Options {
	return bench.Options{
		Samples: 20,
		Warmup:  -1,
		Engine:  bench.EngineOptions{Seed: testSeed},
	}
}

// atomicFunc returns a goroutine-safe benchmark body and its call counter.
func atomicFunc() (bench.Func, *atomic.Int64) {
	var calls atomic.Int64

	return func(_ *bench.B) {
		calls.Add(1)
	}, &calls
}

func TestSuite_RegisterDuplicatePanics(t *testing.T) {
	t.Parallel()

	s := bench.NewSuite(suiteOptions())

	fn, _ := atomicFunc()
	s.Register("twice", fn)

	require.Panics(t, func() {
		s.Register("twice", fn)
	})
}

func TestSuite_NamesAndLen(t *testing.T) {
	t.Parallel()

	s := bench.NewSuite(suiteOptions())

	fn, _ := atomicFunc()
	s.Register("alpha", fn)
	s.Register("beta", fn)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"alpha", "beta"}, s.Names())
}

func TestSuite_RunEmpty(t *testing.T) {
	t.Parallel()

	s := bench.NewSuite(suiteOptions())

	results, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSuite_RunSequential(t *testing.T) {
	t.Parallel()

	s := bench.NewSuite(suiteOptions())

	first, firstCalls := atomicFunc()
	second, secondCalls := atomicFunc()

	s.Register("first", first)
	s.Register("second", second)

	results, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "first", results["first"].Benchmark)
	assert.Equal(t, "second", results["second"].Benchmark)
	assert.Equal(t, int64(20), firstCalls.Load())
	assert.Equal(t, int64(20), secondCalls.Load())
}

func TestSuite_RunFiltered(t *testing.T) {
	t.Parallel()

	s := bench.NewSuite(suiteOptions())
	s.Filter = regexp.MustCompile(`^sort_`)

	kept, keptCalls := atomicFunc()
	dropped, droppedCalls := atomicFunc()

	s.Register("sort_small", kept)
	s.Register("hash_large", dropped)

	results, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Contains(t, results, "sort_small")
	assert.Positive(t, keptCalls.Load())
	assert.Zero(t, droppedCalls.Load())
}

func TestSuite_RunParallel(t *testing.T) {
	t.Parallel()

	s := bench.NewSuite(suiteOptions())
	s.Parallel = 2

	names := []string{"p1", "p2", "p3", "p4"}
	counters := make([]*atomic.Int64, len(names))

	for i, name := range names {
		fn, calls := atomicFunc()
		counters[i] = calls
		s.Register(name, fn)
	}

	results, err := s.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, len(names))

	for i, name := range names {
		assert.Contains(t, results, name)
		assert.Equal(t, int64(20), counters[i].Load())
	}
}

func TestSuite_RunCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := bench.NewSuite(suiteOptions())

	fn, _ := atomicFunc()
	s.Register("aborted", fn)

	_, err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestSuite_CheckpointRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	s := bench.NewSuite(suiteOptions())

	fn, calls := atomicFunc()
	s.Register("persisted", fn)

	firstResults, runErr := s.Run(context.Background())
	require.NoError(t, runErr)
	require.NoError(t, s.SaveCheckpoint(dir))

	callsAfterFirst := calls.Load()

	resumed := bench.NewSuite(suiteOptions())
	resumed.Register("persisted", fn)
	require.NoError(t, resumed.LoadCheckpoint(dir))

	secondResults, resumeErr := resumed.Run(context.Background())
	require.NoError(t, resumeErr)

	// The completed benchmark is not measured again; its saved result is
	// returned instead.
	assert.Equal(t, callsAfterFirst, calls.Load())
	assert.Equal(t, firstResults["persisted"].Report, secondResults["persisted"].Report)
	assert.Equal(t, firstResults["persisted"].Samples, secondResults["persisted"].Samples)
}

func TestSuite_CheckpointResumesPartialRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	s := bench.NewSuite(suiteOptions())

	done, doneCalls := atomicFunc()
	s.Register("done", done)

	_, runErr := s.Run(context.Background())
	require.NoError(t, runErr)
	require.NoError(t, s.SaveCheckpoint(dir))

	resumed := bench.NewSuite(suiteOptions())

	fresh, freshCalls := atomicFunc()
	resumed.Register("done", done)
	resumed.Register("fresh", fresh)
	require.NoError(t, resumed.LoadCheckpoint(dir))

	results, resumeErr := resumed.Run(context.Background())
	require.NoError(t, resumeErr)

	require.Len(t, results, 2)
	assert.Equal(t, int64(20), doneCalls.Load())
	assert.Equal(t, int64(20), freshCalls.Load())
}

func TestSuite_LoadCheckpointMissing(t *testing.T) {
	t.Parallel()

	s := bench.NewSuite(suiteOptions())

	err := s.LoadCheckpoint(t.TempDir())
	require.Error(t, err)
}

func TestSuite_CheckpointLifecycle(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	s := bench.NewSuite(suiteOptions())

	fn, _ := atomicFunc()
	s.Register("cleanup", fn)

	assert.False(t, s.HasCheckpoint(dir))

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, s.SaveCheckpoint(dir))
	assert.True(t, s.HasCheckpoint(dir))

	require.NoError(t, s.DiscardCheckpoint(dir))
	assert.False(t, s.HasCheckpoint(dir))

	// A second discard of the clean directory stays quiet.
	require.NoError(t, s.DiscardCheckpoint(dir))
}
