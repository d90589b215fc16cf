package bench

import (
	"context"
	"regexp"

	"golang.org/x/sync/errgroup"
)

// Suite measures a set of named benchmarks with shared options.
//
// Benchmarks run in registration order when Parallel is at most one and fan
// out across goroutines otherwise, each on its own Runner so filters and
// histogram storage are never shared. Completed results can be checkpointed
// between runs; a resumed suite skips benchmarks that already finished and
// folds their saved results into the returned set.
type Suite struct {
	// Options configures the Runner of every benchmark.
	Options Options

	// Parallel is the number of benchmarks measured concurrently. Zero or
	// one means sequential. Concurrent benchmarks contend for cores, so
	// parallel runs trade sample quality for wall time.
	Parallel int

	// Filter keeps only benchmarks whose name it matches. Nil keeps all.
	Filter *regexp.Regexp

	benchmarks []Benchmark
	completed  map[string]Result
}

// NewSuite returns an empty suite whose benchmarks share opts.
func NewSuite(opts Options) *Suite {
	return &Suite{
		Options:   opts,
		completed: make(map[string]Result),
	}
}

// Register adds a benchmark to the suite. Panics on a duplicate name, since
// results and checkpoints are keyed by it.
func (s *Suite) Register(name string, fn Func) {
	for _, bm := range s.benchmarks {
		if bm.Name == name {
			panic("bench: duplicate benchmark name " + name)
		}
	}

	s.benchmarks = append(s.benchmarks, Benchmark{Name: name, Fn: fn})
}

// Len returns the number of registered benchmarks.
func (s *Suite) Len() int {
	return len(s.benchmarks)
}

// Names returns the registered benchmark names in registration order.
func (s *Suite) Names() []string {
	names := make([]string, len(s.benchmarks))
	for i, bm := range s.benchmarks {
		names[i] = bm.Name
	}

	return names
}

// Run measures every registered benchmark that passes the name filter and
// has no checkpointed result, then returns all matching results keyed by
// name. On error the completed set still holds every result gathered so
// far, so a checkpoint saved afterwards resumes cleanly.
func (s *Suite) Run(ctx context.Context) (map[string]Result, error) {
	results := make(map[string]Result)

	for name, res := range s.completed {
		if s.matches(name) {
			results[name] = res
		}
	}

	pending := s.pending()
	if len(pending) == 0 {
		return results, nil
	}

	if s.Parallel <= 1 {
		runErr := s.runSequential(ctx, pending, results)
		if runErr != nil {
			return nil, runErr
		}

		return results, nil
	}

	runErr := s.runParallel(ctx, pending, results)
	if runErr != nil {
		return nil, runErr
	}

	return results, nil
}

// runSequential measures the pending benchmarks one after another.
func (s *Suite) runSequential(ctx context.Context, pending []Benchmark, results map[string]Result) error {
	for _, bm := range pending {
		res, runErr := NewRunner(s.Options).Run(ctx, bm)
		if runErr != nil {
			return runErr
		}

		results[bm.Name] = *res
		s.completed[bm.Name] = *res
	}

	return nil
}

// runParallel fans the pending benchmarks out across Parallel goroutines.
// Results flow back through a buffered channel and are folded in on the
// calling goroutine, even when another benchmark failed.
func (s *Suite) runParallel(ctx context.Context, pending []Benchmark, results map[string]Result) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.Parallel)

	resCh := make(chan Result, len(pending))

	for _, bm := range pending {
		group.Go(func() error {
			res, runErr := NewRunner(s.Options).Run(groupCtx, bm)
			if runErr != nil {
				return runErr
			}

			resCh <- *res

			return nil
		})
	}

	waitErr := group.Wait()

	close(resCh)

	for res := range resCh {
		results[res.Benchmark] = res
		s.completed[res.Benchmark] = res
	}

	return waitErr
}

// pending returns the registered benchmarks that pass the name filter and
// have no checkpointed result yet, in registration order.
func (s *Suite) pending() []Benchmark {
	var out []Benchmark

	for _, bm := range s.benchmarks {
		if !s.matches(bm.Name) {
			continue
		}

		if _, done := s.completed[bm.Name]; done {
			continue
		}

		out = append(out, bm)
	}

	return out
}

// matches reports whether the name passes the suite filter.
func (s *Suite) matches(name string) bool {
	return s.Filter == nil || s.Filter.MatchString(name)
}
