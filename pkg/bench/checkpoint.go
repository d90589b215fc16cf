package bench

import (
	"maps"

	"github.com/Sumatoshi-tech/benchfang/pkg/persist"
)

// checkpointBasename is the base filename for suite checkpoint files.
const checkpointBasename = "suite_checkpoint"

// suiteState holds the serializable progress of a partially run suite.
type suiteState struct {
	Completed map[string]Result
}

// newPersister creates a checkpoint persister for suite progress.
func newPersister() *persist.Persister[suiteState] {
	return persist.NewPersister[suiteState](
		checkpointBasename,
		persist.NewGobCodec(),
	)
}

// SaveCheckpoint writes the completed results to the given directory.
func (s *Suite) SaveCheckpoint(dir string) error {
	return newPersister().Save(dir, s.buildCheckpointState)
}

// LoadCheckpoint restores completed results from the given directory, so
// the next Run skips benchmarks that already finished.
func (s *Suite) LoadCheckpoint(dir string) error {
	return newPersister().Load(dir, s.restoreFromCheckpoint)
}

// HasCheckpoint reports whether the given directory holds saved progress.
func (s *Suite) HasCheckpoint(dir string) bool {
	return newPersister().Exists(dir)
}

// DiscardCheckpoint removes saved progress, typically once a suite has run
// to completion.
func (s *Suite) DiscardCheckpoint(dir string) error {
	return newPersister().Discard(dir)
}

// buildCheckpointState snapshots the completed results.
func (s *Suite) buildCheckpointState() *suiteState {
	state := &suiteState{Completed: make(map[string]Result, len(s.completed))}
	maps.Copy(state.Completed, s.completed)

	return state
}

// restoreFromCheckpoint replaces the completed set with the saved one.
func (s *Suite) restoreFromCheckpoint(state *suiteState) {
	s.completed = make(map[string]Result, len(state.Completed))
	maps.Copy(s.completed, state.Completed)
}
