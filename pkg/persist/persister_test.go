package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkpointState is a struct for persister round-trip testing, shaped like
// a suite checkpoint.
type checkpointState struct {
	Completed []string `json:"completed"`
	Seed      uint64   `json:"seed"`
}

func checkpointPersister(codec Codec) *Persister[checkpointState] {
	return NewPersister[checkpointState]("suite_checkpoint", codec)
}

func TestPersister_RoundTrip(t *testing.T) {
	t.Parallel()

	codecs := map[string]Codec{
		"json": NewJSONCodec(),
		"gob":  NewGobCodec(),
	}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			p := checkpointPersister(codec)
			original := checkpointState{Completed: []string{"sort_small", "sort_large"}, Seed: 42}

			require.NoError(t, p.Save(dir, func() *checkpointState { return &original }))

			var restored checkpointState

			require.NoError(t, p.Load(dir, func(s *checkpointState) { restored = *s }))
			assert.Equal(t, original, restored)
		})
	}
}

func TestPersister_RestoreSkippedOnMissingArtifact(t *testing.T) {
	t.Parallel()

	p := checkpointPersister(NewJSONCodec())

	called := false
	err := p.Load(t.TempDir(), func(_ *checkpointState) { called = true })

	require.Error(t, err)
	assert.False(t, called, "restore must not run when nothing was decoded")
}

func TestPersister_Exists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := checkpointPersister(NewGobCodec())

	assert.False(t, p.Exists(dir))

	require.NoError(t, p.Save(dir, func() *checkpointState { return &checkpointState{Seed: 7} }))
	assert.True(t, p.Exists(dir))
}

func TestPersister_ExistsMatchesCodecExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	require.NoError(t, checkpointPersister(NewJSONCodec()).Save(dir, func() *checkpointState {
		return &checkpointState{Seed: 3}
	}))

	// Same basename, different serialization: the gob artifact is absent.
	assert.False(t, checkpointPersister(NewGobCodec()).Exists(dir))
}

func TestPersister_DiscardRemovesArtifact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := checkpointPersister(NewJSONCodec())

	require.NoError(t, p.Save(dir, func() *checkpointState { return &checkpointState{Seed: 11} }))
	require.NoError(t, p.Discard(dir))

	assert.False(t, p.Exists(dir))

	_, statErr := os.Stat(filepath.Join(dir, "suite_checkpoint.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPersister_DiscardMissingIsNoError(t *testing.T) {
	t.Parallel()

	p := checkpointPersister(NewJSONCodec())

	assert.NoError(t, p.Discard(t.TempDir()))
}

func TestPersister_SaveUnwritableDir(t *testing.T) {
	t.Parallel()

	p := checkpointPersister(NewJSONCodec())

	err := p.Save("/proc/no-such-place", func() *checkpointState {
		return &checkpointState{Seed: 1}
	})

	assert.Error(t, err)
}
