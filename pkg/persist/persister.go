package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Persister saves and restores one artifact type through a Codec. The build
// callback snapshots live state into its serializable form and the restore
// callback folds a loaded snapshot back in, so callers never hold the
// on-disk struct themselves. Suite checkpointing builds on it.
type Persister[T any] struct {
	basename string
	codec    Codec
}

// NewPersister returns a persister writing basename plus the codec extension.
func NewPersister[T any](basename string, codec Codec) *Persister[T] {
	return &Persister[T]{basename: basename, codec: codec}
}

func (p *Persister[T]) filename() string {
	return p.basename + p.codec.Extension()
}

// Save snapshots state through build and commits it under dir.
func (p *Persister[T]) Save(dir string, build func() *T) error {
	return SaveState(dir, p.basename, p.codec, build())
}

// Load reads the artifact under dir and hands it to restore, which runs
// only after a successful decode.
func (p *Persister[T]) Load(dir string, restore func(*T)) error {
	var state T
	if err := LoadState(dir, p.basename, p.codec, &state); err != nil {
		return err
	}

	restore(&state)

	return nil
}

// Exists reports whether the artifact is present under dir.
func (p *Persister[T]) Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, p.filename()))

	return err == nil
}

// Discard removes the artifact under dir. A missing artifact is not an
// error, so cleanup after a completed run is unconditional.
func (p *Persister[T]) Discard(dir string) error {
	err := os.Remove(filepath.Join(dir, p.filename()))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard artifact: %w", err)
	}

	return nil
}
