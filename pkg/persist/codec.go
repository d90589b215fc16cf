// Package persist stores benchmark artifacts on disk: sample datasets in a
// compact binary format, run exports as schema-checked JSON, and suite
// scratch state through pluggable codecs.
package persist

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Default indentation for pretty-printed JSON.
const defaultIndent = "  "

// Artifact directory and staging constants.
const (
	// dirPerm is the permission mode for created artifact directories.
	dirPerm = 0o750

	// tmpExtension marks an artifact that has not been committed yet.
	tmpExtension = ".tmp"
)

// Codec turns one artifact into bytes and back. Implementations are
// stateless values; Extension doubles as the on-disk format marker.
type Codec interface {
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
	Extension() string
}

// JSONCodec reads and writes indented JSON. Run exports use it so saved
// reports stay diffable and greppable.
type JSONCodec struct {
	// Indent is the per-level indentation. Empty writes compact JSON.
	Indent string
}

// NewJSONCodec returns a JSON codec with the default two-space indent.
func NewJSONCodec() JSONCodec {
	return JSONCodec{Indent: defaultIndent}
}

func (c JSONCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", c.Indent)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}

	return nil
}

func (c JSONCodec) Decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

func (c JSONCodec) Extension() string {
	return ".json"
}

// GobCodec reads and writes gob streams. Suite checkpoints use it for
// scratch state that only this tool ever reads back.
type GobCodec struct{}

// NewGobCodec returns a gob codec.
func NewGobCodec() GobCodec {
	return GobCodec{}
}

func (GobCodec) Encode(w io.Writer, v any) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}

	return nil
}

func (GobCodec) Decode(r io.Reader, v any) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}

	return nil
}

func (GobCodec) Extension() string {
	return ".gob"
}

// SaveState commits state as dir/basename plus the codec extension, creating
// the directory when missing.
func SaveState(dir, basename string, codec Codec, state any) error {
	return writeArtifact(dir, basename+codec.Extension(), func(w io.Writer) error {
		if err := codec.Encode(w, state); err != nil {
			return fmt.Errorf("encode state: %w", err)
		}

		return nil
	})
}

// LoadState reads dir/basename plus the codec extension back into state,
// which must be a pointer to the saved type.
func LoadState(dir, basename string, codec Codec, state any) error {
	path := filepath.Join(dir, basename+codec.Extension())

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open state file: %w", err)
	}
	defer f.Close()

	if err := codec.Decode(f, state); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	return nil
}

// writeArtifact writes one file under dir through a temporary path and a
// rename, creating the directory when missing. An interrupted run leaves at
// most a .tmp file behind, never a truncated artifact.
func writeArtifact(dir, filename string, write func(io.Writer) error) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	finalPath := filepath.Join(dir, filename)
	tmpPath := finalPath + tmpExtension

	fd, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}

	if err := write(fd); err != nil {
		fd.Close()

		return err
	}

	if err := fd.Close(); err != nil {
		return fmt.Errorf("close artifact file: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("commit artifact file: %w", err)
	}

	return nil
}
