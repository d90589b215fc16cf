package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlotCommand_TextHistogram(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := saveTestDataset(t, tmpDir, "alloc_loop", "ns", map[int64]uint64{1: 10, 2: 5, 4: 1})

	var out bytes.Buffer

	command := NewPlotCommand()
	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{path})

	require.NoError(t, command.Execute())

	require.Contains(t, out.String(), "█")
	require.Contains(t, out.String(), "p0")
	require.Contains(t, out.String(), "p50")
	require.Contains(t, out.String(), "p100")
}

func TestPlotCommand_HTMLFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := saveTestDataset(t, tmpDir, "alloc_loop", "ns", map[int64]uint64{1: 10, 2: 5, 4: 1})
	outPath := filepath.Join(tmpDir, "plot.html")

	var errOut bytes.Buffer

	command := NewPlotCommand()
	command.SetOut(io.Discard)
	command.SetErr(&errOut)
	command.SetArgs([]string{path, "--format", "html", "--out", outPath, "--title", "Alloc loop"})

	require.NoError(t, command.Execute())

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Contains(t, string(raw), "echarts")
	require.Contains(t, string(raw), "Alloc loop")
	require.Contains(t, errOut.String(), "plot written: "+outPath)
}

func TestPlotCommand_RejectsJSONFormat(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := saveTestDataset(t, tmpDir, "alloc_loop", "ns", map[int64]uint64{1: 10})

	command := NewPlotCommand()
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{path, "--format", "json"})

	require.ErrorIs(t, command.Execute(), ErrUnsupportedFormat)
}

func TestPlotCommand_NegativeWidth(t *testing.T) {
	t.Parallel()

	command := NewPlotCommand()
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"dataset.bfd", "--width", "-1"})

	require.ErrorIs(t, command.Execute(), ErrNegativeSize)
}
