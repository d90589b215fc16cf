package commands

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareCommand_FasterVerdict(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	before := saveTestDataset(t, tmpDir, "before_run", "ns", map[int64]uint64{1000: 100})
	after := saveTestDataset(t, tmpDir, "after_run", "ns", map[int64]uint64{900: 100})

	var out bytes.Buffer

	command := NewCompareCommand()
	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{before, after, "--seed", "11"})

	require.NoError(t, command.Execute())

	require.Contains(t, out.String(), "=== after_run ===")
	require.Contains(t, out.String(), "before")
	require.Contains(t, out.String(), "after")
	require.Contains(t, out.String(), "-100 ns")
	require.Contains(t, out.String(), "90.0%")
	require.Contains(t, out.String(), "faster")
}

func TestCompareCommand_SlowerVerdict(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	before := saveTestDataset(t, tmpDir, "before_run", "ns", map[int64]uint64{900: 100})
	after := saveTestDataset(t, tmpDir, "after_run", "ns", map[int64]uint64{1000: 100})

	var out bytes.Buffer

	command := NewCompareCommand()
	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{before, after, "--seed", "11"})

	require.NoError(t, command.Execute())
	require.Contains(t, out.String(), "slower")
}

func TestCompareCommand_NameOverride(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	before := saveTestDataset(t, tmpDir, "before_run", "ns", map[int64]uint64{1000: 50})
	after := saveTestDataset(t, tmpDir, "after_run", "ns", map[int64]uint64{1000: 50})

	var out bytes.Buffer

	command := NewCompareCommand()
	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{before, after, "--name", "sort_small", "--seed", "11"})

	require.NoError(t, command.Execute())
	require.Contains(t, out.String(), "=== sort_small ===")
	require.Contains(t, out.String(), "no significant change")
}

func TestCompareCommand_UnitMismatch(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	before := saveTestDataset(t, tmpDir, "before_run", "ns", map[int64]uint64{1000: 50})
	after := saveTestDataset(t, tmpDir, "after_run", "us", map[int64]uint64{1000: 50})

	command := NewCompareCommand()
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{before, after})

	require.ErrorIs(t, command.Execute(), ErrUnitMismatch)
}

func TestCompareCommand_MissingDataset(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	after := saveTestDataset(t, tmpDir, "after_run", "ns", map[int64]uint64{1000: 50})

	command := NewCompareCommand()
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{tmpDir + "/missing.bfd", after})

	require.Error(t, command.Execute())
}
