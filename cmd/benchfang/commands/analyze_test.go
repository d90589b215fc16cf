package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/benchfang/pkg/persist"
)

func TestAnalyzeCommand_TextSummary(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := writeSampleFile(t, tmpDir, "one_k.txt", repeat(1000, 40))

	var out bytes.Buffer

	command := NewAnalyzeCommand()
	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{path, "--seed", "7"})

	require.NoError(t, command.Execute())

	require.Contains(t, out.String(), "=== one_k ===")
	require.Contains(t, out.String(), "40 samples in [1,000 ns, 1,000 ns] at 95% confidence")
	require.Contains(t, out.String(), "mean")
	require.Contains(t, out.String(), "collected 40, rejected 0 temporal and 0 density, reclassified 0")
}

func TestAnalyzeCommand_JSONOutput(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := writeSampleFile(t, tmpDir, "one_k.txt", repeat(1000, 40))

	var out bytes.Buffer

	command := NewAnalyzeCommand()
	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{path, "--format", "json", "--seed", "7"})

	require.NoError(t, command.Execute())

	var doc persist.RunExport
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.Equal(t, persist.RunSchemaVersion, doc.SchemaVersion)
	require.Equal(t, "one_k", doc.Benchmark)
	require.Equal(t, "ns", doc.Unit)
	require.EqualValues(t, 40, doc.Samples)
	require.Equal(t, int64(1000), doc.Min)
	require.Equal(t, int64(1000), doc.Max)
	require.InDelta(t, 1000, doc.Mean.Sample, 1e-9)
}

func TestAnalyzeCommand_NameOverride(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := writeSampleFile(t, tmpDir, "one_k.txt", repeat(1000, 40))

	var out bytes.Buffer

	command := NewAnalyzeCommand()
	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{path, "--name", "sort_small", "--seed", "7"})

	require.NoError(t, command.Execute())
	require.Contains(t, out.String(), "=== sort_small ===")
}

func TestAnalyzeCommand_SaveThenReanalyzeDataset(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := writeSampleFile(t, tmpDir, "one_k.txt", repeat(1000, 40))
	saveDir := filepath.Join(tmpDir, "datasets")

	var errOut bytes.Buffer

	command := NewAnalyzeCommand()
	command.SetOut(io.Discard)
	command.SetErr(&errOut)
	command.SetArgs([]string{path, "--save-dataset", saveDir, "--seed", "7"})

	require.NoError(t, command.Execute())
	require.Contains(t, errOut.String(), "dataset saved: ")

	entries, err := os.ReadDir(saveDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasPrefix(entries[0].Name(), "one_k-"))
	require.True(t, strings.HasSuffix(entries[0].Name(), persist.DatasetExtension))

	var out bytes.Buffer

	reanalyze := NewAnalyzeCommand()
	reanalyze.SetOut(&out)
	reanalyze.SetErr(io.Discard)
	reanalyze.SetArgs([]string{filepath.Join(saveDir, entries[0].Name()), "--format", "json", "--seed", "7"})

	require.NoError(t, reanalyze.Execute())

	var doc persist.RunExport
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	require.Equal(t, "one_k", doc.Benchmark)
	require.EqualValues(t, 40, doc.Samples)
	require.Zero(t, doc.Outliers.Temporal)
}

func TestAnalyzeCommand_SuiteTable(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeSampleFile(t, tmpDir, "fast.txt", repeat(1000, 40))
	writeSampleFile(t, tmpDir, "slow.txt", repeat(2000, 40))

	suitePath := filepath.Join(tmpDir, "suite.yaml")
	suite := "name: demo\nunit: ns\nbenchmarks:\n" +
		"  - name: fast\n    file: fast.txt\n" +
		"  - name: slow\n    file: slow.txt\n"
	require.NoError(t, os.WriteFile(suitePath, []byte(suite), 0o600))

	var out bytes.Buffer

	command := NewAnalyzeCommand()
	command.SetOut(&out)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"--suite", suitePath, "--seed", "7"})

	require.NoError(t, command.Execute())

	require.Contains(t, out.String(), "BENCHMARK")
	require.Contains(t, out.String(), "fast")
	require.Contains(t, out.String(), "slow")
	require.Contains(t, out.String(), "1,000 ns")
	require.Contains(t, out.String(), "2,000 ns")
}

func TestAnalyzeCommand_SuiteExportsArray(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	writeSampleFile(t, tmpDir, "fast.txt", repeat(1000, 40))
	writeSampleFile(t, tmpDir, "slow.txt", repeat(2000, 40))

	suitePath := filepath.Join(tmpDir, "suite.yaml")
	suite := "benchmarks:\n" +
		"  - name: fast\n    file: fast.txt\n" +
		"  - name: slow\n    file: slow.txt\n"
	require.NoError(t, os.WriteFile(suitePath, []byte(suite), 0o600))

	exportPath := filepath.Join(tmpDir, "runs.json")

	command := NewAnalyzeCommand()
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{"--suite", suitePath, "--export", exportPath, "--seed", "7"})

	require.NoError(t, command.Execute())

	raw, err := os.ReadFile(exportPath)
	require.NoError(t, err)

	var docs []persist.RunExport
	require.NoError(t, json.Unmarshal(raw, &docs))
	require.Len(t, docs, 2)
	require.Equal(t, "fast", docs[0].Benchmark)
	require.Equal(t, "slow", docs[1].Benchmark)
	require.InDelta(t, 1000, docs[0].Mean.Sample, 1e-9)
	require.InDelta(t, 2000, docs[1].Mean.Sample, 1e-9)
}

func TestAnalyzeCommand_NoInput(t *testing.T) {
	t.Parallel()

	command := NewAnalyzeCommand()
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{})

	require.ErrorIs(t, command.Execute(), ErrMissingInput)
}

func TestAnalyzeCommand_RejectsHTMLFormat(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := writeSampleFile(t, tmpDir, "one_k.txt", repeat(1000, 40))

	command := NewAnalyzeCommand()
	command.SetOut(io.Discard)
	command.SetErr(io.Discard)
	command.SetArgs([]string{path, "--format", "html"})

	require.ErrorIs(t, command.Execute(), ErrUnsupportedFormat)
}

func TestLoadSuiteFile_RejectsBadSuites(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	cases := []struct {
		name string
		yaml string
		want error
	}{
		{"empty", "name: demo\n", ErrEmptySuite},
		{"unnamed_entry", "benchmarks:\n  - file: a.txt\n", ErrSuiteEntry},
		{"missing_file", "benchmarks:\n  - name: a\n", ErrSuiteEntry},
		{
			"duplicate",
			"benchmarks:\n  - name: a\n    file: a.txt\n  - name: a\n    file: b.txt\n",
			ErrDuplicateBenchmark,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(tmpDir, tc.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o600))

			_, err := loadSuiteFile(path)
			require.ErrorIs(t, err, tc.want)
		})
	}
}
