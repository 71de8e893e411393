package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distfuzz.dev/pkg/distfuzz/internal/adapter"
	"distfuzz.dev/pkg/distfuzz/internal/domain"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
	"distfuzz.dev/pkg/distfuzz/pkg"
)

func writeCrashLog(t *testing.T, output string, records ...m.CrashRecord) string {
	t.Helper()

	spill, err := pkg.NewFileSpill[m.CrashRecord](filepath.Join(output, adapter.CrashesDir), domain.CrashLogPattern)
	require.NoError(t, err)

	for _, record := range records {
		require.NoError(t, spill.Append(record))
	}

	require.NoError(t, spill.Close())

	return spill.Path()
}

func newTestCrashesCmd(args ...string) (string, error) {
	out := &bytes.Buffer{}

	cmd := newRootCmd()
	cmd.AddCommand(newCrashesCmd())
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"crashes"}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func sampleCrashes() []m.CrashRecord {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	return []m.CrashRecord{
		{
			ID:           "0123456789abcdef0123",
			Time:         at,
			Program:      "v0 = LoadBuiltin \"gc\"\nv1 = CallFunction v0\n",
			Contributors: []m.Contributor{"CodeGenMutator", "InputMutator"},
			Output:       "Segmentation fault\nmore",
			ExecTime:     12 * time.Millisecond,
		},
		{
			ID:           "fedcba9876543210",
			Time:         at.Add(time.Minute),
			Program:      "v0 = LoadInteger \"1\"\n",
			ParentDiff:   "--- parent\n+++ child\n@@ -1 +1 @@\n-v0 = LoadInteger \"0\"\n+v0 = LoadInteger \"1\"\n",
			Contributors: []m.Contributor{"OperationMutator"},
			Output:       "Assertion failure: ok",
		},
	}
}

func TestCrashesCmd_ListsOutputDir(t *testing.T) {
	output := t.TempDir()
	path := writeCrashLog(t, output, sampleCrashes()...)
	empty := writeCrashLog(t, output)

	text, err := newTestCrashesCmd("-o", output)
	require.NoError(t, err)

	assert.Contains(t, text, path)
	assert.NotContains(t, text, empty)
	assert.Contains(t, text, "0123456789ab")
	assert.NotContains(t, text, "0123456789abcdef0123")
	assert.Contains(t, text, "CodeGenMutator, InputMutator")
	assert.Contains(t, text, "Segmentation fault")
	assert.Contains(t, text, "2026-03-01 12:01:00")
	assert.Contains(t, text, "CRASHES")
}

func TestCrashesCmd_EmptyOutputDir(t *testing.T) {
	text, err := newTestCrashesCmd("-o", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "No crashes recorded\n", text)
}

func TestCrashesCmd_ShowRecord(t *testing.T) {
	path := writeCrashLog(t, t.TempDir(), sampleCrashes()...)

	text, err := newTestCrashesCmd(path, "--show", "1")
	require.NoError(t, err)

	assert.Contains(t, text, "Crash fedcba9876543210 (2026-03-01T12:01:00Z)")
	assert.Contains(t, text, "Contributors: OperationMutator")
	assert.Contains(t, text, "Program:\nv0 = LoadInteger \"1\"\n")
	assert.Contains(t, text, "Diff against parent:\n--- parent")
	assert.Contains(t, text, "Output:\nAssertion failure: ok\n")
}

func TestCrashesCmd_ShowErrors(t *testing.T) {
	path := writeCrashLog(t, t.TempDir(), sampleCrashes()...)

	_, err := newTestCrashesCmd("--show", "0")
	require.ErrorIs(t, err, errShowNeedsFile)

	_, err = newTestCrashesCmd(path, "--show", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of bounds")

	_, err = newTestCrashesCmd(filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
}
