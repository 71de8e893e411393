package controller

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

func newTestCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	return cmd, &out
}

func sampleStats() m.Stats {
	return m.Stats{
		Elapsed:      10*time.Second + 300*time.Millisecond,
		Executions:   200,
		Succeeded:    150,
		Failed:       40,
		Crashed:      3,
		TimedOut:     7,
		CorpusSize:   12,
		Edges:        34,
		Score:        0.25,
		BestDistance: 1.5,
		Mutators: []m.MutatorStats{
			{Name: "InputMutator", Attempts: 10, Failures: 5, Successes: 5, AddedInstructions: 0},
			{Name: "CodeGenMutator", Attempts: 4, Successes: 4, AddedInstructions: 9},
		},
	}
}

func TestNewUI_SimpleForNonTerminal(t *testing.T) {
	cmd, _ := newTestCmd()

	assert.IsType(t, &SimpleUI{}, NewUI(cmd, false))
	assert.IsType(t, &SimpleUI{}, NewUI(cmd, true))
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestSimpleUI_Lifecycle(t *testing.T) {
	cmd, _ := newTestCmd()
	ui := NewSimpleUI(cmd)

	require.NoError(t, ui.Start(context.Background(), WithQuitHandler(func() {})))
	ui.Wait(context.Background())
	ui.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, ui.Start(ctx), context.Canceled)
}

func TestSimpleUI_DisplayRunInfo(t *testing.T) {
	cmd, out := newTestCmd()

	NewSimpleUI(cmd).DisplayRunInfo(context.Background(), RunInfo{
		Workers:         4,
		Profile:         "v8",
		Binary:          "d8",
		Output:          ".distfuzz",
		DistanceMapSize: 1000,
		Targets:         2,
		CorpusSize:      5,
		ResumedEdges:    17,
	})

	text := out.String()
	assert.Contains(t, text, "Fuzzing v8 (d8) with 4 worker(s)")
	assert.Contains(t, text, "Distance map: 1000 blocks, 2 target(s)")
	assert.Contains(t, text, "Corpus: 5 program(s), output .distfuzz")
	assert.Contains(t, text, "Resumed with 17 known edge(s)")
}

func TestSimpleUI_DisplayProgress(t *testing.T) {
	cmd, out := newTestCmd()
	ui := NewSimpleUI(cmd)

	ui.DisplayProgress(context.Background(), sampleStats())

	assert.Equal(t,
		"[10s] execs: 200 (19.4/s) corpus: 12 edges: 34 score: 0.2500 best: 1.50 crashes: 3 timeouts: 7\n",
		out.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out.Reset()

	ui.DisplayProgress(ctx, sampleStats())
	assert.Empty(t, out.String())
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "-", formatDistance(m.UnreachableDistance))
	assert.Equal(t, "0.00", formatDistance(0))
	assert.Equal(t, "2.33", formatDistance(7.0/3))
}

func TestSimpleUI_DisplaySummary(t *testing.T) {
	cmd, out := newTestCmd()

	NewSimpleUI(cmd).DisplaySummary(context.Background(), sampleStats())

	text := out.String()
	assert.Contains(t, text, "OUTCOME")
	assert.Contains(t, text, "timedOut")
	assert.Contains(t, text, "EDGES 34")
	assert.Contains(t, text, "InputMutator")
	assert.Contains(t, text, "50.0%")
	assert.Contains(t, text, "CodeGenMutator")
}

func TestSimpleUI_DisplayDistanceMap(t *testing.T) {
	cmd, out := newTestCmd()
	ui := NewSimpleUI(cmd)

	err := ui.DisplayDistanceMap(context.Background(), DistanceMapSummary{
		Path:    "target.distmap",
		Blocks:  3,
		Targets: 1,
		Max:     4,
		Mean:    5.0 / 3,
		Buckets: []DistanceBucket{{Label: "0 (target)", Count: 1}, {Label: "(2, 4]", Count: 2}},
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "target.distmap\n")
	assert.Contains(t, text, "0 (target)")
	assert.Contains(t, text, "(2, 4]")
	assert.Contains(t, text, "TARGETS 1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, ui.DisplayDistanceMap(ctx, DistanceMapSummary{}), context.Canceled)
}

func TestSimpleUI_DisplayCrashes(t *testing.T) {
	cmd, out := newTestCmd()
	ui := NewSimpleUI(cmd)

	require.NoError(t, ui.DisplayCrashes(context.Background(), nil))
	assert.Equal(t, "No crashes recorded\n", out.String())

	out.Reset()

	err := ui.DisplayCrashes(context.Background(), []CrashLog{{
		Path: "crashes/crashes-1.gob",
		Records: []m.CrashRecord{
			{Output: "first line\nsecond line", ExecTime: time.Second},
			{ID: "abc", Output: strings.Repeat("x", 100)},
		},
	}})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "crashes/crashes-1.gob\n")
	assert.Contains(t, text, "first line")
	assert.NotContains(t, text, "second line")
	assert.Contains(t, text, strings.Repeat("x", crashOutputWidth-3)+"...")
	assert.Contains(t, text, "abc")
	assert.Contains(t, text, "1s")
}

func TestSimpleUI_DisplayCrash(t *testing.T) {
	cmd, out := newTestCmd()

	err := NewSimpleUI(cmd).DisplayCrash(context.Background(), m.CrashRecord{
		ID:           "abc",
		Time:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Program:      "v0 = LoadInteger \"1\"\n",
		Contributors: []m.Contributor{"InputMutator"},
		Output:       "boom\n",
	})
	require.NoError(t, err)

	assert.Equal(t, `Crash abc (2026-01-02T03:04:05Z)
Contributors: InputMutator
Exec time: 0s

Program:
v0 = LoadInteger "1"

Output:
boom
`, out.String())
}
