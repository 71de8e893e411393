// Package controller provides the user-facing output of the fuzzer.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// RunInfo describes a fuzzing session before it starts.
type RunInfo struct {
	Workers         int
	Profile         string
	Binary          string
	Output          string
	DistanceMapSize int
	Targets         int
	CorpusSize      int
	ResumedEdges    int
}

// DistanceBucket counts distance map entries in a distance range.
type DistanceBucket struct {
	Label string
	Count int
}

// DistanceMapSummary describes a parsed distance map.
type DistanceMapSummary struct {
	Path    string
	Blocks  int
	Targets int
	Min     float64
	Max     float64
	Mean    float64
	Buckets []DistanceBucket
}

// CrashLog is the content of one crash log file.
type CrashLog struct {
	Path    string
	Records []m.CrashRecord
}

// StartOption is a functional option for Start.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	onQuit func()
}

// WithQuitHandler registers fn to be called when the user asks to stop
// from inside the UI.
func WithQuitHandler(fn func()) StartOption {
	return func(c *StartConfig) {
		c.onQuit = fn
	}
}

// UI displays fuzzing progress. Implementations can use different output
// methods (simple text, TUI).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for the UI to finish
	DisplayRunInfo(ctx context.Context, info RunInfo)
	DisplayProgress(ctx context.Context, stats m.Stats)
	DisplaySummary(ctx context.Context, stats m.Stats)
	DisplayDistanceMap(ctx context.Context, summary DistanceMapSummary) error
	DisplayCrashes(ctx context.Context, logs []CrashLog) error
	DisplayCrash(ctx context.Context, record m.CrashRecord) error
}

// NewUI returns a TUI when out is a terminal and a SimpleUI otherwise.
func NewUI(cmd *cobra.Command, forceSimple bool) UI {
	out := cmd.OutOrStdout()
	if !forceSimple && IsTerminal(out) {
		return NewTUI(out)
	}

	return NewSimpleUI(cmd)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
