package domain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"distfuzz.dev/pkg/distfuzz/internal/adapter"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
	"distfuzz.dev/pkg/distfuzz/pkg"
)

// Counters are the session-wide statistics updated by every worker.
type Counters struct {
	executions   atomic.Uint64
	succeeded    atomic.Uint64
	failed       atomic.Uint64
	crashed      atomic.Uint64
	timedOut     atomic.Uint64
	interesting  atomic.Uint64
	covering     atomic.Uint64
	bestDistance atomic.Uint64 // math.Float64bits
}

// NewCounters returns zeroed counters with no best distance yet.
func NewCounters() *Counters {
	c := &Counters{}
	c.bestDistance.Store(math.Float64bits(m.UnreachableDistance))

	return c
}

func (c *Counters) recordOutcome(outcome m.Outcome) {
	c.executions.Add(1)

	switch outcome {
	case m.Succeeded:
		c.succeeded.Add(1)
	case m.Failed:
		c.failed.Add(1)
	case m.Crashed:
		c.crashed.Add(1)
	case m.TimedOut:
		c.timedOut.Add(1)
	}
}

func (c *Counters) recordDistance(distance float64) {
	for {
		current := c.bestDistance.Load()
		if distance >= math.Float64frombits(current) {
			return
		}

		if c.bestDistance.CompareAndSwap(current, math.Float64bits(distance)) {
			return
		}
	}
}

// Fill copies the counters into stats.
func (c *Counters) Fill(stats *m.Stats) {
	stats.Executions = c.executions.Load()
	stats.Succeeded = c.succeeded.Load()
	stats.Failed = c.failed.Load()
	stats.Crashed = c.crashed.Load()
	stats.TimedOut = c.timedOut.Load()
	stats.Interesting = c.interesting.Load()
	stats.TargetsCovered = c.covering.Load()
	stats.BestDistance = math.Float64frombits(c.bestDistance.Load())
}

// SessionConfig holds the collaborators of a worker session. Executor and
// Evaluator belong to one worker; the rest is shared.
type SessionConfig struct {
	Executor  adapter.Executor
	Evaluator ProgramEvaluator
	Corpus    Corpus
	Store     adapter.ProgramStore
	Crashes   pkg.FileSpill[m.CrashRecord]
	Counters  *Counters
	Metrics   adapter.Metrics
}

// Session executes mutated programs for one worker and routes the results:
// interesting programs to the corpus, crashes to the crash store.
type Session struct {
	cfg SessionConfig
}

// NewSession builds a session. Store and Crashes may be nil, in which case
// nothing is persisted.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Counters == nil {
		cfg.Counters = NewCounters()
	}

	if cfg.Metrics == nil {
		cfg.Metrics = adapter.NopMetrics{}
	}

	return &Session{cfg: cfg}
}

// Run implements ProgramRunner.
func (s *Session) Run(ctx context.Context, child, parent *m.Program) (m.Outcome, error) {
	execution, err := s.cfg.Executor.Execute(ctx, child, m.PurposeFuzzing)
	if err != nil {
		return m.Failed, err
	}

	s.cfg.Counters.recordOutcome(execution.Outcome)

	switch execution.Outcome {
	case m.Succeeded:
		if err := s.processSucceeded(ctx, child, execution); err != nil {
			return execution.Outcome, err
		}
	case m.Crashed:
		if err := s.processCrash(ctx, child, parent, execution); err != nil {
			return execution.Outcome, err
		}
	case m.Failed, m.TimedOut:
		slog.Debug("Execution did not succeed", "outcome", execution.Outcome, "exec_time", execution.ExecTime)
	}

	return execution.Outcome, nil
}

func (s *Session) processSucceeded(ctx context.Context, program *m.Program, execution m.Execution) error {
	aspects := s.cfg.Evaluator.Evaluate(ctx, execution)
	if aspects == nil {
		return nil
	}

	s.cfg.Counters.recordDistance(aspects.Distance)

	if !aspects.Interesting {
		return nil
	}

	stable := s.cfg.Evaluator.ComputeAspectIntersection(ctx, program, aspects)
	if stable == nil {
		slog.Debug("Dropping program with non-deterministic coverage", "new_edges", aspects.NewEdges)
		return nil
	}

	s.cfg.Counters.interesting.Add(1)

	if stable.Covers {
		s.cfg.Counters.covering.Add(1)
	}

	if !s.cfg.Corpus.Add(program) {
		return nil
	}

	s.cfg.Metrics.SetCorpusSize(s.cfg.Corpus.Size())

	slog.Info("New interesting program",
		"new_edges", aspects.NewEdges,
		"distance", stable.Distance,
		"covers", stable.Covers,
		"size", program.Size(),
		"contributors", program.Contributors(),
	)

	if s.cfg.Store == nil {
		return nil
	}

	if _, err := s.cfg.Store.SaveProgram(ctx, adapter.CorpusDir, program); err != nil {
		return fmt.Errorf("save corpus program: %w", err)
	}

	return nil
}

func (s *Session) processCrash(ctx context.Context, program, parent *m.Program, execution m.Execution) error {
	if aspects := s.cfg.Evaluator.EvaluateCrash(ctx, execution); aspects != nil {
		slog.Debug("Crash produced coverage feedback", "new_edges", aspects.NewEdges)
	}

	s.cfg.Metrics.IncCrashes()

	record := m.CrashRecord{
		Time:         time.Now(),
		Program:      m.Lift(program),
		ParentDiff:   ProgramDiff(parent, program),
		Contributors: program.Contributors(),
		Output:       execution.Output,
		ExecTime:     execution.ExecTime,
	}

	if s.cfg.Store != nil {
		path, err := s.cfg.Store.SaveProgram(ctx, adapter.CrashesDir, program)
		if err != nil {
			return fmt.Errorf("save crash program: %w", err)
		}

		record.ID = strings.TrimSuffix(filepath.Base(string(path)), adapter.ProgramExt)
	}

	slog.Warn("Target crashed", "id", record.ID, "size", program.Size(), "contributors", record.Contributors)

	if s.cfg.Crashes == nil {
		return nil
	}

	if err := s.cfg.Crashes.Append(record); err != nil {
		return fmt.Errorf("record crash: %w", err)
	}

	return nil
}

// ProgramDiff renders a unified diff between the lifted parent and child.
func ProgramDiff(parent, child *m.Program) string {
	if parent == nil {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(m.Lift(parent)),
		B:        difflib.SplitLines(m.Lift(child)),
		FromFile: "parent",
		ToFile:   "child",
		Context:  2,
	})
	if err != nil {
		slog.Debug("Failed to diff programs", "error", err)
		return ""
	}

	return diff
}
