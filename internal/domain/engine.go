package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"distfuzz.dev/pkg/distfuzz/internal/adapter"
	"distfuzz.dev/pkg/distfuzz/internal/domain/mutators"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

const (
	// DefaultConsecutiveMutations is the number of iterations per round.
	DefaultConsecutiveMutations = 5

	maxMutationAttempts = 10
)

// ErrEmptyCorpus is returned when a round cannot draw a parent.
var ErrEmptyCorpus = errors.New("corpus is empty")

// ProgramRunner executes a mutated program and routes the result. parent is
// the program child was derived from.
type ProgramRunner interface {
	Run(ctx context.Context, child, parent *m.Program) (m.Outcome, error)
}

// RoundResult summarizes one FuzzOne call.
type RoundResult struct {
	Iterations  int // iterations that executed a program
	Skipped     int // iterations where every mutation attempt failed
	Advanced    int // iterations whose child became the next parent
	Outcomes    map[m.Outcome]int
	FinalParent *m.Program
}

// MutationEngine runs fuzzing rounds.
type MutationEngine interface {
	// FuzzOne draws a parent from the corpus and mutates it repeatedly,
	// advancing to the child after every succeeded execution.
	FuzzOne(ctx context.Context) (RoundResult, error)
}

// EngineOption configures a mutation engine.
type EngineOption func(*mutationEngine)

// WithLogger replaces slog.Default for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *mutationEngine) {
		e.logger = logger
	}
}

// WithConsecutiveMutations sets the iterations per round.
func WithConsecutiveMutations(n int) EngineOption {
	return func(e *mutationEngine) {
		e.consecutive = max(n, 1)
	}
}

// WithEngineMetrics reports declined mutation attempts to metrics.
func WithEngineMetrics(metrics adapter.Metrics) EngineOption {
	return func(e *mutationEngine) {
		e.metrics = metrics
	}
}

type mutationEngine struct {
	corpus Corpus
	pool   *MutatorPool
	runner ProgramRunner
	env    m.Environment
	prefix *PrefixBuilder
	rnd    *rand.Rand

	logger      *slog.Logger
	metrics     adapter.Metrics
	consecutive int
}

// NewMutationEngine builds an engine. Each worker owns its engine; corpus
// and pool may be shared.
func NewMutationEngine(
	corpus Corpus,
	pool *MutatorPool,
	runner ProgramRunner,
	env m.Environment,
	rnd *rand.Rand,
	opts ...EngineOption,
) MutationEngine {
	e := &mutationEngine{
		corpus:      corpus,
		pool:        pool,
		runner:      runner,
		env:         env,
		prefix:      NewPrefixBuilder(env),
		rnd:         rnd,
		logger:      slog.Default(),
		metrics:     adapter.NopMetrics{},
		consecutive: DefaultConsecutiveMutations,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *mutationEngine) FuzzOne(ctx context.Context) (RoundResult, error) {
	result := RoundResult{Outcomes: make(map[m.Outcome]int)}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	sample := e.corpus.RandomElementForMutating(e.rnd)
	if sample == nil {
		return result, ErrEmptyCorpus
	}

	parent, err := e.prefix.Prepare(sample, e.rnd)
	if err != nil {
		return result, fmt.Errorf("prepare sample: %w", err)
	}

	stats := make(map[string]*m.MutatorStats, e.pool.Len())
	defer e.pool.MergeStats(stats)

	mctx := &mutators.Context{
		Rand:  e.rnd,
		Env:   e.env,
		Donor: func() *m.Program { return e.corpus.RandomElementForMutating(e.rnd) },
	}

	for range e.consecutive {
		if err := ctx.Err(); err != nil {
			result.FinalParent = parent
			return result, err
		}

		child := e.mutate(parent, mctx, stats)
		if child == nil {
			e.logger.Warn("Could not mutate sample, giving up", "attempts", maxMutationAttempts, "size", parent.Size())
			result.Skipped++

			continue
		}

		outcome, err := e.runner.Run(context.WithoutCancel(ctx), child, parent)
		if err != nil {
			result.FinalParent = parent
			return result, fmt.Errorf("run program: %w", err)
		}

		result.Iterations++
		result.Outcomes[outcome]++

		if outcome == m.Succeeded {
			parent = child
			result.Advanced++
		}
	}

	result.FinalParent = parent

	return result, nil
}

// mutate tries up to maxMutationAttempts mutators and returns the first
// child, annotated with contributors and importants, or nil.
func (e *mutationEngine) mutate(parent *m.Program, mctx *mutators.Context, stats map[string]*m.MutatorStats) *m.Program {
	for range maxMutationAttempts {
		mutator := e.pool.Pick(e.rnd)
		if mutator == nil {
			return nil
		}

		name := mutator.Name()

		stat, ok := stats[name]
		if !ok {
			stat = &m.MutatorStats{Name: name}
			stats[name] = stat
		}

		child := mutator.Mutate(parent, mctx)
		if child == nil {
			stat.NotifyFailure()
			e.metrics.IncMutatorFailure(name)
			e.logger.Debug("Mutator declined", "mutator", name)

			continue
		}

		if child == parent {
			panic(fmt.Sprintf("mutator %s returned its parent", name))
		}

		stat.NotifyProductivity(child.Size() - parent.Size())

		child.MergeContributors(parent)
		child.AddContributors(m.Contributor(name))
		child.SetImportants(ImportantIndices(parent, child))

		return child
	}

	return nil
}
