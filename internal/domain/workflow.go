// Package domain contains the fuzzing core: the mutation engine, the
// coverage and distance evaluator, and the session workflow around them.
package domain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"distfuzz.dev/pkg/distfuzz/internal/adapter"
	"distfuzz.dev/pkg/distfuzz/internal/controller"
	"distfuzz.dev/pkg/distfuzz/internal/domain/mutators"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
	"distfuzz.dev/pkg/distfuzz/pkg"
)

const (
	// StateFile is the evaluator state blob inside the output directory.
	StateFile = "evaluator.state"
	// CrashLogPattern names the per-session crash logs in the crashes directory.
	CrashLogPattern = "crashes-*.gob"

	defaultStatusInterval = time.Second
	generatedSeedSize     = 5
)

// ErrInvalidArgs is returned for unusable fuzzing parameters.
var ErrInvalidArgs = errors.New("invalid fuzzing arguments")

// FuzzArgs holds the parameters of a fuzzing session.
type FuzzArgs struct {
	Profile     adapter.Profile
	DistanceMap *DistanceMap
	// Seeds is a directory of *.fzil programs. Optional.
	Seeds string
	// Parallel is the number of workers.
	Parallel int
	// Rounds per worker; zero runs until ctx is cancelled.
	Rounds               int
	ConsecutiveMutations int
	// Seed for the random sources; zero picks one at random.
	Seed           uint64
	CorpusSize     int
	MeanOverHits   bool
	MetricsListen  string
	StatusInterval time.Duration
}

// ExecutorFactory creates the executor owned by one worker.
type ExecutorFactory func(worker int, metrics adapter.Metrics) (adapter.Executor, error)

// Workflow runs fuzzing sessions.
type Workflow interface {
	Fuzz(ctx context.Context, args FuzzArgs) (m.Stats, error)
}

type workflow struct {
	adapter.ProgramStore
	adapter.TraceReader
	controller.UI
	executors ExecutorFactory
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	store adapter.ProgramStore,
	traces adapter.TraceReader,
	ui controller.UI,
	executors ExecutorFactory,
) Workflow {
	return &workflow{
		ProgramStore: store,
		TraceReader:  traces,
		UI:           ui,
		executors:    executors,
	}
}

// shared is everything the workers of one session have in common.
type shared struct {
	distmap  *DistanceMap
	ledger   *EdgeLedger
	corpus   Corpus
	pool     *MutatorPool
	counters *Counters
	env      m.Environment
	crashes  pkg.FileSpill[m.CrashRecord]
	metrics  adapter.Metrics
	evalOpts []EvaluatorOption
	start    time.Time

	// evaluator owns no executor; it serves state import/export and the
	// score shown in progress reports.
	evaluator ProgramEvaluator
}

func (w *workflow) Fuzz(ctx context.Context, args FuzzArgs) (m.Stats, error) {
	if err := validateArgs(args); err != nil {
		return m.Stats{}, err
	}

	if args.Seed == 0 {
		args.Seed = rand.Uint64()
	}

	slog.Info("Starting fuzzing session", "profile", args.Profile.Name, "workers", args.Parallel, "seed", args.Seed)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sh, err := w.prepare(runCtx, args)
	if err != nil {
		return m.Stats{}, err
	}

	defer func() {
		if err := sh.crashes.Close(); err != nil {
			slog.Error("Failed to close crash log", "error", err)
		}
	}()

	if args.MetricsListen != "" {
		registry := prometheus.NewRegistry()
		sh.metrics = adapter.NewPrometheusMetrics(registry)
		sh.metrics.SetCorpusSize(sh.corpus.Size())

		go func() {
			if err := adapter.ServeMetrics(runCtx, args.MetricsListen, registry); err != nil {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	if err := w.Start(runCtx, controller.WithQuitHandler(cancel)); err != nil {
		return m.Stats{}, fmt.Errorf("start ui: %w", err)
	}

	w.DisplayRunInfo(runCtx, controller.RunInfo{
		Workers:         args.Parallel,
		Profile:         args.Profile.Name,
		Binary:          args.Profile.Binary,
		Output:          string(w.Root()),
		DistanceMapSize: sh.distmap.Len(),
		Targets:         sh.distmap.Targets(),
		CorpusSize:      sh.corpus.Size(),
		ResumedEdges:    sh.ledger.Len(),
	})

	runErr := w.runWorkers(runCtx, args, sh)

	if err := w.saveState(ctx, sh.evaluator); err != nil {
		runErr = errors.Join(runErr, err)
	}

	stats := sh.snapshot()

	w.Close(ctx)
	w.Wait(ctx)
	w.DisplaySummary(ctx, stats)

	slog.Info("Fuzzing session finished",
		"executions", stats.Executions,
		"edges", stats.Edges,
		"score", stats.Score,
		"crashes", stats.Crashed,
		"elapsed", stats.Elapsed,
	)

	return stats, runErr
}

func validateArgs(args FuzzArgs) error {
	if args.DistanceMap == nil || args.DistanceMap.Len() == 0 {
		return fmt.Errorf("no distance map: %w", ErrInvalidArgs)
	}

	if args.Parallel < 1 {
		return fmt.Errorf("parallel must be at least 1, got %d: %w", args.Parallel, ErrInvalidArgs)
	}

	if args.Rounds < 0 {
		return fmt.Errorf("rounds must not be negative, got %d: %w", args.Rounds, ErrInvalidArgs)
	}

	return args.Profile.Validate()
}

func (w *workflow) prepare(ctx context.Context, args FuzzArgs) (*shared, error) {
	sh := &shared{
		distmap:  args.DistanceMap,
		ledger:   NewEdgeLedger(),
		corpus:   NewCorpus(positiveOr(args.CorpusSize, DefaultCorpusSize)),
		pool:     NewMutatorPool(mutators.Default()),
		counters: NewCounters(),
		env:      m.NewStaticEnvironment(args.Profile.Builtins),
		metrics:  adapter.NopMetrics{},
		start:    time.Now(),
	}

	if args.MeanOverHits {
		sh.evalOpts = append(sh.evalOpts, WithMeanOverHits())
	}

	sh.evaluator = NewDistanceEvaluator(sh.distmap, sh.ledger, nil, w.TraceReader, sh.evalOpts...)

	state, err := w.LoadState(ctx, StateFile)
	if err != nil {
		return nil, err
	}

	if err := sh.evaluator.ImportState(state); err != nil {
		return nil, err
	}

	if len(state) > 0 {
		slog.Info("Resumed evaluator state", "edges", sh.ledger.Len())
	}

	if err := w.loadCorpus(ctx, args, sh); err != nil {
		return nil, err
	}

	crashes, err := pkg.NewFileSpill[m.CrashRecord](filepath.Join(string(w.Root()), adapter.CrashesDir), CrashLogPattern)
	if err != nil {
		return nil, fmt.Errorf("open crash log: %w", err)
	}

	sh.crashes = crashes

	return sh, nil
}

func (w *workflow) loadCorpus(ctx context.Context, args FuzzArgs, sh *shared) error {
	if args.Seeds != "" {
		seeds, err := w.LoadSeeds(ctx, m.Path(args.Seeds))
		if err != nil {
			return fmt.Errorf("load seeds: %w", err)
		}

		for _, seed := range seeds {
			sh.corpus.Add(seed)
		}
	}

	if sh.corpus.Size() > 0 {
		return nil
	}

	seed, err := GenerateSeed(sh.env, rand.New(rand.NewPCG(args.Seed, 0)))
	if err != nil {
		return fmt.Errorf("generate seed: %w", err)
	}

	sh.corpus.Add(seed)
	slog.Info("Corpus is empty, starting from a generated program", "size", seed.Size())

	return nil
}

// GenerateSeed builds a small random program for an empty corpus.
func GenerateSeed(env m.Environment, rnd *rand.Rand) (*m.Program, error) {
	b := m.NewProgramBuilder()

	for range generatedSeedSize {
		mutators.Generate(b, env, rnd)
	}

	p, err := b.Finalize()
	if err != nil {
		return nil, err
	}

	p.AddContributors("generator")

	return p, nil
}

func (w *workflow) runWorkers(ctx context.Context, args FuzzArgs, sh *shared) error {
	engines := make([]MutationEngine, args.Parallel)

	for worker := range args.Parallel {
		executor, err := w.executors(worker, sh.metrics)
		if err != nil {
			return fmt.Errorf("create executor for worker %d: %w", worker, err)
		}

		evaluator := NewDistanceEvaluator(sh.distmap, sh.ledger, executor, w.TraceReader,
			slices.Concat(sh.evalOpts, []EvaluatorOption{WithEvaluatorMetrics(sh.metrics)})...)

		session := NewSession(SessionConfig{
			Executor:  executor,
			Evaluator: evaluator,
			Corpus:    sh.corpus,
			Store:     w.ProgramStore,
			Crashes:   sh.crashes,
			Counters:  sh.counters,
			Metrics:   sh.metrics,
		})

		engines[worker] = NewMutationEngine(sh.corpus, sh.pool, session, sh.env,
			rand.New(rand.NewPCG(args.Seed, uint64(worker)+1)),
			WithConsecutiveMutations(positiveOr(args.ConsecutiveMutations, DefaultConsecutiveMutations)),
			WithEngineMetrics(sh.metrics),
			WithLogger(slog.Default().With("worker", worker)),
		)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	for worker, engine := range engines {
		group.Go(func() error {
			return runWorker(groupCtx, worker, engine, args.Rounds)
		})
	}

	done := make(chan struct{})
	reporterDone := make(chan struct{})

	go func() {
		defer close(reporterDone)
		w.reportProgress(ctx, done, cmp.Or(args.StatusInterval, defaultStatusInterval), sh)
	}()

	err := group.Wait()
	close(done)
	<-reporterDone

	return err
}

func runWorker(ctx context.Context, worker int, engine MutationEngine, rounds int) error {
	for round := 0; rounds == 0 || round < rounds; round++ {
		if _, err := engine.FuzzOne(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Debug("Worker stopped", "worker", worker, "rounds", round)
				return nil
			}

			slog.Error("Worker failed", "worker", worker, "round", round, "error", err)

			return fmt.Errorf("worker %d: %w", worker, err)
		}
	}

	return nil
}

func (w *workflow) reportProgress(ctx context.Context, done <-chan struct{}, interval time.Duration, sh *shared) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.DisplayProgress(ctx, sh.snapshot())
		}
	}
}

func (w *workflow) saveState(ctx context.Context, evaluator ProgramEvaluator) error {
	state, err := evaluator.ExportState()
	if err != nil {
		return fmt.Errorf("export evaluator state: %w", err)
	}

	if err := w.SaveState(context.WithoutCancel(ctx), StateFile, state); err != nil {
		return err
	}

	slog.Debug("Saved evaluator state", "bytes", len(state))

	return nil
}

func (sh *shared) snapshot() m.Stats {
	stats := m.Stats{
		Elapsed:    time.Since(sh.start),
		CorpusSize: sh.corpus.Size(),
		Edges:      sh.ledger.Len(),
		Score:      sh.evaluator.CurrentScore(),
		Mutators:   sh.pool.Stats(),
	}

	sh.counters.Fill(&stats)
	sh.metrics.SetCorpusSize(stats.CorpusSize)

	return stats
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}

	return fallback
}
