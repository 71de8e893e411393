package domain

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"

	"distfuzz.dev/pkg/distfuzz/internal/adapter"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// ProgramEvaluator turns executions into coverage/distance feedback.
type ProgramEvaluator interface {
	// Evaluate scores a succeeded execution. It returns nil for any other
	// outcome and when no coverage trace is available.
	Evaluate(ctx context.Context, execution m.Execution) *m.Aspects
	// EvaluateCrash always returns nil: crashes carry no coverage feedback.
	EvaluateCrash(ctx context.Context, execution m.Execution) *m.Aspects
	// HasAspects always returns false, which disables minimization.
	HasAspects(execution m.Execution, aspects *m.Aspects) bool
	// CurrentScore is |ledger| / |distance map|.
	CurrentScore() float64
	// ComputeAspectIntersection re-runs program and intersects the observed
	// coverage with aspects.
	ComputeAspectIntersection(ctx context.Context, program *m.Program, aspects *m.Aspects) *m.Aspects
	ExportState() ([]byte, error)
	// ImportState unions an exported state into the ledger.
	ImportState(state []byte) error
}

// EvaluatorOption configures a distance evaluator.
type EvaluatorOption func(*distanceEvaluator)

// WithMeanOverHits averages distance over every map-covered hit, repeats
// included, instead of over the unique covered blocks.
func WithMeanOverHits() EvaluatorOption {
	return func(e *distanceEvaluator) {
		e.meanOverHits = true
	}
}

// WithEvaluatorMetrics reports coverage progress to metrics.
func WithEvaluatorMetrics(metrics adapter.Metrics) EvaluatorOption {
	return func(e *distanceEvaluator) {
		e.metrics = metrics
	}
}

type distanceEvaluator struct {
	distmap  *DistanceMap
	ledger   *EdgeLedger
	executor adapter.Executor
	traces   adapter.TraceReader
	metrics  adapter.Metrics

	meanOverHits bool
}

// NewDistanceEvaluator builds an AFLGo-style evaluator. Every worker gets
// its own instance bound to its executor; instances share distmap and
// ledger.
func NewDistanceEvaluator(
	distmap *DistanceMap,
	ledger *EdgeLedger,
	executor adapter.Executor,
	traces adapter.TraceReader,
	opts ...EvaluatorOption,
) ProgramEvaluator {
	e := &distanceEvaluator{
		distmap:  distmap,
		ledger:   ledger,
		executor: executor,
		traces:   traces,
		metrics:  adapter.NopMetrics{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func (e *distanceEvaluator) Evaluate(ctx context.Context, execution m.Execution) *m.Aspects {
	if execution.Outcome != m.Succeeded {
		slog.Debug("Not evaluating non-succeeded execution", "outcome", execution.Outcome)
		return nil
	}

	trace, err := e.trace(ctx, execution)
	if err != nil {
		slog.Debug("Coverage data unavailable", "file", execution.CoverageFile, "error", err)
		return nil
	}

	if len(trace) == 0 {
		slog.Debug("Coverage trace is empty", "file", execution.CoverageFile)
		return nil
	}

	aspects := e.measure(trace)

	added := e.ledger.UnionEdges(aspects.Edges)
	aspects.NewEdges = len(added)
	aspects.Interesting = len(added) > 0

	e.metrics.SetCoverage(e.ledger.Len(), e.CurrentScore())
	e.metrics.ObserveDistance(aspects.Distance)

	return aspects
}

func (e *distanceEvaluator) trace(ctx context.Context, execution m.Execution) ([]uint64, error) {
	if execution.Trace != nil {
		return execution.Trace, nil
	}

	if execution.CoverageFile == "" || e.traces == nil {
		return nil, fmt.Errorf("execution carries no trace")
	}

	return e.traces.ReadTrace(ctx, m.Path(execution.CoverageFile))
}

// measure derives edges from the unfiltered trace order and distance
// statistics from the hits present in the distance map.
func (e *distanceEvaluator) measure(trace []uint64) *m.Aspects {
	seen := make(map[uint64]struct{})
	hits := make([]float64, 0, len(trace))
	blocks := make([]uint64, 0)

	for _, block := range trace {
		distance, ok := e.distmap.Distance(block)
		if !ok {
			continue
		}

		hits = append(hits, distance)

		if _, dup := seen[block]; !dup {
			seen[block] = struct{}{}
			blocks = append(blocks, block)
		}
	}

	slices.Sort(blocks)

	aspects := &m.Aspects{
		Outcome: m.Succeeded,
		Edges:   m.EdgesFromTrace(trace),
		Blocks:  blocks,
	}

	if e.meanOverHits {
		aspects.Distance, aspects.Covers = meanDistance(hits)
	} else {
		aspects.Distance, aspects.Covers = e.blockDistance(blocks)
	}

	return aspects
}

func (e *distanceEvaluator) blockDistance(blocks []uint64) (float64, bool) {
	distances := make([]float64, 0, len(blocks))

	for _, block := range blocks {
		if d, ok := e.distmap.Distance(block); ok {
			distances = append(distances, d)
		}
	}

	return meanDistance(distances)
}

func meanDistance(distances []float64) (float64, bool) {
	if len(distances) == 0 {
		return m.UnreachableDistance, false
	}

	return stat.Mean(distances, nil), slices.Contains(distances, 0)
}

func (e *distanceEvaluator) EvaluateCrash(_ context.Context, execution m.Execution) *m.Aspects {
	slog.Debug("Ignoring crash for coverage feedback", "outcome", execution.Outcome)
	return nil
}

func (e *distanceEvaluator) HasAspects(_ m.Execution, _ *m.Aspects) bool {
	return false
}

// CurrentScore is the ledger size over the distance map size. Edges between
// unmapped blocks count too, so the score can exceed one.
func (e *distanceEvaluator) CurrentScore() float64 {
	return float64(e.ledger.Len()) / float64(e.distmap.Len())
}

func (e *distanceEvaluator) ComputeAspectIntersection(ctx context.Context, program *m.Program, aspects *m.Aspects) *m.Aspects {
	if aspects == nil {
		return nil
	}

	execution, err := e.executor.Execute(ctx, program, m.PurposeDeterminismCheck)
	if err != nil {
		slog.Warn("Determinism check execution failed", "error", err)
		return nil
	}

	if execution.Outcome != m.Succeeded {
		slog.Debug("Determinism check did not succeed", "outcome", execution.Outcome)
		return nil
	}

	second := e.Evaluate(ctx, execution)
	if second == nil {
		return nil
	}

	blocks := intersectSorted(aspects.Blocks, second.Blocks)
	if len(blocks) == 0 {
		return nil
	}

	edges := second.Edges.Intersect(aspects.Edges)
	if len(edges) == 0 {
		return nil
	}

	result := &m.Aspects{
		Outcome:     m.Succeeded,
		Edges:       edges,
		Blocks:      blocks,
		Interesting: aspects.Interesting,
		NewEdges:    aspects.NewEdges,
	}
	result.Distance, result.Covers = e.blockDistance(blocks)

	return result
}

func intersectSorted(a, b []uint64) []uint64 {
	out := make([]uint64, 0)

	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}

	return out
}

func (e *distanceEvaluator) ExportState() ([]byte, error) {
	return e.ledger.MarshalBinary()
}

func (e *distanceEvaluator) ImportState(state []byte) error {
	if len(state) == 0 {
		return nil
	}

	if err := e.ledger.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("import evaluator state: %w", err)
	}

	e.metrics.SetCoverage(e.ledger.Len(), e.CurrentScore())

	return nil
}
