package domain

import (
	"math/rand/v2"
	"sync"

	"distfuzz.dev/pkg/distfuzz/internal/domain/mutators"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// MutatorPool holds the weighted mutator set shared by all engines and the
// accumulated per-mutator statistics.
type MutatorPool struct {
	entries []mutators.Weighted
	weights []int

	mu    sync.Mutex
	stats map[string]*m.MutatorStats
}

// NewMutatorPool builds a pool. Entries with a non-positive weight are
// never picked.
func NewMutatorPool(entries []mutators.Weighted) *MutatorPool {
	pool := &MutatorPool{
		entries: entries,
		weights: make([]int, len(entries)),
		stats:   make(map[string]*m.MutatorStats, len(entries)),
	}

	for idx, entry := range entries {
		pool.weights[idx] = entry.Weight
		pool.stats[entry.Mutator.Name()] = &m.MutatorStats{Name: entry.Mutator.Name()}
	}

	return pool
}

// Len returns the number of mutators in the pool.
func (p *MutatorPool) Len() int {
	return len(p.entries)
}

// Pick draws a mutator by weight. It returns nil for an empty pool.
func (p *MutatorPool) Pick(rnd *rand.Rand) mutators.Mutator {
	idx := mutators.PickWeighted(rnd, p.weights)
	if idx < 0 {
		return nil
	}

	return p.entries[idx].Mutator
}

// MergeStats folds a round's worth of engine-owned statistics into the pool.
func (p *MutatorPool) MergeStats(round map[string]*m.MutatorStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for name, stats := range round {
		total, ok := p.stats[name]
		if !ok {
			total = &m.MutatorStats{Name: name}
			p.stats[name] = total
		}

		total.Merge(*stats)
	}
}

// Stats returns a copy of the accumulated statistics in pool order.
func (p *MutatorPool) Stats() []m.MutatorStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]m.MutatorStats, 0, len(p.stats))
	for _, entry := range p.entries {
		out = append(out, *p.stats[entry.Mutator.Name()])
	}

	return out
}
