package model

import "sort"

// UnreachableDistance is reported when none of an execution's blocks are
// present in the distance map.
const UnreachableDistance = 1e9

// Edge is a pair of consecutively visited block ids.
type Edge struct {
	From uint64
	To   uint64
}

// EdgeSet is a set of edges.
type EdgeSet map[Edge]struct{}

// NewEdgeSet builds a set from the given edges.
func NewEdgeSet(edges ...Edge) EdgeSet {
	set := make(EdgeSet, len(edges))
	for _, e := range edges {
		set[e] = struct{}{}
	}

	return set
}

// EdgesFromTrace returns the edges formed by consecutive trace entries.
func EdgesFromTrace(trace []uint64) EdgeSet {
	set := make(EdgeSet)
	for i := 1; i < len(trace); i++ {
		set[Edge{From: trace[i-1], To: trace[i]}] = struct{}{}
	}

	return set
}

// Contains reports whether e is in the set.
func (s EdgeSet) Contains(e Edge) bool {
	_, ok := s[e]
	return ok
}

// Intersect returns the edges present in both sets.
func (s EdgeSet) Intersect(other EdgeSet) EdgeSet {
	out := make(EdgeSet)

	for e := range s {
		if other.Contains(e) {
			out[e] = struct{}{}
		}
	}

	return out
}

// Sorted returns the edges ordered by (From, To).
func (s EdgeSet) Sorted() []Edge {
	out := make([]Edge, 0, len(s))
	for e := range s {
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}

		return out[i].To < out[j].To
	})

	return out
}

// Aspects is the coverage/distance result of one execution.
type Aspects struct {
	Outcome Outcome
	// Edges observed in the execution.
	Edges EdgeSet
	// Blocks are the unique trace blocks present in the distance map, sorted.
	Blocks []uint64
	// Distance is the mean distance over Blocks, or UnreachableDistance.
	Distance float64
	// Covers is true when a target block (distance 0) was hit.
	Covers bool
	// Interesting is true when the execution added edges to the global ledger.
	Interesting bool
	// NewEdges is the number of edges this execution added to the ledger.
	NewEdges int
}
