package domain

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// EdgeLedger is the set of every edge observed by any evaluation sharing it.
// It only grows. UnionEdges is the single mutation entry point and is safe
// for concurrent use.
type EdgeLedger struct {
	mu    sync.RWMutex
	edges m.EdgeSet
}

// NewEdgeLedger returns an empty ledger.
func NewEdgeLedger() *EdgeLedger {
	return &EdgeLedger{edges: make(m.EdgeSet)}
}

// UnionEdges merges edges into the ledger and returns those that were not
// known before. The diff and the merge happen under one lock, so two callers
// never both report the same edge as new and no edge is lost.
func (l *EdgeLedger) UnionEdges(edges m.EdgeSet) m.EdgeSet {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := make(m.EdgeSet)

	for e := range edges {
		if l.edges.Contains(e) {
			continue
		}

		l.edges[e] = struct{}{}
		added[e] = struct{}{}
	}

	return added
}

// Len returns the number of known edges.
func (l *EdgeLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.edges)
}

// Contains reports whether e has been observed.
func (l *EdgeLedger) Contains(e m.Edge) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.edges.Contains(e)
}

// Snapshot returns the known edges in sorted order.
func (l *EdgeLedger) Snapshot() []m.Edge {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.edges.Sorted()
}

type ledgerState struct {
	Version int
	Edges   []m.Edge
}

const ledgerStateVersion = 1

// MarshalBinary encodes the ledger with encoding/gob.
func (l *EdgeLedger) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	state := ledgerState{Version: ledgerStateVersion, Edges: l.Snapshot()}
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("encode ledger: %w", err)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary unions a state produced by MarshalBinary into the ledger.
// Existing edges are kept.
func (l *EdgeLedger) UnmarshalBinary(data []byte) error {
	var state ledgerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("decode ledger: %w", err)
	}

	if state.Version != ledgerStateVersion {
		return fmt.Errorf("unsupported ledger state version %d", state.Version)
	}

	l.UnionEdges(m.NewEdgeSet(state.Edges...))

	return nil
}
