package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

func TestEdgeLedger_UnionEdges(t *testing.T) {
	ledger := NewEdgeLedger()

	added := ledger.UnionEdges(m.NewEdgeSet(m.Edge{From: 1, To: 2}, m.Edge{From: 2, To: 3}))
	assert.Len(t, added, 2)

	added = ledger.UnionEdges(m.NewEdgeSet(m.Edge{From: 2, To: 3}, m.Edge{From: 3, To: 4}))
	assert.Equal(t, []m.Edge{{From: 3, To: 4}}, added.Sorted())

	assert.Equal(t, 3, ledger.Len())
	assert.True(t, ledger.Contains(m.Edge{From: 1, To: 2}))
	assert.False(t, ledger.Contains(m.Edge{From: 2, To: 1}))
	assert.Equal(t, []m.Edge{{From: 1, To: 2}, {From: 2, To: 3}, {From: 3, To: 4}}, ledger.Snapshot())
}

func TestEdgeLedger_ConcurrentUnionReportsEachEdgeOnce(t *testing.T) {
	ledger := NewEdgeLedger()

	const workers = 8

	edges := make([]m.Edge, 0, 100)
	for i := range uint64(100) {
		edges = append(edges, m.Edge{From: i, To: i + 1})
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			added := ledger.UnionEdges(m.NewEdgeSet(edges...))

			mu.Lock()
			total += len(added)
			mu.Unlock()
		}()
	}

	wg.Wait()

	assert.Equal(t, len(edges), total)
	assert.Equal(t, len(edges), ledger.Len())
}

func TestEdgeLedger_BinaryRoundTripUnions(t *testing.T) {
	source := NewEdgeLedger()
	source.UnionEdges(m.NewEdgeSet(m.Edge{From: 1, To: 2}, m.Edge{From: 5, To: 6}))

	data, err := source.MarshalBinary()
	require.NoError(t, err)

	target := NewEdgeLedger()
	target.UnionEdges(m.NewEdgeSet(m.Edge{From: 9, To: 9}))
	require.NoError(t, target.UnmarshalBinary(data))

	assert.Equal(t, []m.Edge{{From: 1, To: 2}, {From: 5, To: 6}, {From: 9, To: 9}}, target.Snapshot())
}

func TestEdgeLedger_UnmarshalGarbage(t *testing.T) {
	require.Error(t, NewEdgeLedger().UnmarshalBinary([]byte("not gob")))
}
