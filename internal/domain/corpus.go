package domain

import (
	"math/rand/v2"
	"sync"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// DefaultCorpusSize bounds the corpus when no size is configured.
const DefaultCorpusSize = 4096

// Corpus is the pool of retained programs shared by all workers.
type Corpus interface {
	// RandomElementForMutating returns a uniformly chosen program, or nil
	// when the corpus is empty. Callers must not modify it.
	RandomElementForMutating(rnd *rand.Rand) *m.Program
	// Add inserts p unless an identical program is already present and
	// reports whether it was inserted.
	Add(p *m.Program) bool
	Size() int
}

type boundedCorpus struct {
	mu       sync.Mutex
	maxSize  int
	programs []*m.Program
	keys     []string
	present  map[string]struct{}
}

// NewCorpus returns a corpus holding at most maxSize programs. Once full,
// the oldest program is evicted for every insertion.
func NewCorpus(maxSize int) Corpus {
	return &boundedCorpus{
		maxSize: max(maxSize, 1),
		present: make(map[string]struct{}),
	}
}

func (c *boundedCorpus) RandomElementForMutating(rnd *rand.Rand) *m.Program {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.programs) == 0 {
		return nil
	}

	return c.programs[rnd.IntN(len(c.programs))]
}

func (c *boundedCorpus) Add(p *m.Program) bool {
	if p == nil || p.Size() == 0 {
		return false
	}

	key := m.Lift(p)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.present[key]; dup {
		return false
	}

	c.programs = append(c.programs, p)
	c.keys = append(c.keys, key)
	c.present[key] = struct{}{}

	for len(c.programs) > c.maxSize {
		delete(c.present, c.keys[0])
		c.programs[0] = nil
		c.programs = c.programs[1:]
		c.keys = c.keys[1:]
	}

	return true
}

func (c *boundedCorpus) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.programs)
}
