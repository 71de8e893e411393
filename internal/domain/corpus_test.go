package domain

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distfuzz.dev/pkg/distfuzz/internal/domain/mutators"
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

func integerProgram(t *testing.T, value string) *m.Program {
	t.Helper()

	b := m.NewProgramBuilder()
	b.Emit1(m.OpLoadInteger, value)

	p, err := b.Finalize()
	require.NoError(t, err)

	return p
}

func TestCorpus(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 1))

	t.Run("empty corpus has no element", func(t *testing.T) {
		assert.Nil(t, NewCorpus(4).RandomElementForMutating(rnd))
	})

	t.Run("rejects nil, empty and duplicate programs", func(t *testing.T) {
		corpus := NewCorpus(4)
		empty, err := m.NewProgramBuilder().Finalize()
		require.NoError(t, err)

		assert.False(t, corpus.Add(nil))
		assert.False(t, corpus.Add(empty))
		assert.True(t, corpus.Add(integerProgram(t, "1")))
		assert.False(t, corpus.Add(integerProgram(t, "1")))
		assert.Equal(t, 1, corpus.Size())
	})

	t.Run("evicts the oldest program", func(t *testing.T) {
		corpus := NewCorpus(2)
		corpus.Add(integerProgram(t, "1"))
		corpus.Add(integerProgram(t, "2"))
		corpus.Add(integerProgram(t, "3"))

		assert.Equal(t, 2, corpus.Size())

		seen := make(map[string]bool)
		for range 50 {
			seen[corpus.RandomElementForMutating(rnd).Instruction(0).Imm] = true
		}

		assert.Equal(t, map[string]bool{"2": true, "3": true}, seen)

		// The evicted program may be inserted again.
		assert.True(t, corpus.Add(integerProgram(t, "1")))
	})

	t.Run("size is at least one", func(t *testing.T) {
		corpus := NewCorpus(0)
		corpus.Add(integerProgram(t, "1"))
		corpus.Add(integerProgram(t, "2"))

		assert.Equal(t, 1, corpus.Size())
	})
}

func TestCorpus_ConcurrentAdd(t *testing.T) {
	corpus := NewCorpus(DefaultCorpusSize)

	var wg sync.WaitGroup

	for worker := range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range 25 {
				corpus.Add(integerProgram(t, string(rune('a'+worker))+string(rune('a'+i))))
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 100, corpus.Size())
}

type namedMutator string

func (n namedMutator) Name() string { return string(n) }

func (namedMutator) Mutate(*m.Program, *mutators.Context) *m.Program { return nil }

func TestMutatorPool(t *testing.T) {
	pool := NewMutatorPool([]mutators.Weighted{
		{Mutator: namedMutator("never"), Weight: 0},
		{Mutator: namedMutator("always"), Weight: 3},
	})

	rnd := rand.New(rand.NewPCG(7, 7))
	for range 20 {
		assert.Equal(t, "always", pool.Pick(rnd).Name())
	}

	assert.Equal(t, 2, pool.Len())

	pool.MergeStats(map[string]*m.MutatorStats{
		"always": {Name: "always", Attempts: 4, Failures: 1, Successes: 3, AddedInstructions: 6},
	})
	pool.MergeStats(map[string]*m.MutatorStats{
		"always": {Name: "always", Attempts: 1, Successes: 1},
		"extra":  {Name: "extra", Attempts: 1},
	})

	stats := pool.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "never", stats[0].Name)
	assert.Zero(t, stats[0].Attempts)
	assert.Equal(t, m.MutatorStats{Name: "always", Attempts: 5, Failures: 1, Successes: 4, AddedInstructions: 6}, stats[1])

	assert.Nil(t, NewMutatorPool(nil).Pick(rnd))
}

func TestPrefixBuilder(t *testing.T) {
	rnd := rand.New(rand.NewPCG(9, 9))

	t.Run("adds builtins and constants", func(t *testing.T) {
		pb := NewPrefixBuilder(m.NewStaticEnvironment([]string{"gc", "bailout"}))
		program := integerProgram(t, "5")
		program.AddContributors("seed")

		prepared, err := pb.Prepare(program, rnd)
		require.NoError(t, err)

		// Two builtins, two more constants, then the program itself.
		require.Equal(t, 5, prepared.Size())
		assert.Equal(t, "gc", prepared.Instruction(0).Imm)
		assert.Equal(t, "bailout", prepared.Instruction(1).Imm)
		assert.Equal(t, m.OpLoadInteger, prepared.Instruction(2).Op)
		assert.Equal(t, "5", prepared.Instruction(4).Imm)
		assert.Equal(t, []m.Contributor{"seed"}, prepared.Contributors())
		assert.NotSame(t, program, prepared)
	})

	t.Run("preparing twice does not grow", func(t *testing.T) {
		pb := NewPrefixBuilder(m.NewStaticEnvironment([]string{"gc"}))

		once, err := pb.Prepare(integerProgram(t, "5"), rnd)
		require.NoError(t, err)

		twice, err := pb.Prepare(once, rnd)
		require.NoError(t, err)

		assert.True(t, once.Equal(twice))
	})
}
