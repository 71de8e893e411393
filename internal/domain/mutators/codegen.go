package mutators

import (
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

const maxGeneratedInstructions = 3

// CodeGenMutator inserts a few freshly generated instructions at a random
// point of the program.
type CodeGenMutator struct{}

// NewCodeGenMutator constructs a CodeGenMutator.
func NewCodeGenMutator() *CodeGenMutator {
	return &CodeGenMutator{}
}

// Name implements Mutator.
func (*CodeGenMutator) Name() string {
	return "CodeGenMutator"
}

// Mutate implements Mutator.
func (*CodeGenMutator) Mutate(parent *m.Program, mctx *Context) *m.Program {
	at := mctx.Rand.IntN(parent.Size() + 1)
	count := 1 + mctx.Rand.IntN(maxGeneratedInstructions)

	b := m.NewProgramBuilder()
	remap := make(map[m.Variable]m.Variable, parent.NumVariables())

	copyRange(b, parent, 0, at, remap)

	generated := 0
	for range count {
		if Generate(b, mctx.Env, mctx.Rand) {
			generated++
		}
	}

	if generated == 0 {
		return nil
	}

	copyRange(b, parent, at, parent.Size(), remap)

	return finalize(b)
}
