package mutators

import (
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

const maxStressArguments = 3

// JITStressMutator appends generated code followed by another call to an
// existing callable with fresh arguments, nudging the target into
// recompiling a hot function.
type JITStressMutator struct{}

// NewJITStressMutator constructs a JITStressMutator.
func NewJITStressMutator() *JITStressMutator {
	return &JITStressMutator{}
}

// Name implements Mutator.
func (*JITStressMutator) Name() string {
	return "JITStressMutator"
}

// Mutate implements Mutator. It declines when the parent defines nothing
// callable.
func (*JITStressMutator) Mutate(parent *m.Program, mctx *Context) *m.Program {
	b := m.NewProgramBuilder()
	b.Append(parent)

	callables := Callables(b, mctx.Env)
	if len(callables) == 0 {
		return nil
	}

	for range 1 + mctx.Rand.IntN(2) {
		Generate(b, mctx.Env, mctx.Rand)
	}

	visible := b.VisibleVariables()
	callee := callables[mctx.Rand.IntN(len(callables))]

	args := []m.Variable{callee}
	for range mctx.Rand.IntN(maxStressArguments + 1) {
		args = append(args, visible[mctx.Rand.IntN(len(visible))])
	}

	b.Emit1(m.OpCallFunction, "", args...)

	return finalize(b)
}
