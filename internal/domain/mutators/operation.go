package mutators

import (
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// OperationMutator replaces the immediate of one instruction, for example a
// binary operator or a constant, with another value from the catalog.
type OperationMutator struct{}

// NewOperationMutator constructs an OperationMutator.
func NewOperationMutator() *OperationMutator {
	return &OperationMutator{}
}

// Name implements Mutator.
func (*OperationMutator) Name() string {
	return "OperationMutator"
}

// Mutate implements Mutator.
func (*OperationMutator) Mutate(parent *m.Program, mctx *Context) *m.Program {
	for _, idx := range mctx.Rand.Perm(parent.Size()) {
		instr := parent.Instruction(idx)

		spec, ok := mctx.Env.Operation(instr.Op)
		if !ok {
			continue
		}

		alternatives := immAlternatives(spec, instr.Imm)
		if len(alternatives) == 0 {
			continue
		}

		return replaceImm(parent, idx, alternatives[mctx.Rand.IntN(len(alternatives))])
	}

	return nil
}

// immAlternatives returns every catalog immediate except the current one.
func immAlternatives(spec m.OperationSpec, current string) []string {
	out := make([]string, 0, len(spec.Imms))

	for _, imm := range spec.Imms {
		if imm != current {
			out = append(out, imm)
		}
	}

	return out
}

func replaceImm(parent *m.Program, idx int, imm string) *m.Program {
	b := m.NewProgramBuilder()
	remap := make(map[m.Variable]m.Variable, parent.NumVariables())

	copyRange(b, parent, 0, idx, remap)

	instr := parent.Instruction(idx)
	instr.Imm = imm
	b.Adopt(instr, remap)

	copyRange(b, parent, idx+1, parent.Size(), remap)

	return finalize(b)
}
