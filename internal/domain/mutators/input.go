package mutators

import (
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// InputMutator rewires one input of one instruction to another variable
// that is visible at that point.
type InputMutator struct{}

// NewInputMutator constructs an InputMutator.
func NewInputMutator() *InputMutator {
	return &InputMutator{}
}

// Name implements Mutator.
func (*InputMutator) Name() string {
	return "InputMutator"
}

// Mutate implements Mutator.
func (*InputMutator) Mutate(parent *m.Program, mctx *Context) *m.Program {
	for _, idx := range mctx.Rand.Perm(parent.Size()) {
		instr := parent.Instruction(idx)
		if len(instr.Inputs) == 0 {
			continue
		}

		slot := mctx.Rand.IntN(len(instr.Inputs))
		candidates := inputAlternatives(parent, idx, slot, mctx.Env)

		if len(candidates) == 0 {
			continue
		}

		replacement := candidates[mctx.Rand.IntN(len(candidates))]

		return rewire(parent, idx, slot, replacement)
	}

	return nil
}

// inputAlternatives lists the variables that may replace input slot of
// instruction idx. Without insertions the child keeps parent's numbering.
func inputAlternatives(parent *m.Program, idx, slot int, env m.Environment) []m.Variable {
	instr := parent.Instruction(idx)
	spec, _ := env.Operation(instr.Op)
	current := instr.Inputs[slot]
	visible := definedBefore(parent, idx)

	out := make([]m.Variable, 0, visible)

	for v := range visible {
		candidate := m.Variable(v)
		if candidate == current {
			continue
		}

		if slot == 0 && spec.CalleeInput && !env.IsCallable(definition(parent, idx, candidate)) {
			continue
		}

		out = append(out, candidate)
	}

	return out
}

// definition finds the instruction before idx that defines v.
func definition(parent *m.Program, idx int, v m.Variable) m.Instruction {
	for i := range idx {
		instr := parent.Instruction(i)
		for _, out := range instr.Outputs {
			if out == v {
				return instr
			}
		}
	}

	return m.Instruction{}
}

func rewire(parent *m.Program, idx, slot int, replacement m.Variable) *m.Program {
	b := m.NewProgramBuilder()
	remap := make(map[m.Variable]m.Variable, parent.NumVariables())

	copyRange(b, parent, 0, idx, remap)

	instr := parent.Instruction(idx)
	inputs := make([]m.Variable, len(instr.Inputs))

	for i, in := range instr.Inputs {
		inputs[i] = remap[in]
	}

	inputs[slot] = remap[replacement]
	emitMapped(b, instr, inputs, remap)

	copyRange(b, parent, idx+1, parent.Size(), remap)

	return finalize(b)
}
