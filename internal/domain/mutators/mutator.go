// Package mutators provides the program mutators used by the mutation engine.
package mutators

import (
	"math/rand/v2"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// Mutator derives a new program from parent.
//
// Mutate returns nil when the mutator does not apply to parent. It never
// modifies parent and never returns it.
type Mutator interface {
	Name() string
	Mutate(parent *m.Program, mctx *Context) *m.Program
}

// Context carries what a mutator may draw on during one attempt.
type Context struct {
	Rand *rand.Rand
	Env  m.Environment
	// Donor returns another program to splice from. It may be nil, and may
	// return nil when no donor is available.
	Donor func() *m.Program
}

// Weighted pairs a mutator with its selection weight.
type Weighted struct {
	Mutator Mutator
	Weight  int
}

// Default returns the built-in mutators with their selection weights.
func Default() []Weighted {
	return []Weighted{
		{Mutator: NewInputMutator(), Weight: 10},
		{Mutator: NewOperationMutator(), Weight: 10},
		{Mutator: NewCodeGenMutator(), Weight: 15},
		{Mutator: NewCombineMutator(), Weight: 5},
		{Mutator: NewJITStressMutator(), Weight: 5},
	}
}

// PickWeighted returns an index into weights with probability proportional
// to its weight, or -1 when every weight is zero.
func PickWeighted(rnd *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		total += max(w, 0)
	}

	if total == 0 {
		return -1
	}

	n := rnd.IntN(total)
	for idx, w := range weights {
		n -= max(w, 0)
		if n < 0 {
			return idx
		}
	}

	return len(weights) - 1
}

// definedBefore returns the number of variables defined by parent's first
// idx instructions. Variables are numbered densely in definition order, so
// these are exactly v0..vN-1.
func definedBefore(parent *m.Program, idx int) int {
	n := 0
	for i := range idx {
		n += len(parent.Instruction(i).Outputs)
	}

	return n
}

// copyRange adopts parent's instructions in [from, to) into b.
func copyRange(b *m.ProgramBuilder, parent *m.Program, from, to int, remap map[m.Variable]m.Variable) {
	for idx := from; idx < to; idx++ {
		b.Adopt(parent.Instruction(idx), remap)
	}
}

// emitMapped emits instr with explicit inputs and records its outputs in remap.
func emitMapped(b *m.ProgramBuilder, instr m.Instruction, inputs []m.Variable, remap map[m.Variable]m.Variable) {
	outputs := b.Emit(instr.Op, instr.Imm, len(instr.Outputs), inputs...)
	for i, out := range instr.Outputs {
		remap[out] = outputs[i]
	}
}

func finalize(b *m.ProgramBuilder) *m.Program {
	p, err := b.Finalize()
	if err != nil {
		return nil
	}

	return p
}
