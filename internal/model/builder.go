package model

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUndefinedVariable is returned when an instruction reads a variable that
// no earlier instruction defined.
var ErrUndefinedVariable = errors.New("undefined variable")

// ProgramBuilder appends instructions and produces an immutable Program.
//
// The first error encountered is sticky: later calls become no-ops and
// Finalize returns that error.
type ProgramBuilder struct {
	code []Instruction
	defs []int // defs[v] is the index of the instruction that defined v
	err  error
}

// NewProgramBuilder returns an empty builder.
func NewProgramBuilder() *ProgramBuilder {
	return &ProgramBuilder{}
}

// Emit appends an instruction producing numOutputs fresh variables and
// returns them.
func (b *ProgramBuilder) Emit(op Opcode, imm string, numOutputs int, inputs ...Variable) []Variable {
	if b.err != nil {
		return make([]Variable, numOutputs)
	}

	for _, in := range inputs {
		if int(in) >= len(b.defs) {
			b.err = fmt.Errorf("instruction %d (%s) reads %s: %w", len(b.code), op, in, ErrUndefinedVariable)
			return make([]Variable, numOutputs)
		}
	}

	outputs := make([]Variable, numOutputs)
	for i := range outputs {
		outputs[i] = Variable(len(b.defs))
		b.defs = append(b.defs, len(b.code))
	}

	b.code = append(b.code, Instruction{
		Op:      op,
		Imm:     imm,
		Inputs:  slices.Clone(inputs),
		Outputs: outputs,
	})

	return slices.Clone(outputs)
}

// Emit1 appends an instruction with exactly one output and returns it.
func (b *ProgramBuilder) Emit1(op Opcode, imm string, inputs ...Variable) Variable {
	return b.Emit(op, imm, 1, inputs...)[0]
}

// Adopt copies an instruction taken from another program. Its inputs are
// translated through remap and its outputs are replaced by fresh variables,
// which are recorded in remap.
func (b *ProgramBuilder) Adopt(instr Instruction, remap map[Variable]Variable) {
	inputs := make([]Variable, len(instr.Inputs))

	for i, in := range instr.Inputs {
		mapped, ok := remap[in]
		if !ok {
			if b.err == nil {
				b.err = fmt.Errorf("adopting %s: no mapping for %s: %w", instr.Op, in, ErrUndefinedVariable)
			}

			return
		}

		inputs[i] = mapped
	}

	outputs := b.Emit(instr.Op, instr.Imm, len(instr.Outputs), inputs...)
	for i, out := range instr.Outputs {
		remap[out] = outputs[i]
	}
}

// Append copies every instruction of p to the end of the builder,
// renumbering variables.
func (b *ProgramBuilder) Append(p *Program) {
	remap := make(map[Variable]Variable, p.NumVariables())
	for _, instr := range p.code {
		b.Adopt(instr, remap)
	}
}

// Size returns the number of instructions emitted so far.
func (b *ProgramBuilder) Size() int {
	return len(b.code)
}

// NumVariables returns the number of variables defined so far.
func (b *ProgramBuilder) NumVariables() int {
	return len(b.defs)
}

// VisibleVariables returns every variable defined so far.
func (b *ProgramBuilder) VisibleVariables() []Variable {
	vars := make([]Variable, len(b.defs))
	for i := range vars {
		vars[i] = Variable(i)
	}

	return vars
}

// Definition returns the instruction that defined v.
func (b *ProgramBuilder) Definition(v Variable) (Instruction, bool) {
	if int(v) >= len(b.defs) {
		return Instruction{}, false
	}

	return b.code[b.defs[v]].clone(), true
}

// Err returns the sticky error, if any.
func (b *ProgramBuilder) Err() error {
	return b.err
}

// Finalize returns the built program. The builder must not be used afterwards.
func (b *ProgramBuilder) Finalize() (*Program, error) {
	if b.err != nil {
		return nil, b.err
	}

	p := &Program{
		code:         b.code,
		numVariables: len(b.defs),
	}
	b.code = nil
	b.defs = nil

	return p, nil
}
