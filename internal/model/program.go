// Package model defines the data structures shared by the fuzzer components.
package model

import (
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Variable is a value handle. Variables are numbered densely from zero in
// the order they are defined within one Program.
type Variable uint32

// String renders the variable the way it appears in program text.
func (v Variable) String() string {
	return "v" + strconv.FormatUint(uint64(v), 10)
}

// Opcode names an IR operation.
type Opcode string

// Instruction is a single IR operation with its value handles.
//
// Two instructions are equal when opcode, immediate, inputs and outputs are
// equal, which makes them comparable across independently built programs.
type Instruction struct {
	Op      Opcode
	Imm     string // Immediate operand (constant, operator, builtin name). Empty when unused.
	Inputs  []Variable
	Outputs []Variable
}

// Equal reports whether two instructions are structurally identical.
func (i Instruction) Equal(other Instruction) bool {
	return i.Op == other.Op &&
		i.Imm == other.Imm &&
		slices.Equal(i.Inputs, other.Inputs) &&
		slices.Equal(i.Outputs, other.Outputs)
}

// Key returns a string that is equal for two instructions iff Equal holds.
func (i Instruction) Key() string {
	var b strings.Builder

	b.WriteString(string(i.Op))
	b.WriteByte('\x00')
	b.WriteString(i.Imm)
	b.WriteByte('\x00')

	for _, in := range i.Inputs {
		b.WriteString(strconv.FormatUint(uint64(in), 10))
		b.WriteByte(',')
	}

	b.WriteByte('\x00')

	for _, out := range i.Outputs {
		b.WriteString(strconv.FormatUint(uint64(out), 10))
		b.WriteByte(',')
	}

	return b.String()
}

// HasOneOutput reports whether the instruction defines exactly one variable.
func (i Instruction) HasOneOutput() bool {
	return len(i.Outputs) == 1
}

// Output returns the single output variable. It panics if the instruction
// does not have exactly one output.
func (i Instruction) Output() Variable {
	if !i.HasOneOutput() {
		panic("instruction " + string(i.Op) + " does not have exactly one output")
	}

	return i.Outputs[0]
}

// Reads reports whether v is among the instruction inputs.
func (i Instruction) Reads(v Variable) bool {
	return slices.Contains(i.Inputs, v)
}

func (i Instruction) clone() Instruction {
	return Instruction{
		Op:      i.Op,
		Imm:     i.Imm,
		Inputs:  slices.Clone(i.Inputs),
		Outputs: slices.Clone(i.Outputs),
	}
}

// Contributor identifies a mutator or generator that shaped a program.
type Contributor string

// Program is a finalized, immutable sequence of instructions.
//
// The instruction list never changes after ProgramBuilder.Finalize. The
// contributor and important-instruction annotations are attached afterwards
// by the worker that owns the program and are not safe for concurrent
// modification.
type Program struct {
	code         []Instruction
	numVariables int

	contributors map[Contributor]struct{}
	importants   map[int]struct{}
}

// Size returns the number of instructions.
func (p *Program) Size() int {
	return len(p.code)
}

// NumVariables returns the number of variables defined by the program.
func (p *Program) NumVariables() int {
	return p.numVariables
}

// Code returns a copy of the instruction list.
func (p *Program) Code() []Instruction {
	code := make([]Instruction, len(p.code))
	for idx, instr := range p.code {
		code[idx] = instr.clone()
	}

	return code
}

// Instruction returns the instruction at index idx.
func (p *Program) Instruction(idx int) Instruction {
	return p.code[idx].clone()
}

// Equal reports whether both programs contain structurally identical code.
// Annotations are not compared.
func (p *Program) Equal(other *Program) bool {
	if p == nil || other == nil {
		return p == other
	}

	return slices.EqualFunc(p.code, other.code, Instruction.Equal)
}

// Contributors returns the contributor names sorted alphabetically.
func (p *Program) Contributors() []Contributor {
	out := make([]Contributor, 0, len(p.contributors))
	for c := range p.contributors {
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// AddContributors records additional contributors.
func (p *Program) AddContributors(contributors ...Contributor) {
	if p.contributors == nil {
		p.contributors = make(map[Contributor]struct{}, len(contributors))
	}

	for _, c := range contributors {
		p.contributors[c] = struct{}{}
	}
}

// MergeContributors unions the contributors of other into p.
func (p *Program) MergeContributors(other *Program) {
	if other == nil {
		return
	}

	for c := range other.contributors {
		p.AddContributors(c)
	}
}

// SetImportants replaces the important-instruction annotation with the given
// instruction indices. Out of range indices are ignored.
func (p *Program) SetImportants(indices []int) {
	p.importants = make(map[int]struct{}, len(indices))

	for _, idx := range indices {
		if idx < 0 || idx >= len(p.code) {
			continue
		}

		p.importants[idx] = struct{}{}
	}
}

// IsImportant reports whether the instruction at idx is flagged important.
func (p *Program) IsImportant(idx int) bool {
	_, ok := p.importants[idx]
	return ok
}

// ImportantIndices returns the flagged instruction indices in ascending order.
func (p *Program) ImportantIndices() []int {
	out := make([]int, 0, len(p.importants))
	for idx := range p.importants {
		out = append(out, idx)
	}

	sort.Ints(out)

	return out
}

// Importants returns the flagged instructions in program order.
func (p *Program) Importants() []Instruction {
	indices := p.ImportantIndices()

	out := make([]Instruction, 0, len(indices))
	for _, idx := range indices {
		out = append(out, p.code[idx].clone())
	}

	return out
}
