package model

import "slices"

// Opcodes known to the built-in environment.
const (
	OpLoadInteger     Opcode = "LoadInteger"
	OpLoadString      Opcode = "LoadString"
	OpLoadBuiltin     Opcode = "LoadBuiltin"
	OpBinaryOperation Opcode = "BinaryOperation"
	OpCompare         Opcode = "Compare"
	OpGetProperty     Opcode = "GetProperty"
	OpCreateArray     Opcode = "CreateArray"
	OpCallFunction    Opcode = "CallFunction"
	OpReassign        Opcode = "Reassign"
)

// OperationSpec describes how an operation may be emitted.
type OperationSpec struct {
	Op        Opcode
	MinInputs int
	MaxInputs int
	Outputs   int
	// Imms lists the immediates the operation can carry. Empty when the
	// operation has no immediate.
	Imms []string
	// Callable marks operations whose output can be called.
	Callable bool
	// CalleeInput marks operations whose first input must be callable.
	CalleeInput bool
	Weight      int
}

// Environment supplies the operation catalog and the coarse type
// information mutators rely on.
type Environment interface {
	Operations() []OperationSpec
	Operation(op Opcode) (OperationSpec, bool)
	Builtins() []string
	// IsCallable reports whether the output of instr can be called.
	IsCallable(instr Instruction) bool
}

// StaticEnvironment is an Environment backed by a fixed catalog.
type StaticEnvironment struct {
	ops      []OperationSpec
	builtins []string
}

// NewStaticEnvironment builds the default catalog, exposing the given
// target builtins through LoadBuiltin.
func NewStaticEnvironment(builtins []string) *StaticEnvironment {
	builtins = slices.Clone(builtins)

	ops := []OperationSpec{
		{Op: OpLoadInteger, Outputs: 1, Weight: 20, Imms: []string{"0", "1", "-1", "42", "255", "65536", "2147483647", "-2147483648", "4294967296"}},
		{Op: OpLoadString, Outputs: 1, Weight: 10, Imms: []string{"", "foo", "length", "prototype", "__proto__", "constructor"}},
		{Op: OpBinaryOperation, MinInputs: 2, MaxInputs: 2, Outputs: 1, Weight: 20, Imms: []string{"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", ">>>", "**"}},
		{Op: OpCompare, MinInputs: 2, MaxInputs: 2, Outputs: 1, Weight: 10, Imms: []string{"==", "===", "!=", "<", "<=", ">", ">="}},
		{Op: OpGetProperty, MinInputs: 1, MaxInputs: 1, Outputs: 1, Weight: 10, Imms: []string{"length", "prototype", "constructor", "name", "0"}},
		{Op: OpCreateArray, MinInputs: 0, MaxInputs: 4, Outputs: 1, Weight: 10},
		{Op: OpCallFunction, MinInputs: 1, MaxInputs: 4, Outputs: 1, Weight: 15, CalleeInput: true},
		{Op: OpReassign, MinInputs: 2, MaxInputs: 2, Weight: 5},
	}

	if len(builtins) > 0 {
		ops = append(ops, OperationSpec{Op: OpLoadBuiltin, Outputs: 1, Weight: 10, Imms: builtins, Callable: true})
	}

	return &StaticEnvironment{ops: ops, builtins: builtins}
}

// Operations returns the catalog.
func (e *StaticEnvironment) Operations() []OperationSpec {
	return slices.Clone(e.ops)
}

// Operation looks up a single catalog entry.
func (e *StaticEnvironment) Operation(op Opcode) (OperationSpec, bool) {
	for _, spec := range e.ops {
		if spec.Op == op {
			return spec, true
		}
	}

	return OperationSpec{}, false
}

// Builtins returns the target builtins.
func (e *StaticEnvironment) Builtins() []string {
	return slices.Clone(e.builtins)
}

// IsCallable reports whether instr produces a callable value.
func (e *StaticEnvironment) IsCallable(instr Instruction) bool {
	spec, ok := e.Operation(instr.Op)
	return ok && spec.Callable
}
