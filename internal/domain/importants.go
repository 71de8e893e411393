package domain

import (
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// ImportantIndices returns the indices of child instructions that were
// introduced by the mutation from parent, followed one hop along data flow:
//
//   - an instruction is new when no structurally equal instruction exists
//     anywhere in parent;
//   - every new instruction is important;
//   - every instruction that reads the single output of a new instruction
//     is important.
//
// The result is deduplicated and ascending.
func ImportantIndices(parent, child *m.Program) []int {
	known := make(map[string]struct{}, parent.Size())
	for _, instr := range parent.Code() {
		known[instr.Key()] = struct{}{}
	}

	code := child.Code()
	important := make([]bool, len(code))

	var newOutputs []m.Variable

	for idx, instr := range code {
		if _, ok := known[instr.Key()]; ok {
			continue
		}

		important[idx] = true

		if instr.HasOneOutput() {
			newOutputs = append(newOutputs, instr.Output())
		}
	}

	for _, out := range newOutputs {
		for idx, instr := range code {
			if instr.Reads(out) {
				important[idx] = true
			}
		}
	}

	indices := make([]int, 0)

	for idx, flagged := range important {
		if flagged {
			indices = append(indices, idx)
		}
	}

	return indices
}

// ImportantInstructions is ImportantIndices resolved to instructions.
func ImportantInstructions(parent, child *m.Program) []m.Instruction {
	indices := ImportantIndices(parent, child)

	out := make([]m.Instruction, 0, len(indices))
	for _, idx := range indices {
		out = append(out, child.Instruction(idx))
	}

	return out
}
