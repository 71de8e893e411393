package mutators

import (
	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// CombineMutator splices a whole donor program into the parent.
type CombineMutator struct{}

// NewCombineMutator constructs a CombineMutator.
func NewCombineMutator() *CombineMutator {
	return &CombineMutator{}
}

// Name implements Mutator.
func (*CombineMutator) Name() string {
	return "CombineMutator"
}

// Mutate implements Mutator. It declines when no non-empty donor is
// available.
func (*CombineMutator) Mutate(parent *m.Program, mctx *Context) *m.Program {
	if mctx.Donor == nil {
		return nil
	}

	donor := mctx.Donor()
	if donor == nil || donor.Size() == 0 {
		return nil
	}

	at := mctx.Rand.IntN(parent.Size() + 1)

	b := m.NewProgramBuilder()
	remap := make(map[m.Variable]m.Variable, parent.NumVariables())

	copyRange(b, parent, 0, at, remap)
	b.Append(donor)
	copyRange(b, parent, at, parent.Size(), remap)

	return finalize(b)
}
