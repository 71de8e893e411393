package domain

import (
	"math/rand/v2"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

const defaultPrefixConstants = 3

// PrefixBuilder prepares a corpus sample for mutation by prepending setup
// code: a load for every target builtin and a few integer constants.
//
// Builtins the program already loads are not loaded again, and constants
// are only added while the program has fewer than the configured number of
// integer loads, so repeated preparation does not grow a sample forever.
type PrefixBuilder struct {
	env       m.Environment
	constants int
}

// NewPrefixBuilder constructs a PrefixBuilder for env.
func NewPrefixBuilder(env m.Environment) *PrefixBuilder {
	return &PrefixBuilder{env: env, constants: defaultPrefixConstants}
}

// Prepare returns program with the setup prefix. The result is always a
// new Program carrying program's contributors.
func (pb *PrefixBuilder) Prepare(program *m.Program, rnd *rand.Rand) (*m.Program, error) {
	loaded := make(map[string]bool)
	integers := 0

	for _, instr := range program.Code() {
		switch instr.Op {
		case m.OpLoadBuiltin:
			loaded[instr.Imm] = true
		case m.OpLoadInteger:
			integers++
		}
	}

	b := m.NewProgramBuilder()

	for _, builtin := range pb.env.Builtins() {
		if !loaded[builtin] {
			b.Emit1(m.OpLoadBuiltin, builtin)
		}
	}

	if spec, ok := pb.env.Operation(m.OpLoadInteger); ok && len(spec.Imms) > 0 {
		for range pb.constants - integers {
			b.Emit1(m.OpLoadInteger, spec.Imms[rnd.IntN(len(spec.Imms))])
		}
	}

	b.Append(program)

	prepared, err := b.Finalize()
	if err != nil {
		return nil, err
	}

	prepared.MergeContributors(program)

	return prepared, nil
}
