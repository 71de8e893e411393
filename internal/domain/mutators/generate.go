package mutators

import (
	"math/rand/v2"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// Generate appends one random instruction whose inputs can be satisfied by
// the variables already visible in b. It reports whether anything was
// emitted.
func Generate(b *m.ProgramBuilder, env m.Environment, rnd *rand.Rand) bool {
	visible := b.VisibleVariables()
	callables := Callables(b, env)

	candidates := make([]m.OperationSpec, 0)
	weights := make([]int, 0)

	for _, spec := range env.Operations() {
		if spec.MinInputs > 0 && len(visible) == 0 {
			continue
		}

		if spec.CalleeInput && len(callables) == 0 {
			continue
		}

		candidates = append(candidates, spec)
		weights = append(weights, spec.Weight)
	}

	idx := PickWeighted(rnd, weights)
	if idx < 0 {
		return false
	}

	spec := candidates[idx]

	numInputs := spec.MinInputs
	if spec.MaxInputs > spec.MinInputs && len(visible) > 0 {
		numInputs += rnd.IntN(spec.MaxInputs - spec.MinInputs + 1)
	}

	inputs := make([]m.Variable, numInputs)
	for i := range inputs {
		if i == 0 && spec.CalleeInput {
			inputs[i] = callables[rnd.IntN(len(callables))]
			continue
		}

		inputs[i] = visible[rnd.IntN(len(visible))]
	}

	var imm string
	if len(spec.Imms) > 0 {
		imm = spec.Imms[rnd.IntN(len(spec.Imms))]
	}

	b.Emit(spec.Op, imm, spec.Outputs, inputs...)

	return b.Err() == nil
}

// Callables returns the visible variables of b that hold callable values.
func Callables(b *m.ProgramBuilder, env m.Environment) []m.Variable {
	out := make([]m.Variable, 0)

	for _, v := range b.VisibleVariables() {
		def, ok := b.Definition(v)
		if ok && env.IsCallable(def) {
			out = append(out, v)
		}
	}

	return out
}
