package model

import "time"

// Outcome is the categorical result of one execution attempt.
type Outcome int

const (
	// Succeeded means the program ran to completion.
	Succeeded Outcome = iota
	// Failed means the program raised a benign runtime exception.
	Failed
	// Crashed means the target crashed.
	Crashed
	// TimedOut means the target did not finish within the profile timeout.
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Crashed:
		return "crashed"
	case TimedOut:
		return "timedOut"
	default:
		return "unknown"
	}
}

// IsCrash reports whether the outcome is a crash.
func (o Outcome) IsCrash() bool {
	return o == Crashed
}

// Purpose tells the executor why a program is run.
type Purpose int

const (
	// PurposeFuzzing is an ordinary fuzzing execution.
	PurposeFuzzing Purpose = iota
	// PurposeDeterminismCheck re-runs a program to confirm its coverage.
	PurposeDeterminismCheck
)

func (p Purpose) String() string {
	if p == PurposeDeterminismCheck {
		return "determinism-check"
	}

	return "fuzzing"
}

// Execution is what the executor reports for one run of a program.
type Execution struct {
	Outcome  Outcome
	Purpose  Purpose
	ExecTime time.Duration
	Output   string // combined stdout/stderr of the target

	// Trace is the ordered list of visited block ids, when the executor
	// collected it directly.
	Trace []uint64
	// CoverageFile points at a side-channel trace file, used when Trace is nil.
	CoverageFile string
}
