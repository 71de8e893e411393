package model

import "time"

// CrashRecord is persisted for every crashing execution.
type CrashRecord struct {
	ID           string
	Time         time.Time
	Program      string // lifted program text
	ParentDiff   string // unified diff against the parent it was mutated from
	Contributors []Contributor
	Output       string
	ExecTime     time.Duration
}

// MutatorStats is the feedback collected for one mutator.
type MutatorStats struct {
	Name              string
	Attempts          int64
	Failures          int64
	Successes         int64
	AddedInstructions int64
}

// NotifyFailure records a declined mutation attempt.
func (s *MutatorStats) NotifyFailure() {
	s.Attempts++
	s.Failures++
}

// NotifyProductivity records a successful attempt and the instruction
// count delta it produced.
func (s *MutatorStats) NotifyProductivity(instructionsAdded int) {
	s.Attempts++
	s.Successes++
	s.AddedInstructions += int64(instructionsAdded)
}

// Merge adds other into s.
func (s *MutatorStats) Merge(other MutatorStats) {
	s.Attempts += other.Attempts
	s.Failures += other.Failures
	s.Successes += other.Successes
	s.AddedInstructions += other.AddedInstructions
}

// FailureRate returns failures/attempts, or 0 when there were no attempts.
func (s MutatorStats) FailureRate() float64 {
	if s.Attempts == 0 {
		return 0
	}

	return float64(s.Failures) / float64(s.Attempts)
}

// Stats is a point-in-time view of a fuzzing session.
type Stats struct {
	Elapsed        time.Duration
	Executions     uint64
	Succeeded      uint64
	Failed         uint64
	Crashed        uint64
	TimedOut       uint64
	Interesting    uint64
	CorpusSize     int
	Edges          int
	Score          float64
	BestDistance   float64
	TargetsCovered uint64
	Mutators       []MutatorStats
}

// ExecsPerSecond returns the execution rate over Elapsed.
func (s Stats) ExecsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}

	return float64(s.Executions) / s.Elapsed.Seconds()
}
