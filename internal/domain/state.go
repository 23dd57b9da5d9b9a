package domain

import "fmt"

// ExecutionState is the observable state of the execution engine.
type ExecutionState int

const (
	StateIdle ExecutionState = iota
	StatePending
	StateConfirming
	StateSuccess
	StateError
)

// String returns a human-readable representation of the state.
func (s ExecutionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePending:
		return "Pending"
	case StateConfirming:
		return "Confirming"
	case StateSuccess:
		return "Success"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Terminal returns true for Success and Error. No automatic transition
// leaves a terminal state; only Reset does.
func (s ExecutionState) Terminal() bool {
	return s == StateSuccess || s == StateError
}

// MarshalText encodes the state by name.
func (s ExecutionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name as produced by MarshalText.
func (s *ExecutionState) UnmarshalText(text []byte) error {
	for c := StateIdle; c <= StateError; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown execution state %q", text)
}

// Path identifies which submission strategy a run is using.
type Path string

const (
	PathNone       Path = ""
	PathAtomic     Path = "atomic"
	PathSequential Path = "sequential"
)

// FallbackReason explains why a run left the atomic path. The reason is
// informational only; it is never surfaced as an execution error.
type FallbackReason string

const (
	// FallbackSubmissionRejected means the atomic submission itself failed:
	// the capability is missing, the user declined, or the transport broke.
	FallbackSubmissionRejected FallbackReason = "submission_rejected"

	// FallbackBatchReverted means the batch was accepted but failed on-chain.
	FallbackBatchReverted FallbackReason = "batch_reverted"
)
