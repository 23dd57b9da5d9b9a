package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions of the execution engine.
// They can be checked with errors.Is.
var (
	// ErrNotIdle is returned when Execute is called while a run is active or
	// a terminal state has not been reset.
	ErrNotIdle = errors.New("batchexec: engine is not idle")

	// ErrNoCalls is returned when Execute is called with an empty call list.
	ErrNoCalls = errors.New("batchexec: no calls to execute")

	// ErrNoAccount is returned when Execute is called without an active account.
	ErrNoAccount = errors.New("batchexec: no active account")

	// ErrInvalidTransition is returned when a state transition is not allowed.
	ErrInvalidTransition = errors.New("batchexec: invalid state transition")

	// ErrSubmissionRejected is the default cause of a rejected atomic submission.
	ErrSubmissionRejected = errors.New("batchexec: atomic submission rejected")

	// ErrStepReverted is the cause of a sequential step that reverted on-chain.
	ErrStepReverted = errors.New("batchexec: transaction reverted")

	// ErrConfirmationLost is the cause of a step whose confirmation watcher
	// stopped before reporting a receipt.
	ErrConfirmationLost = errors.New("batchexec: confirmation watcher stopped")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("batchexec: invalid configuration")
)

// ExecutionError is the failure surfaced to callers once a run settles in
// StateError. StepIndex is set for sequential step failures.
type ExecutionError struct {
	Cause     error
	StepIndex *int
}

// NewStepError builds an ExecutionError for a failed sequential step.
func NewStepError(step int, cause error) *ExecutionError {
	return &ExecutionError{Cause: cause, StepIndex: &step}
}

// Error implements error.
func (e *ExecutionError) Error() string {
	if e.StepIndex != nil {
		return fmt.Sprintf("step %d failed: %v", *e.StepIndex, e.Cause)
	}
	return fmt.Sprintf("execution failed: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Step returns the failed step index and whether one is set.
func (e *ExecutionError) Step() (int, bool) {
	if e == nil || e.StepIndex == nil {
		return 0, false
	}
	return *e.StepIndex, true
}
