package domain

// BatchHandle is the opaque identifier returned by the execution environment
// when it accepts an atomic batch. It is only meaningful to the environment
// that issued it.
type BatchHandle string

// SubmitResult is the decoded outcome of an atomic batch submission.
// Exactly one of Handle or Cause is set.
type SubmitResult struct {
	// Handle identifies the accepted batch.
	Handle BatchHandle

	// Cause explains why the submission was rejected.
	Cause error
}

// Accepted builds a SubmitResult for an accepted batch.
func Accepted(handle BatchHandle) SubmitResult {
	return SubmitResult{Handle: handle}
}

// Rejected builds a SubmitResult for a rejected submission.
// A nil cause is replaced with ErrSubmissionRejected.
func Rejected(cause error) SubmitResult {
	if cause == nil {
		cause = ErrSubmissionRejected
	}
	return SubmitResult{Cause: cause}
}

// IsAccepted returns true if the environment accepted the batch.
func (r SubmitResult) IsAccepted() bool {
	return r.Cause == nil && r.Handle != ""
}

// BatchStatus is the polled status of an accepted batch.
type BatchStatus int

const (
	BatchPending BatchStatus = iota
	BatchSuccess
	BatchFailure
)

// String returns a human-readable representation of the status.
func (s BatchStatus) String() string {
	switch s {
	case BatchPending:
		return "pending"
	case BatchSuccess:
		return "success"
	case BatchFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Terminal returns true for statuses after which polling stops.
func (s BatchStatus) Terminal() bool {
	return s == BatchSuccess || s == BatchFailure
}
