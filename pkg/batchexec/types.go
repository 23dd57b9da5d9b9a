package batchexec

import (
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/app"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// Re-exported domain types.
type (
	Call           = domain.Call
	Account        = domain.Account
	ExecutionState = domain.ExecutionState
	ExecutionError = domain.ExecutionError
	FallbackReason = domain.FallbackReason
	Path           = domain.Path
	RunRecord      = domain.RunRecord
	Receipt        = domain.Receipt
	BatchStatus    = domain.BatchStatus
	BatchHandle    = domain.BatchHandle
	SubmitResult   = domain.SubmitResult
	TxID           = domain.TxID
	ReceiptStatus  = domain.ReceiptStatus
	Outcome        = domain.Outcome
	Snapshot       = app.Snapshot
	Timings        = app.Timings
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Ports that can be injected with options.
type (
	BatchSubmitter      = ports.BatchSubmitter
	BatchStatusQuerier  = ports.BatchStatusQuerier
	TransactionSender   = ports.TransactionSender
	ConfirmationWatcher = ports.ConfirmationWatcher
	RunRecorder         = ports.RunRecorder
)

const (
	StateIdle       = domain.StateIdle
	StatePending    = domain.StatePending
	StateConfirming = domain.StateConfirming
	StateSuccess    = domain.StateSuccess
	StateError      = domain.StateError
)

const (
	BatchPending = domain.BatchPending
	BatchSuccess = domain.BatchSuccess
	BatchFailure = domain.BatchFailure
)

const (
	ReceiptSuccess  = domain.ReceiptSuccess
	ReceiptReverted = domain.ReceiptReverted
)

const (
	OutcomeSuccess   = domain.OutcomeSuccess
	OutcomeError     = domain.OutcomeError
	OutcomeAbandoned = domain.OutcomeAbandoned
)

const (
	PathAtomic     = domain.PathAtomic
	PathSequential = domain.PathSequential
)

const (
	FallbackSubmissionRejected = domain.FallbackSubmissionRejected
	FallbackBatchReverted      = domain.FallbackBatchReverted
)

var (
	ErrNotIdle            = domain.ErrNotIdle
	ErrNoCalls            = domain.ErrNoCalls
	ErrNoAccount          = domain.ErrNoAccount
	ErrInvalidConfig      = domain.ErrInvalidConfig
	ErrSubmissionRejected = domain.ErrSubmissionRejected
	ErrStepReverted       = domain.ErrStepReverted
	ErrConfirmationLost   = domain.ErrConfirmationLost
)

// ParseCall builds a Call from hex target and data and a decimal or
// 0x-prefixed value. Empty data and value are allowed.
func ParseCall(target, data, value string) (Call, error) {
	return domain.ParseCall(target, data, value)
}

// Accepted builds a SubmitResult for an accepted batch.
func Accepted(handle BatchHandle) SubmitResult {
	return domain.Accepted(handle)
}

// Rejected builds a SubmitResult for a rejected submission.
func Rejected(cause error) SubmitResult {
	return domain.Rejected(cause)
}
