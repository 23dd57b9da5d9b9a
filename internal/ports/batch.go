package ports

import (
	"context"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

// BatchSubmitter asks the execution environment to execute a list of calls
// atomically: either all of them are committed or none.
type BatchSubmitter interface {
	// SubmitBatch sends calls as one atomic batch on behalf of account.
	// Every failure (capability missing, user rejection, transport fault) is
	// reported as a rejected result; implementations do not return errors.
	SubmitBatch(ctx context.Context, account domain.Account, calls []domain.Call) domain.SubmitResult
}

// BatchStatusQuerier reports the status of a previously accepted batch.
type BatchStatusQuerier interface {
	// BatchStatus returns the current status of handle.
	// An error means the status is unknown for now; callers may retry.
	BatchStatus(ctx context.Context, handle domain.BatchHandle) (domain.BatchStatus, error)
}
