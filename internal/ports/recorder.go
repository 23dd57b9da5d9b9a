package ports

import (
	"context"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

// RunRecorder persists summaries of runs once they settle or are reset.
type RunRecorder interface {
	// RecordRun stores rec, replacing any earlier record with the same ID.
	RecordRun(ctx context.Context, rec domain.RunRecord) error
}

// RunHistory lists recorded runs, newest first.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}
