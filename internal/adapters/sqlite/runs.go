// Package sqlite stores run history in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"

	_ "modernc.org/sqlite"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    account     TEXT NOT NULL,
    chain_id    INTEGER NOT NULL,
    calls       INTEGER NOT NULL,
    path        TEXT NOT NULL,
    fallback    TEXT NOT NULL,
    handle      TEXT NOT NULL,
    confirmed   INTEGER NOT NULL,
    outcome     TEXT NOT NULL,
    step_index  INTEGER,
    error       TEXT NOT NULL,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
)`

const createRunsIndex = `CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at DESC)`

const runColumns = `id, account, chain_id, calls, path, fallback, handle,
	confirmed, outcome, step_index, error, started_at, finished_at`

// DefaultListLimit caps ListRuns when no positive limit is given.
const DefaultListLimit = 50

// ErrNotFound is returned when a run is not in the store.
var ErrNotFound = errors.New("run not found")

var (
	_ ports.RunRecorder = (*Store)(nil)
	_ ports.RunHistory  = (*Store)(nil)
)

// Store implements ports.RunRecorder and ports.RunHistory on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and creates the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	for _, stmt := range []struct{ name, sql string }{
		{"set WAL mode", "PRAGMA journal_mode=WAL"},
		{"set busy timeout", "PRAGMA busy_timeout = 5000"},
		{"create runs table", createRunsTable},
		{"create runs index", createRunsIndex},
	} {
		if _, err := db.Exec(stmt.sql); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", stmt.name, err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts rec, replacing any earlier record with the same id.
func (s *Store) RecordRun(ctx context.Context, rec domain.RunRecord) error {
	var step sql.NullInt64
	if rec.StepIndex != nil {
		step = sql.NullInt64{Int64: int64(*rec.StepIndex), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			fallback = excluded.fallback,
			handle = excluded.handle,
			confirmed = excluded.confirmed,
			outcome = excluded.outcome,
			step_index = excluded.step_index,
			error = excluded.error,
			finished_at = excluded.finished_at`,
		rec.ID, rec.Account, int64(rec.ChainID), rec.Calls, string(rec.Path), string(rec.Fallback),
		string(rec.Handle), rec.Confirmed, string(rec.Outcome), step, rec.Error,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (domain.RunRecord, error) {
	var (
		rec                            domain.RunRecord
		chainID                        int64
		path, fallback, handle, result string
		step                           sql.NullInt64
	)
	err := sc.Scan(
		&rec.ID, &rec.Account, &chainID, &rec.Calls, &path, &fallback, &handle,
		&rec.Confirmed, &result, &step, &rec.Error, &rec.StartedAt, &rec.FinishedAt,
	)
	if err != nil {
		return domain.RunRecord{}, err
	}
	rec.ChainID = uint64(chainID)
	rec.Path = domain.Path(path)
	rec.Fallback = domain.FallbackReason(fallback)
	rec.Handle = domain.BatchHandle(handle)
	rec.Outcome = domain.Outcome(result)
	if step.Valid {
		i := int(step.Int64)
		rec.StepIndex = &i
	}
	return rec, nil
}
