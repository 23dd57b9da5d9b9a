// Package fs persists run summaries to the local filesystem.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

const lastRunFileName = "last-run.json"

// RunFile keeps the most recent run record as a JSON file in a directory.
type RunFile struct {
	dir string
	mu  sync.Mutex
}

var _ ports.RunRecorder = (*RunFile)(nil)

// NewRunFile creates a RunFile rooted at dir.
func NewRunFile(dir string) *RunFile {
	return &RunFile{dir: dir}
}

// RecordRun overwrites the last-run file with rec. The write goes to a
// temporary file first and is renamed into place.
func (f *RunFile) RecordRun(ctx context.Context, rec domain.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	path := f.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load returns the last recorded run. The boolean is false if nothing has
// been recorded yet.
func (f *RunFile) Load(ctx context.Context) (domain.RunRecord, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RunRecord{}, false, nil
		}
		return domain.RunRecord{}, false, err
	}

	var rec domain.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.RunRecord{}, false, fmt.Errorf("decode %s: %w", lastRunFileName, err)
	}
	return rec, true, nil
}

// Path returns the full path to the last-run file.
func (f *RunFile) Path() string {
	return filepath.Join(f.dir, lastRunFileName)
}
