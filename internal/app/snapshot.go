package app

import (
	"time"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

// Snapshot is a point-in-time view of the engine for status reporting.
type Snapshot struct {
	RunID     string                 `json:"run_id,omitempty"`
	State     domain.ExecutionState  `json:"state"`
	Path      domain.Path            `json:"path,omitempty"`
	Fallback  domain.FallbackReason  `json:"fallback,omitempty"`
	Handle    domain.BatchHandle     `json:"handle,omitempty"`
	Calls     int                    `json:"calls"`
	Step      int                    `json:"step"`
	Confirmed int                    `json:"confirmed"`
	Error     *domain.ExecutionError `json:"-"`
	StartedAt time.Time              `json:"started_at,omitempty"`
}

// Snapshot returns the current engine view. Without a run only State is set.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		State: e.lifecycle.State(),
		Error: e.lastErr,
	}
	r := e.run
	if r == nil {
		return s
	}
	s.RunID = r.id
	s.Path = r.path
	s.Fallback = r.fallback
	s.Handle = r.handle
	s.Calls = len(r.calls)
	s.Step = r.step
	s.Confirmed = r.confirmed
	if r.path == domain.PathAtomic && s.State == domain.StateSuccess {
		s.Confirmed = len(r.calls)
	}
	s.StartedAt = r.startedAt
	return s
}
