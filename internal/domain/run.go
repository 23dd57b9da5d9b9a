package domain

import "time"

// Outcome is the final disposition of a recorded run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"

	// OutcomeAbandoned marks a run that was reset before it settled.
	// Transactions it already submitted are not unsent.
	OutcomeAbandoned Outcome = "abandoned"
)

// RunRecord summarizes one Execute invocation for history and crash analysis.
type RunRecord struct {
	ID         string         `json:"id"`
	Account    string         `json:"account"`
	ChainID    uint64         `json:"chain_id"`
	Calls      int            `json:"calls"`
	Path       Path           `json:"path"`
	Fallback   FallbackReason `json:"fallback,omitempty"`
	Handle     BatchHandle    `json:"handle,omitempty"`
	Confirmed  int            `json:"confirmed"`
	Outcome    Outcome        `json:"outcome"`
	StepIndex  *int           `json:"step_index,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
