package app

import "github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"

// EventEmitter is notified of engine activity. Methods are called from
// engine goroutines, never while the engine lock is held, and should return
// quickly. State changes, fallbacks, confirmed steps and finished runs are
// delivered one at a time in the order they happened; a handler may call
// back into the engine.
type EventEmitter interface {
	OnStateChange(runID string, previous, current domain.ExecutionState, reason string)
	OnFallback(runID string, reason domain.FallbackReason, cause error)
	OnStatusQuery(runID string, status domain.BatchStatus, err error)
	OnStepConfirmed(runID string, step int, receipt domain.Receipt)
	OnRunFinished(rec domain.RunRecord)
}

// NopEmitter ignores all events.
type NopEmitter struct{}

func (NopEmitter) OnStateChange(string, domain.ExecutionState, domain.ExecutionState, string) {}
func (NopEmitter) OnFallback(string, domain.FallbackReason, error)                            {}
func (NopEmitter) OnStatusQuery(string, domain.BatchStatus, error)                            {}
func (NopEmitter) OnStepConfirmed(string, int, domain.Receipt)                                {}
func (NopEmitter) OnRunFinished(domain.RunRecord)                                             {}

// MultiEmitter fans events out to several emitters in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) OnStateChange(runID string, previous, current domain.ExecutionState, reason string) {
	for _, e := range m {
		e.OnStateChange(runID, previous, current, reason)
	}
}

func (m MultiEmitter) OnFallback(runID string, reason domain.FallbackReason, cause error) {
	for _, e := range m {
		e.OnFallback(runID, reason, cause)
	}
}

func (m MultiEmitter) OnStatusQuery(runID string, status domain.BatchStatus, err error) {
	for _, e := range m {
		e.OnStatusQuery(runID, status, err)
	}
}

func (m MultiEmitter) OnStepConfirmed(runID string, step int, receipt domain.Receipt) {
	for _, e := range m {
		e.OnStepConfirmed(runID, step, receipt)
	}
}

func (m MultiEmitter) OnRunFinished(rec domain.RunRecord) {
	for _, e := range m {
		e.OnRunFinished(rec)
	}
}
