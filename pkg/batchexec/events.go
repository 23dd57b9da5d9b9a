package batchexec

import (
	"time"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/app"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

// EventHandler receives notifications about executor activity.
// Methods are called synchronously from engine goroutines; implementations
// should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnFallback(event FallbackEvent)
	OnStatusQuery(event StatusQueryEvent)
	OnStepConfirmed(event StepConfirmedEvent)
	OnRunFinished(event RunFinishedEvent)
}

// StateChangeEvent is emitted on every execution state transition.
type StateChangeEvent struct {
	RunID    string
	Previous ExecutionState
	Current  ExecutionState
	Reason   string
}

// FallbackEvent is emitted when a run leaves the atomic path.
type FallbackEvent struct {
	RunID  string
	Reason FallbackReason
	Cause  error
}

// StatusQueryEvent is emitted after each batch status query.
// Error is set when the status could not be determined.
type StatusQueryEvent struct {
	RunID  string
	Status BatchStatus
	Error  error
}

// StepConfirmedEvent is emitted when a sequential step is confirmed.
type StepConfirmedEvent struct {
	RunID   string
	Step    int
	Receipt Receipt
}

// RunFinishedEvent is emitted once per run when it settles or is reset.
type RunFinishedEvent struct {
	Record   RunRecord
	Duration time.Duration
}

// BaseEventHandler provides no-op implementations of all EventHandler methods.
// Embed it to implement only the events you care about.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)     {}
func (BaseEventHandler) OnFallback(FallbackEvent)           {}
func (BaseEventHandler) OnStatusQuery(StatusQueryEvent)     {}
func (BaseEventHandler) OnStepConfirmed(StepConfirmedEvent) {}
func (BaseEventHandler) OnRunFinished(RunFinishedEvent)     {}

// eventEmitterWrapper adapts EventHandler to app.EventEmitter.
type eventEmitterWrapper struct {
	handler EventHandler
}

var _ app.EventEmitter = eventEmitterWrapper{}

func (e eventEmitterWrapper) OnStateChange(runID string, previous, current domain.ExecutionState, reason string) {
	e.handler.OnStateChange(StateChangeEvent{RunID: runID, Previous: previous, Current: current, Reason: reason})
}

func (e eventEmitterWrapper) OnFallback(runID string, reason domain.FallbackReason, cause error) {
	e.handler.OnFallback(FallbackEvent{RunID: runID, Reason: reason, Cause: cause})
}

func (e eventEmitterWrapper) OnStatusQuery(runID string, status domain.BatchStatus, err error) {
	e.handler.OnStatusQuery(StatusQueryEvent{RunID: runID, Status: status, Error: err})
}

func (e eventEmitterWrapper) OnStepConfirmed(runID string, step int, receipt domain.Receipt) {
	e.handler.OnStepConfirmed(StepConfirmedEvent{RunID: runID, Step: step, Receipt: receipt})
}

func (e eventEmitterWrapper) OnRunFinished(rec domain.RunRecord) {
	e.handler.OnRunFinished(RunFinishedEvent{Record: rec, Duration: rec.Duration()})
}
