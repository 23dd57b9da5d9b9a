package app

import (
	"sync"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// Lifecycle holds the engine's ExecutionState and enforces the allowed
// transitions between states.
type Lifecycle struct {
	mu     sync.RWMutex
	state  domain.ExecutionState
	logger ports.Logger
}

// NewLifecycle creates a lifecycle in StateIdle.
func NewLifecycle(logger ports.Logger) *Lifecycle {
	return &Lifecycle{
		state:  domain.StateIdle,
		logger: logger,
	}
}

// State returns the current state.
func (l *Lifecycle) State() domain.ExecutionState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to move to newState and returns the previous state.
// Returns ErrInvalidTransition if the transition is not allowed. Returning to
// StateIdle is only possible through Reset.
func (l *Lifecycle) TransitionTo(newState domain.ExecutionState) (domain.ExecutionState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	oldState := l.state

	ok := false
	switch oldState {
	case domain.StateIdle:
		ok = newState == domain.StatePending
	case domain.StatePending:
		ok = newState == domain.StateConfirming || newState == domain.StateError
	case domain.StateConfirming:
		ok = newState == domain.StateSuccess || newState == domain.StateError || newState == domain.StatePending
	case domain.StateSuccess, domain.StateError:
		ok = false
	}
	if !ok {
		l.logger.Warn("rejected state transition",
			ports.String("from", oldState.String()),
			ports.String("to", newState.String()),
		)
		return oldState, domain.ErrInvalidTransition
	}

	l.state = newState
	return oldState, nil
}

// Reset returns to StateIdle from any state and returns the previous state.
func (l *Lifecycle) Reset() domain.ExecutionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	old := l.state
	l.state = domain.StateIdle
	return old
}

// CanExecute returns true if a new run may start.
func (l *Lifecycle) CanExecute() bool {
	return l.State() == domain.StateIdle
}
