package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// recordTimeout bounds how long persisting a run summary may take.
const recordTimeout = 5 * time.Second

// Timings holds the tunable intervals of the engine.
type Timings struct {
	// PollInterval is the delay between batch status queries.
	PollInterval time.Duration

	// SettleDelay is the pause between sequential steps.
	SettleDelay time.Duration
}

// DefaultTimings returns the reference intervals.
func DefaultTimings() Timings {
	return Timings{
		PollInterval: DefaultPollInterval,
		SettleDelay:  DefaultSettleDelay,
	}
}

// Validate checks that every interval is usable.
func (t Timings) Validate() error {
	if t.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", domain.ErrInvalidConfig)
	}
	if t.SettleDelay < 0 {
		return fmt.Errorf("%w: settle delay must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}

// Deps are the collaborators of an Engine. Recorder, Logger and Emitter are
// optional.
type Deps struct {
	Accounts  ports.AccountProvider
	Submitter ports.BatchSubmitter
	Querier   ports.BatchStatusQuerier
	Sender    ports.TransactionSender
	Watcher   ports.ConfirmationWatcher
	Recorder  ports.RunRecorder
	Logger    ports.Logger
	Emitter   EventEmitter
}

// Engine is the transaction state machine. It accepts one call list at a
// time, tries to execute it as an atomic batch and falls back to sequential
// execution when the batch is rejected or reverts.
type Engine struct {
	accounts   ports.AccountProvider
	submitter  ports.BatchSubmitter
	poller     *Poller
	sequential *SequentialExecutor
	recorder   ports.RunRecorder
	logger     ports.Logger
	emitter    EventEmitter
	lifecycle  *Lifecycle

	mu      sync.Mutex
	timings Timings
	run     *run
	lastErr *domain.ExecutionError

	// events are queued under mu in transition order and delivered by
	// whichever caller finds the queue idle.
	events   []func(EventEmitter)
	draining bool
}

// run is the private state record of one Execute invocation. Fields below
// the marker are guarded by Engine.mu.
type run struct {
	id        string
	account   domain.Account
	calls     []domain.Call
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time

	path      domain.Path
	handle    domain.BatchHandle
	poll      *Poll
	fallback  domain.FallbackReason
	fellBack  bool
	progress  *domain.SequentialProgress
	step      int
	confirmed int
	settled   bool
}

// NewEngine creates an engine in StateIdle.
func NewEngine(timings Timings, deps Deps) *Engine {
	if timings.PollInterval <= 0 {
		timings.PollInterval = DefaultPollInterval
	}
	if timings.SettleDelay < 0 {
		timings.SettleDelay = DefaultSettleDelay
	}

	logger := deps.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = NopEmitter{}
	}

	return &Engine{
		accounts:   deps.Accounts,
		submitter:  deps.Submitter,
		poller:     NewPoller(deps.Querier, logger, emitter),
		sequential: NewSequentialExecutor(deps.Sender, deps.Watcher, logger),
		recorder:   deps.Recorder,
		logger:     logger,
		emitter:    emitter,
		lifecycle:  NewLifecycle(logger),
		timings:    timings,
	}
}

// Execute starts executing calls and returns without waiting for the result.
// Progress is observed through State, Error, Snapshot and Wait.
//
// Execute returns ErrNoCalls for an empty list and ErrNoAccount when no
// account is active; in both cases nothing is submitted and the engine stays
// idle. It returns ErrNotIdle unless the engine is idle.
func (e *Engine) Execute(calls []domain.Call) error {
	if len(calls) == 0 {
		e.logger.Warn("execute ignored: empty call list")
		return domain.ErrNoCalls
	}
	var (
		account domain.Account
		ok      bool
	)
	if e.accounts != nil {
		account, ok = e.accounts.ActiveAccount()
	}
	if !ok {
		e.logger.Warn("execute ignored: no active account")
		return domain.ErrNoAccount
	}

	e.mu.Lock()
	if e.run != nil || !e.lifecycle.CanExecute() {
		e.mu.Unlock()
		return domain.ErrNotIdle
	}
	prev, err := e.lifecycle.TransitionTo(domain.StatePending)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:        ulid.Make().String(),
		account:   account,
		calls:     domain.CloneCalls(calls),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now().UTC(),
	}
	e.run = r
	e.lastErr = nil
	e.stateChangeLocked(r.id, prev, domain.StatePending, "execute called")
	e.mu.Unlock()

	e.logger.Info("execution started",
		ports.String("run_id", r.id),
		ports.Int("calls", len(r.calls)),
		ports.String("account", account.Address.Hex()),
		ports.Uint64("chain_id", account.ChainID),
	)
	e.drain()

	go e.drive(r)
	return nil
}

// State returns the current execution state.
func (e *Engine) State() domain.ExecutionState {
	return e.lifecycle.State()
}

// Error returns the failure of the last run, or nil.
func (e *Engine) Error() *domain.ExecutionError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Reset cancels any active polling or pending step timer, clears the error
// and progress, and returns the engine to StateIdle. It is valid in every
// state. Transactions that were already submitted are not unsent.
func (e *Engine) Reset() {
	e.mu.Lock()
	r := e.run
	e.run = nil
	e.lastErr = nil
	prev := e.lifecycle.Reset()

	var (
		rec   *domain.RunRecord
		runID string
	)
	if r != nil {
		runID = r.id
		if r.poll != nil {
			r.poll.Cancel()
		}
		r.cancel()
		if !r.settled {
			r.settled = true
			abandoned := e.recordLocked(r, domain.OutcomeAbandoned, nil)
			rec = &abandoned
			close(r.done)
		}
		r.progress = nil
	}
	if prev != domain.StateIdle {
		e.stateChangeLocked(runID, prev, domain.StateIdle, "reset")
	}
	e.mu.Unlock()

	e.drain()
	if rec != nil {
		e.persist(*rec)
	}
}

// Wait blocks until the current run settles, is reset, or ctx ends, and
// returns the state at that moment.
func (e *Engine) Wait(ctx context.Context) (domain.ExecutionState, error) {
	e.mu.Lock()
	r := e.run
	e.mu.Unlock()
	if r == nil {
		return e.State(), nil
	}

	select {
	case <-r.done:
		return e.State(), nil
	case <-ctx.Done():
		return e.State(), ctx.Err()
	}
}

// SetTimings replaces the engine intervals. Runs already polling or stepping
// keep the intervals they started with.
func (e *Engine) SetTimings(t Timings) error {
	if err := t.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.timings = t
	e.mu.Unlock()
	e.logger.Info("timings updated",
		ports.Duration("poll_interval", t.PollInterval),
		ports.Duration("settle_delay", t.SettleDelay),
	)
	return nil
}

// Timings returns the current engine intervals.
func (e *Engine) Timings() Timings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timings
}

// drive runs the atomic attempt and, if needed, the sequential fallback.
func (e *Engine) drive(r *run) {
	res := e.submitter.SubmitBatch(r.ctx, r.account, domain.CloneCalls(r.calls))
	if r.ctx.Err() != nil {
		return
	}

	if !res.IsAccepted() {
		e.fallback(r, domain.FallbackSubmissionRejected, res.Cause)
		return
	}

	status, ok := e.confirmAtomic(r, res.Handle)
	if !ok {
		return
	}
	if status == domain.BatchSuccess {
		e.finish(r, domain.StateSuccess, nil, "batch confirmed")
		return
	}
	e.fallback(r, domain.FallbackBatchReverted, fmt.Errorf("batch %s failed on-chain", res.Handle))
}

// confirmAtomic moves to StateConfirming and polls handle to a terminal
// status. It returns false if the run was reset meanwhile.
func (e *Engine) confirmAtomic(r *run, handle domain.BatchHandle) (domain.BatchStatus, bool) {
	e.mu.Lock()
	if !e.isCurrent(r) {
		e.mu.Unlock()
		return domain.BatchPending, false
	}
	prev, err := e.lifecycle.TransitionTo(domain.StateConfirming)
	if err != nil {
		e.mu.Unlock()
		return domain.BatchPending, false
	}
	r.path = domain.PathAtomic
	r.handle = handle
	e.stateChangeLocked(r.id, prev, domain.StateConfirming, "batch accepted")
	poll := e.poller.Start(r.ctx, r.id, handle, e.timings.PollInterval)
	r.poll = poll
	e.mu.Unlock()

	e.logger.Info("batch accepted", ports.String("run_id", r.id), ports.String("handle", string(handle)))
	e.drain()

	status, terminal := poll.Wait()
	if !terminal {
		return status, false
	}
	e.mu.Lock()
	current := e.isCurrent(r)
	e.mu.Unlock()
	return status, current
}

// fallback executes the original call list one call at a time from step 0.
// It runs at most once per run.
func (e *Engine) fallback(r *run, reason domain.FallbackReason, cause error) {
	e.mu.Lock()
	if !e.isCurrent(r) || r.fellBack {
		e.mu.Unlock()
		return
	}
	r.fellBack = true
	r.fallback = reason
	r.path = domain.PathSequential
	if r.poll != nil {
		r.poll.Cancel()
		r.poll = nil
	}
	progress := domain.NewSequentialProgress(r.calls, 0)
	r.progress = progress
	r.step = progress.CurrentIndex

	e.enqueueLocked(func(em EventEmitter) { em.OnFallback(r.id, reason, cause) })
	if e.lifecycle.State() != domain.StatePending {
		if prev, err := e.lifecycle.TransitionTo(domain.StatePending); err == nil {
			e.stateChangeLocked(r.id, prev, domain.StatePending, "sequential fallback")
		}
	}
	settle := e.timings.SettleDelay
	e.mu.Unlock()

	e.logger.Info("falling back to sequential execution",
		ports.String("run_id", r.id),
		ports.String("reason", string(reason)),
		ports.Err(cause),
	)
	e.drain()

	err := e.sequential.Run(r.ctx, r.account, progress, settle, &runObserver{engine: e, run: r})
	if r.ctx.Err() != nil {
		return
	}
	if err == nil {
		e.finish(r, domain.StateSuccess, nil, "all steps confirmed")
		return
	}

	var execErr *domain.ExecutionError
	if !errors.As(err, &execErr) {
		execErr = &domain.ExecutionError{Cause: err}
	}
	e.finish(r, domain.StateError, execErr, "step failed")
}

// finish settles r in a terminal state.
func (e *Engine) finish(r *run, state domain.ExecutionState, execErr *domain.ExecutionError, reason string) {
	e.mu.Lock()
	if !e.isCurrent(r) {
		e.mu.Unlock()
		return
	}
	prev, err := e.lifecycle.TransitionTo(state)
	if err != nil {
		e.mu.Unlock()
		return
	}
	r.settled = true
	if r.poll != nil {
		r.poll.Cancel()
	}
	e.lastErr = execErr

	outcome := domain.OutcomeSuccess
	if state == domain.StateError {
		outcome = domain.OutcomeError
	}
	rec := e.recordLocked(r, outcome, execErr)
	r.progress = nil
	e.stateChangeLocked(r.id, prev, state, reason)
	e.mu.Unlock()

	r.cancel()

	if execErr != nil {
		e.logger.Error("execution failed", ports.String("run_id", r.id), ports.Err(execErr))
	} else {
		e.logger.Info("execution succeeded", ports.String("run_id", r.id), ports.String("path", string(rec.Path)))
	}
	e.drain()
	e.persist(rec)

	// Waiters are released only after the run has been recorded.
	close(r.done)
}

// isCurrent reports whether r is the live, unsettled run. Callers hold e.mu.
func (e *Engine) isCurrent(r *run) bool {
	return e.run == r && !r.settled
}

// recordLocked builds the summary of r. Callers hold e.mu.
func (e *Engine) recordLocked(r *run, outcome domain.Outcome, execErr *domain.ExecutionError) domain.RunRecord {
	rec := domain.RunRecord{
		ID:         r.id,
		Account:    r.account.Address.Hex(),
		ChainID:    r.account.ChainID,
		Calls:      len(r.calls),
		Path:       r.path,
		Fallback:   r.fallback,
		Handle:     r.handle,
		Confirmed:  r.confirmed,
		Outcome:    outcome,
		StartedAt:  r.startedAt,
		FinishedAt: time.Now().UTC(),
	}
	if r.path == domain.PathAtomic && outcome == domain.OutcomeSuccess {
		rec.Confirmed = len(r.calls)
	}
	if execErr != nil {
		rec.Error = execErr.Error()
		if step, ok := execErr.Step(); ok {
			rec.StepIndex = &step
		}
	}
	return rec
}

// persist hands rec to the recorder and emitter.
func (e *Engine) persist(rec domain.RunRecord) {
	if e.recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		err := e.recorder.RecordRun(ctx, rec)
		cancel()
		if err != nil {
			e.logger.Error("failed to record run", ports.String("run_id", rec.ID), ports.Err(err))
		}
	}
	e.mu.Lock()
	e.enqueueLocked(func(em EventEmitter) { em.OnRunFinished(rec) })
	e.mu.Unlock()
	e.drain()
}

// stateChangeLocked queues a transition event. Callers hold e.mu and made
// the transition under the same critical section.
func (e *Engine) stateChangeLocked(runID string, prev, current domain.ExecutionState, reason string) {
	e.enqueueLocked(func(em EventEmitter) {
		e.logger.Info("state transition",
			ports.String("run_id", runID),
			ports.String("from", prev.String()),
			ports.String("to", current.String()),
			ports.String("reason", reason),
		)
		em.OnStateChange(runID, prev, current, reason)
	})
}

// enqueueLocked appends an event. Callers hold e.mu.
func (e *Engine) enqueueLocked(ev func(EventEmitter)) {
	e.events = append(e.events, ev)
}

// drain delivers queued events in order without holding e.mu, so handlers
// may call back into the engine. If another caller is already draining it
// returns at once and that caller delivers the remaining events.
func (e *Engine) drain() {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	for len(e.events) > 0 {
		ev := e.events[0]
		e.events[0] = nil
		e.events = e.events[1:]
		e.mu.Unlock()
		ev(e.emitter)
		e.mu.Lock()
	}
	e.draining = false
	e.mu.Unlock()
}

// runObserver maps sequential progress onto engine state for one run.
type runObserver struct {
	engine *Engine
	run    *run
}

func (o *runObserver) OnStepSubmitted(step int, tx domain.TxID) {
	e, r := o.engine, o.run
	e.mu.Lock()
	if !e.isCurrent(r) {
		e.mu.Unlock()
		return
	}
	r.step = step
	if prev, err := e.lifecycle.TransitionTo(domain.StateConfirming); err == nil {
		e.stateChangeLocked(r.id, prev, domain.StateConfirming, fmt.Sprintf("step %d submitted", step))
	}
	e.mu.Unlock()
	e.drain()
}

func (o *runObserver) OnStepConfirmed(step int, receipt domain.Receipt) {
	e, r := o.engine, o.run
	e.mu.Lock()
	if !e.isCurrent(r) {
		e.mu.Unlock()
		return
	}
	r.confirmed = step + 1
	e.enqueueLocked(func(em EventEmitter) { em.OnStepConfirmed(r.id, step, receipt) })
	if step+1 < len(r.calls) {
		r.step = step + 1
		if prev, err := e.lifecycle.TransitionTo(domain.StatePending); err == nil {
			e.stateChangeLocked(r.id, prev, domain.StatePending, fmt.Sprintf("step %d confirmed", step))
		}
	}
	e.mu.Unlock()
	e.drain()
}

// nopLogger discards all log messages.
type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field) {}
func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}
