package app

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

var testTimings = Timings{
	PollInterval: 5 * time.Millisecond,
	SettleDelay:  time.Millisecond,
}

// approveAndStake mirrors an approve(spender, 100) followed by stake(100).
func approveAndStake() []domain.Call {
	token := common.HexToAddress("0x0000000000000000000000000000000000000001")
	staking := common.HexToAddress("0x0000000000000000000000000000000000000002")
	return []domain.Call{
		{Target: token, Data: []byte{0x09, 0x5e, 0xa7, 0xb3, 100}},
		{Target: staking, Data: []byte{0xa6, 0x94, 0xfc, 0x3a, 100}, Value: big.NewInt(0)},
	}
}

type harness struct {
	engine    *Engine
	submitter *fakeSubmitter
	querier   *fakeQuerier
	sender    *fakeSender
	watcher   *fakeWatcher
	emitter   *recordingEmitter
	recorder  *memRecorder
}

func newHarness(submit domain.SubmitResult, statuses ...domain.BatchStatus) *harness {
	h := &harness{
		submitter: &fakeSubmitter{result: submit},
		querier:   &fakeQuerier{statuses: statuses},
		sender:    &fakeSender{},
		watcher:   &fakeWatcher{},
		emitter:   &recordingEmitter{},
		recorder:  &memRecorder{},
	}
	h.engine = NewEngine(testTimings, Deps{
		Accounts:  staticAccounts{account: testAccount, ok: true},
		Submitter: h.submitter,
		Querier:   h.querier,
		Sender:    h.sender,
		Watcher:   h.watcher,
		Recorder:  h.recorder,
		Logger:    mockLogger{},
		Emitter:   h.emitter,
	})
	return h
}

// withEmitter rebuilds the engine around emitter.
func (h *harness) withEmitter(emitter EventEmitter) *harness {
	h.engine = NewEngine(testTimings, Deps{
		Accounts:  staticAccounts{account: testAccount, ok: true},
		Submitter: h.submitter,
		Querier:   h.querier,
		Sender:    h.sender,
		Watcher:   h.watcher,
		Recorder:  h.recorder,
		Logger:    mockLogger{},
		Emitter:   emitter,
	})
	return h
}

func (h *harness) wait(t *testing.T) domain.ExecutionState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := h.engine.Wait(ctx)
	require.NoError(t, err, "run did not settle")
	return state
}

func TestEngine_AtomicBatchConfirmed(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"),
		domain.BatchPending, domain.BatchPending, domain.BatchSuccess)

	require.NoError(t, h.engine.Execute(approveAndStake()))
	assert.Equal(t, domain.StateSuccess, h.wait(t))
	assert.Nil(t, h.engine.Error())

	assert.Equal(t, 3, h.querier.Queries())
	assert.Empty(t, h.sender.Sent(), "sequential path must not run")
	assert.Empty(t, h.emitter.Fallbacks())
	assert.Equal(t, []transition{
		{domain.StateIdle, domain.StatePending},
		{domain.StatePending, domain.StateConfirming},
		{domain.StateConfirming, domain.StateSuccess},
	}, h.emitter.Transitions())

	snap := h.engine.Snapshot()
	assert.Equal(t, domain.PathAtomic, snap.Path)
	assert.Equal(t, domain.BatchHandle("0xbatch"), snap.Handle)
	assert.Equal(t, 2, snap.Confirmed)
}

func TestEngine_SubmissionRejectedFallsBack(t *testing.T) {
	h := newHarness(domain.Rejected(errors.New("capability unsupported")))
	calls := approveAndStake()

	require.NoError(t, h.engine.Execute(calls))
	assert.Equal(t, domain.StateSuccess, h.wait(t))

	assert.Equal(t, calls, h.sender.Sent())
	assert.Zero(t, h.querier.Queries())
	assert.Equal(t, []domain.FallbackReason{domain.FallbackSubmissionRejected}, h.emitter.Fallbacks())
	assert.Equal(t, []transition{
		{domain.StateIdle, domain.StatePending},
		{domain.StatePending, domain.StateConfirming},
		{domain.StateConfirming, domain.StatePending},
		{domain.StatePending, domain.StateConfirming},
		{domain.StateConfirming, domain.StateSuccess},
	}, h.emitter.Transitions(), "no terminal state may be emitted before the fallback finishes")
}

func TestEngine_SecondStepRevertsSurfacesStepIndex(t *testing.T) {
	h := newHarness(domain.Rejected(errors.New("capability unsupported")))
	h.watcher.reverted = map[int]bool{1: true}

	require.NoError(t, h.engine.Execute(approveAndStake()))
	assert.Equal(t, domain.StateError, h.wait(t))

	execErr := h.engine.Error()
	require.NotNil(t, execErr)
	step, ok := execErr.Step()
	require.True(t, ok)
	assert.Equal(t, 1, step)
	assert.ErrorIs(t, execErr, domain.ErrStepReverted)

	// approve stays applied; nothing is retried.
	assert.Len(t, h.sender.Sent(), 2)

	recs := h.recorder.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, domain.OutcomeError, recs[0].Outcome)
	require.NotNil(t, recs[0].StepIndex)
	assert.Equal(t, 1, *recs[0].StepIndex)
	assert.Equal(t, 1, recs[0].Confirmed)
}

func TestEngine_EmptyCallsIsNoop(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"), domain.BatchSuccess)

	err := h.engine.Execute(nil)
	assert.ErrorIs(t, err, domain.ErrNoCalls)
	assert.Equal(t, domain.StateIdle, h.engine.State())
	assert.Nil(t, h.engine.Error())
	assert.Zero(t, h.submitter.Submissions())

	err = h.engine.Execute([]domain.Call{})
	assert.ErrorIs(t, err, domain.ErrNoCalls)
	assert.Zero(t, h.submitter.Submissions())
}

func TestEngine_BatchRevertedRestartsFromFirstCall(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"), domain.BatchPending, domain.BatchFailure)
	calls := approveAndStake()

	require.NoError(t, h.engine.Execute(calls))
	assert.Equal(t, domain.StateSuccess, h.wait(t))

	assert.Equal(t, calls, h.sender.Sent(), "fallback must resend the full original list")
	assert.Equal(t, []domain.FallbackReason{domain.FallbackBatchReverted}, h.emitter.Fallbacks())

	queries := h.querier.Queries()
	assert.Equal(t, 2, queries)
	time.Sleep(10 * testTimings.PollInterval)
	assert.Equal(t, queries, h.querier.Queries(), "poll must stop after failure")

	snap := h.engine.Snapshot()
	assert.Equal(t, domain.PathSequential, snap.Path)
	assert.Equal(t, domain.FallbackBatchReverted, snap.Fallback)
}

func TestEngine_NoAccountIsNoop(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"), domain.BatchSuccess)
	h.engine.accounts = staticAccounts{}

	err := h.engine.Execute(approveAndStake())
	assert.ErrorIs(t, err, domain.ErrNoAccount)
	assert.Equal(t, domain.StateIdle, h.engine.State())
	assert.Zero(t, h.submitter.Submissions())
}

func TestEngine_RejectsExecuteWhileActive(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"))

	require.NoError(t, h.engine.Execute(approveAndStake()))
	assert.ErrorIs(t, h.engine.Execute(approveAndStake()), domain.ErrNotIdle)

	h.engine.Reset()
	assert.Equal(t, 1, h.submitter.Submissions())
}

func TestEngine_RejectsExecuteInTerminalState(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"), domain.BatchSuccess)

	require.NoError(t, h.engine.Execute(approveAndStake()))
	require.Equal(t, domain.StateSuccess, h.wait(t))

	assert.ErrorIs(t, h.engine.Execute(approveAndStake()), domain.ErrNotIdle)

	h.engine.Reset()
	require.NoError(t, h.engine.Execute(approveAndStake()))
	assert.Equal(t, domain.StateSuccess, h.wait(t))
}

func TestEngine_ResetStopsPolling(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"), domain.BatchPending)

	require.NoError(t, h.engine.Execute(approveAndStake()))
	require.Eventually(t, func() bool { return h.querier.Queries() >= 2 }, time.Second, time.Millisecond)

	h.engine.Reset()
	assert.Equal(t, domain.StateIdle, h.engine.State())
	assert.Nil(t, h.engine.Error())

	time.Sleep(2 * testTimings.PollInterval)
	queries := h.querier.Queries()
	time.Sleep(10 * testTimings.PollInterval)
	assert.Equal(t, queries, h.querier.Queries(), "no status queries after reset")

	recs := h.recorder.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, domain.OutcomeAbandoned, recs[0].Outcome)
}

func TestEngine_ResetFromError(t *testing.T) {
	h := newHarness(domain.Rejected(nil))
	h.watcher.reverted = map[int]bool{0: true}

	require.NoError(t, h.engine.Execute(approveAndStake()))
	require.Equal(t, domain.StateError, h.wait(t))
	require.NotNil(t, h.engine.Error())

	h.engine.Reset()
	assert.Equal(t, domain.StateIdle, h.engine.State())
	assert.Nil(t, h.engine.Error())
	assert.Equal(t, domain.StateIdle, h.engine.Snapshot().State)

	// Reset on an idle engine is harmless.
	h.engine.Reset()
	assert.Equal(t, domain.StateIdle, h.engine.State())
}

func TestEngine_ResetDuringSettleDelayStopsNextStep(t *testing.T) {
	h := newHarness(domain.Rejected(nil))
	require.NoError(t, h.engine.SetTimings(Timings{PollInterval: time.Millisecond, SettleDelay: time.Hour}))

	require.NoError(t, h.engine.Execute(approveAndStake()))
	require.Eventually(t, func() bool {
		return h.engine.Snapshot().Confirmed == 1
	}, time.Second, time.Millisecond)

	h.engine.Reset()
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, h.sender.Sent(), 1, "second step must not be submitted after reset")
	assert.Equal(t, domain.StateIdle, h.engine.State())
}

func TestEngine_RepeatedConfirmationAdvancesOnce(t *testing.T) {
	h := newHarness(domain.Rejected(nil))
	h.watcher.repeat = 3

	require.NoError(t, h.engine.Execute(approveAndStake()))
	assert.Equal(t, domain.StateSuccess, h.wait(t))

	assert.Len(t, h.sender.Sent(), 2, "each step is submitted exactly once")
	assert.Equal(t, 2, h.engine.Snapshot().Confirmed)
	h.emitter.mu.Lock()
	assert.Equal(t, []int{0, 1}, h.emitter.confirmed)
	h.emitter.mu.Unlock()
}

func TestEngine_FirstStepSubmissionFails(t *testing.T) {
	h := newHarness(domain.Rejected(nil))
	h.sender.failAt = map[int]error{0: errors.New("user rejected")}

	require.NoError(t, h.engine.Execute(approveAndStake()))
	assert.Equal(t, domain.StateError, h.wait(t))

	step, ok := h.engine.Error().Step()
	require.True(t, ok)
	assert.Equal(t, 0, step)
	assert.Equal(t, []transition{
		{domain.StateIdle, domain.StatePending},
		{domain.StatePending, domain.StateError},
	}, h.emitter.Transitions())
}

func TestEngine_LostConfirmationFailsStep(t *testing.T) {
	h := newHarness(domain.Rejected(nil))
	h.watcher.lost = map[int]bool{0: true}

	require.NoError(t, h.engine.Execute(approveAndStake()))
	assert.Equal(t, domain.StateError, h.wait(t))
	assert.ErrorIs(t, h.engine.Error(), domain.ErrConfirmationLost)
	assert.Len(t, h.sender.Sent(), 1)
}

func TestEngine_StatusQueryErrorsKeepPolling(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"), domain.BatchPending, domain.BatchPending, domain.BatchSuccess)
	h.querier.errs = []error{errors.New("timeout"), errors.New("timeout")}

	require.NoError(t, h.engine.Execute(approveAndStake()))
	assert.Equal(t, domain.StateSuccess, h.wait(t))
	assert.Equal(t, 3, h.querier.Queries())
	assert.Empty(t, h.sender.Sent())
}

func TestEngine_StaleSubmissionIsDiscarded(t *testing.T) {
	h := newHarness(domain.Accepted("0xstale"), domain.BatchFailure)
	gate := make(chan struct{})
	h.submitter.gate = gate

	require.NoError(t, h.engine.Execute(approveAndStake()))
	h.engine.Reset()

	// The next run is rejected and settles through the sequential path.
	h.submitter.mu.Lock()
	h.submitter.gate = nil
	h.submitter.result = domain.Rejected(nil)
	h.submitter.mu.Unlock()
	require.NoError(t, h.engine.Execute(approveAndStake()))
	require.Equal(t, domain.StateSuccess, h.wait(t))

	// Releasing the first run's late acceptance must not touch state.
	close(gate)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, domain.StateSuccess, h.engine.State())
	assert.Zero(t, h.querier.Queries(), "stale handle must never be polled")
	assert.Len(t, h.sender.Sent(), 2)
}

func TestEngine_CallListIsCopied(t *testing.T) {
	h := newHarness(domain.Rejected(nil))
	h.watcher.hold = true
	calls := approveAndStake()

	require.NoError(t, h.engine.Execute(calls))
	calls[0].Data[0] = 0xff

	require.Eventually(t, func() bool { return len(h.sender.Sent()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, byte(0x09), h.sender.Sent()[0].Data[0])
	h.engine.Reset()
}

func TestEngine_SetTimingsValidates(t *testing.T) {
	h := newHarness(domain.Rejected(nil))

	err := h.engine.SetTimings(Timings{PollInterval: 0, SettleDelay: time.Second})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	want := Timings{PollInterval: 2 * time.Second, SettleDelay: 0}
	require.NoError(t, h.engine.SetTimings(want))
	assert.Equal(t, want, h.engine.Timings())
}

func TestEngine_RecordsSuccessfulRun(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"), domain.BatchSuccess)

	require.NoError(t, h.engine.Execute(approveAndStake()))
	require.Equal(t, domain.StateSuccess, h.wait(t))

	recs := h.recorder.Records()
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, domain.OutcomeSuccess, rec.Outcome)
	assert.Equal(t, domain.PathAtomic, rec.Path)
	assert.Equal(t, 2, rec.Calls)
	assert.Equal(t, 2, rec.Confirmed)
	assert.Equal(t, testAccount.Address.Hex(), rec.Account)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.FinishedAt.Before(rec.StartedAt))
	assert.Equal(t, []domain.RunRecord{rec}, h.emitter.Finished())
}

func TestEngine_WaitWithoutRun(t *testing.T) {
	h := newHarness(domain.Rejected(nil))
	state, err := h.engine.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateIdle, state)
}

func TestEngine_WaitHonorsContext(t *testing.T) {
	h := newHarness(domain.Accepted("0xbatch"))
	require.NoError(t, h.engine.Execute(approveAndStake()))
	defer h.engine.Reset()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	state, err := h.engine.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.StateConfirming, state)
}

func TestEngine_ResetWhileSuccessEventHeld(t *testing.T) {
	gate := newGatedEmitter()
	h := newHarness(domain.Accepted("0xbatch"), domain.BatchSuccess).withEmitter(gate)

	require.NoError(t, h.engine.Execute(approveAndStake()))
	select {
	case <-gate.held:
	case <-time.After(5 * time.Second):
		t.Fatal("success transition was never emitted")
	}

	h.engine.Reset()
	assert.Equal(t, domain.StateIdle, h.engine.State())
	close(gate.release)

	require.Eventually(t, func() bool {
		return len(gate.Transitions()) == 4
	}, time.Second, time.Millisecond)
	got := gate.Transitions()
	assert.Equal(t, []transition{
		{domain.StateIdle, domain.StatePending},
		{domain.StatePending, domain.StateConfirming},
		{domain.StateConfirming, domain.StateSuccess},
		{domain.StateSuccess, domain.StateIdle},
	}, got)
	assert.Equal(t, h.engine.State(), got[len(got)-1].to, "last delivered state must match the engine")

	require.Eventually(t, func() bool { return len(gate.Finished()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, domain.OutcomeSuccess, gate.Finished()[0].Outcome)
}

func TestEngine_HandlerMayResetFromCallback(t *testing.T) {
	em := &resettingEmitter{recordingEmitter: &recordingEmitter{}}
	h := newHarness(domain.Accepted("0xbatch"), domain.BatchSuccess).withEmitter(em)
	em.engine = h.engine

	require.NoError(t, h.engine.Execute(approveAndStake()))
	h.wait(t)

	require.Eventually(t, func() bool {
		return h.engine.State() == domain.StateIdle && len(em.Transitions()) == 4
	}, time.Second, time.Millisecond)
	last := em.Transitions()[3]
	assert.Equal(t, transition{domain.StateSuccess, domain.StateIdle}, last)
	require.NoError(t, h.engine.Execute(approveAndStake()), "engine accepts a new run after the handler reset it")
}
