package app

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

var testAccount = domain.Account{
	Address: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
	ChainID: 8453,
}

type staticAccounts struct {
	account domain.Account
	ok      bool
}

func (s staticAccounts) ActiveAccount() (domain.Account, bool) { return s.account, s.ok }

// fakeSubmitter returns a fixed result. If gate is set it blocks until the
// gate is closed, ignoring ctx, to model a late response.
type fakeSubmitter struct {
	result domain.SubmitResult
	gate   chan struct{}

	mu    sync.Mutex
	calls [][]domain.Call
}

func (f *fakeSubmitter) SubmitBatch(ctx context.Context, account domain.Account, calls []domain.Call) domain.SubmitResult {
	f.mu.Lock()
	f.calls = append(f.calls, calls)
	gate, result := f.gate, f.result
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return result
}

func (f *fakeSubmitter) Submissions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeQuerier replays statuses in order and then keeps returning the last one.
type fakeQuerier struct {
	statuses []domain.BatchStatus
	errs     []error

	mu      sync.Mutex
	queries int
}

func (f *fakeQuerier) BatchStatus(ctx context.Context, handle domain.BatchHandle) (domain.BatchStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.queries
	f.queries++
	if i < len(f.errs) && f.errs[i] != nil {
		return domain.BatchPending, f.errs[i]
	}
	if len(f.statuses) == 0 {
		return domain.BatchPending, nil
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeQuerier) Queries() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

// fakeSender assigns sequential transaction ids starting at 1 and records the
// calls it was asked to send.
type fakeSender struct {
	failAt map[int]error

	mu   sync.Mutex
	sent []domain.Call
}

func (f *fakeSender) SendTransaction(ctx context.Context, account domain.Account, call domain.Call) (domain.TxID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.sent)
	if err, ok := f.failAt[n]; ok {
		return domain.TxID{}, err
	}
	f.sent = append(f.sent, call)
	return txID(n), nil
}

func (f *fakeSender) Sent() []domain.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Call(nil), f.sent...)
}

func txID(n int) domain.TxID {
	return common.BigToHash(big.NewInt(int64(n + 1)))
}

func txIndex(tx domain.TxID) int {
	return int(new(big.Int).SetBytes(tx[:]).Int64()) - 1
}

// fakeWatcher delivers one receipt per watched transaction, repeated
// `repeat` times. Transactions listed in reverted get a reverted receipt,
// those in lost get a closed channel, and hold delays delivery until ctx ends.
type fakeWatcher struct {
	reverted map[int]bool
	lost     map[int]bool
	repeat   int
	hold     bool

	watches atomic.Int32
}

func (f *fakeWatcher) Watch(ctx context.Context, tx domain.TxID) (<-chan domain.Receipt, error) {
	f.watches.Add(1)
	ch := make(chan domain.Receipt)
	idx := txIndex(tx)
	go func() {
		defer close(ch)
		if f.lost[idx] {
			return
		}
		if f.hold {
			<-ctx.Done()
			return
		}
		status := domain.ReceiptSuccess
		if f.reverted[idx] {
			status = domain.ReceiptReverted
		}
		repeat := f.repeat
		if repeat <= 0 {
			repeat = 1
		}
		for i := 0; i < repeat; i++ {
			select {
			case ch <- domain.Receipt{TxID: tx, Status: status, BlockNumber: uint64(100 + idx)}:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return ch, nil
}

type transition struct {
	from, to domain.ExecutionState
}

// recordingEmitter tracks events for assertions.
type recordingEmitter struct {
	NopEmitter

	mu          sync.Mutex
	transitions []transition
	fallbacks   []domain.FallbackReason
	confirmed   []int
	finished    []domain.RunRecord
}

func (r *recordingEmitter) OnStateChange(runID string, previous, current domain.ExecutionState, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, transition{previous, current})
}

func (r *recordingEmitter) OnFallback(runID string, reason domain.FallbackReason, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, reason)
}

func (r *recordingEmitter) OnStepConfirmed(runID string, step int, receipt domain.Receipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, step)
}

func (r *recordingEmitter) OnRunFinished(rec domain.RunRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, rec)
}

func (r *recordingEmitter) Transitions() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.transitions...)
}

func (r *recordingEmitter) Fallbacks() []domain.FallbackReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.FallbackReason(nil), r.fallbacks...)
}

func (r *recordingEmitter) Finished() []domain.RunRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.RunRecord(nil), r.finished...)
}

// memRecorder keeps run records in memory.
type memRecorder struct {
	mu      sync.Mutex
	records []domain.RunRecord
}

func (m *memRecorder) RecordRun(ctx context.Context, rec domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memRecorder) Records() []domain.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.RunRecord(nil), m.records...)
}

// gatedEmitter holds the first Success transition until release is closed.
type gatedEmitter struct {
	*recordingEmitter

	held    chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedEmitter() *gatedEmitter {
	return &gatedEmitter{
		recordingEmitter: &recordingEmitter{},
		held:             make(chan struct{}),
		release:          make(chan struct{}),
	}
}

func (g *gatedEmitter) OnStateChange(runID string, previous, current domain.ExecutionState, reason string) {
	if current == domain.StateSuccess {
		g.once.Do(func() {
			close(g.held)
			<-g.release
		})
	}
	g.recordingEmitter.OnStateChange(runID, previous, current, reason)
}

// resettingEmitter resets the engine from inside the Success handler.
type resettingEmitter struct {
	*recordingEmitter

	engine *Engine
}

func (r *resettingEmitter) OnStateChange(runID string, previous, current domain.ExecutionState, reason string) {
	r.recordingEmitter.OnStateChange(runID, previous, current, reason)
	if current == domain.StateSuccess {
		r.engine.Reset()
	}
}
