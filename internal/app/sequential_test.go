package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

type stepLog struct {
	mu        sync.Mutex
	submitted []int
	confirmed []int
}

func (s *stepLog) OnStepSubmitted(step int, tx domain.TxID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, step)
}

func (s *stepLog) OnStepConfirmed(step int, receipt domain.Receipt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = append(s.confirmed, step)
}

func (s *stepLog) Confirmed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.confirmed)
}

func threeCalls() []domain.Call {
	calls := approveAndStake()
	return append(calls, domain.Call{Target: calls[0].Target, Data: []byte{0x01}})
}

func TestSequentialExecutor_RunsAllSteps(t *testing.T) {
	sender, watcher := &fakeSender{}, &fakeWatcher{}
	exec := NewSequentialExecutor(sender, watcher, mockLogger{})
	progress := domain.NewSequentialProgress(threeCalls(), 0)
	obs := &stepLog{}

	err := exec.Run(context.Background(), testAccount, progress, time.Millisecond, obs)
	require.NoError(t, err)

	assert.True(t, progress.Done())
	assert.Equal(t, 3, progress.Confirmed())
	assert.Equal(t, []int{0, 1, 2}, obs.submitted)
	assert.Equal(t, []int{0, 1, 2}, obs.confirmed)
	assert.Equal(t, int32(3), watcher.watches.Load())
}

func TestSequentialExecutor_DropsDuplicateSignals(t *testing.T) {
	sender, watcher := &fakeSender{}, &fakeWatcher{repeat: 5}
	exec := NewSequentialExecutor(sender, watcher, mockLogger{})
	progress := domain.NewSequentialProgress(threeCalls(), 0)
	obs := &stepLog{}

	require.NoError(t, exec.Run(context.Background(), testAccount, progress, 0, obs))
	assert.Len(t, sender.Sent(), 3)
	assert.Equal(t, []int{0, 1, 2}, obs.confirmed)
}

func TestSequentialExecutor_ResumesFromIndex(t *testing.T) {
	sender := &fakeSender{}
	exec := NewSequentialExecutor(sender, &fakeWatcher{}, mockLogger{})
	calls := threeCalls()
	progress := domain.NewSequentialProgress(calls, 1)
	obs := &stepLog{}

	require.NoError(t, exec.Run(context.Background(), testAccount, progress, 0, obs))
	assert.Equal(t, calls[1:], sender.Sent())
	assert.Equal(t, []int{1, 2}, obs.submitted)
}

func TestSequentialExecutor_RevertStopsLaterSteps(t *testing.T) {
	sender := &fakeSender{}
	exec := NewSequentialExecutor(sender, &fakeWatcher{reverted: map[int]bool{1: true}}, mockLogger{})
	progress := domain.NewSequentialProgress(threeCalls(), 0)

	err := exec.Run(context.Background(), testAccount, progress, 0, &stepLog{})

	var execErr *domain.ExecutionError
	require.True(t, errors.As(err, &execErr))
	step, ok := execErr.Step()
	require.True(t, ok)
	assert.Equal(t, 1, step)
	assert.ErrorIs(t, err, domain.ErrStepReverted)
	assert.Len(t, sender.Sent(), 2)
	assert.Equal(t, 1, progress.Confirmed())
}

func TestSequentialExecutor_SendErrorCarriesStep(t *testing.T) {
	cause := errors.New("nonce too low")
	sender := &fakeSender{failAt: map[int]error{2: cause}}
	exec := NewSequentialExecutor(sender, &fakeWatcher{}, mockLogger{})
	progress := domain.NewSequentialProgress(threeCalls(), 0)

	err := exec.Run(context.Background(), testAccount, progress, 0, &stepLog{})

	var execErr *domain.ExecutionError
	require.ErrorAs(t, err, &execErr)
	step, _ := execErr.Step()
	assert.Equal(t, 2, step)
	assert.ErrorIs(t, err, cause)
}

func TestSequentialExecutor_CancelDuringSettle(t *testing.T) {
	sender := &fakeSender{}
	exec := NewSequentialExecutor(sender, &fakeWatcher{}, mockLogger{})
	progress := domain.NewSequentialProgress(threeCalls(), 0)
	obs := &stepLog{}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- exec.Run(ctx, testAccount, progress, time.Hour, obs) }()

	require.Eventually(t, func() bool { return obs.Confirmed() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Len(t, sender.Sent(), 1)
}
