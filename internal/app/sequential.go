package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// DefaultSettleDelay is the pause between a confirmed step and the submission
// of the next one. It keeps the account's nonce ordering stable.
const DefaultSettleDelay = 500 * time.Millisecond

// StepObserver is told about sequential progress as it happens.
type StepObserver interface {
	OnStepSubmitted(step int, tx domain.TxID)
	OnStepConfirmed(step int, receipt domain.Receipt)
}

// SequentialExecutor submits calls one at a time, waiting for each to be
// finalized before submitting the next.
type SequentialExecutor struct {
	sender  ports.TransactionSender
	watcher ports.ConfirmationWatcher
	logger  ports.Logger
}

// NewSequentialExecutor creates an executor.
func NewSequentialExecutor(sender ports.TransactionSender, watcher ports.ConfirmationWatcher, logger ports.Logger) *SequentialExecutor {
	return &SequentialExecutor{sender: sender, watcher: watcher, logger: logger}
}

// confirmation is one receipt signal for a step. lost is set when the watcher
// stopped without reporting anything.
type confirmation struct {
	step    int
	tx      domain.TxID
	receipt domain.Receipt
	lost    bool
}

// Run executes progress.Calls starting at progress.CurrentIndex.
//
// It returns nil once every call is confirmed, an *domain.ExecutionError
// carrying the step index if a step fails to submit or reverts, or ctx.Err()
// if ctx ends first. A failed step aborts the run; later steps are never
// submitted.
func (s *SequentialExecutor) Run(
	ctx context.Context,
	account domain.Account,
	progress *domain.SequentialProgress,
	settle time.Duration,
	obs StepObserver,
) error {
	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	// All watchers report into one channel so a late duplicate for an
	// earlier step is seen, and dropped, by the progress guard.
	events := make(chan confirmation)

	for !progress.Done() {
		step := progress.CurrentIndex

		stepCtx, stopWatch := context.WithCancel(runCtx)
		err := s.submit(stepCtx, account, progress.Calls[step], step, events, &wg, obs)
		if err == nil {
			err = s.await(runCtx, progress, step, events, obs)
		}
		stopWatch()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		progress.Advance()
		if progress.Done() || settle <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settle):
		}
	}
	return nil
}

// submit sends one call and starts forwarding its receipts into events.
func (s *SequentialExecutor) submit(
	ctx context.Context,
	account domain.Account,
	call domain.Call,
	step int,
	events chan<- confirmation,
	wg *sync.WaitGroup,
	obs StepObserver,
) error {
	tx, err := s.sender.SendTransaction(ctx, account, call)
	if err != nil {
		s.logger.Error("step submission failed", ports.Int("step", step), ports.Err(err))
		return domain.NewStepError(step, fmt.Errorf("send transaction: %w", err))
	}
	s.logger.Info("step submitted", ports.Int("step", step), ports.String("tx", tx.Hex()))
	obs.OnStepSubmitted(step, tx)

	receipts, err := s.watcher.Watch(ctx, tx)
	if err != nil {
		return domain.NewStepError(step, fmt.Errorf("watch %s: %w", tx.Hex(), err))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		delivered := false
		for r := range receipts {
			delivered = true
			select {
			case events <- confirmation{step: step, tx: tx, receipt: r}:
			case <-ctx.Done():
				return
			}
		}
		if delivered || ctx.Err() != nil {
			return
		}
		select {
		case events <- confirmation{step: step, tx: tx, lost: true}:
		case <-ctx.Done():
		}
	}()
	return nil
}

// await consumes receipt signals until the current step is processed.
func (s *SequentialExecutor) await(
	ctx context.Context,
	progress *domain.SequentialProgress,
	step int,
	events <-chan confirmation,
	obs StepObserver,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !progress.MarkProcessed(ev.step) {
				s.logger.Debug("ignoring repeated confirmation",
					ports.Int("step", ev.step),
					ports.Int("last_processed", progress.LastProcessedIndex),
				)
				continue
			}
			if ev.lost {
				return domain.NewStepError(step, domain.ErrConfirmationLost)
			}
			if !ev.receipt.Succeeded() {
				s.logger.Error("step reverted", ports.Int("step", step), ports.String("tx", ev.tx.Hex()))
				return domain.NewStepError(step, fmt.Errorf("tx %s: %w", ev.tx.Hex(), domain.ErrStepReverted))
			}
			s.logger.Info("step confirmed",
				ports.Int("step", step),
				ports.Uint64("block", ev.receipt.BlockNumber),
			)
			obs.OnStepConfirmed(step, ev.receipt)
			return nil
		}
	}
}
