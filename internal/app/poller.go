package app

import (
	"context"
	"time"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

// DefaultPollInterval is the interval between batch status queries.
const DefaultPollInterval = time.Second

// Poller queries the status of accepted batches until they reach a terminal
// status.
type Poller struct {
	querier ports.BatchStatusQuerier
	logger  ports.Logger
	emitter EventEmitter
}

// NewPoller creates a poller backed by querier.
func NewPoller(querier ports.BatchStatusQuerier, logger ports.Logger, emitter EventEmitter) *Poller {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Poller{querier: querier, logger: logger, emitter: emitter}
}

// Poll is one active polling task bound to a single batch handle.
type Poll struct {
	handle   domain.BatchHandle
	task     *Task
	status   domain.BatchStatus
	terminal bool
}

// Start begins polling handle on behalf of run runID. Polling stops when a
// terminal status is observed, when ctx ends, or when the Poll is cancelled.
// A response that arrives after cancellation is discarded.
func (p *Poller) Start(ctx context.Context, runID string, handle domain.BatchHandle, interval time.Duration) *Poll {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	poll := &Poll{handle: handle}
	poll.task = Schedule(ctx, interval, func(ctx context.Context) bool {
		status, err := p.querier.BatchStatus(ctx, handle)
		if ctx.Err() != nil {
			return true
		}
		p.emitter.OnStatusQuery(runID, status, err)
		if err != nil {
			p.logger.Warn("batch status query failed",
				ports.String("run_id", runID),
				ports.String("handle", string(handle)),
				ports.Err(err),
			)
			return false
		}
		p.logger.Debug("batch status",
			ports.String("run_id", runID),
			ports.String("status", status.String()),
		)
		if !status.Terminal() {
			return false
		}
		poll.status = status
		poll.terminal = true
		return true
	})
	return poll
}

// Handle returns the batch handle being polled.
func (p *Poll) Handle() domain.BatchHandle {
	return p.handle
}

// Cancel stops polling. Safe to call repeatedly.
func (p *Poll) Cancel() {
	p.task.Cancel()
}

// Wait blocks until polling stops. It returns the terminal status and true,
// or false if polling was cancelled first.
func (p *Poll) Wait() (domain.BatchStatus, bool) {
	<-p.task.Done()
	return p.status, p.terminal
}
