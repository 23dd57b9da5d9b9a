package batchexec

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	logAdapter "github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/log"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/metrics"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/rpc"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/app"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

var (
	// ErrAlreadyStarted is returned by Start on a started Executor.
	ErrAlreadyStarted = errors.New("batchexec: executor already started")

	// ErrNotStarted is returned by Stop on an Executor that is not started.
	ErrNotStarted = errors.New("batchexec: executor not started")
)

// Executor runs call lists atomically when the wallet allows it and
// sequentially otherwise. Use New to create one and Start to connect it.
type Executor struct {
	config   Config
	opts     options
	engine   *app.Engine
	accounts *rpc.Accounts
	client   *rpc.Client
	logger   Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New creates an Executor in StateIdle. It does not contact the endpoint;
// Start resolves the account and initializes plugins.
func New(cfg Config, opts ...Option) (*Executor, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logAdapter.Nop{}
	}

	var client *rpc.Client
	if o.needsRPC() {
		if cfg.RPCURL == "" {
			return nil, fmt.Errorf("%w: rpc url is required", ErrInvalidConfig)
		}
		rpcOpts := []rpc.Option{rpc.WithLogger(logger), rpc.WithTimeout(cfg.RPCTimeout)}
		if o.httpClient != nil {
			rpcOpts = append(rpcOpts, rpc.WithHTTPClient(o.httpClient))
		}
		if o.backoffInitial > 0 {
			rpcOpts = append(rpcOpts, rpc.WithReceiptBackoff(o.backoffInitial, o.backoffMax))
		}
		c, err := rpc.Dial(context.Background(), cfg.RPCURL, rpcOpts...)
		if err != nil {
			return nil, err
		}
		client = c
	}

	deps := app.Deps{
		Submitter: o.submitter,
		Querier:   o.querier,
		Sender:    o.sender,
		Watcher:   o.watcher,
		Logger:    logger,
	}
	if client != nil {
		wallet, ledger := rpc.NewWallet(client), rpc.NewLedger(client)
		if deps.Submitter == nil {
			deps.Submitter = wallet
		}
		if deps.Querier == nil {
			deps.Querier = wallet
		}
		if deps.Sender == nil {
			deps.Sender = ledger
		}
		if deps.Watcher == nil {
			deps.Watcher = ledger
		}
	}

	accounts := &rpc.Accounts{}
	deps.Accounts = accounts

	switch len(o.recorders) {
	case 0:
	case 1:
		deps.Recorder = o.recorders[0]
	default:
		deps.Recorder = multiRecorder(o.recorders)
	}

	var emitters app.MultiEmitter
	if o.registerer != nil {
		emitters = append(emitters, metrics.NewCollector(o.registerer))
	}
	for _, h := range o.eventHandlers {
		emitters = append(emitters, eventEmitterWrapper{handler: h})
	}
	if len(emitters) > 0 {
		deps.Emitter = emitters
	}

	return &Executor{
		config:   cfg,
		opts:     o,
		engine:   app.NewEngine(cfg.Timings(), deps),
		accounts: accounts,
		client:   client,
		logger:   logger,
	}, nil
}

// Start resolves the sending account and initializes plugins.
// The provided context bounds the lifetime of the plugins.
func (x *Executor) Start(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.started {
		return ErrAlreadyStarted
	}

	account, err := x.resolveAccount(ctx)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	pluginCfg := PluginConfig{
		RPCURL:  x.config.RPCURL,
		Account: account,
		Logger:  x.logger,
		Engine:  x.engine,
	}
	for i, p := range x.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			x.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			x.shutdownPlugins(x.opts.plugins[:i])
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		x.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	x.cancel = cancel
	x.started = true
	return nil
}

func (x *Executor) resolveAccount(ctx context.Context) (Account, error) {
	if x.opts.account != nil {
		x.accounts.Set(*x.opts.account)
		return *x.opts.account, nil
	}
	if x.client == nil {
		if x.config.From == (common.Address{}) || x.config.ChainID == 0 {
			return Account{}, fmt.Errorf("%w: from and chain id are required without an rpc endpoint", ErrInvalidConfig)
		}
		account := Account{Address: x.config.From, ChainID: x.config.ChainID}
		x.accounts.Set(account)
		return account, nil
	}
	return x.accounts.Resolve(ctx, x.client, x.config.From, x.config.ChainID)
}

// Stop resets any active run, shuts plugins down in reverse order and closes
// the endpoint connection. Transactions that were already submitted are not
// unsent.
func (x *Executor) Stop() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.started {
		return ErrNotStarted
	}

	x.engine.Reset()
	x.cancel()
	x.shutdownPlugins(x.opts.plugins)
	x.accounts.Clear()
	if x.client != nil {
		x.client.Close()
	}
	x.started = false
	return nil
}

func (x *Executor) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			x.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			continue
		}
		x.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
	}
}

// Execute starts executing calls and returns without waiting for the result.
// It returns ErrNoCalls for an empty list, ErrNoAccount before Start and
// ErrNotIdle unless the executor is idle.
func (x *Executor) Execute(calls []Call) error {
	return x.engine.Execute(calls)
}

// State returns the current execution state.
// Safe to call concurrently from any goroutine.
func (x *Executor) State() ExecutionState {
	return x.engine.State()
}

// Error returns the failure of the last run, or nil.
func (x *Executor) Error() *ExecutionError {
	return x.engine.Error()
}

// Reset abandons the current run and returns to StateIdle.
func (x *Executor) Reset() {
	x.engine.Reset()
}

// Wait blocks until the current run settles, is reset, or ctx ends.
func (x *Executor) Wait(ctx context.Context) (ExecutionState, error) {
	return x.engine.Wait(ctx)
}

// Snapshot returns a point-in-time view of the executor.
func (x *Executor) Snapshot() Snapshot {
	return x.engine.Snapshot()
}

// Timings returns the current poll and settle intervals.
func (x *Executor) Timings() Timings {
	return x.engine.Timings()
}

// SetTimings replaces the poll and settle intervals for future runs.
func (x *Executor) SetTimings(t Timings) error {
	return x.engine.SetTimings(t)
}

// Account returns the active account, or false before Start.
func (x *Executor) Account() (Account, bool) {
	return x.accounts.ActiveAccount()
}

// multiRecorder writes every record to each recorder in order.
type multiRecorder []RunRecorder

func (m multiRecorder) RecordRun(ctx context.Context, rec domain.RunRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordRun(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
