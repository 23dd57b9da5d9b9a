package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/fs"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/sqlite"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/cliconfig"
	"github.com/Heesho/donut-miner-miniapp-sub000/pkg/batchexec"
	"github.com/Heesho/donut-miner-miniapp-sub000/plugins/configwatcher"
)

// executorOptions tunes newExecutor for a subcommand.
type executorOptions struct {
	store      *sqlite.Store
	registerer prometheus.Registerer
	watch      bool
}

// newExecutor builds an executor that records runs to the last-run file and,
// when given, the history store.
func (c *cli) newExecutor(o executorOptions) (*batchexec.Executor, error) {
	opts := []batchexec.Option{
		batchexec.WithLogger(c.logger),
		batchexec.WithRecorder(fs.NewRunFile(c.cfg.StateDir)),
	}
	if o.store != nil {
		opts = append(opts, batchexec.WithRecorder(o.store))
	}
	if o.registerer != nil {
		opts = append(opts, batchexec.WithMetrics(o.registerer))
	}
	if o.watch && c.cfgPath != "" && cliconfig.FileExists(c.cfgPath) {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{Path: c.cfgPath}))
	}

	ex, err := batchexec.New(batchexec.Config{
		RPCURL:       c.cfg.RPCURL,
		From:         c.cfg.FromAddress(),
		ChainID:      c.cfg.ChainID,
		PollInterval: c.cfg.PollInterval,
		SettleDelay:  c.cfg.SettleDelay,
		RPCTimeout:   c.cfg.RPCTimeout,
	}, opts...)
	if err != nil {
		return nil, err
	}
	// Config treats a zero settle delay as unset; apply it as configured.
	if err := ex.SetTimings(c.cfg.Timings()); err != nil {
		return nil, err
	}
	return ex, nil
}
