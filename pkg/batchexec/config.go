package batchexec

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/rpc"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/app"
)

// Config holds the configuration of an Executor.
type Config struct {
	// RPCURL is the JSON-RPC endpoint of the wallet. It may be empty when
	// every endpoint-facing port and the account are injected.
	RPCURL string

	// From is the sending account. Zero means the first eth_accounts entry.
	From common.Address

	// ChainID zero means it is read from eth_chainId.
	ChainID uint64

	// PollInterval is the delay between batch status queries. Default: 1s
	PollInterval time.Duration

	// SettleDelay is the pause between sequential steps. Default: 500ms
	SettleDelay time.Duration

	// RPCTimeout bounds a single JSON-RPC request. Default: 30s
	RPCTimeout time.Duration
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = app.DefaultPollInterval
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = app.DefaultSettleDelay
	}
	if c.RPCTimeout == 0 {
		c.RPCTimeout = rpc.DefaultTimeout
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if err := c.Timings().Validate(); err != nil {
		return err
	}
	if c.RPCTimeout < 0 {
		return fmt.Errorf("%w: rpc timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Timings returns the engine intervals of c.
func (c Config) Timings() Timings {
	return Timings{PollInterval: c.PollInterval, SettleDelay: c.SettleDelay}
}
