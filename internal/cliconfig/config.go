package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/app"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

// DefaultRPCURL is the default JSON-RPC endpoint of the wallet.
const DefaultRPCURL = "http://127.0.0.1:8545"

// Config holds CLI configuration for batchexec.
type Config struct {
	RPCURL string
	From   string

	// ChainID zero means it is read from eth_chainId at startup.
	ChainID uint64

	PollInterval time.Duration
	SettleDelay  time.Duration
	RPCTimeout   time.Duration

	StateDir   string
	DBPath     string
	ListenAddr string

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		RPCURL:       DefaultRPCURL,
		PollInterval: app.DefaultPollInterval,
		SettleDelay:  app.DefaultSettleDelay,
		RPCTimeout:   30 * time.Second,
		StateDir:     "", // Derived from the home directory during Validate
		ListenAddr:   "127.0.0.1:8080",
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("%w: rpc-url is required", domain.ErrInvalidConfig)
	}
	if c.From != "" && !common.IsHexAddress(c.From) {
		return fmt.Errorf("%w: from %q is not a hex address", domain.ErrInvalidConfig, c.From)
	}

	if err := c.Timings().Validate(); err != nil {
		return err
	}
	if c.RPCTimeout <= 0 {
		return fmt.Errorf("%w: rpc timeout must be positive", domain.ErrInvalidConfig)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", domain.ErrInvalidConfig, c.LogFormat)
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}
	if c.DBPath == "" && c.StateDir != "" {
		c.DBPath = filepath.Join(c.StateDir, "runs.db")
	}
	return nil
}

// Timings returns the engine intervals from the config.
func (c Config) Timings() app.Timings {
	return app.Timings{PollInterval: c.PollInterval, SettleDelay: c.SettleDelay}
}

// FromAddress returns the configured sender, or the zero address if unset.
func (c Config) FromAddress() common.Address {
	if c.From == "" {
		return common.Address{}
	}
	return common.HexToAddress(c.From)
}

// DefaultStateDir returns ~/.batchexec, or "" if the home directory is unknown.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".batchexec")
	}
	return ""
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setUint64 sets a uint64 value if positive and flag not changed.
func (s *configSetter) setUint64(flag string, value uint64, dst *uint64) {
	if value == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setUint64FromString parses a decimal or 0x-prefixed string and sets the
// destination if positive. Used for environment variables.
func (s *configSetter) setUint64FromString(flag, value string, dst *uint64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	u, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if u == 0 {
		return nil
	}
	*dst = u
	return nil
}
