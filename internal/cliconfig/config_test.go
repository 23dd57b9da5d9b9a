package cliconfig

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RPCURL != DefaultRPCURL {
		t.Errorf("RPCURL = %v, want %v", cfg.RPCURL, DefaultRPCURL)
	}
	if cfg.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.PollInterval)
	}
	if cfg.SettleDelay != 500*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 500ms", cfg.SettleDelay)
	}
	if cfg.ChainID != 0 {
		t.Errorf("ChainID = %v, want 0 (resolved at startup)", cfg.ChainID)
	}
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.StateDir = "/tmp/batchexec"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"explicit from", func(c *Config) { c.From = "0x00000000000000000000000000000000000000aa" }, false},
		{"zero settle delay", func(c *Config) { c.SettleDelay = 0 }, false},
		{"missing rpc url", func(c *Config) { c.RPCURL = "" }, true},
		{"bad from", func(c *Config) { c.From = "alice" }, true},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, true},
		{"negative settle delay", func(c *Config) { c.SettleDelay = -time.Second }, true},
		{"zero rpc timeout", func(c *Config) { c.RPCTimeout = 0 }, true},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_ValidateDerivesDBPath(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if want := filepath.Join("/tmp/batchexec", "runs.db"); cfg.DBPath != want {
		t.Errorf("DBPath = %v, want %v", cfg.DBPath, want)
	}

	cfg = validConfig()
	cfg.DBPath = "/data/history.db"
	_ = cfg.Validate()
	if cfg.DBPath != "/data/history.db" {
		t.Errorf("DBPath = %v, want explicit value kept", cfg.DBPath)
	}
}

func TestConfig_FromAddress(t *testing.T) {
	cfg := Config{}
	if cfg.FromAddress() != (common.Address{}) {
		t.Errorf("FromAddress() = %v, want zero", cfg.FromAddress())
	}
	cfg.From = "0x00000000000000000000000000000000000000aa"
	if got := cfg.FromAddress(); got[19] != 0xaa {
		t.Errorf("FromAddress() = %v", got.Hex())
	}
}
