package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/app"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	RPCURL       string `toml:"rpc_url"`
	From         string `toml:"from"`
	ChainID      uint64 `toml:"chain_id"`
	PollInterval string `toml:"poll_interval"`
	SettleDelay  string `toml:"settle_delay"`
	RPCTimeout   string `toml:"rpc_timeout"`
	StateDir     string `toml:"state_dir"`
	DBPath       string `toml:"db_path"`
	ListenAddr   string `toml:"listen_addr"`
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.batchexec/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if dir := DefaultStateDir(); dir != "" {
		return filepath.Join(dir, "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("rpc-url", fc.RPCURL, &cfg.RPCURL)
	s.setString("from", fc.From, &cfg.From)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("db-path", fc.DBPath, &cfg.DBPath)
	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-format", fc.LogFormat, &cfg.LogFormat)
	s.setUint64("chain-id", fc.ChainID, &cfg.ChainID)

	if err := s.setDuration("poll-interval", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("settle-delay", fc.SettleDelay, &cfg.SettleDelay); err != nil {
		return err
	}
	if err := s.setDuration("rpc-timeout", fc.RPCTimeout, &cfg.RPCTimeout); err != nil {
		return err
	}
	return nil
}

// Timings overlays the file's poll and settle intervals on base.
func (fc FileConfig) Timings(base app.Timings) (app.Timings, error) {
	s := newConfigSetter(nil)
	if err := s.setDuration("poll_interval", fc.PollInterval, &base.PollInterval); err != nil {
		return base, err
	}
	if err := s.setDuration("settle_delay", fc.SettleDelay, &base.SettleDelay); err != nil {
		return base, err
	}
	return base, base.Validate()
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
