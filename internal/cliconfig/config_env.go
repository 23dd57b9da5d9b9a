package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "BATCHEXEC_"

// ApplyEnvConfig applies BATCHEXEC_* environment variables to cfg.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("rpc-url", env("RPC_URL"), &cfg.RPCURL)
	s.setString("from", env("FROM"), &cfg.From)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("db-path", env("DB_PATH"), &cfg.DBPath)
	s.setString("listen", env("LISTEN_ADDR"), &cfg.ListenAddr)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setUint64FromString("chain-id", env("CHAIN_ID"), &cfg.ChainID); err != nil {
		return err
	}
	if err := s.setDuration("poll-interval", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("settle-delay", env("SETTLE_DELAY"), &cfg.SettleDelay); err != nil {
		return err
	}
	if err := s.setDuration("rpc-timeout", env("RPC_TIMEOUT"), &cfg.RPCTimeout); err != nil {
		return err
	}
	return nil
}
