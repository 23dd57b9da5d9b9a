package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/log"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/sqlite"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/cliconfig"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

const helpDescription = `
Execute a bundle of contract calls through your wallet, atomically when it can.

Highlights:
  - Sends the whole bundle with wallet_sendCalls (EIP-5792) and polls its status.
  - Falls back to one eth_sendTransaction per call if the wallet rejects the
    bundle or it reverts, waiting for each receipt before the next call.
  - Records every run to a SQLite history and a last-run status file.
  - Serves an HTTP API with Prometheus metrics for long-running use.
`

var exampleUsage = strings.TrimSpace(`
  batchexec run approve-and-stake.toml --rpc-url http://127.0.0.1:8545
  batchexec serve --listen :8080 --log-format json
  batchexec history --limit 20
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the configuration shared by every subcommand.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	logger  *logAdapter.Zerolog
}

func main() {
	c := &cli{cfg: cliconfig.DefaultConfig()}
	root := newRootCommand(c)

	if err := root.Execute(); err != nil {
		if c.logger != nil {
			c.logger.Error("batchexec", ports.Err(err))
		} else {
			fmt.Fprintln(os.Stderr, "batchexec:", err)
		}
		os.Exit(1)
	}
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "batchexec",
		Short:         "Execute contract call bundles atomically with a sequential fallback",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.batchexec/config.toml)")
	flags.StringVar(&c.cfg.RPCURL, "rpc-url", c.cfg.RPCURL, "wallet JSON-RPC endpoint")
	flags.StringVar(&c.cfg.From, "from", c.cfg.From, "sending account (default: first eth_accounts entry)")
	flags.Uint64Var(&c.cfg.ChainID, "chain-id", c.cfg.ChainID, "chain id (default: eth_chainId)")
	flags.DurationVar(&c.cfg.PollInterval, "poll-interval", c.cfg.PollInterval, "delay between batch status queries")
	flags.DurationVar(&c.cfg.SettleDelay, "settle-delay", c.cfg.SettleDelay, "pause between sequential steps")
	flags.DurationVar(&c.cfg.RPCTimeout, "rpc-timeout", c.cfg.RPCTimeout, "timeout of a single JSON-RPC request")
	flags.StringVar(&c.cfg.StateDir, "state-dir", c.cfg.StateDir, "directory for last-run.json and the history database (default: $HOME/.batchexec)")
	flags.StringVar(&c.cfg.DBPath, "db-path", c.cfg.DBPath, "run history database (default: <state-dir>/runs.db)")
	flags.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level: debug, info, warn, error")
	flags.StringVar(&c.cfg.LogFormat, "log-format", c.cfg.LogFormat, "log format: console, json")

	root.AddCommand(
		newRunCommand(c),
		newServeCommand(c),
		newHistoryCommand(c),
		newStatusCommand(c),
	)
	return root
}

// load applies the config file and BATCHEXEC_* variables underneath the
// flags that were set, validates the result and builds the logger.
func (c *cli) load(cmd *cobra.Command) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	c.cfgPath = cfgFile

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	// Environment overrides the file but not flags.
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}

	logger, err := logAdapter.New(os.Stderr, c.cfg.LogLevel, logAdapter.Format(c.cfg.LogFormat))
	if err != nil {
		return err
	}
	c.logger = logger
	c.logger.Debug("configuration",
		ports.String("rpc_url", c.cfg.RPCURL),
		ports.String("from", c.cfg.From),
		ports.Uint64("chain_id", c.cfg.ChainID),
		ports.Duration("poll_interval", c.cfg.PollInterval),
		ports.Duration("settle_delay", c.cfg.SettleDelay),
		ports.String("state_dir", c.cfg.StateDir),
		ports.String("db_path", c.cfg.DBPath),
	)
	return nil
}

// openStore opens the run history database, creating its directory.
func (c *cli) openStore() (*sqlite.Store, error) {
	if c.cfg.DBPath == "" {
		return nil, fmt.Errorf("no history database: set --db-path or --state-dir")
	}
	if dir := filepath.Dir(c.cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	return sqlite.Open(c.cfg.DBPath)
}
