package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/fs"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/api"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/cliconfig"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
	"github.com/Heesho/donut-miner-miniapp-sub000/pkg/batchexec"
)

func newRunCommand(c *cli) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "run <bundle.toml>",
		Short: "Execute a call bundle and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			calls, err := cliconfig.LoadBundle(args[0])
			if err != nil {
				return fmt.Errorf("load bundle: %w", err)
			}

			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ex, err := c.newExecutor(executorOptions{store: store})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			if err := ex.Start(ctx); err != nil {
				return fmt.Errorf("start executor: %w", err)
			}
			defer ex.Stop()

			if err := ex.Execute(calls); err != nil {
				return err
			}

			state, err := ex.Wait(ctx)
			if err != nil {
				// Interrupted; Stop records the run as abandoned.
				return fmt.Errorf("run interrupted in state %s: %w", state, err)
			}

			snap := ex.Snapshot()
			if state == batchexec.StateError {
				return ex.Error()
			}
			c.logger.Info("run finished",
				ports.String("run_id", snap.RunID),
				ports.String("state", state.String()),
				ports.String("path", string(snap.Path)),
				ports.String("fallback", string(snap.Fallback)),
				ports.Int("confirmed", snap.Confirmed),
			)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up waiting after this long (0 waits forever)")
	return cmd
}

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the execution HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			ex, err := c.newExecutor(executorOptions{store: store, registerer: reg, watch: true})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := ex.Start(ctx); err != nil {
				return fmt.Errorf("start executor: %w", err)
			}
			defer ex.Stop()

			srv := api.NewServer(c.cfg.ListenAddr, ex, api.Options{
				History:  store,
				Registry: reg,
				Logger:   c.logger.With(ports.String("component", "api")),
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Info("received signal, stopping")
			return nil
		},
	}
	cmd.Flags().StringVar(&c.cfg.ListenAddr, "listen", c.cfg.ListenAddr, "HTTP listen address")
	return cmd
}

func newHistoryCommand(c *cli) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := c.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tOUTCOME\tPATH\tFALLBACK\tCONFIRMED\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.RFC3339), r.Outcome, r.Path,
					r.Fallback, r.Confirmed, r.Calls, r.Error)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newStatusCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, ok, err := fs.NewRunFile(c.cfg.StateDir).Load(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}
}
