package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pior/redis"
)

// app holds what every subcommand shares: the configuration and a client
// created on first use.
type app struct {
	configPath string
	cfg        config
	client     *redis.Client
	showStats  bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "redis-cli",
		Short:         "Run SET, GET and DEL against Redis servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.client == nil {
				return
			}
			if a.showStats {
				printStats(cmd.ErrOrStderr(), a.client)
			}
			a.client.Close()
		},
	}

	defaults := defaultConfig()
	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.StringSliceP("servers", "s", defaults.Servers, "server addresses (host:port)")
	flags.Int32("max-connections", defaults.MaxConnections, "maximum pooled connections")
	flags.Duration("timeout", defaults.Timeout, "timeout per command")
	flags.String("pool", defaults.Pool, "pool implementation: channel or puddle")
	flags.String("log-level", defaults.LogLevel, "log level: debug, info, warn or error")
	flags.BoolVar(&a.showStats, "stats", false, "print client and pool statistics on exit")

	root.AddCommand(
		a.getCmd(),
		a.setCmd(),
		a.delCmd(),
		a.replCmd(),
		a.benchCmd(),
	)
	return root
}

func (a *app) getClient() (*redis.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	client, err := a.cfg.newClient()
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

func (a *app) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, a.cfg.Timeout)
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key> [key...]",
		Short: "Get one or more keys; several keys are fetched concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.getClient()
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			values, err := getMany(ctx, client, args)
			if err != nil {
				return err
			}
			for i, v := range values {
				if len(values) > 1 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ", args[i])
				}
				fmt.Fprintln(cmd.OutOrStdout(), formatValue(v))
			}
			return nil
		},
	}
}

// getMany fetches keys concurrently, keeping the results in key order.
func getMany(ctx context.Context, client *redis.Client, keys []string) ([]redis.Value, error) {
	values := make([]redis.Value, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			v, err := client.Get(ctx, redis.String(key))
			if err != nil {
				return fmt.Errorf("get %s: %w", key, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.getClient()
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			if err := client.Set(ctx, redis.String(args[0]), redis.String(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func (a *app) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "del <key> [key...]",
		Aliases: []string{"delete"},
		Short:   "Delete keys in a single DEL and print how many existed",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.getClient()
			if err != nil {
				return err
			}
			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			keys := make([]redis.Value, len(args))
			for i, arg := range args {
				keys[i] = redis.String(arg)
			}
			n, err := client.DelMany(ctx, keys...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "(integer) %d\n", n)
			return nil
		},
	}
}

func formatValue(v redis.Value) string {
	if !v.HasValue() {
		return "(nil)"
	}
	return v.String()
}

func printStats(w io.Writer, client *redis.Client) {
	cs := client.Stats()
	ps := client.PoolStats()

	fmt.Fprintf(w, "commands: %d get (%d hits), %d set, %d del (%d keys removed)\n",
		cs.Gets, cs.GetHits, cs.Sets, cs.Deletes, cs.DeletedKeys)
	fmt.Fprintf(w, "errors: %d total, %d server, %d discarded connections\n",
		cs.Errors, cs.ServerErrors, cs.DiscardedConns)
	fmt.Fprintf(w, "pool: %d total, %d idle, %d active, %d created, %d destroyed\n",
		ps.TotalConns, ps.IdleConns, ps.ActiveConns, ps.CreatedConns, ps.DestroyedConns)

	for _, cb := range client.CircuitBreakerStats() {
		fmt.Fprintf(w, "breaker %s: %s (%d/%d failed)\n",
			cb.Addr, cb.State, cb.Counts.TotalFailures, cb.Counts.Requests)
	}
}
