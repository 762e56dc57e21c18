package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pior/redis"
)

const replHelp = `Commands:
  get <key> [key...]   - Get values, concurrently for several keys
  set <key> <value>    - Set a key
  del <key> [key...]   - Delete keys, print how many existed
  stats                - Show client and pool statistics
  quit                 - Exit`

func (a *app) replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.getClient()
			if err != nil {
				return err
			}
			return a.repl(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func (a *app) repl(ctx context.Context, client *redis.Client, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Connected to %s. Type 'help' for commands.\n", strings.Join(a.cfg.Servers, ", "))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		command := strings.ToLower(parts[0])
		if command == "quit" || command == "exit" {
			return nil
		}

		start := time.Now()
		cmdCtx, cancel := a.withTimeout(ctx)
		a.dispatch(cmdCtx, client, out, command, parts[1:])
		cancel()

		if command != "help" && command != "stats" {
			fmt.Fprintf(out, "(%s)\n", time.Since(start).Round(time.Microsecond))
		}
	}
}

func (a *app) dispatch(ctx context.Context, client *redis.Client, out io.Writer, command string, args []string) {
	switch command {
	case "get":
		if len(args) == 0 {
			fmt.Fprintln(out, "Usage: get <key> [key...]")
			return
		}
		values, err := getMany(ctx, client, args)
		if err != nil {
			fmt.Fprintf(out, "(error) %v\n", err)
			return
		}
		for i, v := range values {
			if len(values) > 1 {
				fmt.Fprintf(out, "%d) ", i+1)
			}
			fmt.Fprintln(out, formatValue(v))
		}

	case "set":
		if len(args) != 2 {
			fmt.Fprintln(out, "Usage: set <key> <value>")
			return
		}
		if err := client.Set(ctx, redis.String(args[0]), redis.String(args[1])); err != nil {
			fmt.Fprintf(out, "(error) %v\n", err)
			return
		}
		fmt.Fprintln(out, "OK")

	case "del", "delete":
		if len(args) == 0 {
			fmt.Fprintln(out, "Usage: del <key> [key...]")
			return
		}
		keys := make([]redis.Value, len(args))
		for i, arg := range args {
			keys[i] = redis.String(arg)
		}
		n, err := client.DelMany(ctx, keys...)
		if err != nil {
			fmt.Fprintf(out, "(error) %v\n", err)
			return
		}
		fmt.Fprintf(out, "(integer) %d\n", n)

	case "stats":
		printStats(out, client)

	case "help":
		fmt.Fprintln(out, replHelp)

	default:
		fmt.Fprintf(out, "Unknown command: %s. Type 'help' for available commands.\n", command)
	}
}
