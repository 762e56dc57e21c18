package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pior/redis"
)

// workload is one benchmark operation. It runs repeatedly on every worker
// until the duration is over; seq counts the calls made by that worker.
type workload struct {
	name  string
	setup func(ctx context.Context, client *redis.Client) error
	op    func(ctx context.Context, client *redis.Client, worker, seq int) error
}

var errMismatch = errors.New("value mismatch")

var workloads = []workload{
	{
		name: "cache-hit",
		setup: func(ctx context.Context, client *redis.Client) error {
			return client.Set(ctx, redis.String("bench:hit"), redis.String("cache-hit-value"))
		},
		op: func(ctx context.Context, client *redis.Client, worker, seq int) error {
			v, err := client.Get(ctx, redis.String("bench:hit"))
			if err != nil {
				return err
			}
			if v.Text() != "cache-hit-value" {
				return errMismatch
			}
			return nil
		},
	},
	{
		name: "dynamic-value",
		op: func(ctx context.Context, client *redis.Client, worker, seq int) error {
			key := redis.String(fmt.Sprintf("bench:dyn:%d:%d", worker, seq))
			if err := client.Set(ctx, key, redis.Int(int64(seq))); err != nil {
				return err
			}
			v, err := client.Get(ctx, key)
			if err != nil {
				return err
			}
			if n, err := v.Int64(); err != nil || n != int64(seq) {
				return errMismatch
			}
			_, err = client.Del(ctx, key)
			return err
		},
	},
	{
		name: "cache-miss",
		op: func(ctx context.Context, client *redis.Client, worker, seq int) error {
			v, err := client.Get(ctx, redis.String(fmt.Sprintf("bench:miss:%d:%d", worker, seq)))
			if err != nil {
				return err
			}
			if v.HasValue() {
				return errMismatch
			}
			return nil
		},
	},
	{
		name: "delete",
		op: func(ctx context.Context, client *redis.Client, worker, seq int) error {
			a := redis.String(fmt.Sprintf("bench:del:%d:%d:a", worker, seq))
			b := redis.String(fmt.Sprintf("bench:del:%d:%d:b", worker, seq))
			if err := client.Set(ctx, a, redis.String("x")); err != nil {
				return err
			}
			n, err := client.DelMany(ctx, a, b)
			if err != nil {
				return err
			}
			if n != 1 {
				return errMismatch
			}
			return nil
		},
	},
}

type benchResult struct {
	name       string
	duration   time.Duration
	ops        int64
	failures   int64
	mismatches int64
	latency    time.Duration // summed over all ops
}

func (r benchResult) print(w io.Writer) {
	fmt.Fprintf(w, "%-14s %8d ops  %10.0f ops/s  avg %-10s failures %d  mismatches %d\n",
		r.name, r.ops, float64(r.ops)/r.duration.Seconds(), r.avgLatency(), r.failures, r.mismatches)
}

func (r benchResult) avgLatency() time.Duration {
	if r.ops == 0 {
		return 0
	}
	return (r.latency / time.Duration(r.ops)).Round(time.Microsecond)
}

func (a *app) benchCmd() *cobra.Command {
	var (
		name        string
		duration    time.Duration
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run load against the servers and report throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := selectWorkloads(name)
			if err != nil {
				return err
			}
			if concurrency < 1 {
				return fmt.Errorf("concurrency must be at least 1, got %d", concurrency)
			}
			client, err := a.getClient()
			if err != nil {
				return err
			}

			for _, w := range selected {
				result, err := runWorkload(cmd.Context(), client, w, duration, concurrency)
				if err != nil {
					return fmt.Errorf("%s: %w", w.name, err)
				}
				result.print(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "workload", "all", "cache-hit, dynamic-value, cache-miss, delete or all")
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "duration of each workload")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of concurrent workers")
	return cmd
}

func selectWorkloads(name string) ([]workload, error) {
	if name == "all" {
		return workloads, nil
	}
	for _, w := range workloads {
		if w.name == name {
			return []workload{w}, nil
		}
	}
	return nil, fmt.Errorf("unknown workload %q", name)
}

// runWorkload runs w on concurrency workers for duration. Command failures
// are counted, not returned; only the setup step can fail the run.
func runWorkload(ctx context.Context, client *redis.Client, w workload, duration time.Duration, concurrency int) (benchResult, error) {
	if w.setup != nil {
		if err := w.setup(ctx, client); err != nil {
			return benchResult{}, fmt.Errorf("setup: %w", err)
		}
	}

	var ops, failures, mismatches, latency atomic.Int64

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for worker := range concurrency {
		g.Go(func() error {
			for seq := 0; gctx.Err() == nil; seq++ {
				opStart := time.Now()
				err := w.op(ctx, client, worker, seq)
				latency.Add(int64(time.Since(opStart)))
				ops.Add(1)

				switch {
				case errors.Is(err, errMismatch):
					mismatches.Add(1)
				case err != nil:
					failures.Add(1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return benchResult{
		name:       w.name,
		duration:   time.Since(start),
		ops:        ops.Load(),
		failures:   failures.Load(),
		mismatches: mismatches.Load(),
		latency:    time.Duration(latency.Load()),
	}, nil
}
