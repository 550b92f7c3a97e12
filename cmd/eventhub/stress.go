package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eventhub/internal/hub"
)

// tick is the event published by stress workers.
type tick struct {
	Worker int
	Seq    int
}

// watcher is a short-lived stress subscriber.
type watcher struct {
	worker int
	seq    int
}

type stressOptions struct {
	workers    int
	iterations int
	cpuProfile string
}

func newStressCmd() *cobra.Command {
	var opts stressOptions

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Subscribe, publish, check and unsubscribe from many goroutines at once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if opts.cpuProfile != "" {
				f, err := os.Create(opts.cpuProfile)
				if err != nil {
					return fmt.Errorf("could not create CPU profile: %w", err)
				}
				defer f.Close()
				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("could not start CPU profile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			return runStress(ctx, a, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", runtime.GOMAXPROCS(0), "concurrent workers")
	cmd.Flags().IntVarP(&opts.iterations, "iterations", "i", 1000, "subscriptions made by each worker")
	cmd.Flags().StringVar(&opts.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")

	return cmd
}

// runStress has every worker subscribe a fresh watcher, publish, and check the
// watcher is registered. Even watchers are unsubscribed explicitly; odd ones are
// dropped and left for the hub to reclaim.
func runStress(ctx context.Context, a *app, opts stressOptions, out io.Writer) error {
	stopServer := a.serve(ctx)
	defer stopServer()

	var delivered atomic.Int64
	onTick := func(*tick) { delivered.Add(1) }

	a.markReady()
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := range opts.workers {
		g.Go(func() error {
			for i := range opts.iterations {
				if err := gctx.Err(); err != nil {
					return err
				}

				p := &watcher{worker: w, seq: i}
				if err := hub.Subscribe(gctx, a.hub, p, onTick); err != nil {
					return fmt.Errorf("failed to subscribe watcher %d/%d: %w", w, i, err)
				}
				if err := a.hub.Publish(gctx, &tick{Worker: w, Seq: i}); err != nil {
					return fmt.Errorf("failed to publish tick %d/%d: %w", w, i, err)
				}
				if !hub.ExistsHandler(gctx, a.hub, p, onTick) {
					return fmt.Errorf("watcher %d/%d lost its subscription", w, i)
				}
				if i%2 == 0 {
					hub.Unsubscribe(gctx, a.hub, p)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		a.logger.Error("error in worker", zap.Error(err))
		return fmt.Errorf("stress run failed: %w", err)
	}
	elapsed := time.Since(start)

	// collect dropped watchers and let one more scan reclaim them
	runtime.GC()
	if err := a.hub.Publish(ctx, &tick{Worker: -1}); err != nil {
		return fmt.Errorf("failed to publish final tick: %w", err)
	}

	s := a.core.Metrics()
	_, err := fmt.Fprintf(out,
		"workers=%d iterations=%d elapsed=%s published=%d delivered=%d reclaimed=%d remaining=%d\n",
		opts.workers, opts.iterations, elapsed.Round(time.Millisecond),
		s.Published, delivered.Load(), s.Reclaimed, a.core.Len(),
	)
	return err
}
