package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eventhub/internal/chat"
	"eventhub/internal/hub/loop"
)

func newDemoCmd() *cobra.Command {
	var messages int

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the chat sample: a client and a store publish, a feed on a loop collects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			return runDemo(ctx, a, messages, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVarP(&messages, "messages", "n", 5, "messages sent by the client and saved by the store")
	return cmd
}

func runDemo(ctx context.Context, a *app, messages int, out io.Writer) error {
	stopServer := a.serve(ctx)
	defer stopServer()

	ui, err := loop.New(a.cfg.Loop, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create loop: %w", err)
	}
	a.metrics.RegisterQueue(ui.Name(), ui)
	ui.Start(ctx)

	// the feed captures the loop, so it only ever sees messages on it
	feed, err := chat.NewFeed(ui.Context(ctx), a.hub, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}
	defer feed.Close(ctx)

	client, err := chat.NewClient(a.hub, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	store, err := chat.NewStore(a.hub, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	a.markReady()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i := range messages {
			if err := client.SendMessage(gctx, fmt.Sprintf("client message %d", i+1)); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		for i := range messages {
			if err := store.SaveMessage(gctx, fmt.Sprintf("stored message %d", i+1)); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("error in publisher", zap.Error(err))
		return fmt.Errorf("failed to publish messages: %w", err)
	}

	ui.Close()
	if err := ui.Wait(ctx); err != nil {
		return fmt.Errorf("failed to drain %s loop: %w", ui.Name(), err)
	}
	reportLoopErrors(a.logger, ui)

	if _, err := io.WriteString(out, feed.Text()); err != nil {
		return fmt.Errorf("failed to write feed: %w", err)
	}

	a.logger.Info("demo complete",
		zap.Int("received", len(feed.Messages())),
		zap.Int("saved", len(store.Messages())),
	)
	return nil
}

func reportLoopErrors(logger *zap.Logger, l *loop.Loop) {
	for {
		select {
		case err := <-l.Errors():
			logger.Error("callback failed on loop", zap.String("loop", l.Name()), zap.Error(err))
		default:
			return
		}
	}
}
