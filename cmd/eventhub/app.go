package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eventhub/internal/hub"
	"eventhub/internal/hub/metrics"
	"eventhub/internal/hub/registry"
	"eventhub/internal/hub/tracing"
)

// app is the hub stack shared by every command.
// Layer order: TracedHub -> MetricsHub -> EventHub.
type app struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Registry
	core    *registry.EventHub
	hub     hub.Hub
	server  *metrics.Server
	cleanup func(context.Context) error
}

func newApp(cmd *cobra.Command) (*app, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig(envFile)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	metricsRegistry := metrics.NewRegistry()
	metricsRegistry.SetSystemInfo(cfg.Version, time.Now().Format(time.RFC3339))

	tracer, tracingCleanup, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	logger.Info("tracing initialized",
		zap.Bool("enabled", cfg.Tracing.Enabled),
		zap.String("service", cfg.Tracing.ServiceName),
		zap.String("otlp_endpoint", cfg.Tracing.Endpoint),
		zap.Float64("sample_rate", cfg.Tracing.SampleRate),
	)

	core, err := registry.NewEventHub(cfg.Hub, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event hub: %w", err)
	}
	metricsRegistry.RegisterHub(core.Name(), core)

	metricsHub := registry.NewMetricsHub(core, metricsRegistry)
	tracedHub := registry.NewTracedHub(metricsHub, core.Name(), tracer)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metricsRegistry,
		core:    core,
		hub:     tracedHub,
		cleanup: tracingCleanup,
	}
	if cfg.MetricsEnabled {
		a.server = metrics.NewServer(cfg.Metrics, metricsRegistry, logger)
	}

	return a, nil
}

// serve runs the metrics server in the background. The returned function
// stops it and waits for it to exit.
func (a *app) serve(ctx context.Context) func() {
	if a.server == nil {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := a.server.Start(ctx); err != nil {
			a.logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	a.logger.Info("metrics server started",
		zap.String("endpoint", fmt.Sprintf("http://localhost:%d/metrics", a.cfg.Metrics.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", a.cfg.Metrics.Port)),
	)

	return func() {
		cancel()
		<-done
	}
}

// markReady flips the metrics server's readiness probe once a command has
// wired its components.
func (a *app) markReady() {
	if a.server != nil {
		a.server.SetReady(true)
	}
}

func (a *app) close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.cleanup(shutdownCtx); err != nil {
		a.logger.Error("failed to cleanup tracing", zap.Error(err))
	}

	s := a.core.Metrics()
	a.logger.Info("hub stats",
		zap.String("hub", a.core.Name()),
		zap.Int64("subscriptions", s.Subscriptions),
		zap.Int64("published", s.Published),
		zap.Int64("delivered", s.Delivered),
		zap.Int64("posted", s.Posted),
		zap.Int64("reclaimed", s.Reclaimed),
		zap.Int64("panics", s.Panics),
	)

	_ = a.logger.Sync()
}
