package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smp/internal/api"
	"smp/internal/meta"
	"smp/internal/platform/config"
	"smp/internal/platform/httpserver"
	"smp/internal/platform/logger"
	"smp/internal/platform/metrics"
)

const probeInterval = 30 * time.Second

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the registry and the lookup API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sink, err := newAuditSink(ctx, cfg.Audit, log)
	if err != nil {
		return fmt.Errorf("audit sink: %w", err)
	}
	defer sink.Close()

	app, err := meta.New(ctx, cfg,
		meta.WithLogger(log),
		meta.WithAuditPublisher(sink.emitter()),
		meta.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("failed to close backend", "error", err)
		}
	}()

	router := api.NewRouter(api.New(app, log), reg)
	srv := httpserver.New(cfg.HTTP.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.HTTP.ShutdownTimeout, log)
	})
	g.Go(func() error {
		watchBackend(gctx, app)
		return nil
	})
	return g.Wait()
}

// watchBackend re-probes the backend so the connection gauge and audit trail
// follow outages that happen between requests.
func watchBackend(ctx context.Context, app *meta.App) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.ProbeBackend(ctx)
		}
	}
}
