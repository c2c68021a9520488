// Command dentaldash serves the clinic operations dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"dentaldash/internal/amqp"
	"dentaldash/internal/analytics"
	"dentaldash/internal/backend"
	"dentaldash/internal/cache"
	"dentaldash/internal/cli"
	"dentaldash/internal/config"
	apphttp "dentaldash/internal/http"
	"dentaldash/internal/log"
	"dentaldash/internal/store"
	"dentaldash/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap((*config.Config).Validate)
	logger.Info("Starting dentaldash",
		log.FieldBackend, cfg.DataBackend,
		log.FieldTable, cfg.RecordsTable,
		"config_file", cfg.ConfigFile)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		stop()
		cli.Fatal(logger, "Server stopped with error", err)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return fmt.Errorf("backend configuration: %w", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return fmt.Errorf("initialize data backend: %w", err)
	}
	defer func() {
		if err := result.Close(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err)
		}
	}()

	policy, err := analytics.ParseParsePolicy(cfg.ParsePolicy)
	if err != nil {
		return err
	}
	snapshots := store.New(result.Fetcher, store.Options{
		Table:  cfg.RecordsTable,
		TTL:    cfg.CacheTTL,
		Policy: policy,
		Logger: logger,
	})

	// AMQP is optional: without it refreshes stay local to this instance.
	var (
		publisher apphttp.RefreshPublisher
		consumer  worker.Consumer
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, refreshes will not be broadcast",
				log.FieldError, err)
		} else {
			defer client.Close()
			publisher, consumer = client, client
			logger.Info("AMQP refresh queue connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	refresher := worker.NewRefreshWorker(snapshots, consumer, cfg.RefreshSchedule, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         cfg.ServerAddr(),
		Store:        snapshots,
		Publisher:    publisher,
		Ping:         result.Ping,
		Logger:       logger,
		ViewCacheTTL: cfg.CacheTTL,
	})

	caches := cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache))
	caches.Register(snapshots.Cache())
	for _, c := range srv.Caches() {
		caches.Register(c)
	}
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	// warm the snapshot so the first visitor does not wait on the backend
	if _, err := snapshots.Load(ctx); err != nil {
		logger.Warn("Initial snapshot load failed, dashboard will show no data until the backend recovers",
			log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if refresher.Enabled() {
		g.Go(func() error { return refresher.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
