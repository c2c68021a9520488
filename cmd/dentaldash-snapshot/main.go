// Command dentaldash-snapshot copies the remote record table (Postgres or
// Google Sheets, per SNAPSHOT_SOURCE) into the local SQLite snapshot, so
// a dashboard running with DATA_BACKEND=sqlite can work offline.
package main

import (
	"context"
	"fmt"
	"time"

	"dentaldash/internal/amqp"
	"dentaldash/internal/analytics"
	"dentaldash/internal/backend"
	"dentaldash/internal/cli"
	"dentaldash/internal/config"
	"dentaldash/internal/log"
	"dentaldash/internal/records/sqlite"
)

func main() {
	cfg, logger := cli.Bootstrap((*config.Config).ValidateSnapshot)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		stop()
		cli.Fatal(logger, "Snapshot failed", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	start := time.Now()

	srcCfg, err := backend.SnapshotSourceConfig(cfg)
	if err != nil {
		return err
	}
	src, err := backend.NewFactory(logger).CreateBackend(ctx, srcCfg)
	if err != nil {
		return fmt.Errorf("open snapshot source: %w", err)
	}
	defer src.Close()

	rows, err := src.Fetcher.FetchAll(ctx, cfg.RecordsTable)
	if err != nil {
		return fmt.Errorf("fetch %s from %s: %w", cfg.RecordsTable, srcCfg.Type, err)
	}

	// refuse to overwrite a good snapshot with rows the dashboard would reject
	policy, err := analytics.ParseParsePolicy(cfg.ParsePolicy)
	if err != nil {
		return err
	}
	result, err := analytics.Normalize(rows, policy)
	if err != nil {
		return fmt.Errorf("validate fetched rows: %w", err)
	}
	if n := len(result.Quarantined); n > 0 {
		logger.Warn("Snapshot contains invalid rows", log.FieldQuarantined, n)
	}

	repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open SQLite snapshot: %w", err)
	}
	defer repo.Close()

	n, err := repo.Replace(ctx, cfg.RecordsTable, rows)
	if err != nil {
		return err
	}
	logger.Info("Snapshot written",
		log.FieldOperation, log.OpSnapshot,
		log.FieldBackend, srcCfg.Type,
		log.FieldTable, cfg.RecordsTable,
		log.FieldRows, n,
		"db_path", cfg.SQLiteDBPath,
		log.FieldDuration, time.Since(start).Milliseconds())

	if cfg.AMQPURL != "" {
		notifyDashboards(ctx, cfg, logger)
	}
	return nil
}

// notifyDashboards tells running dashboards to reload. Failure is logged
// only: the snapshot itself succeeded.
func notifyDashboards(ctx context.Context, cfg *config.Config, logger *log.Logger) {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Could not connect to AMQP to announce the snapshot", log.FieldError, err)
		return
	}
	defer client.Close()

	msg := amqp.NewRefreshMessage(cfg.RecordsTable, "snapshot", "dentaldash-snapshot")
	if err := client.PublishRefresh(ctx, msg); err != nil {
		logger.Warn("Could not announce the snapshot", log.FieldError, err)
	}
}
