// Command dentaldash-refresh asks running dashboards to drop their cached
// snapshot by publishing a refresh message on the AMQP exchange. Meant
// for cron jobs and data-load scripts that know when the backend changed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"dentaldash/internal/amqp"
	"dentaldash/internal/cli"
	"dentaldash/internal/config"
	"dentaldash/internal/log"
)

func main() {
	reason := flag.String("reason", "external refresh", "reason recorded in the dashboard logs")
	table := flag.String("table", "", "table to refresh (default RECORDS_TABLE)")
	timeout := flag.Duration("timeout", 15*time.Second, "publish timeout")
	flag.Parse()

	cfg, logger := cli.Bootstrap(validate)
	if *table == "" {
		*table = cfg.RecordsTable
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	msg := amqp.NewRefreshMessage(*table, *reason, requester())
	if err := publish(ctx, cfg, msg); err != nil {
		cli.Fatal(logger, "Failed to publish refresh", err)
	}
	logger.Info("Refresh published",
		log.FieldOperation, log.OpInvalidate,
		log.FieldTable, msg.Table,
		log.FieldReason, msg.Reason,
		"message_id", msg.ID)
}

func validate(c *config.Config) error {
	if c.AMQPURL == "" {
		return errors.New("AMQP_URL is required to publish a refresh")
	}
	return c.Validate()
}

func publish(ctx context.Context, cfg *config.Config, msg *amqp.RefreshMessage) error {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()
	return client.PublishRefresh(ctx, msg)
}

func requester() string {
	host, err := os.Hostname()
	if err != nil {
		return "dentaldash-refresh"
	}
	return "dentaldash-refresh@" + host
}
