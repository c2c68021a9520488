package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"dentaldash/internal/amqp"
	"dentaldash/internal/log"
)

// Invalidator is the part of the snapshot store the worker drives.
type Invalidator interface {
	Invalidate(reason string)
	Table() string
}

// Consumer delivers refresh messages until its context is cancelled.
type Consumer interface {
	ConsumeRefresh(ctx context.Context, handler func(context.Context, *amqp.RefreshMessage) error) error
}

// RefreshWorker invalidates the cached snapshot when a refresh message
// arrives or when the cron schedule fires. Either source may be absent.
type RefreshWorker struct {
	store    Invalidator
	consumer Consumer
	schedule string
	logger   *log.Logger

	handled atomic.Int64
}

func NewRefreshWorker(store Invalidator, consumer Consumer, schedule string, logger *log.Logger) *RefreshWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &RefreshWorker{
		store:    store,
		consumer: consumer,
		schedule: schedule,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Enabled reports whether the worker has anything to run.
func (w *RefreshWorker) Enabled() bool {
	return w.consumer != nil || w.schedule != ""
}

// Handled returns the number of invalidations the worker performed.
func (w *RefreshWorker) Handled() int64 { return w.handled.Load() }

// HandleRefresh processes a single refresh message. Messages for another
// table are acknowledged and ignored.
func (w *RefreshWorker) HandleRefresh(ctx context.Context, msg *amqp.RefreshMessage) error {
	if msg == nil {
		return fmt.Errorf("nil refresh message")
	}
	if msg.Table != w.store.Table() {
		w.logger.DebugContext(ctx, "Ignoring refresh for other table",
			log.FieldTable, msg.Table, "id", msg.ID)
		return nil
	}

	reason := msg.Reason
	if reason == "" {
		reason = "amqp"
	}
	if msg.RequestedBy != "" {
		reason = fmt.Sprintf("%s (by %s)", reason, msg.RequestedBy)
	}
	w.invalidate(reason)

	w.logger.InfoContext(ctx, "Processed refresh message",
		"id", msg.ID,
		log.FieldTable, msg.Table,
		"timestamp", msg.Timestamp)
	return nil
}

func (w *RefreshWorker) invalidate(reason string) {
	w.store.Invalidate(reason)
	w.handled.Add(1)
}

// Run starts the cron schedule and the AMQP consumer and blocks until ctx
// is done or the consumer fails.
func (w *RefreshWorker) Run(ctx context.Context) error {
	if !w.Enabled() {
		<-ctx.Done()
		return nil
	}

	if w.schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(w.schedule, func() { w.invalidate("scheduled") }); err != nil {
			return fmt.Errorf("schedule refresh %q: %w", w.schedule, err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		w.logger.Info("Scheduled snapshot refresh", "schedule", w.schedule)
	}

	if w.consumer == nil {
		<-ctx.Done()
		return nil
	}

	err := w.consumer.ConsumeRefresh(ctx, w.HandleRefresh)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("consume refresh messages: %w", err)
	}
	return nil
}
