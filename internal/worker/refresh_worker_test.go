package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"dentaldash/internal/amqp"
	"dentaldash/internal/log"
)

type fakeStore struct {
	mu      sync.Mutex
	reasons []string
}

func (f *fakeStore) Invalidate(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func (f *fakeStore) Table() string { return "medical_data" }

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reasons)
}

type fakeConsumer struct {
	messages []*amqp.RefreshMessage
	err      error
}

func (f *fakeConsumer) ConsumeRefresh(ctx context.Context, handler func(context.Context, *amqp.RefreshMessage) error) error {
	for _, m := range f.messages {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func quietLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

func TestHandleRefresh(t *testing.T) {
	store := &fakeStore{}
	w := NewRefreshWorker(store, nil, "", quietLogger())

	msg := amqp.NewRefreshMessage("medical_data", "import finished", "etl")
	if err := w.HandleRefresh(context.Background(), msg); err != nil {
		t.Fatalf("HandleRefresh() error = %v", err)
	}
	if store.count() != 1 || store.reasons[0] != "import finished (by etl)" {
		t.Fatalf("unexpected invalidations %v", store.reasons)
	}

	other := amqp.NewRefreshMessage("other_table", "", "")
	if err := w.HandleRefresh(context.Background(), other); err != nil {
		t.Fatalf("HandleRefresh() error = %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("message for another table must not invalidate")
	}
	if w.Handled() != 1 {
		t.Fatalf("Handled() = %d, want 1", w.Handled())
	}

	if err := w.HandleRefresh(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil message")
	}
}

func TestRun_ConsumesMessages(t *testing.T) {
	store := &fakeStore{}
	consumer := &fakeConsumer{messages: []*amqp.RefreshMessage{
		amqp.NewRefreshMessage("medical_data", "", ""),
		amqp.NewRefreshMessage("medical_data", "manual", ""),
	}}
	w := NewRefreshWorker(store, consumer, "", quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for store.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.reasons[0] != "amqp" || store.reasons[1] != "manual" {
		t.Fatalf("unexpected reasons %v", store.reasons)
	}
}

func TestRun_ConsumerFailure(t *testing.T) {
	errDeleted := errors.New("queue deleted")
	w := NewRefreshWorker(&fakeStore{}, &fakeConsumer{err: errDeleted}, "", quietLogger())
	if err := w.Run(context.Background()); !errors.Is(err, errDeleted) {
		t.Fatalf("expected consumer failure, got %v", err)
	}
}

func TestRun_InvalidSchedule(t *testing.T) {
	w := NewRefreshWorker(&fakeStore{}, nil, "not a schedule", quietLogger())
	if err := w.Run(context.Background()); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
}

func TestRun_Disabled(t *testing.T) {
	w := NewRefreshWorker(&fakeStore{}, nil, "", quietLogger())
	if w.Enabled() {
		t.Fatalf("worker without sources must be disabled")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}
