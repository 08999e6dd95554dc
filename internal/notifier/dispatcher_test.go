package notifier

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"billbuddy/pkg/utils"
)

func TestMain(m *testing.M) {
	utils.SilenceLogger()
	m.Run()
}

type recordingSender struct {
	mu       sync.Mutex
	failures int32
	calls    atomic.Int32
	sent     []Email
}

func (s *recordingSender) Send(_ context.Context, e Email) error {
	n := s.calls.Add(1)
	if n <= s.failures {
		return errors.New("smtp unavailable")
	}
	s.mu.Lock()
	s.sent = append(s.sent, e)
	s.mu.Unlock()
	return nil
}

func fastOptions() Options {
	return Options{Workers: 2, QueueSize: 4, MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDispatcherRetriesUntilDelivered(t *testing.T) {
	sender := &recordingSender{failures: 2}
	d := NewDispatcher(sender, fastOptions())
	d.Start(context.Background())

	if err := d.Enqueue(Email{Kind: KindSettlementReceived, To: "b@example.com", Subject: "paid"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	d.Stop()

	if got := sender.calls.Load(); got != 3 {
		t.Fatalf("Send called %d times, want 3", got)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "b@example.com" {
		t.Fatalf("sent = %+v", sender.sent)
	}
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	sender := &recordingSender{failures: 100}
	d := NewDispatcher(sender, fastOptions())
	d.Start(context.Background())

	if err := d.Enqueue(Email{To: "b@example.com"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	d.Stop()

	if got := sender.calls.Load(); got != 3 {
		t.Fatalf("Send called %d times, want 3", got)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("sent = %+v, want none", sender.sent)
	}
}

func TestEnqueueNeverBlocks(t *testing.T) {
	block := make(chan struct{})
	sender := SenderFunc(func(context.Context, Email) error {
		<-block
		return nil
	})

	d := NewDispatcher(sender, Options{Workers: 1, QueueSize: 1, MaxAttempts: 1})
	d.Start(context.Background())
	defer func() {
		close(block)
		d.Stop()
	}()

	var full error
	deadline := time.After(time.Second)
	for full == nil {
		select {
		case <-deadline:
			t.Fatal("queue never reported full")
		default:
		}
		full = d.Enqueue(Email{To: "x@example.com"})
	}
	if !errors.Is(full, utils.ErrExternalDelivery) {
		t.Fatalf("err = %v, want ErrExternalDelivery", full)
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, fastOptions())
	d.Start(context.Background())
	d.Stop()

	if err := d.Enqueue(Email{To: "x@example.com"}); !errors.Is(err, utils.ErrExternalDelivery) {
		t.Fatalf("err = %v, want ErrExternalDelivery", err)
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{20, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(tt.attempt, time.Second, 30*time.Second); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
