package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"billbuddy/internal/metrics"
	"billbuddy/pkg/utils"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Metrics     *metrics.Metrics
}

// Dispatcher delivers emails on background workers. Enqueue never blocks and
// delivery failures are logged and counted, never returned to the caller.
type Dispatcher struct {
	sender Sender
	opts   Options
	queue  chan Email

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	return &Dispatcher{
		sender: sender,
		opts:   opts,
		queue:  make(chan Email, opts.QueueSize),
	}
}

// Start launches the workers. They exit once Stop has drained the queue.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for e := range d.queue {
				d.opts.Metrics.NotifierQueueDepth(len(d.queue))
				d.deliver(ctx, e)
			}
		}()
	}
}

// Enqueue hands e to the workers. A full or stopped queue fails with
// ErrExternalDelivery.
func (d *Dispatcher) Enqueue(e Email) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return fmt.Errorf("%w: notifier stopped", utils.ErrExternalDelivery)
	}

	select {
	case d.queue <- e:
		d.opts.Metrics.NotifierQueueDepth(len(d.queue))
		return nil
	default:
		d.opts.Metrics.NotifierResult(e.Kind, "dropped")
		return fmt.Errorf("%w: notifier queue full", utils.ErrExternalDelivery)
	}
}

// Stop rejects new emails and waits for queued ones to be delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, e Email) {
	log := utils.Logger.WithFields(logrus.Fields{
		"kind": e.Kind,
		"to":   e.To,
	})

	var err error
	for attempt := 1; attempt <= d.opts.MaxAttempts; attempt++ {
		if err = d.sender.Send(ctx, e); err == nil {
			d.opts.Metrics.NotifierResult(e.Kind, "sent")
			log.WithField("attempt", attempt).Info("email delivered")
			return
		}

		log.WithError(err).WithField("attempt", attempt).Warn("email delivery failed")
		if attempt == d.opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			err = ctx.Err()
			attempt = d.opts.MaxAttempts
		case <-time.After(backoff(attempt, d.opts.BaseDelay, d.opts.MaxDelay)):
		}
	}

	d.opts.Metrics.NotifierResult(e.Kind, "failed")
	log.WithError(err).Error("giving up on email delivery")
}

// backoff doubles base for every attempt after the first, capped at max.
func backoff(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
