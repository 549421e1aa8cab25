// Package notify decouples notification delivery from lifecycle mutations.
// Dispatch enqueues and returns; a background worker drains the queue and
// logs failures. A failed or dropped notification never reaches the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/renolink/bids-service/internal/model"
)

type Sender interface {
	Send(ctx context.Context, n model.Notification) error
}

type Dispatcher struct {
	sender  Sender
	log     zerolog.Logger
	queue   chan model.Notification
	timeout time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewDispatcher(sender Sender, log zerolog.Logger, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		sender:  sender,
		log:     log,
		queue:   make(chan model.Notification, queueSize),
		timeout: timeout,
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Dispatch never blocks. When the queue is full the notification is dropped
// and logged; delivery is best-effort by contract.
func (d *Dispatcher) Dispatch(n model.Notification) {
	select {
	case d.queue <- n:
	default:
		d.log.Warn().
			Str("type", n.Type).
			Str("user_id", n.UserID.String()).
			Msg("notification queue full, dropping")
	}
}

// Close stops accepting work and waits for the worker to drain the queue.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sender.Send(ctx, n)
		cancel()
		if err != nil {
			d.log.Error().
				Err(err).
				Str("type", n.Type).
				Str("user_id", n.UserID.String()).
				Str("bid_id", n.Data["bidId"]).
				Str("bid_code", n.Data["bidCode"]).
				Str("project_id", n.Data["projectId"]).
				Msg("notification delivery failed")
		}
	}
}
