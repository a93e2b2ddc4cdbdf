package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sbilibin2017/gw-escrow-market/internal/logger"
	"github.com/sbilibin2017/gw-escrow-market/internal/models"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus closed")

// Handler consumes domain events.
type Handler interface {
	Handle(ctx context.Context, ev models.TransitionEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev models.TransitionEvent) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, ev models.TransitionEvent) error {
	return f(ctx, ev)
}

type subscription struct {
	name    string
	handler Handler
	queue   chan models.TransitionEvent
}

// Bus fans domain events out to independent subscribers. Each subscriber has its own
// queue and worker, so events reach a subscriber in publish order and a slow subscriber
// never delays the publisher or the other subscribers (until its queue fills up).
type Bus struct {
	mu             sync.RWMutex
	subs           []*subscription
	closed         bool
	wg             sync.WaitGroup
	bufferSize     int
	handlerTimeout time.Duration
}

// NewBus creates a Bus whose subscriber queues hold bufferSize events.
func NewBus(bufferSize int, handlerTimeout time.Duration) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if handlerTimeout <= 0 {
		handlerTimeout = 10 * time.Second
	}
	return &Bus{bufferSize: bufferSize, handlerTimeout: handlerTimeout}
}

// Subscribe registers h under name and starts its worker.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	sub := &subscription{
		name:    name,
		handler: h,
		queue:   make(chan models.TransitionEvent, b.bufferSize),
	}
	b.subs = append(b.subs, sub)

	b.wg.Add(1)
	go b.run(sub)
}

func (b *Bus) run(sub *subscription) {
	defer b.wg.Done()
	for ev := range sub.queue {
		ctx, cancel := context.WithTimeout(context.Background(), b.handlerTimeout)
		if err := sub.handler.Handle(ctx, ev); err != nil {
			logger.Log.Errorw("event handler failed",
				"subscriber", sub.name,
				"kind", ev.Kind,
				"transaction_id", ev.Transaction.ID,
				"error", err,
			)
		}
		cancel()
	}
}

// Publish enqueues ev for every subscriber. It only blocks while a subscriber queue is
// full, and gives up when ctx is done.
func (b *Bus) Publish(ctx context.Context, ev models.TransitionEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	for _, sub := range b.subs {
		select {
		case sub.queue <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops accepting events and waits until every queued event has been handled.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.queue)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
