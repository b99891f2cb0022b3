package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// asyncDispatcher delivers events to subscribers from a single worker
// goroutine. A handler error triggers one redelivery; handlers therefore
// see at-least-once semantics and must be idempotent.
type asyncDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	queue     chan Event
	done      chan struct{}
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher and starts its delivery loop.
func NewDispatcher(logger *zap.Logger) *asyncDispatcher {
	d := &asyncDispatcher{
		listeners: make(map[EventType][]EventHandler),
		queue:     make(chan Event, 256),
		done:      make(chan struct{}),
		logger:    logger,
	}
	go d.deliverLoop()
	return d
}

// Publish enqueues the event for asynchronous delivery. Falls back to
// inline delivery when the queue is full so events are never dropped.
func (d *asyncDispatcher) Publish(ctx context.Context, event Event) error {
	select {
	case d.queue <- event:
	default:
		d.deliver(event)
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *asyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Close stops the delivery loop after draining queued events.
func (d *asyncDispatcher) Close() {
	close(d.queue)
	<-d.done
}

func (d *asyncDispatcher) deliverLoop() {
	defer close(d.done)
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *asyncDispatcher) deliver(event Event) {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	ctx := context.Background()
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			// one redelivery, then give up; consumers have their own
			// idempotency backstops (the dispatch ledger in particular)
			if err := handler(ctx, event); err != nil && d.logger != nil {
				d.logger.Warn("event handler failed after redelivery",
					zap.String("event_type", string(event.Type)),
					zap.Int64("signal_id", event.SignalID),
					zap.Error(err))
			}
		}
	}
}
