package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// collector counts deliveries and optionally fails the first n of them.
type collector struct {
	mu       sync.Mutex
	failures int
	events   []Event
}

func (c *collector) handle(_ context.Context, event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	if c.failures > 0 {
		c.failures--
		return errors.New("handler not ready")
	}
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	require.Eventually(t, condition, time.Second, time.Millisecond)
}

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())
	defer dispatcher.Close()

	created := &collector{}
	changed := &collector{}
	dispatcher.Subscribe(EventSignalCreated, created.handle)
	dispatcher.Subscribe(EventSignalStatusChanged, changed.handle)

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventSignalCreated, SignalID: 1}))
	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventSignalCreated, SignalID: 2}))

	waitFor(t, func() bool { return created.count() == 2 })
	assert.Zero(t, changed.count())
}

func TestDispatcherRedeliversOnFailure(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())
	defer dispatcher.Close()

	handler := &collector{failures: 1}
	dispatcher.Subscribe(EventSignalStatusChanged, handler.handle)

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventSignalStatusChanged, SignalID: 7}))

	// first delivery fails, the one redelivery succeeds
	waitFor(t, func() bool { return handler.count() == 2 })
}

func TestDispatcherGivesUpAfterOneRedelivery(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())
	defer dispatcher.Close()

	handler := &collector{failures: 10}
	dispatcher.Subscribe(EventSignalStatusChanged, handler.handle)

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventSignalStatusChanged, SignalID: 7}))

	waitFor(t, func() bool { return handler.count() == 2 })
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 2, handler.count())
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	dispatcher := NewDispatcher(zap.NewNop())

	handler := &collector{}
	dispatcher.Subscribe(EventSignalCreated, handler.handle)

	for i := int64(1); i <= 20; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventSignalCreated, SignalID: i}))
	}
	dispatcher.Close()

	assert.Equal(t, 20, handler.count())
}
