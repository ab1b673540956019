package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub Subscriber) *Event {
	t.Helper()
	select {
	case event := <-sub:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBrokerBroadcast(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	first := broker.Subscribe()
	second := broker.Subscribe()
	assert.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(&Event{
		Type:     EventTrackingSent,
		Message:  "push acknowledged",
		Metadata: map[string]string{"endpoint": "/api/v0/push"},
	})

	for _, sub := range []Subscriber{first, second} {
		event := receive(t, sub)
		assert.Equal(t, EventTrackingSent, event.Type)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
		assert.Equal(t, "/api/v0/push", event.Metadata["endpoint"])
	}
}

func TestBrokerKeepsGivenIDAndTimestamp(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	broker.Publish(&Event{ID: "fixed", Type: EventSessionRotated, Timestamp: ts})

	event := receive(t, sub)
	assert.Equal(t, "fixed", event.ID)
	assert.Equal(t, ts, event.Timestamp)
}

func TestBrokerUnsubscribe(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	broker.Unsubscribe(sub)
	broker.Unsubscribe(sub)
	assert.Equal(t, 0, broker.SubscriberCount())

	_, open := <-sub
	assert.False(t, open)
}

func TestBrokerPublishAfterStop(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	broker.Stop()
	broker.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			broker.Publish(&Event{Type: EventEngagementEnqueued})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked after stop")
	}
}

func TestBrokerSlowSubscriberDoesNotBlock(t *testing.T) {
	broker := NewBroker()
	broker.Start()
	defer broker.Stop()

	slow := broker.Subscribe()
	for i := 0; i < 500; i++ {
		broker.Publish(&Event{Type: EventEngagementDelivered})
	}

	require.Eventually(t, func() bool {
		return len(slow) == cap(slow)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBrokerStopDeliversQueuedEvents(t *testing.T) {
	broker := NewBroker()
	sub := broker.Subscribe()

	for i := 0; i < 10; i++ {
		broker.Publish(&Event{Type: EventTrackingSent})
	}
	broker.Start()
	broker.Stop()

	assert.Len(t, sub, 10)
}
