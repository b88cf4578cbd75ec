package events

import (
	"testing"
	"time"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	b := NewBroker()
	defer b.Stop()

	sub := b.Subscribe()
	b.Publish(&Event{
		Type:     EventKeyRegistered,
		Message:  "key registered",
		Metadata: map[string]string{"alias": "weather"},
	})

	select {
	case ev := <-sub:
		if ev.Type != EventKeyRegistered {
			t.Errorf("expected %s, got %s", EventKeyRegistered, ev.Type)
		}
		if ev.Metadata["alias"] != "weather" {
			t.Errorf("expected alias metadata, got %v", ev.Metadata)
		}
		if ev.Timestamp.IsZero() {
			t.Error("expected timestamp to be filled")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishNeverBlocksOnLaggingSubscriber(t *testing.T) {
	b := NewBroker()
	defer b.Stop()

	sub := b.Subscribe()
	for i := 0; i < subscriberBuffer+10; i++ {
		b.Publish(&Event{Type: EventRelayCompleted})
	}

	// The subscriber kept exactly its buffer; the rest were dropped.
	if got := len(sub); got != subscriberBuffer {
		t.Errorf("expected %d buffered events, got %d", subscriberBuffer, got)
	}
}

func TestStopClosesSubscribers(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe()
	b.Stop()

	if _, ok := <-sub; ok {
		t.Error("expected closed channel after Stop")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}

	// Publish and Stop after Stop are no-ops.
	b.Publish(&Event{Type: EventKeyRemoved})
	b.Stop()

	if _, ok := <-b.Subscribe(); ok {
		t.Error("expected closed channel from stopped broker")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	b.Unsubscribe(sub) // second removal is a no-op

	if _, ok := <-sub; ok {
		t.Error("expected closed channel after Unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
}
