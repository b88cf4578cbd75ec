package events

import (
	"sync"
	"time"
)

// EventType names a vault lifecycle event.
type EventType string

const (
	EventKeyRegistered  EventType = "key.registered"
	EventKeyRotated     EventType = "key.rotated"
	EventKeyRemoved     EventType = "key.removed"
	EventRelayCompleted EventType = "relay.completed"
	EventRelayRejected  EventType = "relay.rejected"
	EventAuditTrimmed   EventType = "audit.trimmed"
)

// Event is one vault lifecycle event. Metadata carries aliases, status
// codes, and counts; it never carries credentials, signatures, or tokens.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// Subscriber receives published events. The channel is closed when the
// broker stops or the subscriber is removed.
type Subscriber chan *Event

// subscriberBuffer bounds how far a consumer may lag before it misses
// events.
const subscriberBuffer = 64

// Broker fans events out to subscribers. Publish never blocks: delivery is
// best-effort, and a subscriber whose buffer is full misses the event. The
// relay path must never stall on observability.
type Broker struct {
	mu      sync.Mutex
	subs    map[Subscriber]struct{}
	stopped bool
}

// NewBroker creates an empty broker. It is usable immediately; Stop ends
// delivery and closes all subscriber channels.
func NewBroker() *Broker {
	return &Broker{subs: make(map[Subscriber]struct{})}
}

// Subscribe registers a new consumer. Subscribing to a stopped broker
// returns a closed channel.
func (b *Broker) Subscribe() Subscriber {
	sub := make(Subscriber, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		close(sub)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a consumer and closes its channel.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub)
}

// Publish delivers an event to every subscriber that has buffer space.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			// Subscriber lagging; drop.
		}
	}
}

// Stop ends delivery and closes every subscriber channel. Publish after
// Stop is a no-op.
func (b *Broker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub)
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
