/*
Package events provides an in-process publish/subscribe broker for vault
lifecycle events.

The vault store and relay handler publish; the server subscribes at startup
to keep gauges current and to write one ops-level log line per lifecycle
change. Nothing on the request path ever blocks on a subscriber.

# Event Types

	key.registered    a new alias was stored
	key.rotated       an alias's credential was replaced
	key.removed       an alias and its record were deleted
	relay.completed   a relay reached the upstream and returned
	relay.rejected    a relay stopped at quota or decrypt
	audit.trimmed     the bounded audit index dropped old entries

Event metadata carries aliases, status codes, and counts. It never carries
credentials, signatures, or tokens; subscribers log metadata verbatim.

# Delivery Semantics

  - Publish is non-blocking: a subscriber whose buffer (64 events) is
    full misses the event
  - Events are fan-out: each subscriber gets its own copy
  - No persistence and no replay; the audit log is the durable record,
    events are operational signal only

# Usage

	broker := events.NewBroker()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			logger.Info().
				Str("type", string(ev.Type)).
				Fields(map[string]interface{}{"meta": ev.Metadata}).
				Msg(ev.Message)
		}
	}()

	broker.Publish(&events.Event{
		Type:     events.EventKeyRegistered,
		Message:  "key registered",
		Metadata: map[string]string{"alias": alias},
	})
*/
package events
