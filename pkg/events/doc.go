/*
Package events provides the in-memory event broker a client publishes its
activity on.

Tracking pushes, engagement callback state changes and session rotations are
broadcast as Events to every subscriber. Hosts subscribe to log or display
them; the releva CLI prints them with --verbose.

# Delivery

Publishing never blocks the caller. Events go through a buffered channel
(100 events) to a broadcast loop, and each subscriber has its own buffer of
50 events. When either buffer is full the event is dropped for that
subscriber, so a slow consumer cannot stall a tracking call.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for event := range sub {
		fmt.Println(event.Type, event.Message)
	}
*/
package events
