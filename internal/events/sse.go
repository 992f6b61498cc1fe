package events

import "github.com/kelindar/event"

// SubscribeToChannel bridges kelindar/event callback subscriptions to
// channels, for the SSE endpoint's channel-based select loop. Events
// are dropped rather than blocking when the channel is full, so one
// stalled SSE client cannot back up the bus.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
