package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for lifecycle and telemetry
// event broadcasting. Delivery is best-effort per observer: a slow
// subscriber never blocks publishers or other subscribers, and within
// one subscriber events arrive in publish order.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish delivers an event to every current subscriber.
// Usage: bus.Publish(StreamStartedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the concrete type, so route through
	// a type switch rather than the interface value.
	switch e := ev.(type) {
	case StreamStartedEvent:
		event.Publish(b.dispatcher, e)
	case StreamStoppedEvent:
		event.Publish(b.dispatcher, e)
	case StatsUpdatedEvent:
		event.Publish(b.dispatcher, e)
	case StreamCreatedEvent:
		event.Publish(b.dispatcher, e)
	case StreamUpdatedEvent:
		event.Publish(b.dispatcher, e)
	case StreamDeletedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a typed handler function; the handler's parameter
// type selects which events it receives. Returns an unsubscribe func.
// Usage: unsub := bus.Subscribe(func(e StreamStoppedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StreamStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StatsUpdatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamCreatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamUpdatedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(StreamDeletedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
