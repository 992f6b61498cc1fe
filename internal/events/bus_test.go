package events

import (
	"sync"
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := New()

	var mu sync.Mutex
	var got []int64
	unsub := bus.Subscribe(func(e StreamStoppedEvent) {
		mu.Lock()
		got = append(got, e.StreamID)
		mu.Unlock()
	})
	defer unsub()

	bus.Publish(StreamStoppedEvent{StreamID: 7, Requested: true})
	bus.Publish(StreamStoppedEvent{StreamID: 9})

	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("received %d events, want 2", n)
		case <-time.After(5 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	// Within one subscriber events arrive in publish order.
	if got[0] != 7 || got[1] != 9 {
		t.Errorf("events out of order: %v", got)
	}
}

func TestSubscriberTypeIsolation(t *testing.T) {
	bus := New()

	stopped := make(chan StreamStoppedEvent, 1)
	unsub := bus.Subscribe(func(e StreamStoppedEvent) {
		stopped <- e
	})
	defer unsub()

	bus.Publish(StreamStartedEvent{StreamID: 3})
	bus.Publish(StreamStoppedEvent{StreamID: 4})

	select {
	case e := <-stopped:
		if e.StreamID != 4 {
			t.Errorf("StreamID = %d, want 4", e.StreamID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for StreamStoppedEvent")
	}

	select {
	case e := <-stopped:
		t.Errorf("unexpected extra event: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()

	ch := make(chan any, 4)
	unsub := SubscribeToChannel[StatsUpdatedEvent](bus, ch)

	bus.Publish(StatsUpdatedEvent{StreamID: 1})

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first event")
	}

	unsub()
	bus.Publish(StatsUpdatedEvent{StreamID: 2})

	select {
	case e := <-ch:
		t.Errorf("received event after unsubscribe: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestChannelBridgeDropsWhenFull(t *testing.T) {
	bus := New()

	ch := make(chan any, 1)
	unsub := SubscribeToChannel[StreamDeletedEvent](bus, ch)
	defer unsub()

	for i := int64(0); i < 10; i++ {
		bus.Publish(StreamDeletedEvent{StreamID: i})
	}
	time.Sleep(50 * time.Millisecond)

	// The bridge must never block the dispatcher; with a full channel
	// extra events are dropped, not queued.
	if len(ch) > 1 {
		t.Errorf("channel holds %d events, want at most 1", len(ch))
	}
}
