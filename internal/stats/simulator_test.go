package stats

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/openrestream/restreamd/internal/events"
	"github.com/openrestream/restreamd/internal/streams"
	"github.com/openrestream/restreamd/internal/streams/store"
)

type fixedLister struct {
	ids []int64
}

func (f fixedLister) ActiveIDs() []int64 { return f.ids }

func newTestStore(t *testing.T) streams.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "streams.toml"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestTickAdvancesConnectedStreams(t *testing.T) {
	st := newTestStore(t)
	created, err := st.CreateStream(streams.Stream{Name: "live", StreamKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.UpdateStats(created.ID, streams.Stats{
		Viewers:       10,
		UptimeSeconds: 100,
		Status:        streams.StatusConnected,
	}); err != nil {
		t.Fatal(err)
	}

	bus := events.New()
	updates := make(chan events.StatsUpdatedEvent, 4)
	unsub := bus.Subscribe(func(e events.StatsUpdatedEvent) {
		updates <- e
	})
	defer unsub()

	sim := NewSimulator(st, fixedLister{ids: []int64{created.ID}}, bus)
	sim.Tick()

	got, _ := st.GetStats(created.ID)
	if got.UptimeSeconds != 105 {
		t.Errorf("uptime = %d after one tick, want 105", got.UptimeSeconds)
	}
	if got.Viewers < 0 {
		t.Errorf("viewers = %d, must never go negative", got.Viewers)
	}
	if got.LatencyMs < latencyFloorMs || got.LatencyMs >= latencyCeilMs {
		t.Errorf("latency = %d outside [%d, %d)", got.LatencyMs, latencyFloorMs, latencyCeilMs)
	}

	select {
	case e := <-updates:
		if e.StreamID != created.ID {
			t.Errorf("event stream id = %d, want %d", e.StreamID, created.ID)
		}
		if e.Stats.UptimeSeconds != 105 {
			t.Errorf("event uptime = %d, want 105", e.Stats.UptimeSeconds)
		}
		if e.Stats.Status != string(streams.StatusConnected) {
			t.Errorf("event status = %q, want connected", e.Stats.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no StatsUpdatedEvent published")
	}

	// Exactly one event per connected stream per tick.
	select {
	case e := <-updates:
		t.Errorf("unexpected second event: %+v", e)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestTickSkipsDisconnectedStreams(t *testing.T) {
	st := newTestStore(t)
	created, err := st.CreateStream(streams.Stream{Name: "idle", StreamKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	// Freshly created streams start disconnected with zeroed stats.

	bus := events.New()
	updates := make(chan events.StatsUpdatedEvent, 1)
	unsub := bus.Subscribe(func(e events.StatsUpdatedEvent) {
		updates <- e
	})
	defer unsub()

	sim := NewSimulator(st, fixedLister{ids: []int64{created.ID}}, bus)
	sim.Tick()

	got, _ := st.GetStats(created.ID)
	if got.UptimeSeconds != 0 || got.Viewers != 0 {
		t.Errorf("simulator touched a disconnected stream: %+v", got)
	}

	select {
	case e := <-updates:
		t.Errorf("event published for disconnected stream: %+v", e)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestViewersFlooredAtZero(t *testing.T) {
	st := newTestStore(t)
	created, err := st.CreateStream(streams.Stream{Name: "empty", StreamKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.UpdateStats(created.ID, streams.Stats{Viewers: 0, Status: streams.StatusConnected}); err != nil {
		t.Fatal(err)
	}

	sim := NewSimulator(st, fixedLister{ids: []int64{created.ID}}, events.New())

	// Repeated ticks from zero viewers must never go negative.
	for i := 0; i < 50; i++ {
		sim.Tick()
		got, _ := st.GetStats(created.ID)
		if got.Viewers < 0 {
			t.Fatalf("viewers went negative: %d", got.Viewers)
		}
	}
}

func TestStartStopLoop(t *testing.T) {
	st := newTestStore(t)
	created, err := st.CreateStream(streams.Stream{Name: "looped", StreamKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if err := st.UpdateStats(created.ID, streams.Stats{Status: streams.StatusConnected}); err != nil {
		t.Fatal(err)
	}

	sim := NewSimulator(st, fixedLister{ids: []int64{created.ID}}, events.New(),
		WithInterval(20*time.Millisecond))
	sim.Start()

	deadline := time.After(2 * time.Second)
	for {
		got, _ := st.GetStats(created.ID)
		if got.LatencyMs >= latencyFloorMs {
			break
		}
		select {
		case <-deadline:
			t.Fatal("loop never advanced telemetry")
		case <-time.After(10 * time.Millisecond):
		}
	}

	sim.Stop()
}
