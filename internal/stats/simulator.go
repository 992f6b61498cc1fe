// Package stats runs the synthetic telemetry loop for active streams.
package stats

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/openrestream/restreamd/internal/events"
	"github.com/openrestream/restreamd/internal/logging"
	"github.com/openrestream/restreamd/internal/streams"
)

// tickInterval is how often telemetry advances.
const tickInterval = 5 * time.Second

// Bounds of the synthetic latency sample, in milliseconds.
const (
	latencyFloorMs = 800
	latencyCeilMs  = 3200
)

// ActiveLister reports which streams currently have a live encoder.
type ActiveLister interface {
	ActiveIDs() []int64
}

// Simulator perturbs viewer count, uptime, and latency for every
// connected active stream on a fixed tick, persisting each sample and
// broadcasting it. Streams whose status is not "connected" are left
// untouched; their transitions belong to the start/stop paths.
type Simulator struct {
	store    streams.Store
	active   ActiveLister
	bus      *events.Bus
	interval time.Duration
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithInterval overrides the default 5s tick.
func WithInterval(d time.Duration) SimulatorOption {
	return func(s *Simulator) {
		s.interval = d
	}
}

// NewSimulator creates a simulator over the given store and manager.
func NewSimulator(store streams.Store, active ActiveLister, bus *events.Bus, opts ...SimulatorOption) *Simulator {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Simulator{
		store:    store,
		active:   active,
		bus:      bus,
		interval: tickInterval,
		logger:   logging.GetLogger("stats"),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the tick loop.
func (s *Simulator) Start() {
	s.logger.Info("Stats simulator started", "interval", s.interval)
	s.wg.Add(1)
	go s.run()
}

// Stop halts the loop and waits for the current tick to finish.
func (s *Simulator) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Debug("Stats simulator stopped")
}

func (s *Simulator) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances telemetry once for every connected active stream.
func (s *Simulator) Tick() {
	for _, id := range s.active.ActiveIDs() {
		current, ok := s.store.GetStats(id)
		if !ok || current.Status != streams.StatusConnected {
			continue
		}

		next := advance(current, s.interval)
		if err := s.store.UpdateStats(id, next); err != nil {
			s.logger.Warn("Failed to persist stats", "stream_id", id, "error", err)
			continue
		}

		s.bus.Publish(events.StatsUpdatedEvent{
			StreamID: id,
			Stats: events.StatsSnapshot{
				Viewers:       next.Viewers,
				UptimeSeconds: next.UptimeSeconds,
				LatencyMs:     next.LatencyMs,
				Status:        string(next.Status),
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// advance computes the next telemetry sample from the current one.
func advance(current streams.Stats, interval time.Duration) streams.Stats {
	next := current

	// Small signed viewer delta, floored at zero.
	next.Viewers += rand.Intn(7) - 3
	if next.Viewers < 0 {
		next.Viewers = 0
	}

	next.UptimeSeconds += int64(interval / time.Second)

	next.LatencyMs = latencyFloorMs + rand.Intn(latencyCeilMs-latencyFloorMs)
	return next
}
