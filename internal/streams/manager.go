package streams

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/openrestream/restreamd/internal/encoder"
	"github.com/openrestream/restreamd/internal/events"
	"github.com/openrestream/restreamd/internal/logging"
	"github.com/openrestream/restreamd/internal/metrics"
	"github.com/openrestream/restreamd/internal/process"
)

// StopReason says why an encoder terminated.
type StopReason int

const (
	// StopRequested is an operator-initiated stop.
	StopRequested StopReason = iota
	// StopSpontaneous is an exit the manager did not ask for.
	StopSpontaneous
	// StopReplaced is a teardown on behalf of a restart: the stream
	// keeps its source video and persisted state for the replacement
	// encoder about to spawn.
	StopReplaced
)

// String returns the metric label for the reason.
func (r StopReason) String() string {
	switch r {
	case StopRequested:
		return "requested"
	case StopSpontaneous:
		return "spontaneous"
	case StopReplaced:
		return "replaced"
	}
	return "unknown"
}

// CleanupFunc is invoked after every encoder exit with the stream id and
// why it exited. Handlers run synchronously on the teardown path and
// must be idempotent: a crash, an operator stop, and a restart
// replacement all converge here, exactly once per process. Handlers that
// release stream resources must honor StopReplaced, since the stream is
// about to run again from the same source.
type CleanupFunc func(streamID int64, reason StopReason)

// spawnGraceDefault is how long Start watches a freshly spawned encoder
// so immediate exits (bad arguments, unreadable source) surface as a
// start failure instead of a silent async stop.
const spawnGraceDefault = 750 * time.Millisecond

// handle binds a stream id to exactly one live encoder process.
type handle struct {
	streamID  int64
	runner    *process.Runner
	startedAt time.Time

	// requested and replaced are set before the stop signal goes out,
	// so the exit observer cannot misreport an operator stop or a
	// restart teardown as spontaneous.
	requested atomic.Bool
	replaced  atomic.Bool

	cleanupOnce sync.Once
	cleaned     chan struct{} // closed after cleanup handlers have run
}

// Manager supervises encoder processes, at most one per stream id.
type Manager struct {
	mu      sync.Mutex
	handles map[int64]*handle

	cleanupMu       sync.RWMutex
	cleanupHandlers []CleanupFunc

	bus             *events.Bus
	commandFor      CommandProvider
	spawnGrace      time.Duration
	gracefulTimeout time.Duration
	logger          *slog.Logger
	wg              sync.WaitGroup
}

// CommandProvider generates the encoder argument vector for a config.
// The default builds an FFmpeg command targeting the configured RTMP
// endpoint; tests substitute lightweight subprocesses.
type CommandProvider func(cfg encoder.Config) []string

// ManagerOptions configures a new Manager.
type ManagerOptions struct {
	// Bus receives stream started/stopped events (required).
	Bus *events.Bus

	// BaseEndpoint is the RTMP ingest URL stream keys are appended to.
	BaseEndpoint string

	// CommandProvider overrides encoder command generation (optional).
	CommandProvider CommandProvider

	// SpawnGrace overrides the immediate-exit detection window.
	SpawnGrace time.Duration

	// GracefulTimeout overrides the SIGINT grace period before SIGKILL.
	GracefulTimeout time.Duration
}

// NewManager creates a stream process manager.
func NewManager(opts ManagerOptions) *Manager {
	grace := opts.SpawnGrace
	if grace <= 0 {
		grace = spawnGraceDefault
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.New()
	}
	commandFor := opts.CommandProvider
	if commandFor == nil {
		endpoint := opts.BaseEndpoint
		commandFor = func(cfg encoder.Config) []string {
			return encoder.Command(cfg, endpoint)
		}
	}
	return &Manager{
		handles:         make(map[int64]*handle),
		bus:             bus,
		commandFor:      commandFor,
		spawnGrace:      grace,
		gracefulTimeout: opts.GracefulTimeout,
		logger:          logging.GetLogger("streams"),
	}
}

// OnCleanup registers a handler invoked after every encoder exit.
// Handlers run in registration order.
func (m *Manager) OnCleanup(fn CleanupFunc) {
	m.cleanupMu.Lock()
	defer m.cleanupMu.Unlock()
	m.cleanupHandlers = append(m.cleanupHandlers, fn)
}

// Start spawns an encoder for the config. If the stream already has a
// live encoder it is torn down first (last writer wins); the replaced
// process goes through the normal cleanup path before the new handle
// becomes visible. Returns an error if the source file is missing, the
// process fails to spawn, or the encoder exits within the grace window.
func (m *Manager) Start(cfg encoder.Config) error {
	if _, err := os.Stat(cfg.SourcePath); err != nil {
		return fmt.Errorf("%w: %s", ErrSourceMissing, cfg.SourcePath)
	}

	// Idempotent restart semantics: tear down as a replacement so
	// cleanup handlers leave the source video and stream state alone.
	if m.stop(cfg.StreamID, StopReplaced) {
		m.logger.Info("Replaced running encoder", "stream_id", cfg.StreamID)
	}

	argv := m.commandFor(cfg)
	runner := process.NewRunner(strconv.FormatInt(cfg.StreamID, 10), argv, m.logger)
	runner.SetLogParser(logging.GetLogger("ffmpeg"), encoder.ParseLogLevel)
	if m.gracefulTimeout > 0 {
		runner.SetGracefulTimeout(m.gracefulTimeout)
	}

	h := &handle{
		streamID:  cfg.StreamID,
		runner:    runner,
		startedAt: time.Now(),
		cleaned:   make(chan struct{}),
	}

	if err := runner.Start(); err != nil {
		return fmt.Errorf("spawn encoder: %w", err)
	}

	m.mu.Lock()
	m.handles[cfg.StreamID] = h
	m.mu.Unlock()

	// Exit observer: spontaneous exits run the same cleanup as Stop.
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		<-runner.Done()
		m.finalize(h)
	}()

	select {
	case <-runner.Done():
		<-h.cleaned
		return fmt.Errorf("encoder exited immediately with code %d", runner.ExitCode())
	case <-time.After(m.spawnGrace):
	}

	m.logger.Info("Stream started", "stream_id", cfg.StreamID, "pid", runner.PID())
	metrics.StreamStarts.Inc()
	metrics.ActiveStreams.Set(float64(len(m.ActiveIDs())))

	m.bus.Publish(events.StreamStartedEvent{
		StreamID:  cfg.StreamID,
		PID:       runner.PID(),
		Timestamp: time.Now().Format(time.RFC3339),
	})
	return nil
}

// Stop gracefully stops the encoder for a stream: SIGINT, a 5s grace
// period, then SIGKILL. Returns false when no encoder is active for the
// id. On true, the process is confirmed dead and cleanup has run before
// Stop returns.
func (m *Manager) Stop(id int64) bool {
	return m.stop(id, StopRequested)
}

func (m *Manager) stop(id int64, reason StopReason) bool {
	m.mu.Lock()
	h, ok := m.handles[id]
	m.mu.Unlock()
	if !ok {
		return false
	}

	m.logger.Info("Stopping stream", "stream_id", id, "reason", reason)
	if reason == StopReplaced {
		h.replaced.Store(true)
	}
	h.requested.Store(true)
	h.runner.Stop()
	m.finalize(h)
	<-h.cleaned
	return true
}

// IsActive reports whether a stream currently has a live encoder.
func (m *Manager) IsActive(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handles[id]
	return ok
}

// ActiveIDs returns the ids of all streams with a live encoder.
func (m *Manager) ActiveIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.handles))
	for id := range m.handles {
		ids = append(ids, id)
	}
	return ids
}

// StopAll stops every live encoder. Called on shutdown.
func (m *Manager) StopAll() {
	for _, id := range m.ActiveIDs() {
		m.Stop(id)
	}
	m.wg.Wait()
	m.logger.Info("All stream processes stopped")
}

// finalize runs the teardown sequence exactly once per handle: remove it
// from the table, invoke the cleanup handlers, publish the stopped
// event. The handle is removed before handlers run so a racing caller
// observes "no active handle" and becomes a no-op.
func (m *Manager) finalize(h *handle) {
	h.cleanupOnce.Do(func() {
		reason := StopSpontaneous
		switch {
		case h.replaced.Load():
			reason = StopReplaced
		case h.requested.Load():
			reason = StopRequested
		}

		m.mu.Lock()
		if cur, ok := m.handles[h.streamID]; ok && cur == h {
			delete(m.handles, h.streamID)
		}
		active := len(m.handles)
		m.mu.Unlock()

		exitCode := h.runner.ExitCode()
		m.logger.Info("Encoder exited",
			"stream_id", h.streamID,
			"exit_code", exitCode,
			"reason", reason,
			"uptime", time.Since(h.startedAt).Round(time.Second),
		)

		metrics.StreamStops.WithLabelValues(reason.String()).Inc()
		if reason == StopSpontaneous && exitCode != 0 {
			metrics.StreamCrashes.Inc()
		}
		metrics.ActiveStreams.Set(float64(active))

		m.cleanupMu.RLock()
		handlers := make([]CleanupFunc, len(m.cleanupHandlers))
		copy(handlers, m.cleanupHandlers)
		m.cleanupMu.RUnlock()

		// Cleanup is best-effort; handlers log their own failures.
		for _, fn := range handlers {
			fn(h.streamID, reason)
		}

		m.bus.Publish(events.StreamStoppedEvent{
			StreamID:  h.streamID,
			Requested: reason != StopSpontaneous,
			Timestamp: time.Now().Format(time.RFC3339),
		})

		close(h.cleaned)
	})
}
