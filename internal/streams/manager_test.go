package streams

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openrestream/restreamd/internal/encoder"
	"github.com/openrestream/restreamd/internal/events"
)

// longRunning behaves like an encoder that exits cleanly on SIGINT.
var longRunning = []string{"sh", "-c", "trap 'exit 0' INT TERM; while :; do sleep 0.1; done"}

// stubborn ignores SIGINT so only SIGKILL ends it.
var stubborn = []string{"sh", "-c", "trap '' INT; while :; do sleep 0.1; done"}

func testSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("fake video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testManager(t *testing.T, argv []string) *Manager {
	t.Helper()
	m := NewManager(ManagerOptions{
		Bus: events.New(),
		CommandProvider: func(encoder.Config) []string {
			return argv
		},
		SpawnGrace:      50 * time.Millisecond,
		GracefulTimeout: 500 * time.Millisecond,
	})
	t.Cleanup(m.StopAll)
	return m
}

func TestStartThenIsActive(t *testing.T) {
	m := testManager(t, longRunning)
	cfg := encoder.Config{StreamID: 7, SourcePath: testSource(t), StreamKey: "k"}

	if m.IsActive(7) {
		t.Error("IsActive(7) true before start")
	}
	if err := m.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !m.IsActive(7) {
		t.Error("IsActive(7) false after successful start")
	}

	ids := m.ActiveIDs()
	if len(ids) != 1 || ids[0] != 7 {
		t.Errorf("ActiveIDs() = %v, want [7]", ids)
	}

	if !m.Stop(7) {
		t.Error("Stop(7) = false for active stream")
	}
	if m.IsActive(7) {
		t.Error("IsActive(7) true after stop resolved")
	}
}

func TestStartMissingSource(t *testing.T) {
	m := testManager(t, longRunning)
	cfg := encoder.Config{StreamID: 1, SourcePath: "/nonexistent/clip.mp4", StreamKey: "k"}

	if err := m.Start(cfg); err == nil {
		t.Fatal("Start succeeded with missing source file")
	}
	if m.IsActive(1) {
		t.Error("failed start left an active handle")
	}
}

func TestStopInactiveIsNoop(t *testing.T) {
	m := testManager(t, longRunning)

	var cleanups atomic.Int64
	m.OnCleanup(func(int64, StopReason) { cleanups.Add(1) })

	if m.Stop(42) {
		t.Error("Stop(42) = true with no active handle")
	}
	if n := cleanups.Load(); n != 0 {
		t.Errorf("cleanup ran %d times for a no-op stop", n)
	}
}

func TestStopRunsCleanupExactlyOnce(t *testing.T) {
	m := testManager(t, longRunning)

	var cleanups atomic.Int64
	var cleanedID atomic.Int64
	reasons := make(chan StopReason, 1)
	m.OnCleanup(func(id int64, reason StopReason) {
		cleanups.Add(1)
		cleanedID.Store(id)
		reasons <- reason
	})

	cfg := encoder.Config{StreamID: 7, SourcePath: testSource(t), StreamKey: "k"}
	if err := m.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !m.Stop(7) {
		t.Fatal("Stop(7) = false")
	}

	// Stop resolves only after teardown; cleanup must already have run.
	if n := cleanups.Load(); n != 1 {
		t.Errorf("cleanup ran %d times, want 1", n)
	}
	if cleanedID.Load() != 7 {
		t.Errorf("cleanup got id %d, want 7", cleanedID.Load())
	}
	if reason := <-reasons; reason != StopRequested {
		t.Errorf("cleanup reason = %v, want requested", reason)
	}

	// A later spontaneous-exit observer must not re-run cleanup.
	time.Sleep(100 * time.Millisecond)
	if n := cleanups.Load(); n != 1 {
		t.Errorf("cleanup ran %d times after settling, want 1", n)
	}
}

func TestRestartReplacesHandle(t *testing.T) {
	m := testManager(t, longRunning)

	var cleanups atomic.Int64
	activeDuringCleanup := make(chan bool, 2)
	reasons := make(chan StopReason, 2)
	m.OnCleanup(func(id int64, reason StopReason) {
		cleanups.Add(1)
		activeDuringCleanup <- m.IsActive(id)
		reasons <- reason
	})

	cfg := encoder.Config{StreamID: 7, SourcePath: testSource(t), StreamKey: "k"}
	if err := m.Start(cfg); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}

	// Second start with changed config replaces the first process.
	cfg.Orientation = encoder.OrientationPortrait
	if err := m.Start(cfg); err != nil {
		t.Fatalf("second Start failed: %v", err)
	}

	if n := cleanups.Load(); n != 1 {
		t.Errorf("cleanup ran %d times for the replaced process, want 1", n)
	}
	// Cleanup of the replaced process happens before the new handle is visible.
	if active := <-activeDuringCleanup; active {
		t.Error("new handle visible during cleanup of the replaced process")
	}
	// Handlers see the teardown as a replacement, not a terminal stop.
	if reason := <-reasons; reason != StopReplaced {
		t.Errorf("cleanup reason = %v, want replaced", reason)
	}

	if !m.IsActive(7) {
		t.Error("stream not active after replacement start")
	}
	if len(m.ActiveIDs()) != 1 {
		t.Errorf("ActiveIDs() = %v, want exactly one handle", m.ActiveIDs())
	}
}

func TestSpontaneousExitRunsCleanup(t *testing.T) {
	m := testManager(t, []string{"sh", "-c", "sleep 0.2; exit 1"})

	var cleanups atomic.Int64
	m.OnCleanup(func(int64, StopReason) { cleanups.Add(1) })

	cfg := encoder.Config{StreamID: 9, SourcePath: testSource(t), StreamKey: "k"}
	if err := m.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for cleanups.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("cleanup never ran after spontaneous exit")
		case <-time.After(20 * time.Millisecond):
		}
	}

	if m.IsActive(9) {
		t.Error("IsActive(9) true after crash cleanup")
	}
	if n := cleanups.Load(); n != 1 {
		t.Errorf("cleanup ran %d times, want 1", n)
	}
}

func TestImmediateExitSurfacesAsStartFailure(t *testing.T) {
	m := testManager(t, []string{"sh", "-c", "exit 1"})

	var cleanups atomic.Int64
	m.OnCleanup(func(int64, StopReason) { cleanups.Add(1) })

	cfg := encoder.Config{StreamID: 3, SourcePath: testSource(t), StreamKey: "k"}
	if err := m.Start(cfg); err == nil {
		t.Fatal("Start succeeded for an encoder that exited immediately")
	}
	if m.IsActive(3) {
		t.Error("handle left active after immediate exit")
	}
	if n := cleanups.Load(); n != 1 {
		t.Errorf("cleanup ran %d times, want 1", n)
	}
}

func TestConcurrentStopsCleanupOnce(t *testing.T) {
	m := testManager(t, longRunning)

	var cleanups atomic.Int64
	m.OnCleanup(func(int64, StopReason) { cleanups.Add(1) })

	cfg := encoder.Config{StreamID: 5, SourcePath: testSource(t), StreamKey: "k"}
	if err := m.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var wg sync.WaitGroup
	var stopped atomic.Int64
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Stop(5) {
				stopped.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := cleanups.Load(); n != 1 {
		t.Errorf("cleanup ran %d times under concurrent stops, want 1", n)
	}
	if m.IsActive(5) {
		t.Error("stream still active after concurrent stops")
	}
}

func TestForcedKillStillCleansUpOnce(t *testing.T) {
	m := testManager(t, stubborn)

	var cleanups atomic.Int64
	m.OnCleanup(func(int64, StopReason) { cleanups.Add(1) })

	cfg := encoder.Config{StreamID: 7, SourcePath: testSource(t), StreamKey: "k"}
	if err := m.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	start := time.Now()
	if !m.Stop(7) {
		t.Fatal("Stop(7) = false")
	}
	if elapsed := time.Since(start); elapsed < 500*time.Millisecond {
		t.Errorf("Stop returned after %v, before the grace period", elapsed)
	}

	if n := cleanups.Load(); n != 1 {
		t.Errorf("cleanup ran %d times after forced kill, want 1", n)
	}
	if m.IsActive(7) {
		t.Error("stream still active after forced kill")
	}
}

func TestStopPublishesStoppedEvent(t *testing.T) {
	bus := events.New()
	m := NewManager(ManagerOptions{
		Bus: bus,
		CommandProvider: func(encoder.Config) []string {
			return longRunning
		},
		SpawnGrace:      50 * time.Millisecond,
		GracefulTimeout: 500 * time.Millisecond,
	})
	t.Cleanup(m.StopAll)

	stopped := make(chan events.StreamStoppedEvent, 1)
	unsub := bus.Subscribe(func(e events.StreamStoppedEvent) {
		stopped <- e
	})
	defer unsub()

	cfg := encoder.Config{StreamID: 7, SourcePath: testSource(t), StreamKey: "k"}
	if err := m.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.Stop(7)

	select {
	case e := <-stopped:
		if e.StreamID != 7 || !e.Requested {
			t.Errorf("event = %+v, want StreamID=7 Requested=true", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no StreamStoppedEvent published")
	}
}
