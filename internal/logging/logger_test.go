package logging

import (
	"fmt"
	"log/slog"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  *slog.Level
	}{
		{"debug", levelPtr(slog.LevelDebug)},
		{"info", levelPtr(slog.LevelInfo)},
		{"warn", levelPtr(slog.LevelWarn)},
		{"warning", levelPtr(slog.LevelWarn)},
		{"error", levelPtr(slog.LevelError)},
		{"ERROR", levelPtr(slog.LevelError)},
		{"verbose", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, *tt.want)
			}
		})
	}
}

func levelPtr(l slog.Level) *slog.Level { return &l }

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)

	for i := 0; i < 5; i++ {
		rb.Write(Entry{
			Timestamp: time.Now(),
			Level:     "info",
			Module:    "test",
			Message:   fmt.Sprintf("entry %d", i),
		})
	}

	if rb.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", rb.Count())
	}

	entries := rb.ReadAll()
	if len(entries) != 3 {
		t.Fatalf("ReadAll() returned %d entries, want 3", len(entries))
	}
	// Oldest two entries should have been overwritten.
	if entries[0].Message != "entry 2" {
		t.Errorf("oldest entry = %q, want %q", entries[0].Message, "entry 2")
	}
	if entries[2].Message != "entry 4" {
		t.Errorf("newest entry = %q, want %q", entries[2].Message, "entry 4")
	}
}

func TestRingBufferEmpty(t *testing.T) {
	rb := NewRingBuffer(4)
	if got := rb.ReadAll(); got != nil {
		t.Errorf("ReadAll() on empty buffer = %v, want nil", got)
	}
}

func TestGetLoggerReturnsSameInstance(t *testing.T) {
	a := GetLogger("same-instance-test")
	b := GetLogger("same-instance-test")
	if a != b {
		t.Error("GetLogger returned different loggers for the same module")
	}
}

func TestSetModuleLevel(t *testing.T) {
	GetLogger("level-test")

	if !SetModuleLevel("level-test", "debug") {
		t.Error("SetModuleLevel rejected a valid level")
	}
	if SetModuleLevel("level-test", "loud") {
		t.Error("SetModuleLevel accepted an invalid level")
	}
}
