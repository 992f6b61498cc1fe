package logging

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// RingHandler is a slog.Handler that writes entries to the global ring
// buffer and invokes the entry callback. The buffer is resolved at write
// time so handlers created before Initialize still work.
type RingHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewRingHandler creates a handler writing to the global ring buffer.
func NewRingHandler(level slog.Leveler) *RingHandler {
	return &RingHandler{level: level}
}

// Enabled implements slog.Handler.
func (h *RingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *RingHandler) Handle(_ context.Context, r slog.Record) error {
	mu.RLock()
	buffer := ring
	callback := entryCallback
	mu.RUnlock()

	if buffer == nil && callback == nil {
		return nil
	}

	attrs := make(map[string]any)
	module := "app"

	for _, a := range h.attrs {
		if a.Key == "module" {
			module = a.Value.String()
		} else {
			flattenAttr(attrs, h.groups, a)
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "module" {
			module = a.Value.String()
		} else {
			flattenAttr(attrs, h.groups, a)
		}
		return true
	})

	entry := Entry{
		Timestamp:  r.Time,
		Level:      levelString(r.Level),
		Module:     module,
		Message:    r.Message,
		Attributes: attrs,
	}

	if buffer != nil {
		buffer.Write(entry)
	}
	if callback != nil {
		callback(entry)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &RingHandler{level: h.level, attrs: merged, groups: h.groups}
}

// WithGroup implements slog.Handler.
func (h *RingHandler) WithGroup(name string) slog.Handler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &RingHandler{level: h.level, attrs: h.attrs, groups: groups}
}

// flattenAttr records an attribute into a flat map, dot-joining groups.
func flattenAttr(attrs map[string]any, groups []string, a slog.Attr) {
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		for _, ga := range a.Value.Group() {
			flattenAttr(attrs, append(groups, a.Key), ga)
		}
	case slog.KindTime:
		attrs[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			attrs[key] = err.Error()
		} else {
			attrs[key] = a.Value.Any()
		}
	default:
		attrs[key] = a.Value.Any()
	}
}

// levelString converts slog.Level to a lowercase name.
func levelString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

// MultiHandler fans out records to multiple handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a handler writing to all provided handlers.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	return &MultiHandler{handlers: handlers}
}

// Enabled implements slog.Handler.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: handlers}
}

// WithGroup implements slog.Handler.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &MultiHandler{handlers: handlers}
}
