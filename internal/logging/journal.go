package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

const syslogIdentifier = "restreamd"

// journalAvailable reports whether journald can accept log messages.
func journalAvailable() bool {
	return journal.Enabled()
}

// JournalHandler is a slog.Handler that sends records to the systemd
// journal with structured fields.
type JournalHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewJournalHandler creates a journal handler at the given level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

// Enabled implements slog.Handler.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := journalPriority(r.Level)

	fields := map[string]string{
		"SYSLOG_IDENTIFIER": syslogIdentifier,
	}
	for _, attr := range h.attrs {
		addJournalField(fields, attr, h.groups)
	}
	r.Attrs(func(attr slog.Attr) bool {
		addJournalField(fields, attr, h.groups)
		return true
	})

	return journal.Send(r.Message, priority, fields)
}

// WithAttrs implements slog.Handler.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &JournalHandler{level: h.level, attrs: merged, groups: h.groups}
}

// WithGroup implements slog.Handler.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &JournalHandler{level: h.level, attrs: h.attrs, groups: groups}
}

// journalPriority maps slog levels to journal priorities.
func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addJournalField converts an attribute to an uppercase journal field.
func addJournalField(fields map[string]string, attr slog.Attr, groups []string) {
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		for _, ga := range attr.Value.Group() {
			addJournalField(fields, ga, append(groups, attr.Key))
		}
		return
	}

	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, "_") + "_" + key
	}
	key = strings.ToUpper(strings.ReplaceAll(key, ".", "_"))

	fields[key] = fmt.Sprint(attr.Value.Any())
}
