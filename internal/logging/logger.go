package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const ringCapacity = 1000

// Config controls the logging system.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu            sync.RWMutex
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels  = make(map[string]*slog.LevelVar)
	globalConfig  Config
	initialized   bool
	ring          *RingBuffer
	entryCallback EntryCallback
)

// Initialize sets up the logging system. Loggers handed out before
// Initialize are rebuilt so they pick up the ring buffer and levels.
func Initialize(config Config) {
	mu.Lock()
	defer mu.Unlock()

	globalConfig = config
	initialized = true
	ring = NewRingBuffer(ringCapacity)

	for module, levelVar := range moduleLevels {
		levelVar.Set(levelForModule(config, module))
		handler := newHandler(config.Format, levelVar)
		moduleLoggers[module] = slog.New(handler).With("module", module)
	}

	defaultLevel := &slog.LevelVar{}
	defaultLevel.Set(levelForModule(config, ""))
	slog.SetDefault(slog.New(newHandler(config.Format, defaultLevel)))
}

// GetLogger returns the logger for a module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if logger, ok := moduleLoggers[module]; ok {
		mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	format := "text"
	if initialized {
		levelVar.Set(levelForModule(globalConfig, module))
		format = globalConfig.Format
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	logger := slog.New(newHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = levelVar
	return logger
}

// SetModuleLevel changes a module's log level at runtime.
// Returns false if the level string is not recognized.
func SetModuleLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}

	mu.Lock()
	defer mu.Unlock()

	levelVar, ok := moduleLevels[module]
	if !ok {
		levelVar = &slog.LevelVar{}
		moduleLevels[module] = levelVar
	}
	levelVar.Set(*parsed)
	return true
}

// Buffer returns the ring buffer of recent log entries.
func Buffer() *RingBuffer {
	mu.RLock()
	defer mu.RUnlock()
	return ring
}

// SetEntryCallback registers a callback invoked for every new log entry.
// Used to publish log events without creating import cycles.
func SetEntryCallback(cb EntryCallback) {
	mu.Lock()
	defer mu.Unlock()
	entryCallback = cb
}

// levelForModule resolves the effective level for a module from config.
func levelForModule(config Config, module string) slog.Level {
	level := slog.LevelInfo
	if parsed := parseLevel(config.Level); parsed != nil {
		level = *parsed
	}
	if module != "" {
		if override, ok := config.Modules[module]; ok {
			if parsed := parseLevel(override); parsed != nil {
				level = *parsed
			}
		}
	}
	return level
}

// newHandler builds the output chain: stdout, journal when available,
// and the ring buffer.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{stdout}
	if journalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewRingHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// parseLevel converts a level string to slog.Level, nil if unknown.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
