// Package logging provides structured logging with per-module log levels.
//
// Built on log/slog. Each subsystem asks for a named logger once:
//
//	logger := logging.GetLogger("streams")
//	logger.Info("encoder started", "stream_id", id)
//
// Initialize configures the global and per-module levels, the output
// format (text or json), and the output destinations:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{"streams": "debug"},
//	})
//
// Records are fanned out to stdout, to the systemd journal when journald
// is available, and to an in-memory ring buffer that backs the /api/logs
// endpoint and the SSE log stream.
//
// When running under systemd:
//
//	journalctl -t restreamd -f
//	journalctl -t restreamd MODULE=streams
package logging
