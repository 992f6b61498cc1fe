// Package process provides single-subprocess lifecycle management.
//
// Runner wraps os/exec for one encoder process:
//   - argv-based spawning in its own process group
//   - stdout/stderr streaming with pluggable log-level parsing
//   - graceful shutdown with SIGINT and a configurable grace period
//   - force kill with SIGKILL when the grace period elapses
//
// Supervision of many runners, keyed by stream id, lives in
// internal/streams.
package process
