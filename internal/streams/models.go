// Package streams owns the stream domain model and the encoder process
// lifecycle manager.
package streams

import (
	"time"

	"github.com/openrestream/restreamd/internal/encoder"
)

// ConnStatus is the connection state of a stream's publish session.
type ConnStatus string

// Connection statuses. Unknown values fall back to disconnected.
const (
	StatusDisconnected ConnStatus = "disconnected"
	StatusConnecting   ConnStatus = "connecting"
	StatusConnected    ConnStatus = "connected"
)

// ParseConnStatus validates a connection status string, falling back to
// disconnected for unknown values.
func ParseConnStatus(s string) ConnStatus {
	switch ConnStatus(s) {
	case StatusDisconnected, StatusConnecting, StatusConnected:
		return ConnStatus(s)
	default:
		return StatusDisconnected
	}
}

// Stream is the persisted configuration record for one stream.
type Stream struct {
	ID          int64     `toml:"id" json:"id"`
	Name        string    `toml:"name" json:"name"`
	StreamKey   string    `toml:"stream_key" json:"stream_key"`
	VideoPath   string    `toml:"video_path,omitempty" json:"video_path,omitempty"`
	IsActive    bool      `toml:"is_active" json:"is_active"`
	Resolution  string    `toml:"resolution" json:"resolution"`
	Orientation string    `toml:"orientation" json:"orientation"`
	Loop        bool      `toml:"loop" json:"loop"`
	Volume      int       `toml:"volume" json:"volume"`
	Muted       bool      `toml:"muted" json:"muted"`
	CreatedAt   time.Time `toml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `toml:"updated_at" json:"updated_at"`
}

// EncoderConfig materializes an immutable encoder config snapshot from
// the record. Enumerations are re-validated here so stale or hand-edited
// store values degrade to the documented defaults.
func (s Stream) EncoderConfig() encoder.Config {
	return encoder.Config{
		StreamID:    s.ID,
		SourcePath:  s.VideoPath,
		StreamKey:   s.StreamKey,
		Resolution:  encoder.ParseResolutionClass(s.Resolution),
		Orientation: encoder.ParseOrientation(s.Orientation),
		Loop:        s.Loop,
		Volume:      s.Volume,
		Muted:       s.Muted,
	}
}

// Stats is the synthetic telemetry record for one stream.
type Stats struct {
	Viewers       int        `toml:"viewers" json:"viewers"`
	UptimeSeconds int64      `toml:"uptime_seconds" json:"uptime_seconds"`
	LatencyMs     int        `toml:"latency_ms" json:"latency_ms"`
	Status        ConnStatus `toml:"status" json:"status"`
}

// Store persists stream records and their stats. Deleting a stream also
// removes its stats record.
type Store interface {
	CreateStream(s Stream) (Stream, error)
	GetStream(id int64) (Stream, bool)
	UpdateStream(id int64, s Stream) (Stream, error)
	DeleteStream(id int64) error
	ListStreams() []Stream

	GetStats(id int64) (Stats, bool)
	UpdateStats(id int64, stats Stats) error

	// ClearVideo clears the stream's video reference and active flag and
	// resets its stats; the stop path calls this after teardown. It is
	// idempotent: clearing an already-cleared record is a no-op.
	ClearVideo(id int64) error

	// SetActive flips the stream's active flag and connection status.
	SetActive(id int64, active bool) error
}
