package events

// Event type constants for kelindar/event.
const (
	TypeStreamStarted uint32 = iota + 1
	TypeStreamStopped
	TypeStatsUpdated
	TypeStreamCreated
	TypeStreamUpdated
	TypeStreamDeleted
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StreamStartedEvent is published when an encoder process begins
// publishing a stream.
type StreamStartedEvent struct {
	StreamID  int64  `json:"stream_id" example:"7" doc:"Stream identifier"`
	PID       int    `json:"pid" example:"4242" doc:"Encoder process id"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStartedEvent.
func (e StreamStartedEvent) Type() uint32 { return TypeStreamStarted }

// StreamStoppedEvent is published after an encoder terminates and
// cleanup has run, whether the stop was requested or spontaneous.
type StreamStoppedEvent struct {
	StreamID  int64  `json:"stream_id" example:"7" doc:"Stream identifier"`
	Requested bool   `json:"requested" example:"true" doc:"True when the stop was operator-initiated"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamStoppedEvent.
func (e StreamStoppedEvent) Type() uint32 { return TypeStreamStopped }

// StatsSnapshot is the telemetry payload carried by StatsUpdatedEvent.
type StatsSnapshot struct {
	Viewers       int    `json:"viewers" example:"12" doc:"Current viewer count"`
	UptimeSeconds int64  `json:"uptime_seconds" example:"105" doc:"Seconds connected"`
	LatencyMs     int    `json:"latency_ms" example:"1800" doc:"Round-trip latency estimate"`
	Status        string `json:"status" example:"connected" doc:"Connection status"`
}

// StatsUpdatedEvent carries a telemetry snapshot for an active stream.
type StatsUpdatedEvent struct {
	StreamID  int64         `json:"stream_id" example:"7" doc:"Stream identifier"`
	Stats     StatsSnapshot `json:"stats" doc:"Telemetry snapshot"`
	Timestamp string        `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StatsUpdatedEvent.
func (e StatsUpdatedEvent) Type() uint32 { return TypeStatsUpdated }

// StreamCreatedEvent is published when a stream record is created.
type StreamCreatedEvent struct {
	StreamID  int64  `json:"stream_id" example:"7" doc:"Stream identifier"`
	Name      string `json:"name" example:"lobby loop" doc:"Stream display name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamCreatedEvent.
func (e StreamCreatedEvent) Type() uint32 { return TypeStreamCreated }

// StreamUpdatedEvent is published when a stream record changes.
type StreamUpdatedEvent struct {
	StreamID  int64  `json:"stream_id" example:"7" doc:"Stream identifier"`
	Name      string `json:"name" example:"lobby loop" doc:"Stream display name"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamUpdatedEvent.
func (e StreamUpdatedEvent) Type() uint32 { return TypeStreamUpdated }

// StreamDeletedEvent is published when a stream record is removed.
type StreamDeletedEvent struct {
	StreamID  int64  `json:"stream_id" example:"7" doc:"Stream identifier"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for StreamDeletedEvent.
func (e StreamDeletedEvent) Type() uint32 { return TypeStreamDeleted }

// LogEntryEvent streams a log line to SSE observers.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"streams" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
