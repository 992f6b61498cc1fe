// Package models holds the request and response shapes of the HTTP API.
package models

// HealthData reports API liveness.
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Health status"`
	Message string `json:"message" example:"API is healthy" doc:"Health details"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionData reports build information.
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

// VersionResponse wraps VersionData.
type VersionResponse struct {
	Body VersionData
}

// StreamData is the API view of a stream record.
type StreamData struct {
	ID          int64  `json:"id" example:"7" doc:"Stream identifier"`
	Name        string `json:"name" example:"lobby loop" doc:"Display name"`
	StreamKey   string `json:"stream_key" example:"live_xxxx" doc:"Destination stream key"`
	HasVideo    bool   `json:"has_video" example:"true" doc:"Whether a video file is attached"`
	IsActive    bool   `json:"is_active" example:"false" doc:"Whether an encoder is publishing"`
	Resolution  string `json:"resolution" example:"medium-high" doc:"Output resolution class"`
	Orientation string `json:"orientation" example:"landscape" doc:"Display orientation"`
	Loop        bool   `json:"loop" example:"true" doc:"Loop source indefinitely"`
	Volume      int    `json:"volume" example:"100" minimum:"0" maximum:"100" doc:"Audio volume percent"`
	Muted       bool   `json:"muted" example:"false" doc:"Audio muted"`
	CreatedAt   string `json:"created_at" example:"2025-01-27T10:30:00Z" doc:"Creation timestamp"`
	UpdatedAt   string `json:"updated_at" example:"2025-01-27T10:30:00Z" doc:"Last update timestamp"`
}

// StreamResponse wraps one StreamData.
type StreamResponse struct {
	Body StreamData
}

// StreamListData is the list envelope.
type StreamListData struct {
	Streams []StreamData `json:"streams" doc:"All configured streams"`
	Count   int          `json:"count" example:"3" doc:"Number of streams"`
}

// StreamListResponse wraps StreamListData.
type StreamListResponse struct {
	Body StreamListData
}

// CreateStreamBody is the POST /api/streams payload.
type CreateStreamBody struct {
	Name        string `json:"name" maxLength:"120" example:"lobby loop" doc:"Display name"`
	StreamKey   string `json:"stream_key,omitempty" example:"live_xxxx" doc:"Destination stream key"`
	Resolution  string `json:"resolution,omitempty" enum:"low,medium-low,medium-high,high" example:"medium-high" doc:"Output resolution class"`
	Orientation string `json:"orientation,omitempty" enum:"landscape,portrait" example:"landscape" doc:"Display orientation"`
	Loop        bool   `json:"loop,omitempty" doc:"Loop source indefinitely"`
	Volume      int    `json:"volume,omitempty" minimum:"0" maximum:"100" doc:"Audio volume percent"`
	Muted       bool   `json:"muted,omitempty" doc:"Audio muted"`
}

// UpdateStreamBody is the PATCH /api/streams/{id} payload; absent
// fields keep their stored values.
type UpdateStreamBody struct {
	Name        *string `json:"name,omitempty" maxLength:"120" doc:"Display name"`
	StreamKey   *string `json:"stream_key,omitempty" doc:"Destination stream key"`
	Resolution  *string `json:"resolution,omitempty" enum:"low,medium-low,medium-high,high" doc:"Output resolution class"`
	Orientation *string `json:"orientation,omitempty" enum:"landscape,portrait" doc:"Display orientation"`
	Loop        *bool   `json:"loop,omitempty" doc:"Loop source indefinitely"`
	Volume      *int    `json:"volume,omitempty" minimum:"0" maximum:"100" doc:"Audio volume percent"`
	Muted       *bool   `json:"muted,omitempty" doc:"Audio muted"`
}

// StatsData is the API view of a stream's telemetry.
type StatsData struct {
	StreamID      int64  `json:"stream_id" example:"7" doc:"Stream identifier"`
	Viewers       int    `json:"viewers" example:"12" doc:"Current viewer count"`
	UptimeSeconds int64  `json:"uptime_seconds" example:"105" doc:"Seconds connected"`
	LatencyMs     int    `json:"latency_ms" example:"1800" doc:"Round-trip latency estimate"`
	Status        string `json:"status" example:"connected" doc:"Connection status"`
}

// StatsResponse wraps StatsData.
type StatsResponse struct {
	Body StatsData
}

// StartStopData reports the outcome of a start or stop request.
type StartStopData struct {
	StreamID int64  `json:"stream_id" example:"7" doc:"Stream identifier"`
	IsActive bool   `json:"is_active" doc:"Whether the encoder is running after the operation"`
	Message  string `json:"message" example:"stream started" doc:"Human-readable outcome"`
}

// StartStopResponse wraps StartStopData.
type StartStopResponse struct {
	Body StartStopData
}

// UploadData reports a stored upload.
type UploadData struct {
	StreamID int64  `json:"stream_id" example:"7" doc:"Stream the video was attached to"`
	Filename string `json:"filename" example:"1738000000_ab12cd.mp4" doc:"Stored filename"`
	Bytes    int64  `json:"bytes" example:"10485760" doc:"Stored size in bytes"`
}

// UploadResponse wraps UploadData.
type UploadResponse struct {
	Body UploadData
}

// LogEntryData is one log line from the ring buffer.
type LogEntryData struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-27T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"streams" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// LogsData is the recent-logs envelope.
type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Recent log entries, oldest first"`
	Count   int            `json:"count" example:"250" doc:"Number of entries"`
}

// LogsResponse wraps LogsData.
type LogsResponse struct {
	Body LogsData
}

// LogLevelBody sets a module's log level at runtime.
type LogLevelBody struct {
	Level string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
}
