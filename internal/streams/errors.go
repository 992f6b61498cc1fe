package streams

import "errors"

// Domain errors surfaced to the control layer.
var (
	// ErrStreamNotFound indicates no stream record exists for the id.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrSourceMissing indicates the configured source video does not
	// exist or is not readable.
	ErrSourceMissing = errors.New("source video missing")

	// ErrNoVideo indicates a start was requested for a stream with no
	// video attached.
	ErrNoVideo = errors.New("no video attached to stream")

	// ErrNoStreamKey indicates a start was requested for a stream with
	// an empty destination key.
	ErrNoStreamKey = errors.New("stream key not configured")
)
