package streams

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/openrestream/restreamd/internal/events"
	"github.com/openrestream/restreamd/internal/logging"
)

// Service is the operation surface the control layer talks to. It owns
// validation and ties the store, the process manager, and file reclaim
// together.
type Service interface {
	CreateStream(ctx context.Context, params CreateParams) (Stream, error)
	GetStream(ctx context.Context, id int64) (Stream, error)
	UpdateStream(ctx context.Context, id int64, params UpdateParams) (Stream, error)
	DeleteStream(ctx context.Context, id int64) error
	ListStreams(ctx context.Context) ([]Stream, error)
	GetStats(ctx context.Context, id int64) (Stats, error)

	StartStream(ctx context.Context, id int64) error
	StopStream(ctx context.Context, id int64) (bool, error)
	IsActive(id int64) bool

	AttachVideo(ctx context.Context, id int64, path string) (Stream, error)
}

// CreateParams are the operator-supplied fields of a new stream.
type CreateParams struct {
	Name        string
	StreamKey   string
	Resolution  string
	Orientation string
	Loop        bool
	Volume      int
	Muted       bool
}

// UpdateParams are the mutable fields of an existing stream. Nil
// pointers leave the stored value unchanged.
type UpdateParams struct {
	Name        *string
	StreamKey   *string
	Resolution  *string
	Orientation *string
	Loop        *bool
	Volume      *int
	Muted       *bool
}

// FileRemover reclaims a file, reporting false when it was already gone.
type FileRemover interface {
	Delete(path string) bool
}

type service struct {
	store   Store
	manager *Manager
	files   FileRemover
	bus     *events.Bus
	logger  *slog.Logger
}

// NewService builds the service and registers the cleanup handler that
// runs after every encoder exit: reclaim the source video, clear the
// stream's video reference and active flag, reset stats.
func NewService(store Store, manager *Manager, files FileRemover, bus *events.Bus) Service {
	s := &service{
		store:   store,
		manager: manager,
		files:   files,
		bus:     bus,
		logger:  logging.GetLogger("streams"),
	}
	manager.OnCleanup(s.cleanupStream)
	return s
}

func (s *service) CreateStream(_ context.Context, params CreateParams) (Stream, error) {
	created, err := s.store.CreateStream(Stream{
		Name:        params.Name,
		StreamKey:   params.StreamKey,
		Resolution:  params.Resolution,
		Orientation: params.Orientation,
		Loop:        params.Loop,
		Volume:      params.Volume,
		Muted:       params.Muted,
	})
	if err != nil {
		return Stream{}, err
	}

	s.bus.Publish(events.StreamCreatedEvent{
		StreamID:  created.ID,
		Name:      created.Name,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	s.logger.Info("Stream created", "stream_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *service) GetStream(_ context.Context, id int64) (Stream, error) {
	st, ok := s.store.GetStream(id)
	if !ok {
		return Stream{}, ErrStreamNotFound
	}
	return st, nil
}

func (s *service) UpdateStream(ctx context.Context, id int64, params UpdateParams) (Stream, error) {
	current, ok := s.store.GetStream(id)
	if !ok {
		return Stream{}, ErrStreamNotFound
	}

	if params.Name != nil {
		current.Name = *params.Name
	}
	if params.StreamKey != nil {
		current.StreamKey = *params.StreamKey
	}
	if params.Resolution != nil {
		current.Resolution = *params.Resolution
	}
	if params.Orientation != nil {
		current.Orientation = *params.Orientation
	}
	if params.Loop != nil {
		current.Loop = *params.Loop
	}
	if params.Volume != nil {
		current.Volume = *params.Volume
	}
	if params.Muted != nil {
		current.Muted = *params.Muted
	}

	updated, err := s.store.UpdateStream(id, current)
	if err != nil {
		return Stream{}, err
	}

	s.bus.Publish(events.StreamUpdatedEvent{
		StreamID:  updated.ID,
		Name:      updated.Name,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	return updated, nil
}

func (s *service) DeleteStream(ctx context.Context, id int64) error {
	current, ok := s.store.GetStream(id)
	if !ok {
		return ErrStreamNotFound
	}

	// Stopping first lets the normal cleanup path reclaim the video.
	if s.manager.Stop(id) {
		s.logger.Info("Stopped encoder before delete", "stream_id", id)
	} else if current.VideoPath != "" {
		s.files.Delete(current.VideoPath)
	}

	if err := s.store.DeleteStream(id); err != nil {
		return err
	}

	s.bus.Publish(events.StreamDeletedEvent{
		StreamID:  id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	s.logger.Info("Stream deleted", "stream_id", id)
	return nil
}

func (s *service) ListStreams(_ context.Context) ([]Stream, error) {
	return s.store.ListStreams(), nil
}

func (s *service) GetStats(_ context.Context, id int64) (Stats, error) {
	stats, ok := s.store.GetStats(id)
	if !ok {
		return Stats{}, ErrStreamNotFound
	}
	return stats, nil
}

func (s *service) StartStream(_ context.Context, id int64) error {
	st, ok := s.store.GetStream(id)
	if !ok {
		return ErrStreamNotFound
	}
	if st.VideoPath == "" {
		return ErrNoVideo
	}
	if st.StreamKey == "" {
		return ErrNoStreamKey
	}

	if err := s.manager.Start(st.EncoderConfig()); err != nil {
		return fmt.Errorf("failed to start encoder for stream %d: %w", id, err)
	}

	if err := s.store.SetActive(id, true); err != nil {
		s.logger.Warn("Failed to mark stream active", "stream_id", id, "error", err)
	}
	return nil
}

func (s *service) StopStream(_ context.Context, id int64) (bool, error) {
	if _, ok := s.store.GetStream(id); !ok {
		return false, ErrStreamNotFound
	}
	return s.manager.Stop(id), nil
}

func (s *service) IsActive(id int64) bool {
	return s.manager.IsActive(id)
}

func (s *service) AttachVideo(_ context.Context, id int64, path string) (Stream, error) {
	current, ok := s.store.GetStream(id)
	if !ok {
		return Stream{}, ErrStreamNotFound
	}

	// Replacing an attached video reclaims the old file immediately.
	if current.VideoPath != "" && current.VideoPath != path {
		s.files.Delete(current.VideoPath)
	}

	current.VideoPath = path
	updated, err := s.store.UpdateStream(id, current)
	if err != nil {
		return Stream{}, err
	}

	s.logger.Info("Video attached", "stream_id", id, "path", path)
	return updated, nil
}

// cleanupStream runs after every encoder exit, requested or not. It is
// idempotent: the video reference may already be cleared. A replacement
// teardown keeps the video and stream state intact because the restart
// is about to read the same source file.
func (s *service) cleanupStream(id int64, reason StopReason) {
	if reason == StopReplaced {
		return
	}

	st, ok := s.store.GetStream(id)
	if !ok {
		return
	}

	if st.VideoPath != "" {
		if !s.files.Delete(st.VideoPath) {
			s.logger.Debug("Source video already reclaimed", "stream_id", id)
		}
	}

	if err := s.store.ClearVideo(id); err != nil {
		s.logger.Warn("Failed to clear stream after stop", "stream_id", id, "error", err)
	}
}
