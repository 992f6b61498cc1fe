// Package store provides the TOML-file backed implementation of the
// stream store.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/openrestream/restreamd/internal/streams"
)

// fileSchema is the on-disk layout. Maps are keyed by the decimal
// stream id because TOML table keys must be strings.
type fileSchema struct {
	Version int                       `toml:"version"`
	NextID  int64                     `toml:"next_id"`
	Streams map[string]streams.Stream `toml:"streams"`
	Stats   map[string]streams.Stats  `toml:"stats"`
}

// TOMLStore persists stream records to a single TOML file. Every
// mutation rewrites the file; reads are served from memory.
type TOMLStore struct {
	mu   sync.RWMutex
	path string
	data fileSchema
}

// Open loads the store from path, creating an empty store if the file
// does not exist yet.
func Open(path string) (*TOMLStore, error) {
	if path == "" {
		path = "streams.toml"
	}

	s := &TOMLStore{
		path: path,
		data: fileSchema{
			Version: 1,
			NextID:  1,
			Streams: make(map[string]streams.Stream),
			Stats:   make(map[string]streams.Stats),
		},
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TOMLStore) load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read stream store: %w", err)
	}

	if err := toml.Unmarshal(raw, &s.data); err != nil {
		return fmt.Errorf("failed to parse stream store: %w", err)
	}

	if s.data.Streams == nil {
		s.data.Streams = make(map[string]streams.Stream)
	}
	if s.data.Stats == nil {
		s.data.Stats = make(map[string]streams.Stats)
	}
	if s.data.Version == 0 {
		s.data.Version = 1
	}

	// Recompute the id counter so hand-edited files cannot cause
	// duplicate ids.
	for _, st := range s.data.Streams {
		if st.ID >= s.data.NextID {
			s.data.NextID = st.ID + 1
		}
	}
	if s.data.NextID < 1 {
		s.data.NextID = 1
	}
	return nil
}

// save writes the current state to disk. Callers must hold s.mu.
func (s *TOMLStore) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	raw, err := toml.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to marshal stream store: %w", err)
	}

	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write stream store: %w", err)
	}
	return nil
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

// CreateStream assigns a fresh id, stamps timestamps, and persists the
// record along with a zeroed stats entry.
func (s *TOMLStore) CreateStream(st streams.Stream) (streams.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st.ID = s.data.NextID
	s.data.NextID++

	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	st.IsActive = false

	if st.Name == "" {
		st.Name = fmt.Sprintf("Stream %d", st.ID)
	}

	s.data.Streams[key(st.ID)] = st
	s.data.Stats[key(st.ID)] = streams.Stats{Status: streams.StatusDisconnected}

	if err := s.save(); err != nil {
		return streams.Stream{}, err
	}
	return st, nil
}

// GetStream returns the record for id.
func (s *TOMLStore) GetStream(id int64) (streams.Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data.Streams[key(id)]
	return st, ok
}

// UpdateStream replaces the mutable fields of the record. The id and
// creation time of the stored record are preserved.
func (s *TOMLStore) UpdateStream(id int64, updates streams.Stream) (streams.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data.Streams[key(id)]
	if !ok {
		return streams.Stream{}, streams.ErrStreamNotFound
	}

	updates.ID = existing.ID
	updates.CreatedAt = existing.CreatedAt
	updates.UpdatedAt = time.Now().UTC()
	if updates.Name == "" {
		updates.Name = existing.Name
	}

	s.data.Streams[key(id)] = updates
	if err := s.save(); err != nil {
		return streams.Stream{}, err
	}
	return updates, nil
}

// DeleteStream removes the record and its stats entry.
func (s *TOMLStore) DeleteStream(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Streams[key(id)]; !ok {
		return streams.ErrStreamNotFound
	}

	delete(s.data.Streams, key(id))
	delete(s.data.Stats, key(id))
	return s.save()
}

// ListStreams returns all records ordered by id.
func (s *TOMLStore) ListStreams() []streams.Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]streams.Stream, 0, len(s.data.Streams))
	for _, st := range s.data.Streams {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetStats returns the stats record for id.
func (s *TOMLStore) GetStats(id int64) (streams.Stats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.data.Stats[key(id)]
	return st, ok
}

// UpdateStats replaces the stats record for id.
func (s *TOMLStore) UpdateStats(id int64, stats streams.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Streams[key(id)]; !ok {
		return streams.ErrStreamNotFound
	}

	s.data.Stats[key(id)] = stats
	return s.save()
}

// ClearVideo detaches the video, clears the active flag, and resets
// stats. Clearing an already-cleared record is a no-op.
func (s *TOMLStore) ClearVideo(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data.Streams[key(id)]
	if !ok {
		return streams.ErrStreamNotFound
	}

	cleared := streams.Stats{Status: streams.StatusDisconnected}
	if st.VideoPath == "" && !st.IsActive && s.data.Stats[key(id)] == cleared {
		return nil
	}

	st.VideoPath = ""
	st.IsActive = false
	st.UpdatedAt = time.Now().UTC()
	s.data.Streams[key(id)] = st
	s.data.Stats[key(id)] = streams.Stats{Status: streams.StatusDisconnected}
	return s.save()
}

// SetActive flips the active flag and connection status together.
func (s *TOMLStore) SetActive(id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.data.Streams[key(id)]
	if !ok {
		return streams.ErrStreamNotFound
	}

	st.IsActive = active
	st.UpdatedAt = time.Now().UTC()
	s.data.Streams[key(id)] = st

	stats := s.data.Stats[key(id)]
	if active {
		stats.Status = streams.StatusConnected
	} else {
		stats.Status = streams.StatusDisconnected
		stats.Viewers = 0
		stats.UptimeSeconds = 0
		stats.LatencyMs = 0
	}
	s.data.Stats[key(id)] = stats
	return s.save()
}

var _ streams.Store = (*TOMLStore)(nil)
