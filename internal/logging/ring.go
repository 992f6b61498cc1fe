package logging

import (
	"sync"
	"time"
)

// Entry is a single log line held in the ring buffer.
type Entry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// EntryCallback receives each new entry as it is written.
type EntryCallback func(entry Entry)

// RingBuffer is a fixed-capacity circular buffer of log entries.
type RingBuffer struct {
	entries []Entry
	size    int
	head    int
	count   int
	mu      sync.RWMutex
}

// NewRingBuffer creates a ring buffer holding up to size entries.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Write appends an entry, overwriting the oldest when full.
func (rb *RingBuffer) Write(entry Entry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.head] = entry
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

// ReadAll returns all entries in chronological order.
func (rb *RingBuffer) ReadAll() []Entry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.count == 0 {
		return nil
	}

	result := make([]Entry, rb.count)
	if rb.count < rb.size {
		copy(result, rb.entries[:rb.count])
	} else {
		n := copy(result, rb.entries[rb.head:])
		copy(result[n:], rb.entries[:rb.head])
	}
	return result
}

// Count returns the number of entries currently held.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}
