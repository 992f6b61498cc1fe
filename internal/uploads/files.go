// Package uploads owns the upload directory: collision-free naming,
// extension validation, and immediate or deferred file reclaim.
package uploads

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openrestream/restreamd/internal/logging"
	"github.com/openrestream/restreamd/internal/metrics"
)

// DeferredDeleteDelay is the grace window before an uploaded but never
// attached file is reclaimed.
const DeferredDeleteDelay = 30 * time.Minute

// videoExtensions is the closed allow-list of accepted container
// extensions, matched case-insensitively.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".webm": true,
	".flv":  true,
	".m4v":  true,
}

// Manager performs file operations inside a single upload directory.
type Manager struct {
	dir    string
	logger *slog.Logger
}

// NewManager creates the upload directory if needed and returns a
// manager rooted there.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Manager{
		dir:    dir,
		logger: logging.GetLogger("uploads"),
	}, nil
}

// Dir returns the upload directory path.
func (m *Manager) Dir() string {
	return m.dir
}

// UniqueName builds a collision-free filename from a timestamp, a
// random token, and the original extension.
func UniqueName(originalName string) string {
	token := make([]byte, 6)
	rand.Read(token)
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), hex.EncodeToString(token), ext)
}

// IsVideoFile reports whether the filename carries an accepted video
// container extension.
func IsVideoFile(name string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(name))]
}

// Save streams an uploaded payload to disk under a fresh unique name,
// returning the path and the number of bytes written. The payload is
// never buffered in memory; video uploads run to gigabytes.
func (m *Manager) Save(originalName string, r io.Reader) (string, int64, error) {
	if !IsVideoFile(originalName) {
		return "", 0, fmt.Errorf("unsupported file type: %s", filepath.Ext(originalName))
	}

	path := filepath.Join(m.dir, UniqueName(originalName))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("failed to write upload: %w", err)
	}

	metrics.UploadBytes.Add(float64(n))
	m.logger.Info("Upload saved", "path", path, "bytes", n)
	return path, n, nil
}

// Delete removes the file at path. Returns false if the path does not
// exist; deletion is idempotent and never escalates.
func (m *Manager) Delete(path string) bool {
	if path == "" {
		return false
	}
	if err := os.Remove(path); err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("Failed to delete file", "path", path, "error", err)
		}
		return false
	}
	metrics.FilesReclaimed.Inc()
	m.logger.Debug("File deleted", "path", path)
	return true
}

// DeferDelete schedules a fire-and-forget reclaim of path after delay.
// The file may legitimately be gone by the time the timer fires.
func (m *Manager) DeferDelete(path string, delay time.Duration) {
	if delay <= 0 {
		delay = DeferredDeleteDelay
	}
	m.logger.Debug("Deferred delete scheduled", "path", path, "delay", delay)
	time.AfterFunc(delay, func() {
		if !m.Delete(path) {
			m.logger.Debug("Deferred delete found nothing to reclaim", "path", path)
		}
	})
}
