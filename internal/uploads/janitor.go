package uploads

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/openrestream/restreamd/internal/logging"
)

// Janitor watches the upload directory and schedules a deferred reclaim
// for every file that appears there. Files that get attached to a
// stream are consumed through the normal stop path long before the
// timer fires; the timer tolerating an already-gone file makes the two
// paths composable.
type Janitor struct {
	manager *Manager
	delay   time.Duration
	keep    func(path string) bool
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithReclaimDelay overrides the default 30-minute reclaim window.
func WithReclaimDelay(d time.Duration) JanitorOption {
	return func(j *Janitor) {
		j.delay = d
	}
}

// WithKeepFunc sets a predicate consulted when the timer fires; files
// it reports as still referenced are spared.
func WithKeepFunc(keep func(path string) bool) JanitorOption {
	return func(j *Janitor) {
		j.keep = keep
	}
}

// NewJanitor creates a janitor for the manager's directory.
func NewJanitor(manager *Manager, opts ...JanitorOption) *Janitor {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Janitor{
		manager: manager,
		delay:   DeferredDeleteDelay,
		logger:  logging.GetLogger("uploads"),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start begins watching the upload directory.
func (j *Janitor) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	j.watcher = watcher

	if addErr := watcher.Add(j.manager.Dir()); addErr != nil {
		watcher.Close()
		return addErr
	}

	j.logger.Info("Upload janitor started", "dir", j.manager.Dir(), "delay", j.delay)
	j.wg.Add(1)
	go j.watch()
	return nil
}

// Stop stops the watcher. Timers already scheduled still fire.
func (j *Janitor) Stop() error {
	j.cancel()
	var err error
	if j.watcher != nil {
		err = j.watcher.Close()
	}
	j.wg.Wait()
	return err
}

func (j *Janitor) watch() {
	defer j.wg.Done()

	for {
		select {
		case <-j.ctx.Done():
			j.logger.Debug("Upload janitor stopped")
			return

		case event, ok := <-j.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == 0 {
				continue
			}
			if !IsVideoFile(event.Name) {
				continue
			}
			j.schedule(event.Name)

		case err, ok := <-j.watcher.Errors:
			if !ok {
				return
			}
			j.logger.Warn("Upload janitor error", "error", err)
		}
	}
}

func (j *Janitor) schedule(path string) {
	j.logger.Debug("Reclaim scheduled for new upload", "path", path, "delay", j.delay)
	time.AfterFunc(j.delay, func() {
		if j.keep != nil && j.keep(path) {
			j.logger.Debug("Reclaim skipped, file still referenced", "path", path)
			return
		}
		j.manager.Delete(path)
	})
}
