package graphstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrNothingToWatch is returned when no graph source is a local file.
var ErrNothingToWatch = errors.New("no local graph source to watch")

// LocalPath returns the filesystem path of a plain path or file:// location.
func LocalPath(location string) (string, bool) {
	if SchemeOf(location) != "file" {
		return "", false
	}
	return filepath.Clean(strings.TrimPrefix(location, "file://")), true
}

// Watcher reloads the store when a local graph document changes on disk.
// Directories are watched rather than the files so editors that replace a
// file by rename are still seen.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	stopCh chan struct{}
	done   chan struct{}
}

// NewWatcher starts watching every local location. Remote locations are
// ignored.
func NewWatcher(store *Store, locations []string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	files := make(map[string]struct{})
	for _, loc := range locations {
		if path, ok := LocalPath(loc); ok {
			files[path] = struct{}{}
		}
	}
	if len(files) == 0 {
		return nil, ErrNothingToWatch
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	dirs := make(map[string]struct{})
	for path := range files {
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsWatcher.Add(dir); err != nil {
			fsWatcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w := &Watcher{
		store:    store,
		watcher:  fsWatcher,
		files:    files,
		debounce: debounce,
		logger:   logger.Named("graphstore.watch"),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()

	w.logger.Info("Watching graph sources", zap.Int("files", len(files)))
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if _, tracked := w.files[filepath.Clean(event.Name)]; !tracked {
				continue
			}
			w.logger.Debug("Graph source changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

// schedule coalesces a burst of writes into one reload.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.stopCh:
		return
	default:
	}

	w.store.Invalidate()
	if err := w.store.Preload(context.Background()); err != nil {
		w.logger.Warn("Graph reload failed, next request retries", zap.Error(err))
		return
	}
	w.logger.Info("Graph reloaded after source change")
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	<-w.done
	return nil
}
