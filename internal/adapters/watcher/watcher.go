package watcher

import (
	"context"
	"iter"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Watcher = (*Watcher)(nil)

const eventChannelBuffer = 100

// Watcher implements ports.Watcher using fsnotify. Cargo rewrites lockfiles
// through a rename, so directories are watched rather than files.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	logger    ports.Logger
	events    chan ports.WatchEvent
	stopOnce  sync.Once

	mu      sync.Mutex
	watched map[string]struct{}
}

// NewWatcher creates a new file system watcher.
func NewWatcher(logger ports.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create file watcher")
	}
	return &Watcher{
		fsWatcher: w,
		logger:    logger,
		events:    make(chan ports.WatchEvent, eventChannelBuffer),
		watched:   make(map[string]struct{}),
	}, nil
}

// Start watches dirs and begins delivering events until ctx is done or Stop is called.
// Directories that cannot be watched are skipped with a warning.
func (w *Watcher) Start(ctx context.Context, dirs []string) error {
	if w.Add(dirs) == 0 && len(dirs) > 0 {
		return zerr.With(zerr.New("no directory could be watched"), "dirs", len(dirs))
	}

	go w.processEvents(ctx)
	return nil
}

// Add watches dirs that are not watched yet. Directories that cannot be
// watched are skipped with a warning.
func (w *Watcher) Add(dirs []string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	var added int
	for _, dir := range dirs {
		if _, ok := w.watched[dir]; ok {
			continue
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			w.logger.Warn("not watching " + dir + ": " + err.Error())
			continue
		}
		w.watched[dir] = struct{}{}
		added++
	}
	return added
}

// Stop stops the watcher and releases all resources.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.fsWatcher.Close()
	})
	return err
}

// Events returns an iterator of file system events. It ends when the watcher stops.
func (w *Watcher) Events() iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for event := range w.events {
			if !yield(event) {
				return
			}
		}
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			watchEvent, relevant := convertEvent(event)
			if !relevant {
				continue
			}
			select {
			case w.events <- watchEvent:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher: " + err.Error())
		}
	}
}

// convertEvent keeps changes to manifests and lockfiles only.
func convertEvent(event fsnotify.Event) (ports.WatchEvent, bool) {
	switch filepath.Base(event.Name) {
	case domain.LockfileName, domain.ManifestFileName:
	default:
		return ports.WatchEvent{}, false
	}

	ev := ports.WatchEvent{Path: event.Name}
	switch {
	case event.Has(fsnotify.Write):
		ev.Operation = ports.OpWrite
	case event.Has(fsnotify.Create):
		ev.Operation = ports.OpCreate
	case event.Has(fsnotify.Remove):
		ev.Operation = ports.OpRemove
	case event.Has(fsnotify.Rename):
		ev.Operation = ports.OpRename
	default:
		return ports.WatchEvent{}, false
	}
	return ev, true
}
