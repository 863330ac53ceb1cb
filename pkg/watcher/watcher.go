package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/pipeline-builder/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeModified ChangeType = iota // written or (re)created
	ChangeTypeRemoved                    // removed or renamed away
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeModified:
		return "modified"
	case ChangeTypeRemoved:
		return "removed"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

const batchWindow = 100 * time.Millisecond

// FileWatcher watches a single file. The parent directory is watched so that
// editors that save by rename-and-replace are seen as well.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	path    string
	events  chan ChangeEvent
	done    chan struct{}
}

// NewFileWatcher creates a watcher for the file at path
func NewFileWatcher(path string) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		path:    abs,
		events:  make(chan ChangeEvent, 100),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. Events stop and the channel is closed when ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(fw.path)
	if err := fw.watcher.Add(dir); err != nil {
		fw.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	logging.Info("watching file", "path", fw.path)
	go fw.processEvents(ctx)
	return nil
}

// processEvents filters events to the watched file and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	var modified, removed []string

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		if len(removed) > 0 {
			fw.events <- ChangeEvent{Type: ChangeTypeRemoved, Paths: removed, Timestamp: time.Now()}
			removed = nil
		}
		if len(modified) > 0 {
			fw.events <- ChangeEvent{Type: ChangeTypeModified, Paths: modified, Timestamp: time.Now()}
			modified = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			close(fw.events)
			close(fw.done)
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}

			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				modified = append(modified, event.Name)
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				removed = append(removed, event.Name)
			default:
				continue
			}
			logging.Trace("file event", "path", event.Name, "op", event.Op.String())
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Done is closed once the watcher has shut down
func (fw *FileWatcher) Done() <-chan struct{} {
	return fw.done
}
