package watcher

import (
	"context"
	"time"

	"github.com/ritzau/pipeline-builder/pkg/logging"
)

// ReloadFunc is called once per debounced change
type ReloadFunc func(ChangeEvent) error

// WatchAndReload watches path and calls reload after each burst of changes.
// It returns once watching has started; reloads run until ctx is done.
// Reload errors are logged and watching continues.
func WatchAndReload(ctx context.Context, path string, quietPeriod time.Duration, reload ReloadFunc) error {
	fw, err := NewFileWatcher(path)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	d := NewDebouncer(fw.Events(), quietPeriod, 10*quietPeriod)
	d.Start(ctx)

	go func() {
		for event := range d.Output() {
			logging.Info("file changed, reloading", "type", event.Type.String(), "path", path)
			if err := reload(event); err != nil {
				logging.Error("reload failed", "path", path, "error", err)
			}
		}
	}()
	return nil
}
