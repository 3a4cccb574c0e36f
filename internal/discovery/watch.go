package discovery

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mcpportal/gateway/pkg/logging"
)

const debounceInterval = 500 * time.Millisecond

// Watch watches every known config location's parent directory and invokes
// onChange (typically d.Reconcile, wrapped by the caller) after a
// debounce(500ms) window of quiet following the last detected write. It
// mirrors the teacher's FilesystemDetector debounce idiom. Missing
// directories are skipped rather than failing the whole watch.
func (d *Discovery) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, loc := range knownLocations(d.homeDir, d.manualDir) {
		dir := parentDir(loc.path)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if err := watcher.Add(dir); err != nil {
			logging.Debug("Discovery", "not watching %s: %v", dir, err)
			continue
		}
	}

	go d.processWatchEvents(ctx, watcher, onChange)
	return nil
}

func (d *Discovery) processWatchEvents(ctx context.Context, watcher *fsnotify.Watcher, onChange func()) {
	defer watcher.Close()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounceInterval, onChange)
			} else {
				timer.Reset(debounceInterval)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Discovery", "watch error: %v", err)
		}
	}
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[:i]
		}
	}
	return "."
}
