package humanoid

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchPauseFile drives the gate from a marker file: creating the file pauses
// every engine, removing it resumes. The watcher runs until ctx is cancelled.
// This is the only external trigger that touches the gate.
func WatchPauseFile(ctx context.Context, path string, gate *PauseGate, log *zap.Logger) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	sync := func() {
		_, err := os.Stat(path)
		switch {
		case err == nil && !gate.Requested():
			log.Warn("pause requested", zap.String("file", path))
			gate.Request()
		case os.IsNotExist(err) && gate.Requested():
			log.Info("pause cleared", zap.String("file", path))
			gate.Clear()
		}
	}
	sync() // pick up a pause file that predates the run

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) == filepath.Clean(path) {
					sync()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("pause watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
