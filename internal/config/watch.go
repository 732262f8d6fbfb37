package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/sonic-net/countersyncd/internal/logging"
)

// WatchForChanges watches the constants file and logs a warning when it
// changes on disk. Unlike the teacher's HotReloadSystem
// (engine/internal/runtime/runtime.go), it never reloads: spec §9 requires
// configuration to be an immutable value constructed once and passed by
// value to every actor, so a changed file can only ever mean "restart the
// daemon to pick this up". Returns immediately (no-op) if path is empty.
func WatchForChanges(ctx context.Context, path string, log *logging.Logger) error {
	if path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return err
	}
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					log.Warn("constants file changed on disk; configuration is immutable for this process, restart to apply", "path", path, "op", event.Op.String())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("constants file watch error", "path", path, "error", err.Error())
			}
		}
	}()
	return nil
}
