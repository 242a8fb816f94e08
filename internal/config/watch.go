package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events editors emit for one save.
const reloadDelay = 100 * time.Millisecond

// Watch reloads path into store whenever the file changes, until ctx ends.
// The parent directory is watched so atomic rename-on-save is picked up.
// A file that fails to load is logged and the previous snapshot stays active.
func Watch(ctx context.Context, path string, store *Store) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return fmt.Errorf("config: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer w.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					pending = time.After(reloadDelay)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watch error", "error", err)
			case <-pending:
				pending = nil
				reload(path, store)
			}
		}
	}()
	return nil
}

func reload(path string, store *Store) {
	cfg, err := Load(path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous settings", "path", path, "error", err)
		return
	}
	change := store.Update(cfg)
	if len(change.Keys) > 0 {
		slog.Info("config reloaded", "path", path, "changed", change.Keys)
	}
}
