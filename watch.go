package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay lets an editor finish writing before the file is re-read.
const reloadDelay = 250 * time.Millisecond

// ConfigWatcher reloads the config file when it changes on disk.
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onReload func(*Config)
}

// NewConfigWatcher watches the directory holding path, so editors that
// replace the file by renaming are seen too.
func NewConfigWatcher(path string, onReload func(*Config)) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &ConfigWatcher{
		path:     filepath.Clean(path),
		watcher:  w,
		onReload: onReload,
	}, nil
}

// Run delivers reloads until ctx is done. This should be called as a
// goroutine.
func (cw *ConfigWatcher) Run(ctx context.Context) {
	defer cw.watcher.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				timer.Reset(reloadDelay)
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)

		case <-timer.C:
			cfg, err := LoadConfig(cw.path)
			if err != nil {
				log.Printf("Reload config: %v", err)
				continue
			}
			log.Printf("Config %s reloaded", cw.path)
			cw.onReload(cfg)
		}
	}
}
