package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/austinkregel/local-media/playerd/internal/logging"
)

// reloadDelay coalesces the burst of events editors produce on save
const reloadDelay = 100 * time.Millisecond

// Watch reloads the config file whenever it changes and calls fn with the
// new configuration. Invalid files are logged and skipped. It blocks until
// ctx is cancelled.
func (m *Manager) Watch(ctx context.Context, fn func(*Config)) error {
	log := logging.For("config")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: editors replace the file rather than write it
	if err := watcher.Add(m.configDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.configDir, err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(reloadDelay)
			}

		case <-pending:
			pending = nil
			cfg, err := LoadFrom(m.configPath)
			if err != nil {
				log.Warn().Err(err).Msg("ignoring config change")
				continue
			}
			m.set(cfg)
			log.Info().Str("path", m.configPath).Msg("config reloaded")
			if fn != nil {
				fn(cfg)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watcher error")
		}
	}
}
