package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bastiangx/nickserve/internal/logger"
	"github.com/bastiangx/nickserve/internal/utils"
)

// debounce collapses the burst of events editors produce on save.
const debounce = 150 * time.Millisecond

// Watch reloads the config at configPath whenever it changes and sends the
// result on out. It blocks until ctx is done. The parent directory is watched
// rather than the file, so atomic replace-by-rename saves are seen too.
func Watch(ctx context.Context, configPath string, out chan<- *Config) error {
	lg := logger.New("watch")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(configPath)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}
	lg.Debugf("watching %s", target)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			lg.Warnf("watch error: %v", err)

		case <-timer.C:
			if !utils.FileExists(target) {
				continue
			}
			cfg, err := loadStrict(target)
			if err != nil {
				lg.Warnf("reload failed, keeping current config: %v", err)
				continue
			}
			lg.Debug("config reloaded", "path", target)
			select {
			case out <- cfg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
