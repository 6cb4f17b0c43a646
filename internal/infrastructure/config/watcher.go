package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/framegate/framegate/pkg/safego"
)

// Watch observes the config file and calls onChange after each write.
// The returned stop function releases the watcher. Used to adjust the
// log level at runtime without a restart.
func Watch(configFile string, logger *zap.Logger, onChange func()) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on
	// save and a direct file watch goes stale.
	dir := filepath.Dir(configFile)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	target := filepath.Clean(configFile)

	safego.Go(logger, "config-watcher", func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				logger.Info("Config file changed, reloading", zap.String("file", event.Name))
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher error", zap.Error(err))
			}
		}
	})

	return func() { watcher.Close() }, nil
}
