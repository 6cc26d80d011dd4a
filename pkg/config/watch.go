package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reloads path whenever it is written or replaced and hands the new configuration to onChange.
// The parent directory is watched so that editors saving through a rename keep triggering reloads.
// Files that fail to parse or validate are logged and skipped. Runs until ctx is done.
func Watch(ctx context.Context, path string, onChange func(TestConfiguration)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	log.Debugf("Watching %s for configuration changes.", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// a rename onto path arrives as Create
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := ReadConfigurationFile(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				log.Errorf("Configuration reload of %s failed, keeping the previous one: %v", path, err)
				continue
			}

			log.Infof("Configuration %s reloaded.", path)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Configuration watcher error: ", err)
		}
	}
}
