package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// Watch runs one generation batch and then re-runs it whenever a resolved
// model definition file changes. Every run is reported through `onRun`;
// run failures are reported, not fatal. Watch blocks until the watcher
// itself fails or `stop` is closed.
func Watch(s Settings, stop <-chan struct{}, onRun func(*Report, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	resolved, err := applyConfig(s)
	if err != nil {
		return err
	}

	files, err := resolveSources(resolved)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no model definition files found")
	}

	watched := make(map[string]bool)
	// Watch directories rather than files so editors that replace files
	// on save keep being tracked.
	for _, f := range files {
		dir := filepath.Dir(f)
		if !watched[dir] {
			watched[dir] = true
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf(`failed to watch "%s": %w`, dir, err)
			}
		}
		watched[f] = true
	}

	report, runErr := Run(s)
	onRun(report, runErr)

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[event.Name] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
				fire = debounce.C
			} else {
				debounce.Reset(watchDebounce)
			}
		case <-fire:
			debounce = nil
			fire = nil
			report, runErr := Run(s)
			onRun(report, runErr)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher failed: %w", watchErr)
		}
	}
}
