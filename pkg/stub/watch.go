package stub

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitrymomot/simpleab/pkg/logger"
)

const defaultWatchDebounce = 200 * time.Millisecond

// Watch reloads path into s whenever the file changes, until ctx is done.
//
// The parent directory is watched so editors that replace the file by rename
// are handled. A fixture that fails to load is logged and the previous data
// stays in place. Watch blocks; run it in its own goroutine.
func Watch(ctx context.Context, s *Store, path string, log *slog.Logger) error {
	if log == nil {
		log = logger.Discard()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve fixture path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		f, err := ReadFixtureFile(abs)
		if err != nil {
			log.WarnContext(ctx, "fixture reload failed", slog.String("path", abs), logger.Error(err))
			return
		}
		s.Apply(f)
		log.InfoContext(ctx, "fixture reloaded", slog.String("path", abs), logger.Count(len(f.Experiments)))
	}
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(defaultWatchDebounce, reload)
	}
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WarnContext(ctx, "fixture watch error", logger.Error(err))
		}
	}
}
