// Package watcher evicts cached sources when their files change on disk.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"funcfile/internal/cache"
	"funcfile/internal/parser"
	"funcfile/internal/utils"
)

// Watcher evicts cache entries for JavaScript files that are written, created,
// removed or renamed under the watched paths.
type Watcher struct {
	watcher *fsnotify.Watcher
	cache   *cache.Cache
	logger  *slog.Logger
}

// New creates a watcher evicting from c. A nil logger uses slog.Default().
func New(c *cache.Cache, logger *slog.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{watcher: w, cache: c, logger: logger}, nil
}

// Add watches a file or, recursively, a directory of sources. Files are watched
// through their parent directory so editors that replace files are noticed.
func (w *Watcher) Add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(path))
	}

	dirs, err := utils.GetSourceDirs(path)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("unable to watch directory", "dir", dir, "error", err)
		}
	}
	return nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !parser.IsSourceFile(event.Name) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	changed := absPath(event.Name)
	n := w.cache.EvictMatching(func(path string) bool {
		return absPath(path) == changed
	})
	if n > 0 {
		w.logger.Debug("evicted changed source", "path", event.Name, "op", event.Op.String(), "entries", n)
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
