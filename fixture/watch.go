package fixture

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long changes are collected before a callback.
const DefaultDebounce = 300 * time.Millisecond

// WatchConfig configures a Watcher.
type WatchConfig struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher reports changed fixture files below a set of directories.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]fsnotify.Op
}

// NewWatcher starts watching dirs and all their non-hidden subdirectories.
func NewWatcher(dirs []string, config WatchConfig) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{
		fsw:      fsw,
		debounce: config.Debounce,
		logger:   config.Logger,
		pending:  make(map[string]fsnotify.Op),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for _, dir := range dirs {
		if err := w.addRecursive(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.logger.Debug("watching directory", "path", path)
		return nil
	})
}

// Run delivers batches of changed YAML files to fn until ctx is done or the
// watcher is closed. fn runs on the watcher goroutine.
func (w *Watcher) Run(ctx context.Context, fn func(changed []string)) error {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			if changed := w.flush(); len(changed) > 0 {
				fn(changed)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name
	if !isYAML(path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() &&
				!strings.HasPrefix(filepath.Base(path), ".") {
				if err := w.addRecursive(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
		}
		return
	}

	w.mu.Lock()
	w.pending[path] |= event.Op
	w.mu.Unlock()
	w.logger.Debug("fixture change detected", "path", path, "op", event.Op.String())
}

func (w *Watcher) flush() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	w.pending = make(map[string]fsnotify.Op)
	sort.Strings(changed)
	return changed
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Watch runs a Watcher over dirs until ctx is done.
func Watch(ctx context.Context, dirs []string, config WatchConfig, fn func(changed []string)) error {
	w, err := NewWatcher(dirs, config)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.Run(ctx, fn)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
