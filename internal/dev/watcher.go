package dev

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeType represents the type of file change.
type ChangeType int

const (
	ChangeAsset ChangeType = iota
	ChangeCSS
	ChangeRemove
)

func (t ChangeType) String() string {
	switch t {
	case ChangeCSS:
		return "css"
	case ChangeRemove:
		return "remove"
	default:
		return "asset"
	}
}

// Change represents a detected file change.
type Change struct {
	Path string
	Type ChangeType
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the directories (or files) to watch.
	Paths []string

	// Ignore patterns to skip. Plain names match any path segment; globs
	// without a slash match the base name; globs with a slash match the
	// full slash-separated path.
	Ignore []string

	// Debounce is the quiet period before a batch of changes is reported.
	Debounce time.Duration

	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	".DS_Store",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher reports batches of file changes using fsnotify.
type Watcher struct {
	config   WatcherConfig
	ignore   ignoreSet
	onChange func([]Change)

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	running bool
	pending map[string]Change
	timer   *time.Timer
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Watcher{
		config:  config,
		ignore:  compileIgnore(config.Ignore),
		pending: make(map[string]Change),
	}
}

// OnChange sets the callback for change batches.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start watches until ctx is canceled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		fsw.Close()
		return nil
	}
	w.running = true
	w.fsw = fsw
	w.mu.Unlock()

	for _, p := range w.config.Paths {
		if err := w.watchTree(fsw, p); err != nil {
			w.Stop()
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.config.Logger.Warn("watch error", "error", err)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
	}
	w.fsw.Close()
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// watchTree watches root and, when it is a directory, every directory
// below it that is not ignored.
func (w *Watcher) watchTree(fsw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fsw.Add(root)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		return fsw.Add(p)
	})
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod || w.shouldIgnore(event.Name) {
		return
	}

	change := Change{Path: event.Name, Type: classifyChange(event.Name)}
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		change.Type = ChangeRemove
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			fsw := w.fsw
			w.mu.Unlock()
			if err := w.watchTree(fsw, event.Name); err != nil {
				w.config.Logger.Warn("watch directory failed", "path", event.Name, "error", err)
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.pending[change.Path] = change
	if w.timer == nil {
		w.timer = time.AfterFunc(w.config.Debounce, w.flush)
	} else {
		w.timer.Reset(w.config.Debounce)
	}
}

// flush reports the pending batch sorted by path.
func (w *Watcher) flush() {
	w.mu.Lock()
	callback := w.onChange
	changes := make([]Change, 0, len(w.pending))
	for _, c := range w.pending {
		changes = append(changes, c)
	}
	clear(w.pending)
	w.mu.Unlock()

	if callback == nil || len(changes) == 0 {
		return
	}
	slices.SortFunc(changes, func(a, b Change) int {
		return strings.Compare(a.Path, b.Path)
	})
	callback(changes)
}

func (w *Watcher) shouldIgnore(path string) bool {
	return w.ignore.match(path)
}

// classifyChange determines the type of change based on file extension.
func classifyChange(path string) ChangeType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css", ".scss", ".sass", ".less":
		return ChangeCSS
	default:
		return ChangeAsset
	}
}
