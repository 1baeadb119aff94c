package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher loads RDF files as they appear or change under a directory.
// Events for one path are coalesced until it has been quiet for the
// debounce delay.
type Watcher struct {
	loader   *BulkLoader
	dir      string
	patterns []string
	template LoadTask
	debounce time.Duration
	logger   *slog.Logger

	// loaded receives the outcome of every flush; used by tests.
	loaded func(files []string, err error)
}

// NewWatcher watches dir for files matching patterns (DefaultPatterns when
// empty). Every loaded file uses template's base URI and contexts.
func NewWatcher(loader *BulkLoader, dir string, patterns []string, template LoadTask, debounce time.Duration, logger *slog.Logger) *Watcher {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		loader:   loader,
		dir:      dir,
		patterns: patterns,
		template: template,
		debounce: debounce,
		logger:   logger.With("component", "watcher", "dir", dir),
	}
}

// Run blocks until ctx is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addRecursive(fsw, w.dir); err != nil {
		return err
	}
	w.logger.Info("watching for rdf files", "debounce", w.debounce)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, ev, pending)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case now := <-ticker.C:
			var due []string
			for path, last := range pending {
				if now.Sub(last) >= w.debounce {
					due = append(due, path)
					delete(pending, path)
				}
			}
			if len(due) > 0 {
				w.flush(ctx, due)
			}
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, ev fsnotify.Event, pending map[string]time.Time) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			if err := w.addRecursive(fsw, ev.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", ev.Name, "error", err)
			}
		}
		return
	}
	rel, err := filepath.Rel(w.dir, ev.Name)
	if err != nil || !MatchesAny(w.patterns, rel) {
		return
	}
	pending[ev.Name] = time.Now()
}

func (w *Watcher) flush(ctx context.Context, files []string) {
	sort.Strings(files)
	tasks := Tasks(files, w.template.BaseURI, w.template.Contexts...)
	for i := range tasks {
		tasks[i].Format = w.template.Format
	}
	_, err := w.loader.Load(ctx, tasks)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Warn("load after change failed", "files", len(files), "error", err)
	}
	if w.loaded != nil {
		w.loaded(files, err)
	}
}

func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
