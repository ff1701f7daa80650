package cache

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Change kinds reported to an EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// EventCallback is called after a watcher-driven change to a Markdown file.
// path is relative to the watched root, with forward slashes.
type EventCallback func(kind string, path string)

// Invalidator drops cached knowledge about a resource path.
type Invalidator interface {
	Invalidate(path string) error
}

// Watch starts an fsnotify watcher on root and processes file change events
// until ctx is cancelled. Every change to a .md file invalidates the cached
// entry (when inv is non-nil) and calls cb (when non-nil).
//
// New directories created at runtime are added to the watch list, and any
// Markdown files already inside them are reported as created.
func Watch(ctx context.Context, root string, inv Invalidator, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	notify := func(kind, rel string) {
		if inv != nil {
			if err := inv.Invalidate(rel); err != nil {
				logger.Warn("watcher: invalidate failed", slog.String("path", rel), slog.String("error", err.Error()))
			}
		}
		logger.Debug("watcher: changed", slog.String("path", rel), slog.String("op", kind))
		if cb != nil {
			cb(kind, rel)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					walkMarkdown(root, absPath, func(rel string) { notify(KindCreated, rel) })
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}
			rel, ok := relPath(root, absPath)
			if !ok {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				notify(KindCreated, rel)
			case ev.Op&fsnotify.Write != 0:
				notify(KindUpdated, rel)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old name only; the new name arrives as Create.
				notify(KindDeleted, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// walkMarkdown reports every .md file below dir as a path relative to root.
func walkMarkdown(root, dir string, fn func(rel string)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		if rel, ok := relPath(root, p); ok {
			fn(rel)
		}
		return nil
	})
}

func relPath(root, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
