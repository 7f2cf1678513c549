package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notegraph/internal/notefile"
	"github.com/starford/notegraph/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each note change.
//
// Files the service just wrote carry the checksum stored for them and are
// skipped. New directories created at runtime are added to the watch list.
// Rename events trigger a reconciliation pass that removes notes whose files
// no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, imp Importer, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	notify := func(kind, id string) {
		if cb != nil && id != "" {
			cb(kind, id)
		}
	}

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	importPath := func(rel, op string) {
		kind, id, ok, err := importIfChanged(ctx, db, store, imp, rel)
		switch {
		case err != nil:
			logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
		case ok:
			logger.Debug("watcher: imported", slog.String("path", rel), slog.String("op", op), slog.String("note", id))
			notify(kind, id)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(ctx, db, store, imp, logger, notify)

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
					importNewDir(vaultRoot, absPath, func(rel string) { importPath(rel, "create") })
					continue
				}
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil || !notefile.Match(rel, false) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				importPath(rel, ev.Op.String())

			case ev.Op&fsnotify.Remove != 0:
				id, delErr := imp.RemoveFile(ctx, rel)
				if delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel), slog.String("note", id))
				notify("deleted", id)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a Create. A renamed note file keeps its id, so
				// the old entry is left for the reconciliation pass, which
				// runs after the Create has re-pointed it.
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile removes notes whose file is gone and imports files that changed
// since they were last seen.
func reconcile(ctx context.Context, db *DB, store storage.Provider, imp Importer, logger *slog.Logger, notify EventCallback) {
	checksums, err := db.AllFileChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	files, err := store.List("", notefile.Match)
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(files))
	for _, f := range files {
		disk[f.Path] = f.Checksum
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		data, readErr := store.Read(p)
		if readErr != nil {
			continue
		}
		id, created, impErr := imp.ImportFile(ctx, p, data)
		if impErr != nil {
			logger.Warn("reconcile: import failed", slog.String("path", p), slog.String("error", impErr.Error()))
			continue
		}
		logger.Debug("reconcile: imported", slog.String("path", p), slog.String("note", id))
		if created {
			notify("created", id)
		} else {
			notify("updated", id)
		}
	}

	// Re-read: imports above may have moved notes to new paths.
	checksums, err = db.AllFileChecksums()
	if err != nil {
		return
	}
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if id, delErr := imp.RemoveFile(ctx, p); delErr == nil {
			logger.Debug("reconcile: removed stale", slog.String("path", p), slog.String("note", id))
			notify("deleted", id)
		}
	}
}

// importNewDir imports the note files found in a newly created directory.
func importNewDir(vaultRoot, dirPath string, importPath func(rel string)) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil || !notefile.Match(rel, false) {
			return nil
		}
		importPath(rel)
		return nil
	})
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
