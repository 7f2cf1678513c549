package index

import (
	"context"
	"log/slog"

	"github.com/starford/notegraph/internal/checksum"
	"github.com/starford/notegraph/internal/notefile"
	"github.com/starford/notegraph/internal/storage"
)

// Importer applies vault file changes to the note store. ImportFile reports
// whether a new note was created; RemoveFile returns the id of the removed
// note, or "" when no note was mirrored to path.
type Importer interface {
	ImportFile(ctx context.Context, path string, data []byte) (id string, created bool, err error)
	RemoveFile(ctx context.Context, path string) (id string, err error)
}

// EventCallback is called after a file-driven note change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind, id string)

// Sync walks the vault and brings the store up to date:
//   - new/changed files are imported
//   - notes whose file was removed from disk are deleted
//
// An empty vault never deletes notes; it usually means the vault path is
// wrong rather than that every file was removed.
func Sync(ctx context.Context, db *DB, store storage.Provider, imp Importer, logger *slog.Logger) error {
	files, err := store.List("", notefile.Match)
	if err != nil {
		return err
	}

	checksums, err := db.AllFileChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(files))
	notes := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		disk[f.Path] = struct{}{}
		notes++

		if checksums[f.Path] == f.Checksum {
			continue
		}

		data, err := store.Read(f.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if id, _, err := imp.ImportFile(ctx, f.Path, data); err != nil {
			logger.Warn("sync: import failed", slog.String("path", f.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: imported", slog.String("path", f.Path), slog.String("note", id))
		}
	}

	if notes == 0 && len(checksums) > 0 {
		logger.Warn("sync: vault is empty, keeping stored notes", slog.Int("notes", len(checksums)))
		return nil
	}

	// Remove notes whose file is gone.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if id, err := imp.RemoveFile(ctx, p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p), slog.String("note", id))
		}
	}

	return nil
}

// importIfChanged imports the file at path unless it is byte-identical to
// the file last written or read for it. ok is false when nothing changed.
func importIfChanged(ctx context.Context, db *DB, store storage.Provider, imp Importer, path string) (kind, id string, ok bool, err error) {
	data, err := store.Read(path)
	if err != nil {
		return "", "", false, err
	}
	stored, err := db.FileChecksum(path)
	if err != nil {
		return "", "", false, err
	}
	if stored != "" && stored == checksum.Sum(data) {
		return "", "", false, nil
	}
	id, created, err := imp.ImportFile(ctx, path, data)
	if err != nil {
		return "", "", false, err
	}
	kind = "updated"
	if created {
		kind = "created"
	}
	return kind, id, true, nil
}
