package noteservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/checksum"
	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/index"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/notefile"
	"github.com/starford/notegraph/internal/storage"
)

var _ index.Importer = (*Service)(nil)

// ExportMarkdown returns the markdown file of a note and its file name.
func (s *Service) ExportMarkdown(_ context.Context, id string) (string, []byte, error) {
	row, err := s.db.GetNote(id)
	if err != nil {
		return "", nil, err
	}
	coll, err := s.collection()
	if err != nil {
		return "", nil, err
	}
	data, err := s.codec(coll).Encode(&row.Note, s.docs.Tree(&row.Note))
	if err != nil {
		return "", nil, err
	}
	return notefile.FileName(&row.Note), data, nil
}

// ImportMarkdown stores the note file data as a note. A note with the same
// id is replaced. created reports whether the note is new.
func (s *Service) ImportMarkdown(ctx context.Context, name string, data []byte) (*NoteDetail, bool, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, fmt.Errorf("%w: empty file", apperr.ErrInvalidInput)
	}

	s.mu.Lock()
	coll, err := s.collection()
	if err != nil {
		s.mu.Unlock()
		return nil, false, err
	}
	note, doc, err := s.codec(coll).Decode(name, data)
	if err != nil {
		s.mu.Unlock()
		return nil, false, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	created, err := s.storeImported(note, doc, coll)
	s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}

	s.publish(eventKind(created), note.ID)
	d, err := s.detail(ctx, note.ID)
	return d, created, err
}

// ImportSummary counts the outcome of a directory import.
type ImportSummary struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  []string `json:"failed"`
}

// ImportDir imports every note file below dir into the vault. Files are
// read twice: the first pass learns the titles of the imported notes, so
// that [[Title]] links between them resolve to ids in the second.
func (s *Service) ImportDir(ctx context.Context, dir string) (*ImportSummary, error) {
	src, err := storage.NewFS(dir)
	if err != nil {
		return nil, err
	}
	files, err := src.List("", notefile.Match)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sum := &ImportSummary{Failed: []string{}}
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}

	type pending struct {
		path string
		data []byte
		id   string
	}
	var batch []pending
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := src.Read(f.Path)
		if err != nil {
			s.logger.Warn("import: read failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			sum.Failed = append(sum.Failed, f.Path)
			continue
		}
		note, _, err := s.codec(coll).Decode(f.Path, data)
		if err != nil {
			sum.Failed = append(sum.Failed, f.Path)
			continue
		}
		coll = withNote(coll, note)
		batch = append(batch, pending{path: f.Path, data: data, id: note.ID})
	}

	for _, p := range batch {
		c := s.codec(coll)
		c.FallbackID = p.id
		note, doc, err := c.Decode(p.path, p.data)
		if err != nil {
			sum.Failed = append(sum.Failed, p.path)
			continue
		}
		created, err := s.storeImported(note, doc, coll)
		if err != nil {
			s.logger.Warn("import: store failed", slog.String("path", p.path), slog.String("error", err.Error()))
			sum.Failed = append(sum.Failed, p.path)
			continue
		}
		if created {
			sum.Created++
		} else {
			sum.Updated++
		}
		s.publish(eventKind(created), note.ID)
	}
	s.logger.Info("import finished",
		slog.String("dir", dir),
		slog.Int("created", sum.Created),
		slog.Int("updated", sum.Updated),
		slog.Int("failed", len(sum.Failed)))
	return sum, nil
}

// storeImported saves an imported note into the vault under its canonical file
// name. Callers hold s.mu.
func (s *Service) storeImported(note *models.Note, doc *document.Document, coll *models.Collection) (bool, error) {
	existing, err := s.db.GetNote(note.ID)
	created := errors.Is(err, apperr.ErrNotFound)
	if err != nil && !created {
		return false, err
	}
	prevPath := ""
	if created {
		if note.Position == 0 {
			note.Position = coll.Len()
		}
	} else {
		prevPath = existing.Path
		if note.Position == 0 {
			note.Position = existing.Position
		}
	}
	note.UpdatedAt = s.now()
	return created, s.save(note, doc, withNote(coll, note), prevPath)
}

// ImportFile stores the vault file at path as it is on disk: the file is
// not rewritten. A file without an id keeps the id of the note it was
// mirrored to before. A title change is propagated to the notes that
// reference it.
func (s *Service) ImportFile(ctx context.Context, path string, data []byte) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.collection()
	if err != nil {
		return "", false, err
	}
	c := s.codec(coll)
	if prev, err := s.db.GetByPath(path); err == nil {
		c.FallbackID = prev.ID
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return "", false, err
	}
	note, doc, err := c.Decode(path, data)
	if err != nil {
		return "", false, err
	}

	existing, err := s.db.GetNote(note.ID)
	created := errors.Is(err, apperr.ErrNotFound)
	if err != nil && !created {
		return "", false, err
	}
	if created {
		if note.Position == 0 {
			note.Position = coll.Len()
		}
	} else {
		if existing.Path != "" && existing.Path != path && s.store.Exists(existing.Path) {
			s.logger.Warn("note id mirrored by two files",
				slog.String("note", note.ID),
				slog.String("path", path),
				slog.String("other", existing.Path))
		}
		if note.Position == 0 {
			note.Position = existing.Position
		}
		note.CreatedAt = existing.CreatedAt
	}
	note.UpdatedAt = s.now()
	note.Checksum = checksum.Sum([]byte(note.Content))
	coll = withNote(coll, note)

	row := index.NoteRow{Note: *note, Path: path, FileChecksum: checksum.Sum(data)}
	if err := s.db.UpsertNote(row, doc.PlainText(), linksOf(note.ID, doc, coll)); err != nil {
		return "", false, err
	}

	if !created && existing.Title != note.Title {
		self, err := s.propagate(coll, note.ID, existing.Title)
		if err != nil {
			return note.ID, false, err
		}
		if self != nil {
			if err := s.save(note, self, coll, path); err != nil {
				return note.ID, false, err
			}
		}
	}
	return note.ID, created, nil
}

// RemoveFile deletes the note mirrored to path. It returns "" when there
// is none.
func (s *Service) RemoveFile(_ context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.db.GetByPath(path)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.ID, s.db.DeleteNote(row.ID)
}

// SyncVault imports vault files changed since they were last stored and
// removes notes whose file is gone.
func (s *Service) SyncVault(ctx context.Context) error {
	return index.Sync(ctx, s.db, s.store, s, s.logger)
}

// ExportedFile is one file of a bulk export.
type ExportedFile struct {
	NoteID  string `json:"noteId"`
	Path    string `json:"path"`
	Old     string `json:"-"`
	New     string `json:"-"`
	Changed bool   `json:"changed"`
}

// ExportAll writes every note to dir in collection order. With dryRun
// nothing is written; the result still shows what would change.
func (s *Service) ExportAll(ctx context.Context, dir string, dryRun bool) ([]ExportedFile, error) {
	dst, err := storage.NewFS(dir)
	if err != nil {
		return nil, err
	}
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	codec := s.codec(coll)
	notes := coll.All()
	out := make([]ExportedFile, len(notes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, n := range notes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := codec.Encode(n, s.docs.Tree(n))
			if err != nil {
				return err
			}
			f := ExportedFile{NoteID: n.ID, Path: notefile.FileName(n), New: string(data)}
			if dst.Exists(f.Path) {
				old, err := dst.Read(f.Path)
				if err != nil {
					return err
				}
				f.Old = string(old)
			}
			f.Changed = f.Old != f.New
			if f.Changed && !dryRun {
				if err := dst.Write(f.Path, data); err != nil {
					return fmt.Errorf("noteservice: export %s: %w", f.Path, err)
				}
			}
			out[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func eventKind(created bool) string {
	if created {
		return "created"
	}
	return "updated"
}
