package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/rename"
)

// Rename changes the title of a note. Legacy links that named the old title
// are migrated to the note's id, and the files of notes that show the title
// are written again.
func (s *Service) Rename(ctx context.Context, id, title, ifMatch string) (*NoteDetail, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != row.Checksum {
		return nil, apperr.ErrConflict
	}
	oldTitle := row.Title
	if oldTitle == title {
		return s.detail(ctx, id)
	}

	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	note := &row.Note
	note.Title = title
	note.UpdatedAt = s.now()
	coll = withNote(coll, note)

	doc, err := s.propagate(coll, id, oldTitle)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = s.docs.Tree(note)
	}
	if err := s.save(note, doc, coll, row.Path); err != nil {
		return nil, err
	}
	s.logger.Info("note renamed",
		slog.String("note", id), slog.String("from", oldTitle), slog.String("to", title))
	s.publish("renamed", id)
	return s.detail(ctx, id)
}

// propagate applies the effects of renaming id from oldTitle to the other
// notes of coll, which already holds the new title. It returns the migrated
// document of the renamed note itself, or nil when it had no legacy links
// to its own old title.
func (s *Service) propagate(coll *models.Collection, id, oldTitle string) (*document.Document, error) {
	res, err := rename.Propagate(coll, s.docs, id, oldTitle)
	if err != nil {
		return nil, err
	}

	touched := make(map[string]bool, len(res.Updated)+len(res.Stale))
	var order []string
	for _, n := range coll.All() {
		if n.ID == id {
			continue
		}
		_, updated := res.Updated[n.ID]
		if updated && !touched[n.ID] {
			touched[n.ID] = true
			order = append(order, n.ID)
		}
	}
	for _, sid := range res.Stale {
		if !touched[sid] {
			touched[sid] = true
			order = append(order, sid)
		}
	}

	for _, nid := range order {
		if err := s.rewrite(nid, res.Updated[nid], coll); err != nil {
			return nil, fmt.Errorf("noteservice: rewrite %s after rename: %w", nid, err)
		}
		if _, migrated := res.Updated[nid]; migrated {
			s.publish("updated", nid)
		}
	}
	return res.Updated[id], nil
}
