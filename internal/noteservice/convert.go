package noteservice

import (
	"context"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/resolve"
)

// ResolveDetail is how a reference from one note to another renders.
type ResolveDetail struct {
	From    string          `json:"from"`
	Target  string          `json:"target"`
	Outcome resolve.Outcome `json:"outcome"`
	Title   string          `json:"title,omitempty"`
}

// Resolve classifies a reference from note from to target, which is a note
// id or, failing that, a title. parents are the notes from is embedded in.
func (s *Service) Resolve(_ context.Context, from, target string, parents ...string) (*ResolveDetail, error) {
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	if _, ok := coll.Get(from); !ok {
		return nil, apperr.ErrNotFound
	}
	chain := resolve.NewChain(parents...).Extend(from)
	res := resolve.Resolve(target, coll, chain)
	if res.Outcome == resolve.Dangling {
		if legacy := resolve.ResolveLegacy(target, coll, chain); legacy.Outcome != resolve.Dangling {
			res = legacy
		}
	}
	d := &ResolveDetail{From: from, Target: target, Outcome: res.Outcome}
	if res.Note != nil {
		d.Target = res.Note.ID
		d.Title = res.Note.Title
	}
	return d, nil
}

// ConvertToEmbed turns the wiki-link with key into an embed. parents are
// the notes the edited note is shown inside of; embedding any of them or
// the note itself fails with resolve.ErrWouldCreateCycle.
func (s *Service) ConvertToEmbed(ctx context.Context, id string, key uint64, parents []string, ifMatch string) (*NoteDetail, error) {
	chain := resolve.NewChain(parents...).Extend(id)
	return s.convert(ctx, id, ifMatch, func(doc *document.Document) (*document.Document, error) {
		return resolve.ConvertToEmbed(doc, document.Key(key), chain)
	})
}

// ConvertToLink turns the embed with key into a wiki-link.
func (s *Service) ConvertToLink(ctx context.Context, id string, key uint64, ifMatch string) (*NoteDetail, error) {
	return s.convert(ctx, id, ifMatch, func(doc *document.Document) (*document.Document, error) {
		return resolve.ConvertToLink(doc, document.Key(key))
	})
}

func (s *Service) convert(ctx context.Context, id, ifMatch string, fn func(*document.Document) (*document.Document, error)) (*NoteDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != row.Checksum {
		return nil, apperr.ErrConflict
	}
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	note := &row.Note
	doc, err := fn(s.docs.Tree(note))
	if err != nil {
		return nil, err
	}
	note.UpdatedAt = s.now()
	if err := s.save(note, doc, coll, row.Path); err != nil {
		return nil, err
	}
	s.publish("updated", id)
	return s.detail(ctx, id)
}
