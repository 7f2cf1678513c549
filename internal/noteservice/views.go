package noteservice

import (
	"context"

	"github.com/starford/notegraph/internal/markdown"
	"github.com/starford/notegraph/internal/resolve"
)

// ViewDetail is a note rendered with its embeds expanded.
type ViewDetail struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Chain []string      `json:"chain"`
	Refs  []RefViewItem `json:"refs"`
	// Markdown is the note's body; embeds are listed in Refs.
	Markdown string `json:"markdown"`
}

// RefViewItem is one resolved reference of a view.
type RefViewItem struct {
	Key       uint64          `json:"key"`
	TargetID  string          `json:"targetId,omitempty"`
	Embed     bool            `json:"embed"`
	Outcome   resolve.Outcome `json:"outcome"`
	Render    resolve.Render  `json:"render"`
	Truncated bool            `json:"truncated,omitempty"`
	Embedded  *ViewDetail     `json:"embedded,omitempty"`
}

// View expands a note's embeds. parents are the ids of the notes the view
// is shown inside of, outermost first; a reference back to any of them
// renders as a link.
func (s *Service) View(_ context.Context, id string, parents ...string) (*ViewDetail, error) {
	row, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	note, _ := coll.Get(id)
	if note == nil {
		note = &row.Note
	}
	x := &resolve.Expander{Notes: coll, Trees: s.docs, MaxDepth: s.maxEmbedDepth, Logger: s.logger}
	v := x.ExpandWithin(note, resolve.NewChain(parents...))
	return viewDetail(v, s.markdownOptions(coll)), nil
}

func viewDetail(v *resolve.View, opts []markdown.Option) *ViewDetail {
	d := &ViewDetail{
		ID:       v.NoteID,
		Title:    v.Title,
		Chain:    v.Chain.IDs(),
		Refs:     []RefViewItem{},
		Markdown: markdown.Export(v.Doc, opts...),
	}
	for _, r := range v.Refs {
		item := RefViewItem{
			Key:       uint64(r.Ref.Key),
			TargetID:  r.Resolution.TargetID,
			Embed:     r.Ref.Embed,
			Outcome:   r.Resolution.Outcome,
			Render:    r.Render,
			Truncated: r.Truncated,
		}
		if r.Embedded != nil {
			item.Embedded = viewDetail(r.Embedded, opts)
		}
		d.Refs = append(d.Refs, item)
	}
	return d
}
