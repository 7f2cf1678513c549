package resolve

import (
	"log/slog"

	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/models"
)

// DefaultMaxDepth bounds embed nesting independently of cycle detection.
const DefaultMaxDepth = 32

// Trees returns the parsed document of a note. Implementations decide how
// parsed trees are cached.
type Trees interface {
	Tree(n *models.Note) *document.Document
}

// TreesFunc adapts a function to Trees.
type TreesFunc func(n *models.Note) *document.Document

func (f TreesFunc) Tree(n *models.Note) *document.Document { return f(n) }

// Render says how a reference is displayed.
type Render string

const (
	RenderEmbed   Render = "embed"
	RenderLink    Render = "link"
	RenderMissing Render = "missing"
)

// View is a note's document with every reference resolved. Embeds that
// render as embeds carry the expanded view of their target.
type View struct {
	NoteID string
	Title  string
	Doc    *document.Document
	Chain  Chain
	Refs   []RefView
}

// RefView is the resolution of one reference occurrence.
type RefView struct {
	Ref        document.Ref
	Resolution Resolution
	Render     Render
	// Truncated is set when an embed was downgraded because the nesting
	// limit was reached rather than because of a cycle.
	Truncated bool
	Embedded  *View
}

// Expander builds Views.
type Expander struct {
	Notes    Lookup
	Trees    Trees
	MaxDepth int
	Logger   *slog.Logger
}

// Expand resolves note's document with note as the only ancestor.
func (x *Expander) Expand(note *models.Note) *View {
	return x.ExpandWithin(note, Chain{})
}

// ExpandWithin resolves note's document as if it were embedded below the
// notes in parents.
func (x *Expander) ExpandWithin(note *models.Note, parents Chain) *View {
	return x.expand(note, parents.Extend(note.ID))
}

func (x *Expander) expand(note *models.Note, chain Chain) *View {
	doc := x.Trees.Tree(note)
	v := &View{NoteID: note.ID, Title: note.Title, Doc: doc, Chain: chain}

	for _, ref := range document.Refs(doc) {
		var res Resolution
		if ref.TargetID == "" && ref.LegacyTitle != "" {
			res = ResolveLegacy(ref.LegacyTitle, x.Notes, chain)
		} else {
			res = Resolve(ref.TargetID, x.Notes, chain)
		}
		rv := RefView{Ref: ref, Resolution: res}

		switch {
		case res.Outcome == Dangling:
			rv.Render = RenderMissing
		case !ref.Embed:
			rv.Render = RenderLink
		case res.Outcome == Circular:
			rv.Render = RenderLink
			x.logger().Debug("circular embed rendered as link",
				slog.String("note", note.ID),
				slog.String("target", res.TargetID),
				slog.String("chain", chain.String()))
		case chain.Len() >= x.maxDepth():
			rv.Render = RenderLink
			rv.Truncated = true
		default:
			rv.Render = RenderEmbed
			rv.Embedded = x.expand(res.Note, chain.Extend(res.Note.ID))
		}
		v.Refs = append(v.Refs, rv)
	}
	return v
}

func (x *Expander) maxDepth() int {
	if x.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return x.MaxDepth
}

func (x *Expander) logger() *slog.Logger {
	if x.Logger == nil {
		return slog.Default()
	}
	return x.Logger
}

// Ref returns the resolution of the reference with key k.
func (v *View) Ref(k document.Key) (RefView, bool) {
	for _, r := range v.Refs {
		if r.Ref.Key == k {
			return r, true
		}
	}
	return RefView{}, false
}

// Depth returns the deepest embed nesting in v, counting v itself as 1.
func (v *View) Depth() int {
	d := 0
	for _, r := range v.Refs {
		if r.Embedded != nil {
			d = max(d, r.Embedded.Depth())
		}
	}
	return d + 1
}
