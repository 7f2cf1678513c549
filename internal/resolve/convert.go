package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/notegraph/internal/document"
)

var (
	// ErrWouldCreateCycle is matched by *CycleError.
	ErrWouldCreateCycle = errors.New("resolve: embed would create a cycle")
	// ErrNotConvertible is returned when the node cannot change form in place.
	ErrNotConvertible = errors.New("resolve: node cannot be converted")
)

// CycleError reports an embed whose target is already being expanded.
type CycleError struct {
	TargetID string
	Chain    []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("resolve: embedding %q would create a cycle through %s",
		e.TargetID, strings.Join(e.Chain, " > "))
}

func (e *CycleError) Is(target error) bool { return target == ErrWouldCreateCycle }

// ConvertToEmbed returns a copy of doc in which the wiki-link with key k is
// an embed. chain holds the note owning doc and the notes it is embedded in;
// embedding any of them is rejected with a *CycleError. The paragraph that
// held the link is split around the new block.
func ConvertToEmbed(doc *document.Document, k document.Key, chain Chain) (*document.Document, error) {
	n, parent, ok := doc.Find(k)
	if !ok {
		return nil, fmt.Errorf("%w: key %d", document.ErrNodeNotFound, k)
	}
	link, ok := n.(*document.WikiLink)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a wiki-link", ErrNotConvertible, n.Type())
	}
	if link.TargetID == "" {
		return nil, fmt.Errorf("%w: legacy link %q has no target id", ErrNotConvertible, link.LegacyTitle)
	}
	if chain.Contains(link.TargetID) {
		return nil, &CycleError{TargetID: link.TargetID, Chain: chain.IDs()}
	}

	embed := document.NewEmbeddedNote(link.TargetID)
	if parent.AcceptsBlocks() {
		return doc.Replace(k, embed)
	}
	_, grand, ok := doc.Find(parent.Key())
	if !ok || grand == nil || parent.Kind != document.TypeParagraph || !grand.AcceptsBlocks() {
		return nil, fmt.Errorf("%w: embeds cannot be placed inside a %s", ErrNotConvertible, parent.Kind)
	}
	return doc.Replace(parent.Key(), splitAround(parent, k, embed)...)
}

// splitAround returns the blocks that replace paragraph p when its child
// with key k becomes the block b. Empty halves are dropped.
func splitAround(p *document.Element, k document.Key, b document.Node) []document.Node {
	var before, after []document.Node
	seen := false
	for _, c := range p.Children {
		switch {
		case c.Key() == k:
			seen = true
		case seen:
			after = append(after, c)
		default:
			before = append(before, c)
		}
	}
	out := make([]document.Node, 0, 3)
	if len(before) > 0 {
		out = append(out, document.NewParagraph(before...))
	}
	out = append(out, b)
	if len(after) > 0 {
		out = append(out, document.NewParagraph(after...))
	}
	return out
}

// ConvertToLink returns a copy of doc in which the embed with key k is a
// paragraph holding a wiki-link to the same note.
func ConvertToLink(doc *document.Document, k document.Key) (*document.Document, error) {
	n, _, ok := doc.Find(k)
	if !ok {
		return nil, fmt.Errorf("%w: key %d", document.ErrNodeNotFound, k)
	}
	embed, ok := n.(*document.EmbeddedNote)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an embed", ErrNotConvertible, n.Type())
	}
	link := &document.WikiLink{TargetID: embed.TargetID, LegacyTitle: embed.LegacyTitle}
	return doc.Replace(k, document.NewParagraph(link))
}
