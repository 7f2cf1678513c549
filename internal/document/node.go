// Package document models note content as a tree of typed nodes.
//
// A Document is a root element whose children are block nodes. Block
// elements hold inline nodes (text, links, inline math) or further blocks
// (lists, tables). Decorator nodes carry a payload and have no children.
// Every node variant serializes to a JSON object with a "type"
// discriminator and a "version".
package document

import "strings"

// CurrentVersion is written into every exported node.
const CurrentVersion = 1

// Type discriminates node variants in the serialized form.
type Type string

const (
	TypeRoot           Type = "root"
	TypeParagraph      Type = "paragraph"
	TypeHeading        Type = "heading"
	TypeList           Type = "list"
	TypeListItem       Type = "listitem"
	TypeQuote          Type = "quote"
	TypeCode           Type = "code"
	TypeTable          Type = "table"
	TypeTableRow       Type = "tablerow"
	TypeTableCell      Type = "tablecell"
	TypeLink           Type = "link"
	TypeAutoLink       Type = "autolink"
	TypeText           Type = "text"
	TypeLineBreak      Type = "linebreak"
	TypeWikiLink       Type = "wikilink"
	TypeEmbeddedNote   Type = "embedded-note"
	TypeImage          Type = "image"
	TypeVideo          Type = "video"
	TypeAudio          Type = "audio"
	TypeMediaReference Type = "media-reference"
	TypeMath           Type = "math"
	TypeHTML           Type = "html"
	TypeHorizontalRule Type = "horizontalrule"
	TypeUnreadable     Type = "unreadable"
)

// Key identifies a node within one Document. Keys are not persisted.
type Key uint64

// Node is implemented by every node variant in this package.
type Node interface {
	Type() Type
	Key() Key
	// IsInline reports whether the node flows within text rather than
	// occupying a block of its own.
	IsInline() bool
	// PlainText returns the node's text for search and plain-text contexts.
	PlainText() string

	meta() *nodeMeta
}

type nodeMeta struct {
	key     Key
	version int
}

func (m *nodeMeta) Key() Key           { return m.key }
func (m *nodeMeta) meta() *nodeMeta    { return m }
func (m *nodeMeta) exportVersion() int { return versionOr(m.version) }

func versionOr(v int) int {
	if v <= 0 {
		return CurrentVersion
	}
	return v
}

// Format is a bitmask of inline text styles.
type Format uint32

const (
	FormatBold Format = 1 << iota
	FormatItalic
	FormatStrikethrough
	FormatUnderline
	FormatCode
	FormatSubscript
	FormatSuperscript
)

// Has reports whether every bit of f2 is set in f.
func (f Format) Has(f2 Format) bool { return f&f2 == f2 }

// Text is a run of characters sharing one Format.
type Text struct {
	nodeMeta
	Text   string
	Format Format
}

// NewText returns an unformatted text node.
func NewText(s string) *Text { return &Text{Text: s} }

// NewFormattedText returns a text node carrying format.
func NewFormattedText(s string, format Format) *Text { return &Text{Text: s, Format: format} }

func (*Text) Type() Type                { return TypeText }
func (*Text) IsInline() bool            { return true }
func (t *Text) PlainText() string       { return t.Text }
func (t *Text) String() string          { return t.Text }
func (t *Text) HasFormat(f Format) bool { return t.Format.Has(f) }

// LineBreak is a hard line break inside a block.
type LineBreak struct{ nodeMeta }

func NewLineBreak() *LineBreak { return &LineBreak{} }

func (*LineBreak) Type() Type        { return TypeLineBreak }
func (*LineBreak) IsInline() bool    { return true }
func (*LineBreak) PlainText() string { return "\n" }

// plainTextOf concatenates children. Block siblings are separated by a
// blank line, inline siblings are joined directly.
func plainTextOf(children []Node) string {
	var b strings.Builder
	for i, c := range children {
		if i > 0 && !c.IsInline() && !children[i-1].IsInline() {
			b.WriteString("\n\n")
		}
		b.WriteString(c.PlainText())
	}
	return b.String()
}
