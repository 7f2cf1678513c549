package document

import "fmt"

// ListType selects the marker style of a list.
type ListType string

const (
	ListBullet ListType = "bullet"
	ListNumber ListType = "number"
	ListCheck  ListType = "check"
)

// Alignment is the horizontal alignment of a table column.
type Alignment string

const (
	AlignNone   Alignment = ""
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Header states of a table cell.
const (
	HeaderNone = 0
	HeaderRow  = 1
)

// Element is a node with children. Kind selects which of the optional
// fields are meaningful.
type Element struct {
	nodeMeta
	Kind     Type
	Children []Node

	Tag         string      // heading: h1..h6
	ListType    ListType    // list
	Start       int         // list: first ordinal of a numbered list
	Checked     *bool       // listitem: task state, nil for plain items
	Language    string      // code
	HeaderState int         // tablecell
	Align       []Alignment // table: per column
	URL         string      // link, autolink
	Title       string      // link
	Rel         string      // link
	Target      string      // link
	Indent      int
}

func (e *Element) Type() Type { return e.Kind }

// IsInline is true for links, which hold text inside a paragraph.
func (e *Element) IsInline() bool { return isLinkKind(e.Kind) }

// IsLink reports whether e is a link or an autolink.
func (e *Element) IsLink() bool { return isLinkKind(e.Kind) }

func isLinkKind(t Type) bool { return t == TypeLink || t == TypeAutoLink }

func (e *Element) PlainText() string { return plainTextOf(e.Children) }

// Append adds children to the element and returns it.
func (e *Element) Append(children ...Node) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// HeadingLevel returns 1..6 for headings and 0 otherwise.
func (e *Element) HeadingLevel() int {
	if e.Kind != TypeHeading || len(e.Tag) != 2 || e.Tag[0] != 'h' {
		return 0
	}
	lvl := int(e.Tag[1] - '0')
	if lvl < 1 || lvl > 6 {
		return 0
	}
	return lvl
}

// AlignmentAt returns the alignment of column i, AlignNone when unset.
func (e *Element) AlignmentAt(i int) Alignment {
	if i < 0 || i >= len(e.Align) {
		return AlignNone
	}
	return e.Align[i]
}

// ColumnCount returns the widest row of a table.
func (e *Element) ColumnCount() int {
	n := 0
	for _, r := range e.Children {
		if row, ok := r.(*Element); ok && len(row.Children) > n {
			n = len(row.Children)
		}
	}
	return n
}

func isContainerKind(t Type) bool {
	switch t {
	case TypeRoot, TypeParagraph, TypeHeading, TypeList, TypeListItem, TypeQuote,
		TypeCode, TypeTable, TypeTableRow, TypeTableCell, TypeLink, TypeAutoLink:
		return true
	}
	return false
}

// AcceptsBlocks reports whether block nodes may be direct children of e.
func (e *Element) AcceptsBlocks() bool {
	switch e.Kind {
	case TypeRoot, TypeTableCell:
		return true
	}
	return false
}

func newElement(kind Type, children []Node) *Element {
	return &Element{Kind: kind, Children: children}
}

func NewRoot(children ...Node) *Element      { return newElement(TypeRoot, children) }
func NewParagraph(children ...Node) *Element { return newElement(TypeParagraph, children) }
func NewQuote(children ...Node) *Element     { return newElement(TypeQuote, children) }
func NewTableRow(cells ...Node) *Element     { return newElement(TypeTableRow, cells) }

// NewHeading returns a heading; level is clamped to 1..6.
func NewHeading(level int, children ...Node) *Element {
	level = min(max(level, 1), 6)
	e := newElement(TypeHeading, children)
	e.Tag = fmt.Sprintf("h%d", level)
	return e
}

// NewList returns a list of the given type. Numbered lists start at 1.
func NewList(lt ListType, items ...Node) *Element {
	e := newElement(TypeList, items)
	e.ListType = lt
	if lt == ListNumber {
		e.Start = 1
	}
	return e
}

// NewLink returns a link to url around inline children.
func NewLink(url string, children ...Node) *Element {
	e := newElement(TypeLink, children)
	e.URL = url
	return e
}

// NewAutoLink returns a link whose text is the url itself.
func NewAutoLink(url string) *Element {
	e := newElement(TypeAutoLink, []Node{NewText(url)})
	e.URL = url
	return e
}

func NewListItem(children ...Node) *Element { return newElement(TypeListItem, children) }

// NewTaskItem returns a list item carrying a checkbox.
func NewTaskItem(checked bool, children ...Node) *Element {
	e := newElement(TypeListItem, children)
	e.Checked = &checked
	return e
}

// NewCode returns a code block holding text verbatim.
func NewCode(language, text string) *Element {
	e := newElement(TypeCode, nil)
	e.Language = language
	if text != "" {
		e.Children = []Node{NewText(text)}
	}
	return e
}

// NewTable returns a table; align may be shorter than the column count.
func NewTable(align []Alignment, rows ...Node) *Element {
	e := newElement(TypeTable, rows)
	e.Align = align
	return e
}

// NewTableCell returns a cell. Inline children are wrapped in a paragraph.
func NewTableCell(header bool, children ...Node) *Element {
	e := newElement(TypeTableCell, nil)
	if header {
		e.HeaderState = HeaderRow
	}
	if len(children) == 0 || children[0].IsInline() {
		e.Children = []Node{NewParagraph(children...)}
	} else {
		e.Children = children
	}
	return e
}
