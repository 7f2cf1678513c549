package document

import "bytes"

// Equal reports whether a and b have the same type, payload and children.
// Keys and versions are ignored. A numbered list with start 0 equals one
// starting at 1, and missing column alignments equal AlignNone.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case *Element:
		y := b.(*Element)
		return equalElement(x, y)
	case *Text:
		y := b.(*Text)
		return x.Text == y.Text && x.Format == y.Format
	case *LineBreak, *HorizontalRule:
		return true
	case *WikiLink:
		y := b.(*WikiLink)
		return x.TargetID == y.TargetID && x.LegacyTitle == y.LegacyTitle
	case *EmbeddedNote:
		y := b.(*EmbeddedNote)
		return x.TargetID == y.TargetID && x.LegacyTitle == y.LegacyTitle
	case *Image:
		y := b.(*Image)
		return x.Src == y.Src && x.Alt == y.Alt && x.Title == y.Title && x.Width == y.Width && x.Height == y.Height
	case *Video:
		y := b.(*Video)
		return x.Src == y.Src && x.Alt == y.Alt && x.Width == y.Width && x.Height == y.Height && x.Controls == y.Controls
	case *Audio:
		y := b.(*Audio)
		return x.Src == y.Src && x.Alt == y.Alt && x.Controls == y.Controls && x.Loop == y.Loop
	case *MediaReference:
		return x.MediaID == b.(*MediaReference).MediaID
	case *Math:
		y := b.(*Math)
		return x.Equation == y.Equation && x.Format == y.Format
	case *HTML:
		return x.Raw == b.(*HTML).Raw
	case *Unreadable:
		return bytes.Equal(x.Raw, b.(*Unreadable).Raw)
	}
	return false
}

// EqualDocuments compares the roots of two documents.
func EqualDocuments(a, b *Document) bool {
	return Equal(a.Root, b.Root)
}

func equalElement(x, y *Element) bool {
	if x.Kind != y.Kind || x.Tag != y.Tag || x.ListType != y.ListType ||
		x.Language != y.Language || x.HeaderState != y.HeaderState || x.Indent != y.Indent ||
		x.URL != y.URL || x.Title != y.Title || x.Rel != y.Rel || x.Target != y.Target {
		return false
	}
	if x.Kind == TypeList && x.ListType == ListNumber && max(x.Start, 1) != max(y.Start, 1) {
		return false
	}
	if (x.Checked == nil) != (y.Checked == nil) || (x.Checked != nil && *x.Checked != *y.Checked) {
		return false
	}
	if x.Kind == TypeTable {
		cols := max(len(x.Align), len(y.Align))
		for i := 0; i < cols; i++ {
			if x.AlignmentAt(i) != y.AlignmentAt(i) {
				return false
			}
		}
	}
	if len(x.Children) != len(y.Children) {
		return false
	}
	for i := range x.Children {
		if !Equal(x.Children[i], y.Children[i]) {
			return false
		}
	}
	return true
}
