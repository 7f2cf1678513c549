package document

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned for serialized input that is not a node tree.
	ErrMalformed = errors.New("document: malformed tree")
	// ErrNodeNotFound is returned when a key does not name a node in the tree.
	ErrNodeNotFound = errors.New("document: node not found")
)

// Document is a root element plus the key counter of its tree.
type Document struct {
	Root    *Element
	nextKey Key
}

// New returns a document whose root holds children and assigns keys to
// every node in it.
func New(children ...Node) *Document {
	d := &Document{Root: NewRoot(children...)}
	d.assignKeys(d.Root)
	return d
}

// Empty returns the document used when a note has no readable content:
// a root holding a single empty paragraph.
func Empty() *Document {
	return New(NewParagraph())
}

func (d *Document) assignKeys(n Node) {
	Walk(n, func(n Node) bool {
		d.nextKey++
		n.meta().key = d.nextKey
		return true
	})
}

// Children returns the root's children.
func (d *Document) Children() []Node { return d.Root.Children }

// Find returns the node with key k and its parent element.
func (d *Document) Find(k Key) (Node, *Element, bool) {
	var (
		found  Node
		parent *Element
	)
	var visit func(e *Element) bool
	visit = func(e *Element) bool {
		for _, c := range e.Children {
			if c.Key() == k {
				found, parent = c, e
				return true
			}
			if ce, ok := c.(*Element); ok && visit(ce) {
				return true
			}
		}
		return false
	}
	if d.Root.Key() == k {
		return d.Root, nil, true
	}
	if visit(d.Root) {
		return found, parent, true
	}
	return nil, nil, false
}

// Clone returns a deep copy. Keys are preserved so that a key found in d
// names the same node in the copy.
func (d *Document) Clone() *Document {
	return &Document{Root: cloneNode(d.Root).(*Element), nextKey: d.nextKey}
}

// Replace returns a copy of d in which the node with key k is replaced by
// the given nodes. The replacement nodes are copied and receive fresh keys;
// d itself is not modified.
func (d *Document) Replace(k Key, with ...Node) (*Document, error) {
	out := d.Clone()
	_, parent, ok := out.Find(k)
	if !ok || parent == nil {
		return nil, fmt.Errorf("%w: key %d", ErrNodeNotFound, k)
	}
	fresh := make([]Node, 0, len(with))
	for _, n := range with {
		c := cloneNode(n)
		out.assignKeys(c)
		fresh = append(fresh, c)
	}
	children := make([]Node, 0, len(parent.Children)-1+len(fresh))
	for _, c := range parent.Children {
		if c.Key() == k {
			children = append(children, fresh...)
			continue
		}
		children = append(children, c)
	}
	parent.Children = children
	return out, nil
}

// ReplaceIn returns a copy of d in which the children of the element with
// key k are replaced by the result of fn. fn receives copies it may modify.
func (d *Document) ReplaceIn(k Key, fn func(children []Node) []Node) (*Document, error) {
	out := d.Clone()
	n, _, ok := out.Find(k)
	if !ok {
		return nil, fmt.Errorf("%w: key %d", ErrNodeNotFound, k)
	}
	e, ok := n.(*Element)
	if !ok {
		return nil, fmt.Errorf("%w: key %d is a %s", ErrNodeNotFound, k, n.Type())
	}
	children := fn(e.Children)
	for _, c := range children {
		if c.Key() == 0 {
			out.assignKeys(c)
		}
	}
	e.Children = children
	return out, nil
}

// PlainText returns the text content of the whole tree.
func (d *Document) PlainText() string { return d.Root.PlainText() }

func cloneNode(n Node) Node {
	switch v := n.(type) {
	case *Element:
		c := *v
		c.Children = make([]Node, len(v.Children))
		for i, ch := range v.Children {
			c.Children[i] = cloneNode(ch)
		}
		if v.Checked != nil {
			checked := *v.Checked
			c.Checked = &checked
		}
		c.Align = append([]Alignment(nil), v.Align...)
		return &c
	case *Text:
		c := *v
		return &c
	case *LineBreak:
		c := *v
		return &c
	case *WikiLink:
		c := *v
		return &c
	case *EmbeddedNote:
		c := *v
		return &c
	case *Image:
		c := *v
		return &c
	case *Video:
		c := *v
		return &c
	case *Audio:
		c := *v
		return &c
	case *MediaReference:
		c := *v
		return &c
	case *Math:
		c := *v
		return &c
	case *HTML:
		c := *v
		return &c
	case *HorizontalRule:
		c := *v
		return &c
	case *Unreadable:
		c := *v
		c.Raw = append([]byte(nil), v.Raw...)
		return &c
	}
	panic(fmt.Sprintf("document: clone of unknown node %T", n))
}
