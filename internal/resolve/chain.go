package resolve

import "strings"

// Chain is the ordered list of note ids that are being expanded, outermost
// first. It is immutable: Extend returns a new chain sharing the old one,
// so sibling expansions can never observe each other's entries.
type Chain struct {
	last  *link
	depth int
}

type link struct {
	id     string
	parent *link
}

// NewChain returns a chain holding ids in order.
func NewChain(ids ...string) Chain {
	var c Chain
	for _, id := range ids {
		c = c.Extend(id)
	}
	return c
}

// Extend returns a chain with id appended. c is unchanged.
func (c Chain) Extend(id string) Chain {
	return Chain{last: &link{id: id, parent: c.last}, depth: c.depth + 1}
}

// Contains reports whether id is in the chain.
func (c Chain) Contains(id string) bool {
	for l := c.last; l != nil; l = l.parent {
		if l.id == id {
			return true
		}
	}
	return false
}

// Len returns the number of ids in the chain.
func (c Chain) Len() int { return c.depth }

// Last returns the innermost id, or "" for an empty chain.
func (c Chain) Last() string {
	if c.last == nil {
		return ""
	}
	return c.last.id
}

// IDs returns the chain outermost first.
func (c Chain) IDs() []string {
	ids := make([]string, c.depth)
	i := c.depth - 1
	for l := c.last; l != nil; l = l.parent {
		ids[i] = l.id
		i--
	}
	return ids
}

func (c Chain) String() string { return strings.Join(c.IDs(), " > ") }
