package models

import "strings"

// Collection is an id-indexed view over a set of notes that keeps their
// original order.
type Collection struct {
	notes   []*Note
	byID    map[string]*Note
	byTitle map[string][]string
}

// NewCollection indexes notes. Later duplicates of an id replace earlier ones
// in lookups but keep their position in All.
func NewCollection(notes []*Note) *Collection {
	c := &Collection{
		notes:   notes,
		byID:    make(map[string]*Note, len(notes)),
		byTitle: make(map[string][]string, len(notes)),
	}
	for _, n := range notes {
		c.byID[n.ID] = n
		key := titleKey(n.Title)
		c.byTitle[key] = append(c.byTitle[key], n.ID)
	}
	return c
}

// Get returns the note with id.
func (c *Collection) Get(id string) (*Note, bool) {
	n, ok := c.byID[id]
	return n, ok
}

// All returns the notes in collection order.
func (c *Collection) All() []*Note { return c.notes }

func (c *Collection) Len() int { return len(c.notes) }

// TitleFor returns the current title of the note with id.
func (c *Collection) TitleFor(id string) (string, bool) {
	n, ok := c.byID[id]
	if !ok || strings.TrimSpace(n.Title) == "" {
		return "", false
	}
	return n.Title, true
}

// IDFor returns the id of the only note titled title, ignoring case and
// surrounding space. Ambiguous titles do not resolve.
func (c *Collection) IDFor(title string) (string, bool) {
	ids := c.byTitle[titleKey(title)]
	if len(ids) != 1 {
		return "", false
	}
	return ids[0], true
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
