// Package models defines the domain types for notegraph.
package models

import "time"

// Note is a titled document plus its tasks and display metadata.
// Content holds the serialized document tree.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Color     string    `json:"color,omitempty"`
	Tags      []string  `json:"tags"`
	Tasks     []Task    `json:"tasks"`
	Flags     Flags     `json:"flags"`
	Position  int       `json:"position"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Flags toggle sections of a note's card.
type Flags struct {
	HideTasksSection bool `json:"hideTasksSection,omitempty" yaml:"hideTasksSection,omitempty"`
	HideTagsSection  bool `json:"hideTagsSection,omitempty" yaml:"hideTagsSection,omitempty"`
	HideContent      bool `json:"hideContent,omitempty" yaml:"hideContent,omitempty"`
	HideWordCount    bool `json:"hideWordCount,omitempty" yaml:"hideWordCount,omitempty"`
	HideReadingTime  bool `json:"hideReadingTime,omitempty" yaml:"hideReadingTime,omitempty"`
	HidePendingTasks bool `json:"hidePendingTasks,omitempty" yaml:"hidePendingTasks,omitempty"`
	IsMaximized      bool `json:"isMaximized,omitempty" yaml:"isMaximized,omitempty"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Color     string    `json:"color,omitempty"`
	Tags      []string  `json:"tags"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta returns the list view of n.
func (n *Note) Meta() NoteMetadata {
	return NoteMetadata{
		ID:        n.ID,
		Title:     n.Title,
		Color:     n.Color,
		Tags:      n.Tags,
		Checksum:  n.Checksum,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// Link is a directed reference from one note to another.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"` // "wikilink" or "embed"
}

const (
	LinkTypeWikiLink = "wikilink"
	LinkTypeEmbed    = "embed"
)
