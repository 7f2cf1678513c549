// Package linkgraph derives the note graph shown by the graph view: one node
// per note and one undirected edge per pair of notes that reference each
// other.
package linkgraph

import (
	"strings"

	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/resolve"
)

// Graph is a snapshot of the note graph.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
	Stats Stats   `json:"stats"`
}

// Node is a note in the graph. Nodes are reused between snapshots so that a
// renderer can keep their positions.
type Node struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Val   float64 `json:"val"`
	Color string  `json:"color"`
}

// Edge connects two notes. Source is the note that was seen referencing
// Target first; Bidirectional is set when Target references Source too.
type Edge struct {
	Source        string `json:"source"`
	Target        string `json:"target"`
	Bidirectional bool   `json:"bidirectional"`
}

type Stats struct {
	Nodes         int `json:"nodes"`
	Edges         int `json:"edges"`
	Bidirectional int `json:"bidirectional"`
	// Dangling counts references to notes that do not exist.
	Dangling int `json:"dangling"`
	// Orphans counts notes without any edge.
	Orphans int `json:"orphans"`
}

// Build derives the graph of notes. Nodes of prev whose note still exists are
// reused with their display fields refreshed. Notes are processed in
// collection order, which decides the direction kept for each edge.
func Build(notes *models.Collection, trees resolve.Trees, prev *Graph) *Graph {
	previous := make(map[string]*Node)
	if prev != nil {
		for _, n := range prev.Nodes {
			previous[n.ID] = n
		}
	}

	refs := make(map[string]map[string]struct{}, notes.Len())
	order := make(map[string][]string, notes.Len())
	g := &Graph{Nodes: make([]*Node, 0, notes.Len()), Edges: []Edge{}}

	for _, note := range notes.All() {
		if _, dup := refs[note.ID]; dup {
			continue
		}
		n, ok := previous[note.ID]
		if !ok {
			n = &Node{ID: note.ID}
		}
		n.Name = note.Title
		n.Val = Weight(note)
		n.Color = BaseColor(note.Color)
		g.Nodes = append(g.Nodes, n)

		targets, dangling := references(note, notes, trees)
		g.Stats.Dangling += dangling
		set := make(map[string]struct{}, len(targets))
		for _, t := range targets {
			set[t] = struct{}{}
		}
		refs[note.ID] = set
		order[note.ID] = targets
	}

	type pair struct{ a, b string }
	seen := make(map[pair]struct{})
	linked := make(map[string]bool)
	for _, n := range g.Nodes {
		for _, target := range order[n.ID] {
			if _, ok := seen[pair{n.ID, target}]; ok {
				continue
			}
			if _, ok := seen[pair{target, n.ID}]; ok {
				continue
			}
			seen[pair{n.ID, target}] = struct{}{}
			_, back := refs[target][n.ID]
			g.Edges = append(g.Edges, Edge{Source: n.ID, Target: target, Bidirectional: back})
			linked[n.ID], linked[target] = true, true
			if back {
				g.Stats.Bidirectional++
			}
		}
	}

	g.Stats.Nodes = len(g.Nodes)
	g.Stats.Edges = len(g.Edges)
	for _, n := range g.Nodes {
		if !linked[n.ID] {
			g.Stats.Orphans++
		}
	}
	return g
}

// references returns the notes that note links to or embeds, in document
// order and without itself, plus the number of references to missing notes.
// Legacy links are matched by the current titles.
func references(note *models.Note, notes *models.Collection, trees resolve.Trees) ([]string, int) {
	var (
		out      []string
		dangling int
		seen     = make(map[string]struct{})
	)
	for _, r := range document.Refs(trees.Tree(note)) {
		id := r.TargetID
		if id == "" && r.LegacyTitle != "" {
			id, _ = notes.IDFor(r.LegacyTitle)
		}
		if _, ok := notes.Get(id); !ok {
			dangling++
			continue
		}
		if id == note.ID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, dangling
}

// Weight sizes a node by the length of its content and its task count.
func Weight(n *models.Note) float64 {
	return 1 + float64(len(n.Content))/500 + float64(len(n.Tasks))*0.5
}

// BaseColor drops the dark-mode part of a color class list such as
// "bg-red-200 dark:bg-red-800".
func BaseColor(color string) string {
	if i := strings.Index(color, "dark:"); i >= 0 {
		return strings.TrimSpace(color[:i])
	}
	return color
}

// Backlinks returns the notes that reference id according to g.
func Backlinks(g *Graph, id string) []string {
	var out []string
	for _, e := range g.Edges {
		switch {
		case e.Target == id:
			out = append(out, e.Source)
		case e.Source == id && e.Bidirectional:
			out = append(out, e.Target)
		}
	}
	return out
}

// Node returns the node for id.
func (g *Graph) Node(id string) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}
