package noteservice

import (
	"context"

	"github.com/sahilm/fuzzy"

	"github.com/starford/notegraph/internal/linkgraph"
)

// Graph builds the note graph. Node identity is kept between calls, so the
// previous snapshot is updated in place; callers receive a copy.
func (s *Service) Graph(_ context.Context) (*linkgraph.Graph, error) {
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}

	s.graphMu.Lock()
	defer s.graphMu.Unlock()
	s.graph = linkgraph.Build(coll, s.docs, s.graph)
	return snapshot(s.graph), nil
}

// GraphStats returns the counters of a fresh graph build.
func (s *Service) GraphStats(ctx context.Context) (linkgraph.Stats, error) {
	g, err := s.Graph(ctx)
	if err != nil {
		return linkgraph.Stats{}, err
	}
	return g.Stats, nil
}

func snapshot(g *linkgraph.Graph) *linkgraph.Graph {
	out := &linkgraph.Graph{
		Nodes: make([]*linkgraph.Node, len(g.Nodes)),
		Edges: append([]linkgraph.Edge(nil), g.Edges...),
		Stats: g.Stats,
	}
	for i, n := range g.Nodes {
		c := *n
		out.Nodes[i] = &c
	}
	return out
}

// Suggestion is a link target offered while typing a reference.
type Suggestion struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// DefaultSuggestLimit caps suggestions when no limit is given.
const DefaultSuggestLimit = 10

// Suggest ranks notes by fuzzy match of their title against query. An
// empty query returns the first notes in collection order.
func (s *Service) Suggest(_ context.Context, query string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	notes := coll.All()
	out := []Suggestion{}
	if query == "" {
		for _, n := range notes {
			if len(out) == limit {
				break
			}
			out = append(out, Suggestion{ID: n.ID, Title: n.Title})
		}
		return out, nil
	}

	titles := make([]string, len(notes))
	for i, n := range notes {
		titles[i] = n.Title
	}
	for _, m := range fuzzy.Find(query, titles) {
		if len(out) == limit {
			break
		}
		n := notes[m.Index]
		out = append(out, Suggestion{ID: n.ID, Title: n.Title, Score: m.Score})
	}
	return out, nil
}
