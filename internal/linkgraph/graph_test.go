package linkgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/resolve"
)

var parsed = resolve.TreesFunc(func(n *models.Note) *document.Document {
	d, err := document.Parse([]byte(n.Content))
	if err != nil {
		return document.Empty()
	}
	return d
})

func note(t *testing.T, id, title string, nodes ...document.Node) *models.Note {
	t.Helper()
	content, err := document.New(document.NewParagraph(nodes...)).Encode()
	require.NoError(t, err)
	return &models.Note{ID: id, Title: title, Content: content}
}

func TestBuild(t *testing.T) {
	t.Run("mutual links give one bidirectional edge", func(t *testing.T) {
		notes := models.NewCollection([]*models.Note{
			note(t, "a", "A", document.NewWikiLink("b")),
			note(t, "b", "B", document.NewWikiLink("a")),
		})

		g := Build(notes, parsed, nil)

		require.Len(t, g.Edges, 1)
		assert.Equal(t, Edge{Source: "a", Target: "b", Bidirectional: true}, g.Edges[0])
		assert.Equal(t, 1, g.Stats.Bidirectional)
	})

	t.Run("one way link is not bidirectional", func(t *testing.T) {
		notes := models.NewCollection([]*models.Note{
			note(t, "a", "A", document.NewWikiLink("b")),
			note(t, "b", "B"),
		})

		g := Build(notes, parsed, nil)

		require.Len(t, g.Edges, 1)
		assert.False(t, g.Edges[0].Bidirectional)
	})

	t.Run("first seen direction is kept", func(t *testing.T) {
		notes := models.NewCollection([]*models.Note{
			note(t, "b", "B", document.NewWikiLink("a")),
			note(t, "a", "A", document.NewWikiLink("b")),
		})

		g := Build(notes, parsed, nil)

		require.Len(t, g.Edges, 1)
		assert.Equal(t, "b", g.Edges[0].Source)
		assert.Equal(t, "a", g.Edges[0].Target)
	})

	t.Run("self links and dangling targets add no edge", func(t *testing.T) {
		notes := models.NewCollection([]*models.Note{
			note(t, "a", "A", document.NewWikiLink("a"), document.NewWikiLink("nonexistent")),
		})

		g := Build(notes, parsed, nil)

		assert.Empty(t, g.Edges)
		assert.Equal(t, 1, g.Stats.Dangling)
		assert.Equal(t, 1, g.Stats.Orphans)
	})

	t.Run("links and embeds to the same note count once", func(t *testing.T) {
		content, err := document.New(
			document.NewParagraph(document.NewWikiLink("b"), document.NewWikiLink("b")),
			document.NewEmbeddedNote("b"),
		).Encode()
		require.NoError(t, err)
		notes := models.NewCollection([]*models.Note{
			{ID: "a", Title: "A", Content: content},
			note(t, "b", "B"),
		})

		g := Build(notes, parsed, nil)

		assert.Len(t, g.Edges, 1)
	})

	t.Run("legacy title links resolve by current title", func(t *testing.T) {
		notes := models.NewCollection([]*models.Note{
			note(t, "a", "A", &document.WikiLink{LegacyTitle: "bee"}),
			note(t, "b", "Bee"),
		})

		g := Build(notes, parsed, nil)

		require.Len(t, g.Edges, 1)
		assert.Equal(t, "b", g.Edges[0].Target)
	})
}

func TestBuildReusesNodes(t *testing.T) {
	a := note(t, "a", "A", document.NewWikiLink("b"))
	b := note(t, "b", "B")
	notes := models.NewCollection([]*models.Note{a, b})

	first := Build(notes, parsed, nil)
	second := Build(notes, parsed, first)

	require.Len(t, second.Nodes, 2)
	for i := range first.Nodes {
		assert.Same(t, first.Nodes[i], second.Nodes[i])
	}

	a.Title = "Renamed"
	c := note(t, "c", "C")
	third := Build(models.NewCollection([]*models.Note{a, c}), parsed, second)

	require.Len(t, third.Nodes, 2)
	assert.Same(t, first.Nodes[0], third.Nodes[0])
	assert.Equal(t, "Renamed", third.Nodes[0].Name)
	assert.NotSame(t, first.Nodes[1], third.Nodes[1])
	assert.Empty(t, third.Edges)
	_, ok := third.Node("b")
	assert.False(t, ok)
}

func TestWeightAndColor(t *testing.T) {
	n := &models.Note{
		Content: string(make([]byte, 1000)),
		Tasks:   []models.Task{{}, {}},
	}
	assert.InDelta(t, 4.0, Weight(n), 1e-9)

	assert.Equal(t, "bg-red-200", BaseColor("bg-red-200 dark:bg-red-800"))
	assert.Equal(t, "bg-blue-100", BaseColor("bg-blue-100"))
	assert.Equal(t, "", BaseColor(""))
}

func TestBacklinks(t *testing.T) {
	notes := models.NewCollection([]*models.Note{
		note(t, "a", "A", document.NewWikiLink("c")),
		note(t, "b", "B", document.NewWikiLink("c")),
		note(t, "c", "C", document.NewWikiLink("a")),
	})

	g := Build(notes, parsed, nil)

	assert.ElementsMatch(t, []string{"a", "b"}, Backlinks(g, "c"))
	assert.ElementsMatch(t, []string{"c"}, Backlinks(g, "a"))
	assert.Empty(t, Backlinks(g, "b"))
}
