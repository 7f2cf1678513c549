package rename

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/markdown"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/resolve"
)

func encode(t *testing.T, d *document.Document) string {
	t.Helper()
	s, err := d.Encode()
	require.NoError(t, err)
	return s
}

var parsed = resolve.TreesFunc(func(n *models.Note) *document.Document {
	return document.ParseOrDefault(n.Content, nil)
})

func TestPropagate(t *testing.T) {
	target := &models.Note{ID: "t", Title: "New Name", Content: encode(t, document.Empty())}
	byID := &models.Note{ID: "a", Title: "A", Content: encode(t, document.New(
		document.NewParagraph(document.NewWikiLink("t")),
	))}
	legacy := &models.Note{ID: "b", Title: "B", Content: encode(t, document.New(
		document.NewParagraph(document.NewText("see "), &document.WikiLink{LegacyTitle: "old name"}),
		&document.EmbeddedNote{LegacyTitle: "Old Name"},
		document.NewParagraph(&document.WikiLink{LegacyTitle: "Unrelated"}),
	))}
	other := &models.Note{ID: "c", Title: "C", Content: encode(t, document.Empty())}
	notes := models.NewCollection([]*models.Note{target, byID, legacy, other})

	res, err := Propagate(notes, parsed, "t", "Old Name")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, res.Stale)
	require.Contains(t, res.Updated, "b")
	assert.NotContains(t, res.Updated, "a")

	refs := document.Refs(res.Updated["b"])
	require.Len(t, refs, 3)
	assert.Equal(t, "t", refs[0].TargetID)
	assert.False(t, refs[0].Embed)
	assert.Equal(t, "t", refs[1].TargetID)
	assert.True(t, refs[1].Embed)
	assert.Equal(t, "Unrelated", refs[2].LegacyTitle)

	// The stored tree of b is untouched.
	assert.Len(t, document.References(parsed.Tree(legacy)), 0)
}

func TestExportUsesCurrentTitle(t *testing.T) {
	target := &models.Note{ID: "t", Title: "Before", Content: encode(t, document.Empty())}
	linking := &models.Note{ID: "a", Title: "A", Content: encode(t, document.New(
		document.NewParagraph(document.NewWikiLink("t")),
	))}

	notes := models.NewCollection([]*models.Note{target, linking})
	assert.Equal(t, "[[Before]]", markdown.Export(parsed.Tree(linking), markdown.WithLinkNames(notes)))

	target.Title = "After"
	notes = models.NewCollection([]*models.Note{target, linking})
	res, err := Propagate(notes, parsed, "t", "Before")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Stale)
	assert.Empty(t, res.Updated)
	assert.Equal(t, "[[After]]", markdown.Export(parsed.Tree(linking), markdown.WithLinkNames(notes)))
}
