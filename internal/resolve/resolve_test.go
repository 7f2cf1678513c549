package resolve

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/models"
)

func noteWith(t *testing.T, id, title string, doc *document.Document) *models.Note {
	t.Helper()
	content, err := doc.Encode()
	require.NoError(t, err)
	return &models.Note{ID: id, Title: title, Content: content}
}

func parsedTrees(t *testing.T) Trees {
	return TreesFunc(func(n *models.Note) *document.Document {
		d, err := document.Parse([]byte(n.Content))
		require.NoError(t, err)
		return d
	})
}

func TestChainIsCopyOnExtend(t *testing.T) {
	root := NewChain("a")
	left := root.Extend("b")
	right := root.Extend("c")

	assert.Equal(t, []string{"a"}, root.IDs())
	assert.Equal(t, []string{"a", "b"}, left.IDs())
	assert.Equal(t, []string{"a", "c"}, right.IDs())
	assert.False(t, right.Contains("b"))
	assert.True(t, left.Contains("a"))
	assert.Equal(t, "b", left.Last())
	assert.Equal(t, 2, left.Len())
}

func TestResolve(t *testing.T) {
	b := &models.Note{ID: "b", Title: "B"}
	notes := models.NewCollection([]*models.Note{{ID: "a", Title: "A"}, b})

	cases := []struct {
		name   string
		target string
		chain  Chain
		want   Outcome
	}{
		{"existing target", "b", NewChain("a"), Resolved},
		{"target on chain", "a", NewChain("a"), Circular},
		{"self reference", "b", NewChain("a", "b"), Circular},
		{"missing target", "zzz", NewChain("a"), Dangling},
		{"empty target", "", NewChain("a"), Dangling},
		{"missing target on chain", "ghost", NewChain("ghost", "a"), Dangling},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.target, notes, tc.chain)
			assert.Equal(t, tc.want, got.Outcome)
		})
	}
	assert.Same(t, b, Resolve("b", notes, NewChain("a")).Note)
}

func TestResolveLegacyTitle(t *testing.T) {
	notes := models.NewCollection([]*models.Note{{ID: "b", Title: "Beta"}})
	assert.Equal(t, Resolved, ResolveLegacy("beta", notes, NewChain("a")).Outcome)
	assert.Equal(t, Dangling, ResolveLegacy("Gamma", notes, NewChain("a")).Outcome)
}

func TestMutualEmbedsTerminate(t *testing.T) {
	a := noteWith(t, "A", "Alpha", document.New(document.NewParagraph(document.NewText("top")), document.NewEmbeddedNote("B")))
	b := noteWith(t, "B", "Beta", document.New(document.NewEmbeddedNote("A")))
	notes := models.NewCollection([]*models.Note{a, b})

	x := &Expander{Notes: notes, Trees: parsedTrees(t)}
	view := x.Expand(a)

	require.Len(t, view.Refs, 1)
	embedB := view.Refs[0]
	assert.Equal(t, Resolved, embedB.Resolution.Outcome)
	assert.Equal(t, RenderEmbed, embedB.Render)
	require.NotNil(t, embedB.Embedded)

	require.Len(t, embedB.Embedded.Refs, 1)
	backToA := embedB.Embedded.Refs[0]
	assert.Equal(t, Circular, backToA.Resolution.Outcome)
	assert.Equal(t, RenderLink, backToA.Render)
	assert.Nil(t, backToA.Embedded)
	assert.Equal(t, 2, view.Depth())
}

func TestLongCycleTerminates(t *testing.T) {
	const n = 12
	var notes []*models.Note
	for i := 0; i < n; i++ {
		next := fmt.Sprintf("n%d", (i+1)%n)
		notes = append(notes, noteWith(t, fmt.Sprintf("n%d", i), "", document.New(document.NewEmbeddedNote(next))))
	}
	x := &Expander{Notes: models.NewCollection(notes), Trees: parsedTrees(t)}
	view := x.Expand(notes[0])
	assert.Equal(t, n, view.Depth())

	deepest := view
	for deepest.Refs[0].Embedded != nil {
		deepest = deepest.Refs[0].Embedded
	}
	assert.Equal(t, Circular, deepest.Refs[0].Resolution.Outcome)
}

func TestMaxDepthDowngradesToLink(t *testing.T) {
	var notes []*models.Note
	for i := 0; i < 6; i++ {
		notes = append(notes, noteWith(t, fmt.Sprintf("n%d", i), "", document.New(document.NewEmbeddedNote(fmt.Sprintf("n%d", i+1)))))
	}
	x := &Expander{Notes: models.NewCollection(notes), Trees: parsedTrees(t), MaxDepth: 3}
	view := x.Expand(notes[0])
	assert.Equal(t, 3, view.Depth())

	last := view.Refs[0].Embedded.Refs[0].Embedded.Refs[0]
	assert.Equal(t, RenderLink, last.Render)
	assert.True(t, last.Truncated)
}

func TestDanglingAndLinks(t *testing.T) {
	a := noteWith(t, "A", "", document.New(
		document.NewParagraph(document.NewWikiLink("B"), document.NewWikiLink("A"), document.NewWikiLink("gone")),
		document.NewEmbeddedNote("gone"),
	))
	b := noteWith(t, "B", "", document.New())
	x := &Expander{Notes: models.NewCollection([]*models.Note{a, b}), Trees: parsedTrees(t)}
	view := x.Expand(a)

	require.Len(t, view.Refs, 4)
	assert.Equal(t, RenderLink, view.Refs[0].Render)
	assert.Equal(t, Circular, view.Refs[1].Resolution.Outcome)
	assert.Equal(t, RenderLink, view.Refs[1].Render)
	assert.Equal(t, RenderMissing, view.Refs[2].Render)
	assert.Equal(t, RenderMissing, view.Refs[3].Render)
	assert.Equal(t, Dangling, view.Refs[3].Resolution.Outcome)
}

func TestConvertToEmbed(t *testing.T) {
	link := document.NewWikiLink("B")
	doc := document.New(document.NewParagraph(document.NewText("before "), link, document.NewText(" after")))
	key := doc.Children()[0].(*document.Element).Children[1].Key()

	t.Run("splits the paragraph", func(t *testing.T) {
		out, err := ConvertToEmbed(doc, key, NewChain("A"))
		require.NoError(t, err)
		want := document.New(
			document.NewParagraph(document.NewText("before ")),
			document.NewEmbeddedNote("B"),
			document.NewParagraph(document.NewText(" after")),
		)
		assert.True(t, document.EqualDocuments(want, out))
		assert.Len(t, doc.Children(), 1, "input must not change")
	})

	t.Run("rejects a target on the chain", func(t *testing.T) {
		_, err := ConvertToEmbed(doc, key, NewChain("B", "A"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrWouldCreateCycle))
		var ce *CycleError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "B", ce.TargetID)
		assert.Equal(t, []string{"B", "A"}, ce.Chain)
	})

	t.Run("rejects self embed", func(t *testing.T) {
		self := document.New(document.NewParagraph(document.NewWikiLink("A")))
		k := self.Children()[0].(*document.Element).Children[0].Key()
		_, err := ConvertToEmbed(self, k, NewChain("A"))
		assert.ErrorIs(t, err, ErrWouldCreateCycle)
	})

	t.Run("rejects non links", func(t *testing.T) {
		k := doc.Children()[0].(*document.Element).Children[0].Key()
		_, err := ConvertToEmbed(doc, k, NewChain("A"))
		assert.ErrorIs(t, err, ErrNotConvertible)
	})

	t.Run("rejects inline-only containers", func(t *testing.T) {
		inList := document.New(document.NewList(document.ListBullet, document.NewListItem(document.NewWikiLink("B"))))
		var k document.Key
		document.Walk(inList.Root, func(n document.Node) bool {
			if _, ok := n.(*document.WikiLink); ok {
				k = n.Key()
			}
			return true
		})
		_, err := ConvertToEmbed(inList, k, NewChain("A"))
		assert.ErrorIs(t, err, ErrNotConvertible)
	})
}

func TestConvertToLink(t *testing.T) {
	doc := document.New(document.NewEmbeddedNote("B"))
	out, err := ConvertToLink(doc, doc.Children()[0].Key())
	require.NoError(t, err)
	assert.True(t, document.EqualDocuments(document.New(document.NewParagraph(document.NewWikiLink("B"))), out))

	_, err = ConvertToLink(doc, 424242)
	assert.ErrorIs(t, err, document.ErrNodeNotFound)
}
