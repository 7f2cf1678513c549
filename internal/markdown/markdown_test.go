package markdown

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notegraph/internal/document"
)

type mapNamer map[string]string

func (m mapNamer) TitleFor(id string) (string, bool) {
	t, ok := m[id]
	return t, ok
}

func (m mapNamer) IDFor(title string) (string, bool) {
	found, n := "", 0
	for id, t := range m {
		if strings.EqualFold(t, strings.TrimSpace(title)) {
			found = id
			n++
		}
	}
	return found, n == 1
}

func assertRoundTrip(t *testing.T, doc *document.Document, opts ...Option) {
	t.Helper()
	md := Export(doc, opts...)
	back := Import(md, opts...)
	if !document.EqualDocuments(doc, back) {
		want, _ := doc.Encode()
		got, _ := back.Encode()
		t.Fatalf("round trip changed the tree\nmarkdown:\n%s\nwant: %s\ngot:  %s", md, want, got)
	}
}

func TestRoundTripCorpus(t *testing.T) {
	img := document.NewImage("/attachments/cat 1.png", "a cat")
	img.Title = `the "cat"`
	img.Width, img.Height = 320, 200

	unknown, err := document.ImportNode(json.RawMessage(`{"type":"poll","version":1,"question":"why?"}`))
	require.NoError(t, err)

	docs := document.NewLink("https://example.com/a b",
		document.NewText("the "),
		document.NewFormattedText("docs", document.FormatBold),
		document.NewText(" and "),
		document.NewWikiLink("n-1"),
	)
	docs.Title = "T"
	relLink := document.NewLink("https://x.example", document.NewText("x"))
	relLink.Rel = "noreferrer"

	cases := []struct {
		name string
		doc  *document.Document
	}{
		{"plain text", document.New(document.NewParagraph(document.NewText("hello world")))},
		{"two paragraphs with soft break", document.New(
			document.NewParagraph(document.NewText("one"), document.NewLineBreak(), document.NewText("two")),
			document.NewParagraph(document.NewText("three")),
		)},
		{"formats", document.New(document.NewParagraph(
			document.NewText("a "),
			document.NewFormattedText("b", document.FormatBold),
			document.NewText(" c "),
			document.NewFormattedText("d", document.FormatItalic),
			document.NewText(" "),
			document.NewFormattedText("e", document.FormatStrikethrough),
			document.NewText(" "),
			document.NewFormattedText("f()", document.FormatCode),
			document.NewText(" "),
			document.NewFormattedText("u", document.FormatUnderline),
			document.NewFormattedText("2", document.FormatSubscript),
			document.NewFormattedText("3", document.FormatSuperscript),
			document.NewText(" "),
			document.NewFormattedText("both", document.FormatBold|document.FormatItalic),
		))},
		{"special characters", document.New(
			document.NewParagraph(document.NewText(`cost: $5 * 2 [x] <tag> a_b \path ~ `+"`tick`!")),
			document.NewParagraph(document.NewText("# not a heading")),
			document.NewParagraph(document.NewText("- not a list")),
			document.NewParagraph(document.NewText("1. not a list either")),
			document.NewParagraph(document.NewText("> not a quote")),
		)},
		{"headings and quote", document.New(
			document.NewHeading(1, document.NewText("Title")),
			document.NewHeading(3, document.NewText("Sub "), document.NewFormattedText("bold", document.FormatBold)),
			document.NewQuote(document.NewText("quoted"), document.NewLineBreak(), document.NewText("second")),
		)},
		{"nested lists", document.New(
			document.NewList(document.ListBullet,
				document.NewListItem(
					document.NewText("one"),
					document.NewList(document.ListNumber,
						document.NewListItem(document.NewText("a")),
						document.NewListItem(document.NewText("b")),
					),
				),
				document.NewListItem(document.NewText("two")),
			),
		)},
		{"check list", document.New(
			document.NewList(document.ListCheck,
				document.NewTaskItem(true, document.NewText("done")),
				document.NewTaskItem(false, document.NewText("todo")),
			),
		)},
		{"table", document.New(
			document.NewTable([]document.Alignment{document.AlignNone, document.AlignCenter, document.AlignRight},
				document.NewTableRow(
					document.NewTableCell(true, document.NewText("H1")),
					document.NewTableCell(true, document.NewText("H2")),
					document.NewTableCell(true, document.NewText("H3")),
				),
				document.NewTableRow(
					document.NewTableCell(false, document.NewText("a")),
					document.NewTableCell(false),
					document.NewTableCell(false, document.NewText("a|b")),
				),
				document.NewTableRow(
					document.NewTableCell(false, document.NewText("l1"), document.NewLineBreak(), document.NewText("l2")),
					document.NewTableCell(false, document.NewFormattedText("e", document.FormatBold)),
					document.NewTableCell(false, document.NewWikiLink("n-1")),
				),
			),
		)},
		{"image", document.New(img)},
		{"math", document.New(
			document.NewParagraph(document.NewText("inline "), document.NewInlineMath("x^2"), document.NewText(" here")),
			document.NewBlockMath(`\int_0^1 x\,dx`),
		)},
		{"links", document.New(
			document.NewParagraph(document.NewText("see "), document.NewWikiLink("note-b")),
			document.NewEmbeddedNote("note-c"),
		)},
		{"raw html", document.New(document.NewParagraph(document.NewText("a "), document.NewHTML(`<span class="x">raw</span>`)))},
		{"media", document.New(
			&document.Video{Src: "/v.mp4", Alt: "clip", Width: 640, Controls: true},
			&document.Audio{Src: "/a.mp3", Alt: "song", Controls: true, Loop: true},
			document.NewMediaReference("m-1"),
		)},
		{"code blocks", document.New(
			document.NewCode("go", "fmt.Println(\"hi\")\n\nreturn"),
			document.NewCode("", "```\nnested\n```"),
		)},
		{"rule", document.New(
			document.NewParagraph(document.NewText("above")),
			document.NewHorizontalRule(),
			document.NewParagraph(document.NewText("below")),
		)},
		{"unreadable", document.New(unknown)},
		{"html other transformers claim", document.New(
			document.NewParagraph(document.NewText("a "), document.NewHTML("<u>x</u>"), document.NewText(" "), document.NewHTML("<sub>2</sub>")),
			document.NewParagraph(document.NewHTML("<div>\n\nx</div>")),
			document.NewParagraph(document.NewHTML("<hr>"), document.NewHTML("<pre>x</pre>")),
			document.NewParagraph(document.NewHTML(`<video src="/v.mp4"></video>`)),
		)},
		{"code inside emphasis", document.New(document.NewParagraph(
			document.NewText("a "),
			document.NewFormattedText("snake_case", document.FormatItalic|document.FormatCode),
			document.NewText(" "),
			document.NewFormattedText("a**b", document.FormatBold|document.FormatCode),
			document.NewText(" "),
			document.NewFormattedText("x~~y", document.FormatStrikethrough|document.FormatCode),
		))},
		{"blocks in table cells", document.New(
			document.NewTable(nil,
				document.NewTableRow(
					document.NewTableCell(true, document.NewText("code")),
					document.NewTableCell(true, document.NewText("math")),
					document.NewTableCell(true, document.NewText("rule")),
					document.NewTableCell(true, document.NewText("other")),
				),
				document.NewTableRow(
					document.NewTableCell(false, document.NewCode("go", "x := 1\ny|z <b> \\")),
					document.NewTableCell(false, document.NewBlockMath("a\\|b\nc")),
					document.NewTableCell(false, document.NewHorizontalRule()),
					document.NewTableCell(false, document.NewHeading(2, document.NewText("h"))),
				),
				document.NewTableRow(
					document.NewTableCell(false, document.NewParagraph(document.NewText("see")), document.NewCode("", "")),
					document.NewTableCell(false, document.NewBlockMath("\nwith $ signs\n")),
					document.NewTableCell(false, document.NewList(document.ListBullet, document.NewListItem(document.NewText("i")))),
					document.NewTableCell(false, document.NewFormattedText("a<br>b", document.FormatCode)),
				),
			),
		)},
		{"empty header row", document.New(
			document.NewTable(nil,
				document.NewTableRow(document.NewTableCell(true), document.NewTableCell(true)),
				document.NewTableRow(document.NewTableCell(false, document.NewText("1")), document.NewTableCell(false, document.NewText("2"))),
			),
		)},
		{"math whitespace", document.New(
			document.NewParagraph(document.NewText("a "), document.NewInlineMath(" x "), document.NewText(" b")),
			document.NewBlockMath(" y "),
			document.NewBlockMath("\nz\n"),
		)},
		{"web links", document.New(
			document.NewParagraph(
				document.NewText("see "),
				docs,
				document.NewText(" or "),
				document.NewAutoLink("https://go.dev"),
				document.NewText(" and http://plain.example "),
				relLink,
			),
		)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertRoundTrip(t, tc.doc)
		})
	}
}

func TestExportShape(t *testing.T) {
	doc := document.New(
		document.NewHeading(2, document.NewText("Hi")),
		document.NewParagraph(document.NewText("a "), document.NewFormattedText("b", document.FormatBold)),
		document.NewList(document.ListNumber,
			document.NewListItem(document.NewText("x")),
			document.NewListItem(document.NewText("y")),
		),
	)
	assert.Equal(t, "## Hi\n\na **b**\n\n1. x\n2. y", Export(doc))
}

func TestExportTableEscapesPipes(t *testing.T) {
	doc := document.New(document.NewTable(nil,
		document.NewTableRow(
			document.NewTableCell(true, document.NewText("A")),
			document.NewTableCell(true, document.NewText("B")),
		),
		document.NewTableRow(
			document.NewTableCell(false, document.NewText("a|b")),
			document.NewTableCell(false, document.NewText("2")),
		),
	))
	assert.Equal(t, "| A    | B   |\n| ---- | --- |\n| a\\|b | 2   |", Export(doc))
}

func TestRaggedTableIsPadded(t *testing.T) {
	doc := document.New(document.NewTable(nil,
		document.NewTableRow(
			document.NewTableCell(true, document.NewText("A")),
			document.NewTableCell(true, document.NewText("B")),
			document.NewTableCell(true, document.NewText("C")),
		),
		document.NewTableRow(document.NewTableCell(false, document.NewText("x"))),
	))

	back := Import(Export(doc))
	require.Len(t, back.Children(), 1)
	table := back.Children()[0].(*document.Element)
	require.Len(t, table.Children, 2)
	row := table.Children[1].(*document.Element)
	assert.Len(t, row.Children, 3)
	assert.Equal(t, "x", row.Children[0].PlainText())
	assert.Equal(t, "", row.Children[2].PlainText())
}

func TestHeaderlessTableRoundTrips(t *testing.T) {
	doc := document.New(document.NewTable(nil,
		document.NewTableRow(
			document.NewTableCell(false, document.NewText("1")),
			document.NewTableCell(false, document.NewText("2")),
		),
	))
	md := Export(doc)
	assert.True(t, strings.HasPrefix(md, "|     |     |\n| --- | --- |"), md)
	assertRoundTrip(t, doc)
}

func TestImportKeepsUnmatchedSpansAsText(t *testing.T) {
	doc := Import("**unclosed and ![[ ]] and $$ $$")
	require.Len(t, doc.Children(), 1)
	p := doc.Children()[0].(*document.Element)
	require.Len(t, p.Children, 1)
	assert.Equal(t, "**unclosed and ![[ ]] and $$ $$", p.Children[0].PlainText())
}

func TestEmbedTakesPrecedenceOverWikiLink(t *testing.T) {
	doc := Import("before ![[b]] after")
	children := doc.Children()
	require.Len(t, children, 3)
	embed, ok := children[1].(*document.EmbeddedNote)
	require.True(t, ok, "got %T", children[1])
	assert.Equal(t, "b", embed.TargetID)

	heading := Import("# Title ![[b]]").Children()[0].(*document.Element)
	assert.Equal(t, document.TypeHeading, heading.Kind)
	require.Len(t, heading.Children, 1)
	assert.Equal(t, "Title ![[b]]", heading.Children[0].PlainText())
}

func TestLinkNames(t *testing.T) {
	namer := mapNamer{"n1": "Alpha", "n2": "Twin", "n3": "twin"}
	doc := document.New(document.NewParagraph(
		document.NewWikiLink("n1"),
		document.NewText(" "),
		document.NewWikiLink("n2"),
		document.NewText(" "),
		document.NewWikiLink("gone"),
	))

	md := Export(doc, WithLinkNames(namer))
	assert.Equal(t, "[[Alpha]] [[n2]] [[gone]]", md)
	assertRoundTrip(t, doc, WithLinkNames(namer))

	legacy := document.New(document.NewParagraph(&document.WikiLink{LegacyTitle: "Old Title"}))
	assert.Equal(t, "[[Old Title]]", Export(legacy))
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	names := r.Names()
	assert.Equal(t, "code-fence", names[0])
	assert.Less(t, indexOf(names, "image"), indexOf(names, "embed"))
	assert.Less(t, indexOf(names, "embed"), indexOf(names, "wikilink"))
	assert.Less(t, indexOf(names, "bold"), indexOf(names, "italic"))

	plain := r.Without("strikethrough")
	assert.NotContains(t, plain.Names(), "strikethrough")
	doc := Import("~~x~~", WithRegistry(plain))
	p := doc.Children()[0].(*document.Element)
	require.Len(t, p.Children, 1)
	text := p.Children[0].(*document.Text)
	assert.Equal(t, "~~x~~", text.Text)
	assert.Equal(t, document.Format(0), text.Format)

	assert.Contains(t, DefaultRegistry().Names(), "strikethrough")
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestOversizedInputIsKeptAsCode(t *testing.T) {
	src := "# heading\n\nsome **text**"
	doc := Import(src, WithMaxInput(8))
	require.Len(t, doc.Children(), 1)
	code := doc.Children()[0].(*document.Element)
	assert.Equal(t, document.TypeCode, code.Kind)
	assert.Equal(t, src, code.PlainText())
}

func TestImportNormalizesLineEndings(t *testing.T) {
	doc := Import("# A\r\n\r\nbody")
	require.Len(t, doc.Children(), 2)
	assert.Equal(t, "body", doc.Children()[1].PlainText())
}

func TestHTMLOnlyClaimedByHTMLIsWrittenVerbatim(t *testing.T) {
	raw := `<span class="x">raw</span>`
	assert.Equal(t, raw, Export(document.New(document.NewParagraph(document.NewHTML(raw)))))

	md := Export(document.New(document.NewParagraph(document.NewHTML("<u>x</u>"))))
	assert.NotEqual(t, "<u>x</u>", md)
	p := Import(md).Children()[0].(*document.Element)
	require.Len(t, p.Children, 1)
	h, ok := p.Children[0].(*document.HTML)
	require.True(t, ok, "got %T", p.Children[0])
	assert.Equal(t, "<u>x</u>", h.Raw)
}

func TestEmphasisSkipsCodeSpans(t *testing.T) {
	p := Import("_`snake_case`_ and **`a**b`**").Children()[0].(*document.Element)
	require.Len(t, p.Children, 3)
	italic := p.Children[0].(*document.Text)
	assert.Equal(t, "snake_case", italic.Text)
	assert.Equal(t, document.FormatItalic|document.FormatCode, italic.Format)
	bold := p.Children[2].(*document.Text)
	assert.Equal(t, "a**b", bold.Text)
	assert.Equal(t, document.FormatBold|document.FormatCode, bold.Format)
}

func TestTableCellBlocksStayOnOneLine(t *testing.T) {
	doc := document.New(document.NewTable(nil,
		document.NewTableRow(
			document.NewTableCell(true, document.NewText("A")),
			document.NewTableCell(true, document.NewText("B")),
			document.NewTableCell(true, document.NewText("C")),
		),
		document.NewTableRow(
			document.NewTableCell(false, document.NewCode("", "line1\nline2")),
			document.NewTableCell(false, document.NewBlockMath("x\ny")),
			document.NewTableCell(false, document.NewHorizontalRule()),
		),
	))
	md := Export(doc)
	lines := strings.Split(md, "\n")
	require.Len(t, lines, 3, md)
	assert.Contains(t, lines[2], "<pre>line1&#10;line2</pre>")
	assert.Contains(t, lines[2], "$$x<br>y$$")
	assert.Contains(t, lines[2], "<hr>")
	assertRoundTrip(t, doc)
}

func TestEmptyHeaderRowIsKept(t *testing.T) {
	doc := document.New(document.NewTable(nil,
		document.NewTableRow(document.NewTableCell(true), document.NewTableCell(true)),
		document.NewTableRow(document.NewTableCell(false, document.NewText("1")), document.NewTableCell(false, document.NewText("2"))),
	))
	back := Import(Export(doc))
	table := back.Children()[0].(*document.Element)
	require.Len(t, table.Children, 2)
	header := table.Children[0].(*document.Element)
	assert.Equal(t, document.HeaderRow, header.Children[0].(*document.Element).HeaderState)
}

func TestMathKeepsSurroundingWhitespace(t *testing.T) {
	p := Import("a $ x $ b").Children()[0].(*document.Element)
	require.Len(t, p.Children, 3)
	assert.Equal(t, " x ", p.Children[1].(*document.Math).Equation)

	m := Import("$$\n y \n$$").Children()[0].(*document.Math)
	assert.Equal(t, " y ", m.Equation)
}

func TestImportLinks(t *testing.T) {
	doc := Import(`read [the docs](https://a.example "A") at https://b.example/x. or xhttps://c.example`)
	p := doc.Children()[0].(*document.Element)
	require.Len(t, p.Children, 5)

	link := p.Children[1].(*document.Element)
	assert.Equal(t, document.TypeLink, link.Kind)
	assert.Equal(t, "https://a.example", link.URL)
	assert.Equal(t, "A", link.Title)
	assert.Equal(t, "the docs", link.PlainText())

	auto := p.Children[3].(*document.Element)
	assert.Equal(t, document.TypeAutoLink, auto.Kind)
	assert.Equal(t, "https://b.example/x", auto.URL)
	assert.Equal(t, ". or xhttps://c.example", p.Children[4].PlainText())
}

func TestWikiLinksInsideLinksAreReferences(t *testing.T) {
	doc := Import("[see [[n-1]] too](https://x.example) and <https://y.example>")
	assert.Equal(t, []string{"n-1"}, document.References(doc))
	p := doc.Children()[0].(*document.Element)
	auto := p.Children[2].(*document.Element)
	assert.Equal(t, document.TypeAutoLink, auto.Kind)
	assert.Equal(t, "https://y.example", auto.URL)
}
