package markdown

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/starford/notegraph/internal/document"
)

var separatorCell = regexp.MustCompile(`^:?-+:?$`)

var tableBlock = blockTransformer{
	name:   "table",
	export: exportTable,
	parse:  parseTable,
}

// exportTable writes a GFM table. Short rows are padded to the widest row.
// A table without a header row gets an empty one so that the separator
// always follows a header; import drops an all-empty header row again.
func exportTable(x *exporter, n document.Node) (string, bool) {
	t, ok := elementOf(n, document.TypeTable)
	if !ok {
		return "", false
	}
	cols := t.ColumnCount()
	if cols == 0 {
		return "", true
	}

	var rows [][]string
	hasHeader := false
	for i, r := range t.Children {
		row, ok := r.(*document.Element)
		if !ok {
			continue
		}
		if i == 0 {
			hasHeader = isHeaderRow(row)
		}
		cells := make([]string, cols)
		for j, c := range row.Children {
			cells[j] = x.cell(c)
		}
		rows = append(rows, cells)
	}
	switch {
	case !hasHeader:
		rows = append([][]string{make([]string, cols)}, rows...)
	case allEmpty(rows[0]):
		// An empty header row of its own is marked so that it is not taken
		// for the placeholder above.
		for j := range rows[0] {
			rows[0][j] = emptyComment
		}
	}

	widths := make([]int, cols)
	for j := range widths {
		widths[j] = 3
	}
	for _, r := range rows {
		for j, c := range r {
			widths[j] = max(widths[j], runewidth.StringWidth(c))
		}
	}

	row := func(cells []string) string {
		var b strings.Builder
		b.WriteString("|")
		for j, c := range cells {
			b.WriteString(" " + c + strings.Repeat(" ", widths[j]-runewidth.StringWidth(c)) + " |")
		}
		return b.String()
	}
	seps := make([]string, cols)
	for j := range seps {
		seps[j] = separator(t.AlignmentAt(j), widths[j])
	}
	out := []string{row(rows[0]), "| " + strings.Join(seps, " | ") + " |"}
	for _, r := range rows[1:] {
		out = append(out, row(r))
	}
	return strings.Join(out, "\n"), true
}

func isHeaderRow(row *document.Element) bool {
	if len(row.Children) == 0 {
		return false
	}
	for _, c := range row.Children {
		cell, ok := c.(*document.Element)
		if !ok || cell.HeaderState&document.HeaderRow == 0 {
			return false
		}
	}
	return true
}

func separator(a document.Alignment, width int) string {
	switch a {
	case document.AlignLeft:
		return ":" + strings.Repeat("-", width-1)
	case document.AlignRight:
		return strings.Repeat("-", width-1) + ":"
	case document.AlignCenter:
		return ":" + strings.Repeat("-", width-2) + ":"
	}
	return strings.Repeat("-", width)
}

// cell writes the content of a table cell on one line. Blocks use a one-line
// form: <hr> for a rule, <pre> for code, $$...$$ for math. Anything else
// that would span lines is written as an envelope.
func (x *exporter) cell(n document.Node) string {
	e, ok := n.(*document.Element)
	if !ok {
		return ""
	}
	saved := x.inCell
	x.inCell = true
	defer func() { x.inCell = saved }()

	var parts []string
	for _, c := range e.Children {
		var s string
		if p, ok := elementOf(c, document.TypeParagraph); ok {
			s = x.inlines(p.Children)
		} else if c.IsInline() {
			s = x.inlines([]document.Node{c})
		} else {
			s = x.cellBlock(c)
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return escapeCell(strings.Join(parts, "<br>"))
}

func (x *exporter) cellBlock(n document.Node) string {
	switch v := n.(type) {
	case *document.HorizontalRule:
		return "<hr>"
	case *document.Math:
		if s, ok := cellMath(v.Equation); ok {
			return s
		}
	case *document.Element:
		if v.Kind == document.TypeCode {
			return preTag(v)
		}
	default:
		if s, ok := x.decorator(n); ok && !strings.Contains(s, "\n") {
			return s
		}
	}
	return envelope(n)
}

// cellMath writes block math as $$...$$ with <br> for newlines. Equations
// that would not read back from that form are refused.
func cellMath(eq string) (string, bool) {
	if strings.TrimSpace(eq) == "" || strings.Contains(eq, "$") || strings.Contains(eq, "<br>") ||
		strings.Contains(eq, "\\\n") || strings.HasPrefix(eq, "\n") || strings.HasSuffix(eq, "\n") {
		return "", false
	}
	return "$$" + strings.ReplaceAll(eq, "\n", "<br>") + "$$", true
}

func parseTable(im *importer, lines []string, i int) ([]document.Node, int, bool) {
	if i+1 >= len(lines) || !hasUnescapedPipe(lines[i]) || !hasUnescapedPipe(lines[i+1]) {
		return nil, i, false
	}
	header := splitRow(lines[i])
	sep := splitRow(lines[i+1])
	align := make([]document.Alignment, len(sep))
	anyAlign := false
	for j, s := range sep {
		if !separatorCell.MatchString(s) {
			return nil, i, false
		}
		align[j] = alignment(s)
		anyAlign = anyAlign || align[j] != document.AlignNone
	}

	body := [][]string{}
	j := i + 2
	for ; j < len(lines) && !isBlank(lines[j]) && hasUnescapedPipe(lines[j]); j++ {
		if len(body) >= MaxTableRows {
			return nil, i, false
		}
		body = append(body, splitRow(lines[j]))
	}

	cols := max(len(header), len(sep))
	for _, r := range body {
		cols = max(cols, len(r))
	}
	if cols > MaxTableColumns {
		return nil, i, false
	}

	var rows []document.Node
	if !allEmpty(header) {
		rows = append(rows, im.tableRow(header, cols, true))
	}
	for _, r := range body {
		rows = append(rows, im.tableRow(r, cols, false))
	}
	if !anyAlign {
		align = nil
	}
	return []document.Node{document.NewTable(align, rows...)}, j, true
}

func alignment(sep string) document.Alignment {
	left := strings.HasPrefix(sep, ":")
	right := strings.HasSuffix(sep, ":")
	switch {
	case left && right:
		return document.AlignCenter
	case left:
		return document.AlignLeft
	case right:
		return document.AlignRight
	}
	return document.AlignNone
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func (im *importer) tableRow(cells []string, cols int, header bool) *document.Element {
	row := document.NewTableRow()
	for j := range cols {
		var content string
		if j < len(cells) {
			content = cells[j]
		}
		row.Append(im.tableCell(content, header))
	}
	return row
}

func (im *importer) tableCell(content string, header bool) *document.Element {
	if content == "" {
		return document.NewTableCell(header)
	}
	content = breaksToNewlines(content)
	blocks := im.paragraph(content)
	if len(blocks) == 0 {
		return document.NewTableCell(header)
	}
	return document.NewTableCell(header, blocks...)
}

// breaksToNewlines turns every unescaped <br> into a newline.
func breaksToNewlines(s string) string {
	if !strings.Contains(s, "<br>") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(s[i])
			b.WriteByte(s[i+1])
			i++
			continue
		}
		if strings.HasPrefix(s[i:], "<br>") {
			b.WriteByte('\n')
			i += len("<br>") - 1
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
