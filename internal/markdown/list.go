package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/notegraph/internal/document"
)

var (
	listItemLine = regexp.MustCompile(`^([ \t]*)([-*+]|\d{1,9}[.)])(?:[ \t]+(.*))?$`)
	checkbox     = regexp.MustCompile(`^\[([ xX])\](?:[ \t]+(.*))?$`)
)

var listBlock = blockTransformer{
	name: "list",
	export: func(x *exporter, n document.Node) (string, bool) {
		e, ok := elementOf(n, document.TypeList)
		if !ok {
			return "", false
		}
		return x.list(e, ""), true
	},
	parse: func(im *importer, lines []string, i int) ([]document.Node, int, bool) {
		if parseItemLine(lines[i]) == nil {
			return nil, i, false
		}
		list, next := im.list(lines, i)
		return []document.Node{list}, next, true
	},
	interrupts: listItemLine.MatchString,
}

// list writes one item per line. Nested lists are indented by the width of
// their parent's marker, as are continuation lines of an item.
func (x *exporter) list(e *document.Element, indent string) string {
	start := e.Start
	if start == 0 {
		start = 1
	}
	var lines []string
	for i, c := range e.Children {
		item, ok := elementOf(c, document.TypeListItem)
		if !ok {
			continue
		}
		marker := "-"
		if e.ListType == document.ListNumber {
			marker = strconv.Itoa(start+i) + "."
		}
		pad := indent + strings.Repeat(" ", len(marker)+1)

		head := indent + marker
		if item.Checked != nil {
			if *item.Checked {
				head += " [x]"
			} else {
				head += " [ ]"
			}
		}

		var (
			run   []document.Node
			first = true
		)
		flush := func() {
			if len(run) == 0 && !first {
				return
			}
			content := x.inlines(run)
			run = nil
			for j, l := range strings.Split(content, "\n") {
				switch {
				case first && j == 0 && l == "":
					lines = append(lines, head)
				case first && j == 0:
					lines = append(lines, head+" "+l)
				default:
					lines = append(lines, pad+l)
				}
			}
			first = false
		}
		for _, child := range item.Children {
			if sub, ok := elementOf(child, document.TypeList); ok {
				flush()
				lines = append(lines, x.list(sub, pad))
				continue
			}
			if p, ok := elementOf(child, document.TypeParagraph); ok {
				run = append(run, p.Children...)
				continue
			}
			run = append(run, child)
		}
		flush()
	}
	return strings.Join(lines, "\n")
}

type itemLine struct {
	indent  int
	marker  string
	ordered bool
	number  int
	checked *bool
	content string
}

func parseItemLine(line string) *itemLine {
	m := listItemLine.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	it := &itemLine{indent: indentWidth(m[1]), marker: m[2], content: m[3]}
	if n, err := strconv.Atoi(strings.TrimRight(m[2], ".)")); err == nil {
		it.ordered = true
		it.number = n
	}
	if c := checkbox.FindStringSubmatch(it.content); c != nil {
		checked := c[1] != " "
		it.checked = &checked
		it.content = c[2]
	}
	return it
}

// sameKind reports whether b continues the list started by a: the same
// bullet character or the same number delimiter.
func (a *itemLine) sameKind(b *itemLine) bool {
	if a.ordered != b.ordered {
		return false
	}
	return a.marker[len(a.marker)-1] == b.marker[len(b.marker)-1]
}

func indentWidth(ws string) int {
	w := 0
	for _, c := range ws {
		if c == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// list reads the list starting at lines[i]. A deeper item nests under the
// item before it; a blank line, a shallower item or a change of marker ends
// the list.
func (im *importer) list(lines []string, i int) (*document.Element, int) {
	first := parseItemLine(lines[i])
	lt := document.ListBullet
	switch {
	case first.ordered:
		lt = document.ListNumber
	case first.checked != nil:
		lt = document.ListCheck
	}
	list := document.NewList(lt)
	if first.ordered {
		list.Start = first.number
	}

	var (
		item    *document.Element
		pending []string
		content int
	)
	flush := func() {
		if item != nil && len(pending) > 0 {
			item.Append(im.inlineOnly(strings.Join(pending, "\n"))...)
		}
		pending = nil
	}

	j := i
	for j < len(lines) && !isBlank(lines[j]) {
		line := lines[j]
		if it := parseItemLine(line); it != nil {
			if item != nil && it.indent > first.indent {
				flush()
				sub, next := im.list(lines, j)
				item.Append(sub)
				j = next
				continue
			}
			if it.indent < first.indent || !first.sameKind(it) {
				break
			}
			flush()
			if it.checked != nil {
				item = document.NewTaskItem(*it.checked)
			} else {
				item = document.NewListItem()
			}
			list.Append(item)
			content = it.indent + len(it.marker) + 1
			if it.content != "" {
				pending = append(pending, it.content)
			}
			j++
			continue
		}
		if im.interrupts(line) {
			break
		}
		pending = append(pending, trimIndent(line, content))
		j++
	}
	flush()
	return list, j
}

// trimIndent removes up to n columns of leading whitespace.
func trimIndent(line string, n int) string {
	w := 0
	for i := 0; i < len(line); i++ {
		if w >= n {
			return line[i:]
		}
		switch line[i] {
		case ' ':
			w++
		case '\t':
			w += 4
		default:
			return line[i:]
		}
	}
	return ""
}
