package markdown

import (
	"regexp"
	"strings"

	"github.com/starford/notegraph/internal/document"
)

func elementOf(n document.Node, kind document.Type) (*document.Element, bool) {
	e, ok := n.(*document.Element)
	if !ok || e.Kind != kind {
		return nil, false
	}
	return e, true
}

var fenceOpen = regexp.MustCompile("^( {0,3})(`{3,})([^`]*)$")

var fencedCodeBlock = blockTransformer{
	name: "code-fence",
	export: func(_ *exporter, n document.Node) (string, bool) {
		e, ok := elementOf(n, document.TypeCode)
		if !ok {
			return "", false
		}
		body := e.PlainText()
		longest, run := 0, 0
		for i := 0; i < len(body); i++ {
			if body[i] == '`' {
				run++
				longest = max(longest, run)
			} else {
				run = 0
			}
		}
		fence := strings.Repeat("`", max(3, longest+1))
		return fence + e.Language + "\n" + body + "\n" + fence, true
	},
	parse: func(_ *importer, lines []string, i int) ([]document.Node, int, bool) {
		m := fenceOpen.FindStringSubmatch(lines[i])
		if m == nil {
			return nil, i, false
		}
		fence := m[2]
		lang := strings.TrimSpace(m[3])
		for j := i + 1; j < len(lines); j++ {
			t := strings.TrimSpace(lines[j])
			if strings.HasPrefix(t, fence) && strings.Trim(t, "`") == "" {
				body := strings.Join(lines[i+1:j], "\n")
				return []document.Node{document.NewCode(lang, body)}, j + 1, true
			}
		}
		return nil, i, false
	},
	interrupts: fenceOpen.MatchString,
}

var mathBlock = blockTransformer{
	name: "math-block",
	export: func(_ *exporter, n document.Node) (string, bool) {
		m, ok := n.(*document.Math)
		if !ok || m.Format != document.MathBlock {
			return "", false
		}
		return "$$\n" + m.Equation + "\n$$", true
	},
	parse: func(_ *importer, lines []string, i int) ([]document.Node, int, bool) {
		first := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(first, "$$") {
			return nil, i, false
		}
		rest := first[2:]
		if k := strings.Index(rest, "$$"); k >= 0 {
			if strings.TrimSpace(rest[k+2:]) != "" {
				return nil, i, false
			}
			return mathNodes(rest[:k], i+1)
		}
		// The equation is every line between the delimiters, verbatim. Text
		// sharing a line with a delimiter belongs to it too.
		var body []string
		if rest != "" {
			body = append(body, rest)
		}
		for j := i + 1; j < len(lines); j++ {
			t := strings.TrimRight(lines[j], " \t")
			if strings.HasSuffix(t, "$$") {
				if last := strings.TrimSuffix(t, "$$"); strings.TrimSpace(last) != "" {
					body = append(body, last)
				}
				return mathNodes(strings.Join(body, "\n"), j+1)
			}
			body = append(body, lines[j])
		}
		return nil, i, false
	},
	interrupts: func(line string) bool { return strings.HasPrefix(strings.TrimSpace(line), "$$") },
}

func mathNodes(eq string, next int) ([]document.Node, int, bool) {
	if strings.TrimSpace(eq) == "" {
		return nil, next, false
	}
	return []document.Node{document.NewBlockMath(eq)}, next, true
}

var headingLine = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?[ \t]*$`)

var headingBlock = blockTransformer{
	name: "heading",
	export: func(x *exporter, n document.Node) (string, bool) {
		e, ok := elementOf(n, document.TypeHeading)
		if !ok {
			return "", false
		}
		level := max(e.HeadingLevel(), 1)
		content := x.inlines(e.Children)
		if content == "" {
			return strings.Repeat("#", level), true
		}
		return strings.Repeat("#", level) + " " + content, true
	},
	parse: func(im *importer, lines []string, i int) ([]document.Node, int, bool) {
		m := headingLine.FindStringSubmatch(lines[i])
		if m == nil {
			return nil, i, false
		}
		h := document.NewHeading(len(m[1]), im.inlineOnly(m[2])...)
		return []document.Node{h}, i + 1, true
	},
	interrupts: headingLine.MatchString,
}

var ruleLine = regexp.MustCompile(`^ {0,3}(?:-{3,}|\*{3,}|_{3,})[ \t]*$`)

var horizontalRuleBlock = blockTransformer{
	name: "horizontal-rule",
	export: func(_ *exporter, n document.Node) (string, bool) {
		if _, ok := n.(*document.HorizontalRule); !ok {
			return "", false
		}
		return "---", true
	},
	parse: func(_ *importer, lines []string, i int) ([]document.Node, int, bool) {
		if !ruleLine.MatchString(lines[i]) {
			return nil, i, false
		}
		return []document.Node{document.NewHorizontalRule()}, i + 1, true
	},
	interrupts: ruleLine.MatchString,
}

var quoteLine = regexp.MustCompile(`^ {0,3}>[ ]?(.*)$`)

var quoteBlock = blockTransformer{
	name: "quote",
	export: func(x *exporter, n document.Node) (string, bool) {
		e, ok := elementOf(n, document.TypeQuote)
		if !ok {
			return "", false
		}
		lines := strings.Split(x.inlines(e.Children), "\n")
		for i, l := range lines {
			if l == "" {
				lines[i] = ">"
			} else {
				lines[i] = "> " + l
			}
		}
		return strings.Join(lines, "\n"), true
	},
	parse: func(im *importer, lines []string, i int) ([]document.Node, int, bool) {
		var body []string
		j := i
		for ; j < len(lines); j++ {
			m := quoteLine.FindStringSubmatch(lines[j])
			if m == nil {
				break
			}
			body = append(body, m[1])
		}
		if len(body) == 0 {
			return nil, i, false
		}
		q := document.NewQuote(im.inlineOnly(strings.Join(body, "\n"))...)
		return []document.Node{q}, j, true
	},
	interrupts: quoteLine.MatchString,
}
