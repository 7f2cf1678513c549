package markdown

import (
	"encoding/base64"
	"html"
	"regexp"
	"strings"

	"github.com/starford/notegraph/internal/document"
)

const nodePrefix = "<!--notegraph:node:"

// envelope writes n as its serialized form inside an HTML comment. It is
// the fallback for nodes that have no markdown form which reads back equal,
// such as raw HTML another transformer would claim or blocks inside a table
// cell.
func envelope(n document.Node) string {
	raw, err := document.ExportNode(n)
	if err != nil {
		return ""
	}
	return nodePrefix + base64.StdEncoding.EncodeToString(raw) + "-->"
}

var nodeInline = inlineTransformer{
	name:     "node",
	triggers: "<",
	match:    anchored(regexp.QuoteMeta(nodePrefix) + `([A-Za-z0-9+/=]*)-->`),
	build: func(im *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		raw, err := base64.StdEncoding.DecodeString(group(s, m, 1))
		if err != nil {
			return nil, false
		}
		n, err := document.ImportNode(raw)
		if err != nil {
			return nil, false
		}
		if !n.IsInline() && !im.blocksAllowed {
			return nil, false
		}
		return []document.Node{n}, true
	},
	export: func(*exporter, document.Node) (string, bool) { return "", false },
}

// emptyCommentInline drops "<!---->". Exported tables use it to mark a
// header row whose cells are all empty.
var emptyCommentInline = inlineTransformer{
	name:     "empty-comment",
	triggers: "<",
	match:    anchored(regexp.QuoteMeta(emptyComment)),
	build: func(*importer, string, []int, document.Format) ([]document.Node, bool) {
		return []document.Node{}, true
	},
	export: func(*exporter, document.Node) (string, bool) { return "", false },
}

const emptyComment = "<!---->"

// ruleTagInline reads <hr>, the form a horizontal rule takes inside a cell.
var ruleTagInline = inlineTransformer{
	name:     "horizontal-rule-tag",
	triggers: "<",
	match:    anchored(`(?i)<hr\s*/?>`),
	build: func(im *importer, _ string, _ []int, _ document.Format) ([]document.Node, bool) {
		if !im.blocksAllowed {
			return nil, false
		}
		return []document.Node{document.NewHorizontalRule()}, true
	},
	export: func(*exporter, document.Node) (string, bool) { return "", false },
}

// preTagInline reads <pre>, the form a code block takes inside a cell.
var preTagInline = inlineTransformer{
	name:     "code-tag",
	triggers: "<",
	match:    anchored(`<pre(?: data-lang="([^"]*)")?>([^<]*)</pre>`),
	build: func(im *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		if !im.blocksAllowed {
			return nil, false
		}
		lang := html.UnescapeString(group(s, m, 1))
		return []document.Node{document.NewCode(lang, html.UnescapeString(group(s, m, 2)))}, true
	},
	export: func(*exporter, document.Node) (string, bool) { return "", false },
}

// preEscaper leaves no '<', pipe, backslash or newline in cell code, so the
// row splitter and the <br> conversion pass it through unchanged.
var preEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	`\`, "&#92;",
	"|", "&#124;",
	"\n", "&#10;",
)

func preTag(code *document.Element) string {
	var b strings.Builder
	b.WriteString("<pre")
	if code.Language != "" {
		b.WriteString(` data-lang="` + preEscaper.Replace(code.Language) + `"`)
	}
	b.WriteString(">" + preEscaper.Replace(code.PlainText()) + "</pre>")
	return b.String()
}
