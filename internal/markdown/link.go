package markdown

import (
	"regexp"

	"github.com/starford/notegraph/internal/document"
)

var linkDestination = anchored(`\(((?:\\.|[^\\\s)])*)(?:\s+"((?:\\.|[^\\"])*)")?\)`)

// matchLink matches [text](destination "title"). Brackets in the text must
// balance; escaped bytes and code spans are skipped. Submatch 1 is the text,
// 2 the destination and 3 the title.
func matchLink(s string) []int {
	if s == "" || s[0] != '[' {
		return nil
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '`':
			if m := matchCodeSpan(s[i:]); m != nil {
				i += m[1] - 1
			}
		case '[':
			depth++
		case ']':
			depth--
			if depth > 0 {
				continue
			}
			d := linkDestination(s[i+1:])
			if d == nil {
				return nil
			}
			m := []int{0, i + 1 + d[1], 1, i}
			for _, off := range d[2:] {
				if off >= 0 {
					off += i + 1
				}
				m = append(m, off)
			}
			return m
		}
	}
	return nil
}

var linkInline = inlineTransformer{
	name:     "link",
	triggers: "[",
	match:    matchLink,
	build: func(im *importer, s string, m []int, format document.Format) ([]document.Node, bool) {
		if im.inLink {
			return nil, false
		}
		im.inLink = true
		children := im.inline(group(s, m, 1), format)
		im.inLink = false
		link := document.NewLink(unescapeAll(group(s, m, 2)), children...)
		link.Title = unescapeAll(group(s, m, 3))
		return []document.Node{link}, true
	},
	export: func(x *exporter, n document.Node) (string, bool) {
		e, ok := elementOf(n, document.TypeLink)
		if !ok {
			return "", false
		}
		if e.Rel != "" || e.Target != "" || containsLink(e.Children) {
			return envelope(e), true
		}
		text := x.inlines(e.Children)
		out := "[" + text + "](" + escapeSrc(e.URL)
		if e.Title != "" {
			out += ` "` + escapeTitle(e.Title) + `"`
		}
		out += ")"
		if m := matchLink(out); m == nil || m[1] != len(out) || group(out, m, 1) != text {
			return envelope(e), true
		}
		return out, true
	},
}

func containsLink(nodes []document.Node) bool {
	for _, n := range nodes {
		if e, ok := n.(*document.Element); ok && e.IsLink() {
			return true
		}
	}
	return false
}

// autoLinkURL is an absolute URI as CommonMark writes it between angle
// brackets.
var autoLinkURL = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]{1,31}:[^\s<>]*$`)

var autoLinkInline = inlineTransformer{
	name:     "autolink",
	triggers: "<",
	match:    anchored(`<([a-zA-Z][a-zA-Z0-9+.\-]{1,31}:[^\s<>]*)>`),
	build: func(im *importer, s string, m []int, format document.Format) ([]document.Node, bool) {
		if im.inLink {
			return nil, false
		}
		return []document.Node{autoLink(group(s, m, 1), format)}, true
	},
	export: func(_ *exporter, n document.Node) (string, bool) {
		e, ok := elementOf(n, document.TypeAutoLink)
		if !ok {
			return "", false
		}
		if len(e.Children) != 1 || !autoLinkURL.MatchString(e.URL) {
			return envelope(e), true
		}
		t, ok := e.Children[0].(*document.Text)
		if !ok || t.Text != e.URL || t.HasFormat(document.FormatCode) {
			return envelope(e), true
		}
		return wrapFormat("<"+e.URL+">", t.Format), true
	},
}

// bareURL matches a web address written without brackets. Trailing
// punctuation is left out of it.
var bareURL = anchored(`https?://[^\s<>\[\]]*[^\s<>\[\]?!.,:;*_~'"()]`)

var bareURLInline = inlineTransformer{
	name:     "bare-url",
	triggers: "h",
	match:    bareURL,
	build: func(im *importer, s string, m []int, format document.Format) ([]document.Node, bool) {
		if im.inLink || !im.wordStart {
			return nil, false
		}
		return []document.Node{autoLink(s[:m[1]], format)}, true
	},
	export: func(*exporter, document.Node) (string, bool) { return "", false },
}

func autoLink(url string, format document.Format) *document.Element {
	link := document.NewAutoLink(url)
	link.Children = []document.Node{document.NewFormattedText(url, format)}
	return link
}

func isWordByte(c byte) bool {
	return c >= 0x80 || c == '_' || (c >= '0' && c <= '9') || (c|0x20 >= 'a' && c|0x20 <= 'z')
}
