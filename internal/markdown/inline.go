package markdown

import (
	"encoding/base64"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/notegraph/internal/document"
)

// inline parses s into inline nodes carrying format.
func (im *importer) inline(s string, format document.Format) []document.Node {
	var (
		out  []document.Node
		text strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			out = appendText(out, text.String(), format)
			text.Reset()
		}
	}
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && isASCIIPunct(s[i+1]):
			text.WriteByte(s[i+1])
			i += 2
			continue
		case c == '\n':
			flush()
			out = append(out, document.NewLineBreak())
			i++
			continue
		}
		im.wordStart = i == 0 || !isWordByte(s[i-1])
		nodes, n, matched := im.tryInline(s[i:], format)
		switch {
		case matched && nodes != nil:
			flush()
			out = append(out, nodes...)
			i += n
		case matched:
			// A construct that cannot become a node stays as written.
			text.WriteString(s[i : i+n])
			i += n
		default:
			text.WriteByte(c)
			i++
		}
	}
	flush()
	return out
}

// tryInline runs the inline transformers triggered by s[0]. It returns the
// built nodes and the length of the consumed span. matched is true with nil
// nodes when a transformer recognised the span but could not build it.
func (im *importer) tryInline(s string, format document.Format) ([]document.Node, int, bool) {
	for _, t := range im.opts.registry.inlines {
		if strings.IndexByte(t.triggers, s[0]) < 0 {
			continue
		}
		m := t.match(s)
		if m == nil || m[1] == 0 {
			continue
		}
		nodes, ok := t.build(im, s, m, format)
		if !ok {
			im.opts.logger.Debug("markdown span kept as text",
				slog.String("transformer", t.name),
				slog.String("span", truncate(s[:m[1]], 80)))
			return nil, m[1], true
		}
		return nodes, m[1], true
	}
	return nil, 0, false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// appendText adds a text run, merging it into a preceding run of the same
// format.
func appendText(out []document.Node, s string, format document.Format) []document.Node {
	if s == "" {
		return out
	}
	if len(out) > 0 {
		if prev, ok := out[len(out)-1].(*document.Text); ok && prev.Format == format {
			prev.Text += s
			return out
		}
	}
	return append(out, document.NewFormattedText(s, format))
}

// mergeTexts joins adjacent text runs of equal format.
func mergeTexts(nodes []document.Node) []document.Node {
	out := make([]document.Node, 0, len(nodes))
	for _, n := range nodes {
		if t, ok := n.(*document.Text); ok {
			out = appendText(out, t.Text, t.Format)
			continue
		}
		out = append(out, n)
	}
	return out
}

func formatted(name, open, close, triggers string, bit document.Format) inlineTransformer {
	return inlineTransformer{
		name:     name,
		triggers: triggers,
		match:    delimited(open, close),
		build: func(im *importer, s string, m []int, format document.Format) ([]document.Node, bool) {
			return im.inline(group(s, m, 1), format|bit), true
		},
		export: func(*exporter, document.Node) (string, bool) { return "", false },
	}
}

// delimited matches open, at least one byte of content and the first close
// after it. Escaped bytes and code spans in the content never close it.
func delimited(open, close string) func(string) []int {
	return func(s string) []int {
		if !strings.HasPrefix(s, open) {
			return nil
		}
		start := len(open)
		for i := start; i < len(s); {
			switch {
			case s[i] == '\\' && i+1 < len(s):
				i += 2
			case s[i] == '`':
				if m := matchCodeSpan(s[i:]); m != nil {
					i += m[1]
				} else {
					i++
				}
			case i > start && strings.HasPrefix(s[i:], close):
				return []int{0, i + len(close), start, i}
			default:
				i++
			}
		}
		return nil
	}
}

var (
	boldInline             = formatted("bold", "**", "**", "*", document.FormatBold)
	italicStarInline       = formatted("italic", "*", "*", "*", document.FormatItalic)
	italicUnderscoreInline = formatted("italic-underscore", "_", "_", "_", document.FormatItalic)
	strikethroughInline    = formatted("strikethrough", "~~", "~~", "~", document.FormatStrikethrough)
	underlineInline        = formatted("underline", "<u>", "</u>", "<", document.FormatUnderline)
	superscriptInline      = formatted("superscript", "<sup>", "</sup>", "<", document.FormatSuperscript)
	subscriptInline        = formatted("subscript", "<sub>", "</sub>", "<", document.FormatSubscript)
)

var codeSpanInline = inlineTransformer{
	name:     "code",
	triggers: "`",
	match:    matchCodeSpan,
	build: func(_ *importer, s string, m []int, format document.Format) ([]document.Node, bool) {
		content := group(s, m, 1)
		if len(content) >= 2 && content[0] == ' ' && content[len(content)-1] == ' ' && strings.Trim(content, " ") != "" {
			content = content[1 : len(content)-1]
		}
		if content == "" {
			return nil, false
		}
		return []document.Node{document.NewFormattedText(content, format|document.FormatCode)}, true
	},
	export: func(*exporter, document.Node) (string, bool) { return "", false },
}

// matchCodeSpan matches a backtick run and the next run of equal length.
func matchCodeSpan(s string) []int {
	n := 0
	for n < len(s) && s[n] == '`' {
		n++
	}
	if n == 0 {
		return nil
	}
	for i := n; i < len(s); {
		if s[i] != '`' {
			i++
			continue
		}
		j := i
		for j < len(s) && s[j] == '`' {
			j++
		}
		if j-i == n {
			return []int{0, j, n, i}
		}
		i = j
	}
	return nil
}

// codeSpan writes content between enough backticks to enclose it.
func codeSpan(content string) string {
	longest, run := 0, 0
	for i := 0; i < len(content); i++ {
		if content[i] == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", longest+1)
	if strings.Trim(content, " ") != "" &&
		(strings.HasPrefix(content, "`") || strings.HasSuffix(content, "`") ||
			strings.HasPrefix(content, " ") || strings.HasSuffix(content, " ")) {
		content = " " + content + " "
	}
	return fence + content + fence
}

var wikiLinkInline = inlineTransformer{
	name:     "wikilink",
	triggers: "[",
	match:    anchored(`\[\[((?:\\.|[^\\\n])*?)\]\]`),
	build: func(im *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		target, ok := im.target(group(s, m, 1))
		if !ok {
			return nil, false
		}
		return []document.Node{document.NewWikiLink(target)}, true
	},
	export: func(x *exporter, n document.Node) (string, bool) {
		l, ok := n.(*document.WikiLink)
		if !ok {
			return "", false
		}
		return "[[" + x.target(l.TargetID, l.LegacyTitle) + "]]", true
	},
}

var embedInline = inlineTransformer{
	name:     "embed",
	triggers: "!",
	match:    anchored(`!\[\[((?:\\.|[^\\\n])*?)\]\]`),
	build: func(im *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		if !im.blocksAllowed {
			return nil, false
		}
		target, ok := im.target(group(s, m, 1))
		if !ok {
			return nil, false
		}
		return []document.Node{document.NewEmbeddedNote(target)}, true
	},
	export: func(x *exporter, n document.Node) (string, bool) {
		e, ok := n.(*document.EmbeddedNote)
		if !ok {
			return "", false
		}
		return "![[" + x.target(e.TargetID, e.LegacyTitle) + "]]", true
	},
}

var blockMathInline = inlineTransformer{
	name:     "math-block",
	triggers: "$",
	match:    anchored(`\$\$([\s\S]*?)\$\$`),
	build: func(im *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		eq := group(s, m, 1)
		eq = strings.TrimPrefix(strings.TrimSuffix(eq, "\n"), "\n")
		if strings.TrimSpace(eq) == "" || !im.blocksAllowed {
			return nil, false
		}
		return []document.Node{document.NewBlockMath(eq)}, true
	},
	export: func(_ *exporter, n document.Node) (string, bool) {
		mth, ok := n.(*document.Math)
		if !ok || mth.Format != document.MathBlock {
			return "", false
		}
		return "$$\n" + mth.Equation + "\n$$", true
	},
}

var inlineMathInline = inlineTransformer{
	name:     "math-inline",
	triggers: "$",
	match:    anchored(`\$([^\$\n]+?)\$`),
	build: func(_ *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		eq := group(s, m, 1)
		if strings.TrimSpace(eq) == "" {
			return nil, false
		}
		return []document.Node{document.NewInlineMath(eq)}, true
	},
	export: func(_ *exporter, n document.Node) (string, bool) {
		mth, ok := n.(*document.Math)
		if !ok || mth.Format == document.MathBlock {
			return "", false
		}
		return "$" + mth.Equation + "$", true
	},
}

var (
	imageAttrWidth  = regexp.MustCompile(`width=(\d+)`)
	imageAttrHeight = regexp.MustCompile(`height=(\d+)`)
)

var imageInline = inlineTransformer{
	name:     "image",
	triggers: "!",
	match: anchored(`!\[((?:\\.|[^\\\]])*)\]\(((?:\\.|[^\\\s)])*)(?:\s+"((?:\\.|[^\\"])*)")?\)` +
		`(?:[ \t]*\{([^}\n]*)\})?`),
	build: func(im *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		if !im.blocksAllowed {
			return nil, false
		}
		img := document.NewImage(unescapeAll(group(s, m, 2)), unescapeAll(group(s, m, 1)))
		img.Title = unescapeAll(group(s, m, 3))
		attrs := group(s, m, 4)
		img.Width = dimension(imageAttrWidth, attrs)
		img.Height = dimension(imageAttrHeight, attrs)
		return []document.Node{img}, true
	},
	export: func(_ *exporter, n document.Node) (string, bool) {
		img, ok := n.(*document.Image)
		if !ok {
			return "", false
		}
		var b strings.Builder
		b.WriteString("![" + escapeText(img.Alt) + "](" + escapeSrc(img.Src))
		if img.Title != "" {
			b.WriteString(` "` + escapeTitle(img.Title) + `"`)
		}
		b.WriteString(")")
		var dims []string
		if img.Width > 0 {
			dims = append(dims, "width="+img.Width.String())
		}
		if img.Height > 0 {
			dims = append(dims, "height="+img.Height.String())
		}
		if len(dims) > 0 {
			b.WriteString(" {" + strings.Join(dims, " ") + "}")
		}
		return b.String(), true
	},
}

func dimension(re *regexp.Regexp, attrs string) document.Dimension {
	m := re.FindStringSubmatch(attrs)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return document.Dimension(n)
}

// htmlTag matches an opening or self-closing tag and captures its name and
// attribute text.
var htmlTag = regexp.MustCompile(`(?i)^<([a-z][a-z0-9-]*)\b([^>]*)>`)

// matchHTML matches a complete element: either self-closing, or an opening
// tag with its balanced closing tag.
func matchHTML(s string) []int {
	loc := htmlTag.FindStringSubmatchIndex(s)
	if loc == nil {
		return nil
	}
	name := strings.ToLower(s[loc[2]:loc[3]])
	if strings.HasSuffix(s[:loc[1]], "/>") {
		return []int{0, loc[1], loc[2], loc[3]}
	}
	lower := strings.ToLower(s)
	depth := 1
	for i := loc[1]; i < len(s); {
		next := strings.IndexByte(lower[i:], '<')
		if next < 0 {
			return nil
		}
		i += next
		switch {
		case strings.HasPrefix(lower[i:], "</"+name) && closesTag(lower[i+2+len(name):]):
			gt := strings.IndexByte(lower[i:], '>')
			if gt < 0 {
				return nil
			}
			depth--
			end := i + gt + 1
			if depth == 0 {
				return []int{0, end, loc[2], loc[3]}
			}
			i = end
		case strings.HasPrefix(lower[i:], "<"+name) && closesTag(lower[i+1+len(name):]):
			if m := htmlTag.FindStringIndex(s[i:]); m != nil && !strings.HasSuffix(s[i:i+m[1]], "/>") {
				depth++
			}
			i++
		default:
			i++
		}
	}
	return nil
}

// closesTag reports whether rest begins where a tag name may end.
func closesTag(rest string) bool {
	if rest == "" {
		return false
	}
	c := rest[0]
	return c == '>' || c == ' ' || c == '\t' || c == '\n' || c == '/'
}

var htmlInline = inlineTransformer{
	name:     "html",
	triggers: "<",
	match:    matchHTML,
	build: func(_ *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		return []document.Node{document.NewHTML(s[:m[1]])}, true
	},
	export: func(x *exporter, n document.Node) (string, bool) {
		h, ok := n.(*document.HTML)
		if !ok {
			return "", false
		}
		if x.readsBackAsHTML(h.Raw) {
			return h.Raw, true
		}
		return envelope(h), true
	},
}

// readsBackAsHTML reports whether raw, written verbatim, is read back as one
// html node. Markup another transformer claims first, or that spans lines,
// is not.
func (x *exporter) readsBackAsHTML(raw string) bool {
	if raw == "" || strings.Contains(raw, "\n") || (x.inCell && strings.Contains(raw, "<br>")) {
		return false
	}
	for _, t := range x.opts.registry.inlines {
		if strings.IndexByte(t.triggers, raw[0]) < 0 {
			continue
		}
		if m := t.match(raw); m != nil && m[1] > 0 {
			return t.name == "html" && m[1] == len(raw)
		}
	}
	return false
}

var htmlAttr = regexp.MustCompile(`([a-zA-Z][a-zA-Z0-9-]*)(?:="([^"]*)")?`)

// attrs parses the attribute text of a tag.
func attrs(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range htmlAttr.FindAllStringSubmatch(s, -1) {
		out[strings.ToLower(m[1])] = html.UnescapeString(m[2])
	}
	return out
}

func attrInt(a map[string]string, key string) document.Dimension {
	n, err := strconv.Atoi(a[key])
	if err != nil {
		return 0
	}
	return document.Dimension(n)
}

func mediaTag(name string) func(string) []int {
	return anchored(`(?i)<` + name + `\b([^>]*)>\s*</` + name + `>`)
}

var videoInline = inlineTransformer{
	name:     "video",
	triggers: "<",
	match:    mediaTag("video"),
	build: func(im *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		if !im.blocksAllowed {
			return nil, false
		}
		a := attrs(group(s, m, 1))
		_, controls := a["controls"]
		return []document.Node{&document.Video{
			Src:      a["src"],
			Alt:      a["title"],
			Width:    attrInt(a, "width"),
			Height:   attrInt(a, "height"),
			Controls: controls,
		}}, true
	},
	export: func(_ *exporter, n document.Node) (string, bool) {
		v, ok := n.(*document.Video)
		if !ok {
			return "", false
		}
		var b strings.Builder
		fmt.Fprintf(&b, `<video src="%s"`, html.EscapeString(v.Src))
		if v.Alt != "" {
			fmt.Fprintf(&b, ` title="%s"`, html.EscapeString(v.Alt))
		}
		if v.Width > 0 {
			fmt.Fprintf(&b, ` width="%d"`, v.Width)
		}
		if v.Height > 0 {
			fmt.Fprintf(&b, ` height="%d"`, v.Height)
		}
		if v.Controls {
			b.WriteString(" controls")
		}
		b.WriteString("></video>")
		return b.String(), true
	},
}

var audioInline = inlineTransformer{
	name:     "audio",
	triggers: "<",
	match:    mediaTag("audio"),
	build: func(im *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		if !im.blocksAllowed {
			return nil, false
		}
		a := attrs(group(s, m, 1))
		_, controls := a["controls"]
		_, loop := a["loop"]
		return []document.Node{&document.Audio{Src: a["src"], Alt: a["title"], Controls: controls, Loop: loop}}, true
	},
	export: func(_ *exporter, n document.Node) (string, bool) {
		a, ok := n.(*document.Audio)
		if !ok {
			return "", false
		}
		var b strings.Builder
		fmt.Fprintf(&b, `<audio src="%s"`, html.EscapeString(a.Src))
		if a.Alt != "" {
			fmt.Fprintf(&b, ` title="%s"`, html.EscapeString(a.Alt))
		}
		if a.Controls {
			b.WriteString(" controls")
		}
		if a.Loop {
			b.WriteString(" loop")
		}
		b.WriteString("></audio>")
		return b.String(), true
	},
}

var mediaReferenceInline = inlineTransformer{
	name:     "media-reference",
	triggers: "<",
	match:    mediaTag("media-reference"),
	build: func(im *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		id := attrs(group(s, m, 1))["data-media-id"]
		if id == "" || !im.blocksAllowed {
			return nil, false
		}
		return []document.Node{document.NewMediaReference(id)}, true
	},
	export: func(_ *exporter, n document.Node) (string, bool) {
		r, ok := n.(*document.MediaReference)
		if !ok {
			return "", false
		}
		return `<media-reference data-media-id="` + html.EscapeString(r.MediaID) + `"></media-reference>`, true
	},
}

const unreadablePrefix = "<!--notegraph:unreadable:"

var unreadableInline = inlineTransformer{
	name:     "unreadable",
	triggers: "<",
	match:    anchored(regexp.QuoteMeta(unreadablePrefix) + `([A-Za-z0-9+/=]*)-->`),
	build: func(_ *importer, s string, m []int, _ document.Format) ([]document.Node, bool) {
		raw, err := base64.StdEncoding.DecodeString(group(s, m, 1))
		if err != nil {
			return nil, false
		}
		n, err := document.ImportNode(raw)
		if err != nil {
			return nil, false
		}
		if u, ok := n.(*document.Unreadable); ok {
			u.Block = false
		}
		return []document.Node{n}, true
	},
	export: func(_ *exporter, n document.Node) (string, bool) {
		u, ok := n.(*document.Unreadable)
		if !ok {
			return "", false
		}
		return unreadablePrefix + base64.StdEncoding.EncodeToString(u.Raw) + "-->", true
	},
}
