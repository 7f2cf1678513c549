package markdown

import (
	"strings"

	"github.com/starford/notegraph/internal/document"
)

type exporter struct {
	opts options
	// inCell is set while writing table cells, where line breaks are
	// written as <br>.
	inCell bool
}

// blocks writes children separated by blank lines. Runs of inline nodes
// found among blocks are written as one paragraph.
func (x *exporter) blocks(children []document.Node) string {
	var (
		parts []string
		run   []document.Node
	)
	flushRun := func() {
		if len(run) > 0 {
			if s := x.inlines(run); s != "" {
				parts = append(parts, s)
			}
			run = nil
		}
	}
	for _, c := range children {
		if c.IsInline() {
			run = append(run, c)
			continue
		}
		flushRun()
		if s := x.block(c); s != "" {
			parts = append(parts, s)
		}
	}
	flushRun()
	return strings.Join(parts, "\n\n")
}

// block writes one block-level node.
func (x *exporter) block(n document.Node) string {
	for _, t := range x.opts.registry.blocks {
		if s, ok := t.export(x, n); ok {
			return s
		}
	}
	if e, ok := n.(*document.Element); ok {
		if e.Kind == document.TypeParagraph {
			return x.inlines(e.Children)
		}
		// Structural elements out of place (a stray row or item) are
		// written through their children.
		return x.blocks(e.Children)
	}
	if s, ok := x.decorator(n); ok {
		return s
	}
	return ""
}

// decorator writes a childless node through the inline transformers.
func (x *exporter) decorator(n document.Node) (string, bool) {
	for _, t := range x.opts.registry.inlines {
		if s, ok := t.export(x, n); ok {
			return s, true
		}
	}
	return "", false
}

// inlines writes a run of inline nodes. Text at the start of a line is
// escaped if a block parser would otherwise claim the line.
func (x *exporter) inlines(nodes []document.Node) string {
	var b strings.Builder
	lineStart := true
	for _, n := range nodes {
		before := b.Len()
		switch v := n.(type) {
		case *document.Text:
			if x.inCell && !cellSafe(v) {
				b.WriteString(envelope(v))
			} else {
				b.WriteString(formatText(v, lineStart))
			}
		case *document.LineBreak:
			if x.inCell {
				b.WriteString("<br>")
			} else {
				b.WriteString("\n")
				lineStart = true
				continue
			}
		case *document.Element:
			if s, ok := x.decorator(v); ok {
				b.WriteString(s)
			} else {
				b.WriteString(escapeLines(escapeText(v.PlainText())))
			}
		default:
			if s, ok := x.decorator(n); ok {
				b.WriteString(s)
			}
		}
		if b.Len() > before {
			lineStart = false
		}
	}
	return b.String()
}

// formatText wraps escaped text in the delimiters of its format. Code is
// innermost, then sub/superscript, underline, italic, bold and
// strikethrough.
func formatText(t *document.Text, lineStart bool) string {
	if t.Text == "" {
		return ""
	}
	var s string
	if t.HasFormat(document.FormatCode) {
		s = codeSpan(t.Text)
	} else {
		s = escapeText(t.Text)
		if lineStart {
			s = escapeLines(s)
		} else if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[:i+1] + escapeLines(s[i+1:])
		}
	}
	return wrapFormat(s, t.Format)
}

// wrapFormat encloses s in the delimiters of every style in f but code.
func wrapFormat(s string, f document.Format) string {
	wrap := func(bit document.Format, open, close string) {
		if f.Has(bit) {
			s = open + s + close
		}
	}
	wrap(document.FormatSubscript, "<sub>", "</sub>")
	wrap(document.FormatSuperscript, "<sup>", "</sup>")
	wrap(document.FormatUnderline, "<u>", "</u>")
	wrap(document.FormatItalic, "_", "_")
	wrap(document.FormatBold, "**", "**")
	wrap(document.FormatStrikethrough, "~~", "~~")
	return s
}

// cellSafe reports whether t can be written on one line of a table row.
// Code is written raw, so it must not hold a <br> either.
func cellSafe(t *document.Text) bool {
	if strings.Contains(t.Text, "\n") {
		return false
	}
	return !t.HasFormat(document.FormatCode) || !strings.Contains(t.Text, "<br>")
}

// target returns the text written between [[ and ]] for a link.
func (x *exporter) target(id, legacyTitle string) string {
	if id == "" {
		return escapeText(legacyTitle)
	}
	if n := x.opts.namer; n != nil {
		if title, ok := n.TitleFor(id); ok {
			if back, ok := n.IDFor(title); ok && back == id {
				return escapeText(title)
			}
		}
	}
	return escapeText(id)
}
