package markdown

import (
	"strings"

	"github.com/starford/notegraph/internal/document"
)

type importer struct {
	opts options
	// blocksAllowed is set while parsing content whose container accepts
	// block nodes (the root and table cells).
	blocksAllowed bool
	// inLink is set while parsing link text, which holds no further links.
	inLink bool
	// wordStart reports whether the byte before the span being matched is
	// not part of a word.
	wordStart bool
}

// blocks parses lines into top-level block nodes.
func (im *importer) blocks(lines []string) []document.Node {
	var out []document.Node
	for i := 0; i < len(lines); {
		if isBlank(lines[i]) {
			i++
			continue
		}
		nodes, next, ok := im.parseBlock(lines, i)
		if ok {
			out = append(out, nodes...)
			i = next
			continue
		}
		end := im.paragraphEnd(lines, i)
		out = append(out, im.paragraph(strings.Join(lines[i:end], "\n"))...)
		i = end
	}
	return out
}

func (im *importer) parseBlock(lines []string, i int) ([]document.Node, int, bool) {
	for _, t := range im.opts.registry.blocks {
		if nodes, next, ok := t.parse(im, lines, i); ok && next > i {
			return nodes, next, true
		}
	}
	return nil, i, false
}

// paragraphEnd returns the index after the last line of the paragraph that
// starts at lines[i].
func (im *importer) paragraphEnd(lines []string, i int) int {
	j := i + 1
	for j < len(lines) && !isBlank(lines[j]) && !im.interrupts(lines[j]) {
		j++
	}
	return j
}

func (im *importer) interrupts(line string) bool {
	for _, t := range im.opts.registry.blocks {
		if t.interrupts != nil && t.interrupts(line) {
			return true
		}
	}
	return false
}

// paragraph parses text in a block context. Block-level nodes found among
// the inline content are lifted out, splitting the paragraph around them.
func (im *importer) paragraph(text string) []document.Node {
	saved := im.blocksAllowed
	im.blocksAllowed = true
	nodes := im.inline(text, 0)
	im.blocksAllowed = saved
	return liftBlocks(nodes)
}

// inlineOnly parses text for a container that holds only inline nodes.
func (im *importer) inlineOnly(text string) []document.Node {
	saved := im.blocksAllowed
	im.blocksAllowed = false
	nodes := im.inline(text, 0)
	im.blocksAllowed = saved
	return nodes
}

// liftBlocks groups inline runs into paragraphs and keeps block nodes at
// the top level. Line breaks and blank text bordering a lifted block are
// dropped. A run holding only an unreadable node becomes a block.
func liftBlocks(nodes []document.Node) []document.Node {
	var (
		out       []document.Node
		run       []document.Node
		afterLift bool
	)
	flush := func(beforeLift bool) {
		if afterLift {
			run = trimBlank(run, true)
		}
		if beforeLift {
			run = trimBlank(run, false)
		}
		switch {
		case len(run) == 0:
		case len(run) == 1 && isUnreadable(run[0]):
			u := run[0].(*document.Unreadable)
			u.Block = true
			out = append(out, u)
		default:
			out = append(out, document.NewParagraph(run...))
		}
		run = nil
	}
	for _, n := range nodes {
		if n.IsInline() {
			run = append(run, n)
			continue
		}
		flush(true)
		out = append(out, n)
		afterLift = true
	}
	flush(false)
	return out
}

func isUnreadable(n document.Node) bool {
	_, ok := n.(*document.Unreadable)
	return ok
}

// trimBlank drops line breaks and whitespace-only text from the start
// (leading) or the end of run.
func trimBlank(run []document.Node, leading bool) []document.Node {
	blank := func(n document.Node) bool {
		switch v := n.(type) {
		case *document.LineBreak:
			return true
		case *document.Text:
			return strings.TrimSpace(v.Text) == ""
		}
		return false
	}
	if leading {
		for len(run) > 0 && blank(run[0]) {
			run = run[1:]
		}
		return run
	}
	for len(run) > 0 && blank(run[len(run)-1]) {
		run = run[:len(run)-1]
	}
	return run
}

// target maps the text between [[ and ]] to a note id.
func (im *importer) target(raw string) (string, bool) {
	text := unescape(raw)
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	if n := im.opts.namer; n != nil {
		if id, ok := n.IDFor(text); ok {
			return id, true
		}
	}
	return text, true
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }
