// Package markdown converts document trees to markdown text and back.
//
// Conversion is driven by a Registry of transformers. Block transformers
// own whole lines (headings, tables, fenced code); inline transformers own
// spans inside a block (links, math, formatting). Each transformer knows how
// to write its node and how to read it back, so that importing an export
// yields an equal tree.
package markdown

import (
	"log/slog"
	"strings"

	"github.com/starford/notegraph/internal/document"
)

// DefaultMaxInput is the largest source Import parses. Larger inputs are
// kept verbatim in a single code block.
const DefaultMaxInput = 8 << 20

// Table bounds. Larger tables stay plain text.
const (
	MaxTableRows    = 10000
	MaxTableColumns = 256
)

// LinkNamer maps note ids to display titles and back. Titles are looked up
// on every export so renamed notes are written under their current name.
type LinkNamer interface {
	TitleFor(id string) (string, bool)
	IDFor(title string) (string, bool)
}

type options struct {
	namer    LinkNamer
	logger   *slog.Logger
	registry *Registry
	maxInput int
}

// Option configures Export and Import.
type Option func(*options)

// WithLinkNames writes link targets as titles and reads titles back as ids.
func WithLinkNames(n LinkNamer) Option {
	return func(o *options) { o.namer = n }
}

// WithLogger receives debug messages about spans left as text.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegistry replaces the default transformer set.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithMaxInput overrides DefaultMaxInput.
func WithMaxInput(n int) Option {
	return func(o *options) { o.maxInput = n }
}

func buildOptions(opts []Option) options {
	o := options{registry: defaultRegistry, maxInput: DefaultMaxInput}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Export renders doc as markdown.
func Export(doc *document.Document, opts ...Option) string {
	x := &exporter{opts: buildOptions(opts)}
	return x.blocks(doc.Root.Children)
}

// ExportNode renders a single node. Block nodes render as they would at the
// top level of a document.
func ExportNode(n document.Node, opts ...Option) string {
	x := &exporter{opts: buildOptions(opts)}
	if n.IsInline() {
		return x.inlines([]document.Node{n})
	}
	return x.block(n)
}

// Import parses markdown into a document. It never fails: text that no
// transformer accepts is kept as plain text.
func Import(src string, opts ...Option) *document.Document {
	o := buildOptions(opts)
	src = strings.ReplaceAll(src, "\r\n", "\n")
	if o.maxInput > 0 && len(src) > o.maxInput {
		o.logger.Warn("markdown source exceeds limit, kept as text",
			slog.Int("bytes", len(src)), slog.Int("limit", o.maxInput))
		return document.New(document.NewCode("", src))
	}
	im := &importer{opts: o}
	return document.New(im.blocks(strings.Split(src, "\n"))...)
}
