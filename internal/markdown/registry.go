package markdown

import (
	"regexp"
	"slices"

	"github.com/starford/notegraph/internal/document"
)

// blockTransformer reads and writes constructs that occupy whole lines.
type blockTransformer struct {
	name string
	// export writes n; ok is false when n is not handled here.
	export func(x *exporter, n document.Node) (string, bool)
	// parse reads a block starting at lines[i] and returns the index of the
	// first line it did not consume.
	parse func(im *importer, lines []string, i int) ([]document.Node, int, bool)
	// interrupts reports whether line starts this block even directly after
	// paragraph text.
	interrupts func(line string) bool
}

// inlineTransformer reads and writes spans inside a block.
type inlineTransformer struct {
	name string
	// triggers lists the bytes a match can start with.
	triggers string
	// match returns submatch indexes of a match anchored at s[0], or nil.
	match func(s string) []int
	// build turns a match into nodes; ok is false when the span must stay text.
	build func(im *importer, s string, m []int, format document.Format) ([]document.Node, bool)
	// export writes n; ok is false when n is not handled here.
	export func(x *exporter, n document.Node) (string, bool)
}

// Registry is an ordered set of transformers. Earlier transformers take
// precedence over later ones.
type Registry struct {
	blocks  []blockTransformer
	inlines []inlineTransformer
}

var defaultRegistry = &Registry{
	blocks: []blockTransformer{
		fencedCodeBlock,
		mathBlock,
		headingBlock,
		horizontalRuleBlock,
		tableBlock,
		quoteBlock,
		listBlock,
	},
	inlines: []inlineTransformer{
		unreadableInline,
		nodeInline,
		emptyCommentInline,
		autoLinkInline,
		ruleTagInline,
		preTagInline,
		imageInline,
		embedInline,
		wikiLinkInline,
		linkInline,
		blockMathInline,
		inlineMathInline,
		codeSpanInline,
		videoInline,
		audioInline,
		mediaReferenceInline,
		underlineInline,
		superscriptInline,
		subscriptInline,
		htmlInline,
		strikethroughInline,
		boldInline,
		italicStarInline,
		italicUnderscoreInline,
		bareURLInline,
	},
}

// DefaultRegistry returns the transformer set used when no registry is
// given.
func DefaultRegistry() *Registry {
	return &Registry{
		blocks:  slices.Clone(defaultRegistry.blocks),
		inlines: slices.Clone(defaultRegistry.inlines),
	}
}

// Names returns transformer names in precedence order, blocks first.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.blocks)+len(r.inlines))
	for _, b := range r.blocks {
		names = append(names, b.name)
	}
	for _, t := range r.inlines {
		names = append(names, t.name)
	}
	return names
}

// Without returns a copy of r lacking the named transformers. Constructs
// they handled are read as plain text.
func (r *Registry) Without(names ...string) *Registry {
	out := &Registry{}
	for _, b := range r.blocks {
		if !slices.Contains(names, b.name) {
			out.blocks = append(out.blocks, b)
		}
	}
	for _, t := range r.inlines {
		if !slices.Contains(names, t.name) {
			out.inlines = append(out.inlines, t)
		}
	}
	return out
}

// anchored compiles pattern so that it only matches at the start of input.
func anchored(pattern string) func(string) []int {
	re := regexp.MustCompile(`^(?:` + pattern + `)`)
	return func(s string) []int {
		return re.FindStringSubmatchIndex(s)
	}
}

// group returns submatch i of m in s, or "" when it did not participate.
func group(s string, m []int, i int) string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return ""
	}
	return s[m[2*i]:m[2*i+1]]
}
