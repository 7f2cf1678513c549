// Package notefile reads and writes notes as markdown files: YAML
// frontmatter, the markdown body and a "## Tasks" section.
package notefile

import (
	"bytes"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/markdown"
	"github.com/starford/notegraph/internal/models"
)

const (
	// Ext is the extension of note files.
	Ext = ".md"
	// DefaultTitle names notes that have neither a frontmatter title nor a
	// heading.
	DefaultTitle = "Untitled"
	// DefaultColor is the card color of imported notes without one.
	DefaultColor = "bg-white"

	timeLayout = "2006-01-02T15:04:05.000Z07:00"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Codec converts between notes and file contents.
type Codec struct {
	// Names writes link targets as note titles and reads titles back.
	Names  markdown.LinkNamer
	Logger *slog.Logger
	// FallbackID is the note id of files whose frontmatter and name carry
	// none. When empty an id is generated.
	FallbackID string
	// NewID generates note and task ids. Defaults to UUIDs.
	NewID func() string
	// Now stamps notes without a created date.
	Now func() time.Time
}

type frontmatter struct {
	ID       string       `yaml:"id,omitempty"`
	Title    string       `yaml:"title"`
	Created  string       `yaml:"created,omitempty"`
	Color    string       `yaml:"color,omitempty"`
	Tags     quotedList   `yaml:"tags"`
	Position int          `yaml:"position,omitempty"`
	Flags    models.Flags `yaml:",inline"`
}

// quotedList is written as a flow sequence of double-quoted strings.
type quotedList []string

func (q quotedList) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, s := range q {
		n.Content = append(n.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Style: yaml.DoubleQuotedStyle,
			Tag:   "!!str",
			Value: s,
		})
	}
	return n, nil
}

// FileName returns "<sanitized title>-<id>.md".
func FileName(n *models.Note) string {
	title := n.Title
	if strings.TrimSpace(title) == "" {
		title = "untitled"
	}
	return Sanitize(title) + "-" + n.ID + Ext
}

var unsafeChars = strings.NewReplacer(
	"/", "-", `\`, "-", "?", "-", "%", "-", "*", "-",
	":", "-", "|", "-", `"`, "-", "<", "-", ">", "-",
)

// Sanitize replaces the characters that are not allowed in file names on
// common file systems.
func Sanitize(title string) string { return unsafeChars.Replace(title) }

// IDFromFileName recovers the id part of a name written by FileName. A
// trailing UUID is taken whole; otherwise the id is the text after the last
// '-'. It returns "" when the name has no id part.
func IDFromFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if len(base) >= 36 {
		if id, err := uuid.Parse(base[len(base)-36:]); err == nil {
			return id.String()
		}
	}
	i := strings.LastIndex(base, "-")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return base[i+1:]
}

// Encode writes note as a markdown file. doc is the parsed content of note.
func (c *Codec) Encode(note *models.Note, doc *document.Document) ([]byte, error) {
	fm := frontmatter{
		ID:       note.ID,
		Title:    note.Title,
		Color:    note.Color,
		Tags:     quotedList(note.Tags),
		Position: note.Position,
		Flags:    note.Flags,
	}
	if fm.Title == "" {
		fm.Title = DefaultTitle
	}
	if !note.CreatedAt.IsZero() {
		fm.Created = note.CreatedAt.UTC().Format(timeLayout)
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("notefile: encode frontmatter: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	if body := markdown.Export(doc, c.markdownOptions()...); body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
	if len(note.Tasks) > 0 {
		b.WriteString("\n")
		b.WriteString(encodeTasks(note.Tasks))
		b.WriteString("\n")
	}
	return b.Bytes(), nil
}

// Decode reads a note file. name is the file name, used for the id when the
// frontmatter has none. Decode fails only when the parsed content cannot be
// serialized.
func (c *Codec) Decode(name string, data []byte) (*models.Note, *document.Document, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	fm, body, ok := splitFrontmatter(data)
	if !ok {
		c.logger().Warn("invalid frontmatter, reading file as body", slog.String("file", name))
	}

	body, tasksSection := splitTasks(body)
	doc := markdown.Import(body, c.markdownOptions()...)
	content, err := doc.Encode()
	if err != nil {
		return nil, nil, fmt.Errorf("notefile: %s: %w", name, err)
	}

	note := &models.Note{
		ID:       fm.ID,
		Title:    deriveTitle(fm, body),
		Content:  content,
		Color:    fm.Color,
		Tags:     extractTags(body, fm.Tags),
		Position: fm.Position,
		Flags:    fm.Flags,
		Tasks:    c.decodeTasks(name, tasksSection),
	}
	if note.ID == "" {
		note.ID = IDFromFileName(name)
	}
	if note.ID == "" {
		note.ID = c.FallbackID
	}
	if note.ID == "" {
		note.ID = c.newID()
	}
	if note.Color == "" {
		note.Color = DefaultColor
	}
	if fm.Created != "" {
		if t, err := time.Parse(time.RFC3339, fm.Created); err == nil {
			note.CreatedAt = t
		} else {
			c.logger().Warn("invalid created date", slog.String("file", name), slog.String("created", fm.Created))
		}
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = c.now()
	}
	note.UpdatedAt = note.CreatedAt
	return note, doc, nil
}

// splitFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the body. ok is false when a frontmatter block is present
// but not valid YAML; the whole input is then the body.
func splitFrontmatter(data []byte) (frontmatter, string, bool) {
	const delim = "---"
	var fm frontmatter
	trimmed := bytes.TrimLeft(data, "\n")
	if !bytes.HasPrefix(trimmed, []byte(delim+"\n")) {
		return fm, string(data), true
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return fm, string(data), true
	}
	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(after), "\n")

	if err := yaml.Unmarshal(block, &fm); err != nil {
		return frontmatter{}, string(data), false
	}
	return fm, body, true
}

// deriveTitle returns the frontmatter title, otherwise the first H1
// heading, otherwise DefaultTitle.
func deriveTitle(fm frontmatter, body string) string {
	if t := strings.TrimSpace(fm.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			if t := strings.TrimSpace(trimmed[2:]); t != "" {
				return t
			}
		}
	}
	return DefaultTitle
}

// extractTags collects the frontmatter tags followed by #tags in the body.
func extractTags(body string, front []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range front {
		add(t)
	}
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

func (c *Codec) markdownOptions() []markdown.Option {
	opts := []markdown.Option{markdown.WithLogger(c.logger())}
	if c.Names != nil {
		opts = append(opts, markdown.WithLinkNames(c.Names))
	}
	return opts
}

func (c *Codec) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c *Codec) newID() string {
	if c.NewID == nil {
		return uuid.NewString()
	}
	return c.NewID()
}

func (c *Codec) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now()
}
