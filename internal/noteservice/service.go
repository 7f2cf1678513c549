// Package noteservice coordinates the note store, the markdown vault and the
// document packages: every write goes through here.
package noteservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/checksum"
	"github.com/starford/notegraph/internal/doccache"
	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/index"
	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/markdown"
	"github.com/starford/notegraph/internal/models"
	"github.com/starford/notegraph/internal/notefile"
	"github.com/starford/notegraph/internal/resolve"
	"github.com/starford/notegraph/internal/storage"
)

// Notifier receives note change events. kind is one of created, updated,
// deleted or renamed.
type Notifier interface {
	PublishNoteEvent(kind, id string)
}

// Service coordinates storage and index operations.
//
// Writes are serialized: the service assumes it is the only writer of its
// database. Reads run concurrently.
type Service struct {
	store  storage.Provider
	db     *index.DB
	docs   *doccache.Cache
	logger *slog.Logger
	events Notifier

	maxEmbedDepth int
	now           func() time.Time
	newID         func() string

	mu sync.Mutex

	graphMu sync.Mutex
	graph   *linkgraph.Graph
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDocCache shares a parsed-document cache.
func WithDocCache(c *doccache.Cache) Option {
	return func(s *Service) { s.docs = c }
}

// WithNotifier publishes note events to n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.events = n }
}

// WithMaxEmbedDepth bounds embed expansion in views.
func WithMaxEmbedDepth(d int) Option {
	return func(s *Service) { s.maxEmbedDepth = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUID generator for note and task ids.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService creates a new note service.
func NewService(store storage.Provider, db *index.DB, opts ...Option) *Service {
	s := &Service{
		store: store,
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.docs == nil {
		s.docs = doccache.New(doccache.DefaultSize, s.logger)
	}
	if s.maxEmbedDepth <= 0 {
		s.maxEmbedDepth = resolve.DefaultMaxDepth
	}
	return s
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Note
	Path      string      `json:"path"`
	Markdown  string      `json:"markdown"`
	Refs      []RefDetail `json:"refs"`
	Backlinks []string    `json:"backlinks"`
}

// RefDetail is one reference in a note and how it resolves.
type RefDetail struct {
	Key         uint64          `json:"key"`
	TargetID    string          `json:"targetId,omitempty"`
	LegacyTitle string          `json:"targetTitle,omitempty"`
	Embed       bool            `json:"embed"`
	Outcome     resolve.Outcome `json:"outcome"`
	Title       string          `json:"title,omitempty"`
}

// NoteListItem is a lightweight item in a list response.
type NoteListItem = models.NoteMetadata

// CreateInput describes a new note. Content (a serialized tree) and
// Markdown are alternatives; with neither the note starts empty.
type CreateInput struct {
	Title    string          `json:"title"`
	Markdown string          `json:"markdown,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
	Color    string          `json:"color,omitempty"`
	Tags     []string        `json:"tags,omitempty"`
	Tasks    []models.Task   `json:"tasks,omitempty"`
	Flags    models.Flags    `json:"flags"`
}

// Validate checks the input fields.
func (in CreateInput) Validate() error {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&in.Tags, validation.Each(validation.Required)),
	); err != nil {
		return err
	}
	return exclusiveBody(in.Markdown, in.Content)
}

// UpdateInput changes a note. Nil fields are left as they are.
type UpdateInput struct {
	Markdown *string         `json:"markdown,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
	Color    *string         `json:"color,omitempty"`
	Tags     *[]string       `json:"tags,omitempty"`
	Tasks    *[]models.Task  `json:"tasks,omitempty"`
	Flags    *models.Flags   `json:"flags,omitempty"`
}

// Validate checks the input fields.
func (in UpdateInput) Validate() error {
	if in.Markdown != nil && len(in.Content) > 0 {
		return fmt.Errorf("%w: markdown and content are exclusive", apperr.ErrInvalidInput)
	}
	if in.Tags != nil {
		return validation.Validate(*in.Tags, validation.Each(validation.Required))
	}
	return nil
}

func exclusiveBody(md string, content json.RawMessage) error {
	if md != "" && len(content) > 0 {
		return fmt.Errorf("%w: markdown and content are exclusive", apperr.ErrInvalidInput)
	}
	return nil
}

// Create stores a new note and writes its markdown file.
func (s *Service) Create(ctx context.Context, in CreateInput) (*NoteDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	tasks, err := s.prepareTasks(in.Tasks)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	now := s.now()
	note := &models.Note{
		ID:        s.newID(),
		Title:     strings.TrimSpace(in.Title),
		Color:     in.Color,
		Tags:      nonNilSlice(in.Tags),
		Tasks:     tasks,
		Flags:     in.Flags,
		Position:  coll.Len(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if note.Color == "" {
		note.Color = notefile.DefaultColor
	}
	coll = withNote(coll, note)

	doc, err := s.bodyDocument(in.Markdown, in.Content, coll)
	if err != nil {
		return nil, err
	}
	if err := s.save(note, doc, coll, ""); err != nil {
		return nil, err
	}
	s.publish("created", note.ID)
	return s.detail(ctx, note.ID)
}

// Get returns a note with its references resolved and its backlinks.
func (s *Service) Get(ctx context.Context, id string) (*NoteDetail, error) {
	return s.detail(ctx, id)
}

// UpdateContent changes the body and metadata of a note. A non-empty ifMatch
// must equal the note's current checksum.
func (s *Service) UpdateContent(ctx context.Context, id string, in UpdateInput, ifMatch string) (*NoteDetail, error) {
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != row.Checksum {
		return nil, apperr.ErrConflict
	}
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	note := &row.Note

	doc := s.docs.Tree(note)
	if in.Markdown != nil || len(in.Content) > 0 {
		md := ""
		if in.Markdown != nil {
			md = *in.Markdown
		}
		if doc, err = s.bodyDocument(md, in.Content, coll); err != nil {
			return nil, err
		}
	}
	if in.Color != nil {
		note.Color = *in.Color
	}
	if in.Tags != nil {
		note.Tags = nonNilSlice(*in.Tags)
	}
	if in.Flags != nil {
		note.Flags = *in.Flags
	}
	if in.Tasks != nil {
		tasks, err := s.prepareTasks(*in.Tasks)
		if err != nil {
			return nil, err
		}
		note.Tasks = tasks
	}
	note.UpdatedAt = s.now()

	if err := s.save(note, doc, coll, row.Path); err != nil {
		return nil, err
	}
	s.publish("updated", id)
	return s.detail(ctx, id)
}

// Delete removes a note and its file. Notes that referenced it keep their
// links, which are dangling from now on; their files are written again so
// that they show the raw id.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.db.GetNote(id)
	if err != nil {
		return err
	}
	backlinks, err := s.db.Backlinks(id)
	if err != nil {
		return err
	}
	if err := s.db.DeleteNote(id); err != nil {
		return err
	}
	if row.Path != "" && s.store.Exists(row.Path) {
		if err := s.store.Delete(row.Path); err != nil {
			return err
		}
	}
	s.publish("deleted", id)

	coll, err := s.collection()
	if err != nil {
		return err
	}
	for _, src := range backlinks {
		if src == id {
			continue
		}
		if err := s.rewrite(src, nil, coll); err != nil {
			s.logger.Warn("re-export after delete failed",
				slog.String("note", src), slog.String("error", err.Error()))
		}
	}
	return nil
}

// List returns paginated notes with optional tag filter.
func (s *Service) List(_ context.Context, limit, offset int, tag, sort string) ([]NoteListItem, int, error) {
	rows, total, err := s.db.ListNotes(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteListItem, len(rows))
	for i, r := range rows {
		items[i] = r.Meta()
		items[i].Tags = nonNilSlice(items[i].Tags)
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalidInput)
	}
	results, err := s.db.Search(query, limit)
	return nonNilSlice(results), err
}

// Backlinks returns the ids of notes that reference id.
func (s *Service) Backlinks(_ context.Context, id string) ([]string, error) {
	if _, err := s.db.GetNote(id); err != nil {
		return nil, err
	}
	return s.backlinks(id)
}

func (s *Service) backlinks(id string) ([]string, error) {
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(bl))
	for _, src := range bl {
		if src != id {
			out = append(out, src)
		}
	}
	return out, nil
}

func (s *Service) detail(_ context.Context, id string) (*NoteDetail, error) {
	row, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	coll, err := s.collection()
	if err != nil {
		return nil, err
	}
	doc := s.docs.Tree(&row.Note)
	bl, err := s.backlinks(id)
	if err != nil {
		return nil, err
	}

	d := &NoteDetail{
		Note:      row.Note,
		Path:      row.Path,
		Markdown:  markdown.Export(doc, s.markdownOptions(coll)...),
		Refs:      []RefDetail{},
		Backlinks: bl,
	}
	d.Tags = nonNilSlice(d.Tags)
	d.Tasks = nonNilSlice(d.Tasks)
	chain := resolve.NewChain(id)
	for _, r := range document.Refs(doc) {
		var res resolve.Resolution
		if r.TargetID == "" {
			res = resolve.ResolveLegacy(r.LegacyTitle, coll, chain)
		} else {
			res = resolve.Resolve(r.TargetID, coll, chain)
		}
		rd := RefDetail{
			Key:         uint64(r.Key),
			TargetID:    r.TargetID,
			LegacyTitle: r.LegacyTitle,
			Embed:       r.Embed,
			Outcome:     res.Outcome,
		}
		if res.Note != nil {
			rd.Title = res.Note.Title
		}
		d.Refs = append(d.Refs, rd)
	}
	return d, nil
}

// bodyDocument builds the document of a create or update request.
func (s *Service) bodyDocument(md string, content json.RawMessage, coll *models.Collection) (*document.Document, error) {
	switch {
	case len(content) > 0:
		doc, err := document.Parse(content)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
		}
		return doc, nil
	case md != "":
		return markdown.Import(md, s.markdownOptions(coll)...), nil
	default:
		return document.Empty(), nil
	}
}

func (s *Service) prepareTasks(tasks []models.Task) ([]models.Task, error) {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		if t.ID == "" {
			t.ID = s.newID()
		}
		if t.Text == "" {
			t.Text = t.Title
		}
		t.ApplyDefaults()
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: task %d: %v", apperr.ErrInvalidInput, i, err)
		}
		out[i] = t
	}
	return out, nil
}

// collection loads every note in collection order.
func (s *Service) collection() (*models.Collection, error) {
	notes, err := s.db.AllNotes()
	if err != nil {
		return nil, err
	}
	return models.NewCollection(notes), nil
}

// withNote returns coll with n added or replacing the note of the same id.
func withNote(coll *models.Collection, n *models.Note) *models.Collection {
	all := make([]*models.Note, 0, coll.Len()+1)
	replaced := false
	for _, m := range coll.All() {
		if m.ID == n.ID {
			all = append(all, n)
			replaced = true
			continue
		}
		all = append(all, m)
	}
	if !replaced {
		all = append(all, n)
	}
	return models.NewCollection(all)
}

func (s *Service) markdownOptions(coll *models.Collection) []markdown.Option {
	return []markdown.Option{markdown.WithLinkNames(coll), markdown.WithLogger(s.logger)}
}

func (s *Service) codec(coll *models.Collection) *notefile.Codec {
	return &notefile.Codec{Names: coll, Logger: s.logger, NewID: s.newID, Now: s.now}
}

// save stores note with doc as its content and writes its markdown file.
// prevPath is the file the note was mirrored to before; it is removed when
// the file name changed. The database is updated before the file so that
// the watcher recognises the write as already imported.
func (s *Service) save(note *models.Note, doc *document.Document, coll *models.Collection, prevPath string) error {
	content, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("noteservice: encode %s: %w", note.ID, err)
	}
	note.Content = content
	note.Checksum = checksum.Sum([]byte(content))
	coll = withNote(coll, note)

	data, err := s.codec(coll).Encode(note, doc)
	if err != nil {
		return err
	}
	path := notefile.FileName(note)
	row := index.NoteRow{Note: *note, Path: path, FileChecksum: checksum.Sum(data)}
	if err := s.db.UpsertNote(row, doc.PlainText(), linksOf(note.ID, doc, coll)); err != nil {
		return err
	}
	if err := s.store.Write(path, data); err != nil {
		return err
	}
	if prevPath != "" && prevPath != path && s.store.Exists(prevPath) {
		if err := s.store.Delete(prevPath); err != nil {
			return err
		}
	}
	return nil
}

// rewrite saves the note with id again, with doc as its new content when
// doc is non-nil. Only the file changes when doc is nil.
func (s *Service) rewrite(id string, doc *document.Document, coll *models.Collection) error {
	row, err := s.db.GetNote(id)
	if err != nil {
		return err
	}
	note := &row.Note
	if doc == nil {
		doc = s.docs.Tree(note)
	} else {
		note.UpdatedAt = s.now()
	}
	return s.save(note, doc, coll, row.Path)
}

// linksOf lists the stored links of a note. Legacy title links are stored
// under the id their title resolves to.
func linksOf(source string, doc *document.Document, coll *models.Collection) []models.Link {
	var out []models.Link
	for _, r := range document.Refs(doc) {
		target := r.TargetID
		if target == "" {
			id, ok := coll.IDFor(r.LegacyTitle)
			if !ok {
				continue
			}
			target = id
		}
		typ := models.LinkTypeWikiLink
		if r.Embed {
			typ = models.LinkTypeEmbed
		}
		out = append(out, models.Link{Source: source, Target: target, Type: typ})
	}
	return out
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events.PublishNoteEvent(kind, id)
	}
}

// invalid marks validation failures as apperr.ErrInvalidInput.
func invalid(err error) error {
	if errors.Is(err, apperr.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
