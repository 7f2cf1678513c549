package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notegraph/internal/index"
	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note. Either markdown
// or content (a serialized document tree) may be given.
type CreateNoteRequest = noteservice.CreateInput

// UpdateNoteRequest is the request body for updating a note. Omitted fields
// are left unchanged.
type UpdateNoteRequest = noteservice.UpdateInput

// RenameNoteRequest is the request body of PUT /notes/{id}/title.
type RenameNoteRequest struct {
	Title string `json:"title" example:"Meeting notes" validate:"required"`
}

// Validate checks the request fields.
func (r RenameNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
	)
}

// Conversion targets.
const (
	ConvertToEmbed = "embed"
	ConvertToLink  = "link"
)

// ConvertRequest changes a reference between link and embed form. Parents
// are the ids of the notes the edited note is displayed inside of.
type ConvertRequest struct {
	Key     uint64   `json:"key" example:"7" validate:"required"`
	To      string   `json:"to" example:"embed" validate:"required"`
	Parents []string `json:"parents,omitempty"`
}

// Validate checks the request fields.
func (r ConvertRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Key, validation.Required),
		validation.Field(&r.To, validation.Required, validation.In(ConvertToEmbed, ConvertToLink)),
	)
}

// ImportRequest carries one note file.
type ImportRequest struct {
	Name     string `json:"name" example:"Hello-1.md" validate:"required"`
	Markdown string `json:"markdown" example:"---\ntitle: Hello\n---\n\nWorld" validate:"required"`
}

// Validate checks the request fields.
func (r ImportRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Markdown, validation.Required),
	)
}

// ImportResponse is returned by POST /import.
type ImportResponse struct {
	Note    *NoteDetail `json:"note" validate:"required"`
	Created bool        `json:"created"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// SuggestResponse wraps link target suggestions.
type SuggestResponse struct {
	Suggestions []noteservice.Suggestion `json:"suggestions" validate:"required"`
}

// BacklinksResponse lists the notes referencing a note.
type BacklinksResponse struct {
	Backlinks []string `json:"backlinks" validate:"required"`
}

// GraphResponse is the note graph.
type GraphResponse = linkgraph.Graph

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"3f2a...-image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/api/attachments/3f2a...-image.png" validate:"required"`
	Markdown string `json:"markdown" example:"![image.png](/api/attachments/3f2a...-image.png)"`
}
