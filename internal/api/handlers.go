package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notegraph/internal/apperr"
	"github.com/starford/notegraph/internal/document"
	"github.com/starford/notegraph/internal/noteservice"
	"github.com/starford/notegraph/internal/resolve"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *noteservice.Service
	logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// fail writes the response for a service error. Errors without a mapping
// are logged and reported as 500.
func (h *Handler) fail(w http.ResponseWriter, op string, err error, attrs ...any) {
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, document.ErrNodeNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, resolve.ErrWouldCreateCycle):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, resolve.ErrNotConvertible):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		h.logger.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func noteID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// splitList parses a comma-separated query value.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, created_at, title, position)
//	@Success		200		{object}	NoteListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		h.fail(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a note with its references resolved
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	note, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get note", err, slog.String("note", id))
		return
	}
	setETag(w, note.Checksum)
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create note", err, slog.String("title", req.Title))
		return
	}
	setETag(w, note.Checksum)
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Note id"
//	@Param			If-Match	header		string				false	"Content checksum for optimistic concurrency"
//	@Param			body		body		UpdateNoteRequest	true	"Changed fields"
//	@Success		200			{object}	NoteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req UpdateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, err := h.svc.UpdateContent(r.Context(), id, req, ifMatch(r))
	if err != nil {
		h.fail(w, "update note", err, slog.String("note", id))
		return
	}
	setETag(w, note.Checksum)
	writeJSON(w, http.StatusOK, note)
}

// RenameNote handles PUT /api/notes/{id}/title.
//
//	@Summary		Rename a note and update the notes that reference it
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Note id"
//	@Param			If-Match	header		string				false	"Content checksum for optimistic concurrency"
//	@Param			body		body		RenameNoteRequest	true	"New title"
//	@Success		200			{object}	NoteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/title [put]
func (h *Handler) RenameNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req RenameNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, err := h.svc.Rename(r.Context(), id, req.Title, ifMatch(r))
	if err != nil {
		h.fail(w, "rename note", err, slog.String("note", id))
		return
	}
	setETag(w, note.Checksum)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete note", err, slog.String("note", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportMarkdown handles GET /api/notes/{id}/markdown.
//
//	@Summary		Download a note as a markdown file
//	@Tags			notes
//	@Produce		text/markdown
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/markdown [get]
func (h *Handler) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	name, data, err := h.svc.ExportMarkdown(r.Context(), id)
	if err != nil {
		h.fail(w, "export note", err, slog.String("note", id))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ImportMarkdown handles POST /api/import.
//
//	@Summary		Import a markdown note file
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportRequest	true	"File name and contents"
//	@Success		200		{object}	ImportResponse	"An existing note was replaced"
//	@Success		201		{object}	ImportResponse	"A new note was created"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) ImportMarkdown(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	note, created, err := h.svc.ImportMarkdown(r.Context(), req.Name, []byte(req.Markdown))
	if err != nil {
		h.fail(w, "import note", err, slog.String("name", req.Name))
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	setETag(w, note.Checksum)
	writeJSON(w, status, ImportResponse{Note: note, Created: created})
}

// ViewNote handles GET /api/notes/{id}/view.
//
//	@Summary		Render a note with its embeds expanded
//	@Tags			notes
//	@Produce		json
//	@Param			id		path		string	true	"Note id"
//	@Param			parents	query		string	false	"Comma-separated ids of the notes this one is shown inside of"
//	@Success		200		{object}	noteservice.ViewDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/view [get]
func (h *Handler) ViewNote(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	view, err := h.svc.View(r.Context(), id, splitList(r.URL.Query().Get("parents"))...)
	if err != nil {
		h.fail(w, "view note", err, slog.String("note", id))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ConvertReference handles POST /api/notes/{id}/convert.
//
//	@Summary		Switch a reference between link and embed
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Note id"
//	@Param			If-Match	header		string			false	"Content checksum for optimistic concurrency"
//	@Param			body		body		ConvertRequest	true	"Reference key and target form"
//	@Success		200			{object}	NoteDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse	"Checksum mismatch or the embed would create a cycle"
//	@Security		BearerAuth
//	@Router			/notes/{id}/convert [post]
func (h *Handler) ConvertReference(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	var req ConvertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	var (
		note *NoteDetail
		err  error
	)
	if req.To == ConvertToEmbed {
		note, err = h.svc.ConvertToEmbed(r.Context(), id, req.Key, req.Parents, ifMatch(r))
	} else {
		note, err = h.svc.ConvertToLink(r.Context(), id, req.Key, ifMatch(r))
	}
	if err != nil {
		h.fail(w, "convert reference", err, slog.String("note", id))
		return
	}
	setETag(w, note.Checksum)
	writeJSON(w, http.StatusOK, note)
}

// Backlinks handles GET /api/notes/{id}/backlinks.
//
//	@Summary		List the notes that reference a note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	BacklinksResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	bl, err := h.svc.Backlinks(r.Context(), id)
	if err != nil {
		h.fail(w, "backlinks", err, slog.String("note", id))
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Backlinks: bl})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		h.fail(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Suggest handles GET /api/suggest.
//
//	@Summary		Suggest link targets by fuzzy title match
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	false	"Partial title"
//	@Param			limit	query		int		false	"Max suggestions"
//	@Success		200		{object}	SuggestResponse
//	@Security		BearerAuth
//	@Router			/suggest [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s, err := h.svc.Suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.fail(w, "suggest", err)
		return
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Suggestions: s})
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Classify a reference between two notes
//	@Tags			search
//	@Produce		json
//	@Param			from	query		string	true	"Id of the referencing note"
//	@Param			target	query		string	true	"Target id or title"
//	@Param			parents	query		string	false	"Comma-separated ids of the notes 'from' is shown inside of"
//	@Success		200		{object}	noteservice.ResolveDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, target := q.Get("from"), q.Get("target")
	if from == "" || target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameters 'from' and 'target' are required"))
		return
	}
	res, err := h.svc.Resolve(r.Context(), from, target, splitList(q.Get("parents"))...)
	if err != nil {
		h.fail(w, "resolve", err, slog.String("from", from))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the note graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Graph(r.Context())
	if err != nil {
		h.fail(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
