package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notegraph/internal/noteservice"
	"github.com/starford/notegraph/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// Attachments are stored in store below "attachments/".
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler, store storage.Provider, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(svc, logger)
	ah := NewAttachmentHandler(store, logger)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Route("/notes/{id}", func(r chi.Router) {
		r.Get("/", h.GetNote)
		r.Put("/", h.UpdateNote)
		r.Delete("/", h.DeleteNote)
		r.Put("/title", h.RenameNote)
		r.Get("/markdown", h.ExportMarkdown)
		r.Get("/view", h.ViewNote)
		r.Post("/convert", h.ConvertReference)
		r.Get("/backlinks", h.Backlinks)
	})
	r.Post("/import", h.ImportMarkdown)

	// Lookup.
	r.Get("/search", h.Search)
	r.Get("/suggest", h.Suggest)
	r.Get("/resolve", h.Resolve)

	// Graph.
	r.Get("/graph", h.Graph)

	// Attachments (auth-protected).
	r.Post("/attachments", ah.Upload)
	r.Get("/attachments/{filename}", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
