package api

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/starford/notegraph/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler serves and accepts files stored in the vault below
// attachments/.
type AttachmentHandler struct {
	files  *storage.Attachments
	logger *slog.Logger
}

// NewAttachmentHandler creates a handler storing files through store.
func NewAttachmentHandler(store storage.Provider, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{files: storage.NewAttachments(store), logger: logger}
}

// ServeFile handles GET /api/attachments/{filename}.
//
//	@Summary		Download an attachment
//	@Tags			attachments
//	@Produce		octet-stream
//	@Param			filename	path	string	true	"Stored file name"
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments/{filename} [get]
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	data, err := h.files.Read(name)
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid filename"))
		return
	case errors.Is(err, fs.ErrNotExist):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	case err != nil:
		h.logger.Error("read attachment failed", slog.String("file", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
//
//	@Summary		Upload an attachment
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	name, err := h.files.Save(header.Filename, data, true)
	if err != nil {
		h.logger.Error("store attachment failed", slog.String("file", header.Filename), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}
	h.logger.Info("attachment stored",
		slog.String("file", name),
		slog.String("size", humanize.Bytes(uint64(len(data)))))

	url := storage.AttachmentURL(name)
	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: name,
		Size:     int64(len(data)),
		URL:      url,
		Markdown: "![" + header.Filename + "](" + url + ")",
	})
}
