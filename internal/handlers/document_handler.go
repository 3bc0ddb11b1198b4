package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

// maxUploadBytes bounds a multipart upload
const maxUploadBytes = 64 << 20

// URLIngestRequest is the body of POST /api/documents/url
type URLIngestRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// DocumentHandler handles document ingestion requests
type DocumentHandler struct {
	ingestService interfaces.IngestService
	logger        arbor.ILogger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(ingestService interfaces.IngestService, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		ingestService: ingestService,
		logger:        logger,
	}
}

// UploadHandler handles POST /api/documents/upload with a multipart "file" field
func (h *DocumentHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", maxUploadBytes))
			return
		}
		WriteError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	h.logger.Info().
		Str("filename", header.Filename).
		Int("size", int(header.Size)).
		Msg("Document upload received")

	result, err := h.ingestService.IngestFile(r.Context(), header.Filename, file)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to ingest upload")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

// URLHandler handles POST /api/documents/url
func (h *DocumentHandler) URLHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req URLIngestRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		WriteServiceError(w, h.logger, err, "Invalid URL ingest request")
		return
	}

	result, err := h.ingestService.IngestURL(r.Context(), req.URL)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Failed to ingest URL")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}
