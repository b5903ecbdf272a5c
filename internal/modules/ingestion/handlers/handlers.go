// Package handlers provides HTTP handlers for portfolio uploads.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/capitalx/capitalx/internal/modules/ingestion"
	"github.com/rs/zerolog"
)

// Ingester runs one upload through the ingestion pipeline
type Ingester interface {
	Ingest(ctx context.Context, filename string, content io.Reader) (*ingestion.Result, error)
}

// Handler handles portfolio upload HTTP requests
type Handler struct {
	ingester      Ingester
	maxUploadSize int64
	log           zerolog.Logger
}

// NewHandler creates a new upload handler. Request bodies larger than
// maxUploadSize bytes are rejected.
func NewHandler(ingester Ingester, maxUploadSize int64, log zerolog.Logger) *Handler {
	return &Handler{
		ingester:      ingester,
		maxUploadSize: maxUploadSize,
		log:           log.With().Str("handler", "ingestion").Logger(),
	}
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Row     int      `json:"row,omitempty"`
	Columns []string `json:"columns,omitempty"`
}

// HandleUpload handles POST /api/portfolio/ingest/upload
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file too large, max %d bytes", h.maxUploadSize))
			return
		}
		h.log.Warn().Err(err).Msg("Failed to retrieve file from request")
		h.writeError(w, http.StatusBadRequest, "failed to retrieve file from request, use the 'file' field")
		return
	}
	defer file.Close()

	// Browsers may send a full client path
	filename := filepath.Base(header.Filename)
	if header.Filename == "" || filename == "." || filename == string(filepath.Separator) {
		h.writeError(w, http.StatusBadRequest, "uploaded file has no name")
		return
	}
	if header.Size == 0 {
		h.writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	h.log.Info().Str("file_name", filename).Int64("size", header.Size).Msg("Processing portfolio upload")

	result, err := h.ingester.Ingest(r.Context(), filename, file)
	if err != nil {
		h.writeIngestionError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// StatusFor maps an ingestion error to its HTTP status code
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidFileFormat), errors.Is(err, domain.ErrInvalidCSV):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAssetResolution):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeIngestionError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := errorResponse{Error: err.Error(), Kind: domain.ErrorKind(err)}

	var csvErr *domain.InvalidCSVError
	if errors.As(err, &csvErr) {
		resp.Row = csvErr.Row
		resp.Columns = csvErr.Columns
	}
	if status == http.StatusInternalServerError {
		// Internal causes stay in the log
		resp.Error = "an internal error occurred while processing the file"
	}

	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}
