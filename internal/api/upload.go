package api

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/starford/orrery/internal/apperr"
	"github.com/starford/orrery/internal/scantree"
	"github.com/starford/orrery/internal/service"
	"github.com/starford/orrery/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// UploadHandler ingests whole journal files sent by clients that cannot
// share the game's journal directory.
type UploadHandler struct {
	svc *service.Service
}

// NewUploadHandler creates an upload handler over the service.
func NewUploadHandler(svc *service.Service) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// journalName validates that the filename is a plain journal file name.
func journalName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || cleaned == ".." {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if !storage.IsJournal(cleaned) {
		return "", fmt.Errorf("not a journal file: %s", name)
	}
	return cleaned, nil
}

// Upload handles POST /api/journal (multipart/form-data, field "file").
//
//	@Summary		Ingest every record of an uploaded journal file
//	@Tags			events
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Journal file"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/journal [post]
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	name, err := journalName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	resp := UploadResponse{Filename: name}
	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64<<10), maxRecordBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		resp.Records++
		res, err := h.svc.Ingest(r.Context(), bytes.Clone(line))
		switch {
		case err == nil:
		case res != nil && (errors.Is(err, apperr.ErrInvalid) || errors.Is(err, apperr.ErrConflict)):
			resp.Rejected++
			continue
		case errors.Is(err, apperr.ErrInvalid):
			resp.Skipped++
			continue
		default:
			writeError(w, "upload journal", err)
			return
		}
		switch res.Outcome {
		case scantree.Attached.String():
			resp.Attached++
		case scantree.Deferred.String():
			resp.Deferred++
		case service.OutcomeDuplicate:
			resp.Duplicates++
		}
	}
	if err := sc.Err(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file: "+err.Error()))
		return
	}

	slog.Info("journal uploaded",
		slog.String("filename", name),
		slog.Int("records", resp.Records),
		slog.Int("attached", resp.Attached))
	writeJSON(w, http.StatusOK, resp)
}
