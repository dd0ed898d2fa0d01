package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stashd/stashd/internal/auth"
	"github.com/stashd/stashd/internal/handler/dto"
	"github.com/stashd/stashd/internal/service"
)

// FileHandler handles HTTP requests for file operations.
type FileHandler struct {
	svc    *service.FileService
	logger *slog.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(svc *service.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/files.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized: no active session")
		return
	}

	query := r.URL.Query()

	limit := 0
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	input := service.ListFilesInput{
		OwnerID:  session.UserID,
		Email:    session.Email,
		Category: query.Get("type"),
		Search:   query.Get("query"),
		Sort:     query.Get("sort"),
		Limit:    limit,
	}

	files, err := h.svc.ListFiles(r.Context(), input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToFileListResponse(files))
}

// Rename handles PATCH /api/files/{id}/rename.
func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "File ID is required")
		return
	}

	var req dto.RenameFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_NAME", "Name is required")
		return
	}

	file, err := h.svc.Rename(r.Context(), service.RenameInput{
		FileID:    id,
		Name:      req.Name,
		Extension: req.Extension,
		UserID:    auth.UserIDFromContext(r.Context()),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("file_renamed", "file_id", file.ID)

	writeJSON(w, http.StatusOK, dto.ToFileResponse(file))
}

// Share handles PATCH /api/files/{id}/share.
func (h *FileHandler) Share(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "File ID is required")
		return
	}

	var req dto.ShareFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	file, err := h.svc.Share(r.Context(), service.ShareInput{
		FileID: id,
		Emails: req.Emails,
		UserID: auth.UserIDFromContext(r.Context()),
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("file_shared", "file_id", file.ID, "collaborators", len(file.Collaborators))

	writeJSON(w, http.StatusOK, dto.ToFileResponse(file))
}

// Delete handles DELETE /api/files/{id}.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "File ID is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id, auth.UserIDFromContext(r.Context())); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("file_deleted", "file_id", id)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps service errors to HTTP responses.
func (h *FileHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized: no active session")
	case errors.Is(err, service.ErrFileNotFound):
		h.writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found")
	case errors.Is(err, service.ErrNotOwner):
		h.writeError(w, http.StatusForbidden, "NOT_OWNER", "Only the owner may modify this file")
	case errors.Is(err, service.ErrFileMissing):
		h.writeError(w, http.StatusBadRequest, "FILE_MISSING", "File missing")
	case errors.Is(err, service.ErrFileTooLarge):
		h.writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the maximum upload size")
	case errors.Is(err, service.ErrKeyCollision):
		h.writeError(w, http.StatusConflict, "KEY_COLLISION", "An object with this key already exists")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *FileHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
