package handler

import (
	"errors"
	"net/http"

	"github.com/stashd/stashd/internal/auth"
	"github.com/stashd/stashd/internal/handler/dto"
	"github.com/stashd/stashd/internal/service"
)

// Upload handles POST /api/upload. The payload arrives as the
// multipart form field "file". Storage and database error messages
// are surfaced to the caller on this path.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		h.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized: no active session")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "FILE_MISSING", "File missing")
		return
	}
	defer part.Close()

	file, err := h.svc.Upload(r.Context(), service.UploadInput{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     part,
		OwnerID:     session.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileMissing),
			errors.Is(err, service.ErrFileTooLarge),
			errors.Is(err, service.ErrUnauthenticated),
			errors.Is(err, service.ErrKeyCollision):
			h.handleServiceError(w, err)
		default:
			h.logger.Error("upload_failed", "error", err, "name", header.Filename)
			h.writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", err.Error())
		}
		return
	}

	h.logger.Info("file_uploaded",
		"file_id", file.ID,
		"size", file.Size,
		"type", file.Type,
	)

	writeJSON(w, http.StatusOK, dto.UploadResponse{
		Success: true,
		URL:     file.URL,
		File:    dto.ToFileResponse(file),
	})
}
