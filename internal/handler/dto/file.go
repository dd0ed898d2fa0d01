// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/stashd/stashd/internal/model"
)

// RenameFileRequest represents the request body for renaming a file.
type RenameFileRequest struct {
	Name      string `json:"name"`
	Extension string `json:"extension,omitempty"`
}

// ShareFileRequest represents the request body for replacing a file's
// collaborator list.
type ShareFileRequest struct {
	Emails []string `json:"emails"`
}

// FileResponse represents a file in API responses.
type FileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	Extension string    `json:"extension"`
	Size      int64     `json:"size"`
	Owner     string    `json:"owner"`
	Users     []string  `json:"users"`
	CreatedAt time.Time `json:"created_at"`
}

// FileListResponse represents a file listing.
type FileListResponse struct {
	Total int            `json:"total"`
	Files []FileResponse `json:"files"`
}

// UploadResponse represents a successful upload.
type UploadResponse struct {
	Success bool          `json:"success"`
	URL     string        `json:"url"`
	File    *FileResponse `json:"file"`
}

// UserResponse represents the signed-in account.
type UserResponse struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ToFileResponse converts a File model to FileResponse DTO.
func ToFileResponse(file *model.File) *FileResponse {
	users := file.Collaborators
	if users == nil {
		users = []string{}
	}
	return &FileResponse{
		ID:        file.ID,
		Name:      file.Name,
		URL:       file.URL,
		Type:      string(file.Type),
		Extension: file.Extension,
		Size:      file.Size,
		Owner:     file.OwnerID,
		Users:     users,
		CreatedAt: file.CreatedAt,
	}
}

// ToFileListResponse converts a slice of File models to FileListResponse.
func ToFileListResponse(files []*model.File) *FileListResponse {
	responses := make([]FileResponse, len(files))
	for i, file := range files {
		responses[i] = *ToFileResponse(file)
	}
	return &FileListResponse{
		Total: len(responses),
		Files: responses,
	}
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:       user.ID,
		FullName: user.FullName,
		Email:    user.Email,
		Avatar:   user.Avatar,
	}
}
