package model

import (
	"strings"
	"time"
)

// FileType is the coarse content category of a stored file.
type FileType string

const (
	FileTypeDocument FileType = "document"
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeOther    FileType = "other"
)

// File represents an uploaded object and its metadata row.
// Collaborators is an ordered list of emails, semantically a set;
// duplicates are kept as supplied by the caller.
type File struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	Type          FileType  `json:"type"`
	Extension     string    `json:"extension"`
	Size          int64     `json:"size"`
	OwnerID       string    `json:"owner"`
	Collaborators []string  `json:"users"`
	CreatedAt     time.Time `json:"created_at"`
}

// StorageKey returns the object key of the file's blob, derived from
// its public URL. The key starts at the first occurrence of the owner
// prefix, i.e. "<owner>/<timestamp>-<name>".
func (f *File) StorageKey() string {
	idx := strings.Index(f.URL, f.OwnerID+"/")
	if idx < 0 {
		return ""
	}
	return f.URL[idx:]
}

// VisibleTo reports whether the file may be read by the given user.
// A file is visible to its owner and to any user whose email equals a
// collaborator entry, compared case-insensitively. Exact equality is
// used; a collaborator entry never matches a longer address that
// merely contains it.
func (f *File) VisibleTo(userID, email string) bool {
	if f.OwnerID == userID {
		return true
	}
	if email == "" {
		return false
	}
	for _, c := range f.Collaborators {
		if strings.EqualFold(c, email) {
			return true
		}
	}
	return false
}

// typeByExtension maps known file extensions to their category.
var typeByExtension = map[string]FileType{
	"pdf": FileTypeDocument, "doc": FileTypeDocument, "docx": FileTypeDocument,
	"txt": FileTypeDocument, "md": FileTypeDocument, "csv": FileTypeDocument,
	"xls": FileTypeDocument, "xlsx": FileTypeDocument, "ppt": FileTypeDocument,
	"pptx": FileTypeDocument, "rtf": FileTypeDocument, "odt": FileTypeDocument,

	"jpg": FileTypeImage, "jpeg": FileTypeImage, "png": FileTypeImage,
	"gif": FileTypeImage, "webp": FileTypeImage, "svg": FileTypeImage,
	"bmp": FileTypeImage, "heic": FileTypeImage,

	"mp4": FileTypeVideo, "mov": FileTypeVideo, "avi": FileTypeVideo,
	"mkv": FileTypeVideo, "webm": FileTypeVideo,

	"mp3": FileTypeAudio, "wav": FileTypeAudio, "flac": FileTypeAudio,
	"ogg": FileTypeAudio, "m4a": FileTypeAudio,
}

// DetectFileType returns the category for a file, preferring the MIME
// type's primary part and falling back to the extension.
func DetectFileType(contentType, extension string) FileType {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return FileTypeImage
	case strings.HasPrefix(contentType, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(contentType, "audio/"):
		return FileTypeAudio
	}
	if t, ok := typeByExtension[strings.ToLower(extension)]; ok {
		return t
	}
	if contentType != "" {
		return FileTypeDocument
	}
	return FileTypeOther
}

// CategoryTypes maps a browse category path segment to the file types
// it covers. Unknown or empty categories mean no type filter.
func CategoryTypes(category string) []FileType {
	switch category {
	case "documents":
		return []FileType{FileTypeDocument}
	case "images":
		return []FileType{FileTypeImage}
	case "videos":
		return []FileType{FileTypeVideo, FileTypeAudio}
	default:
		return nil
	}
}
