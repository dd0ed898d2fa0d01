// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/stashd/stashd/internal/auth"
	"github.com/stashd/stashd/internal/blob"
	"github.com/stashd/stashd/internal/metrics"
	"github.com/stashd/stashd/internal/model"
	"github.com/stashd/stashd/internal/repository"
)

// Service errors.
var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrFileMissing     = errors.New("file missing")
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrFileNotFound    = errors.New("file not found")
	ErrNotOwner        = errors.New("not the file owner")
	ErrKeyCollision    = errors.New("storage key collision")
)

// DefaultSort is applied when no sort parameter is supplied.
const DefaultSort = "created_at-desc"

// FileRepository is the metadata store surface the service needs.
type FileRepository interface {
	ListFiles(ctx context.Context, filter repository.FileFilter) ([]*model.File, error)
	CreateFile(ctx context.Context, file *model.File) error
	GetFileByID(ctx context.Context, id string) (*model.File, error)
	UpdateFileName(ctx context.Context, id, name string) error
	UpdateFileCollaborators(ctx context.Context, id string, emails []string) error
	DeleteFile(ctx context.Context, id string) error
}

// UserDirectory resolves collaborator emails to accounts.
type UserDirectory interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// BlobStore is the object store surface the service needs.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, size int64, body io.Reader) error
	Delete(ctx context.Context, key string) error
	ObjectURL(key string) string
}

// ListingCache caches per-requester listings and queues orphaned blobs.
type ListingCache interface {
	GetListing(ctx context.Context, ownerID, filterHash string) ([]*model.File, error)
	SetListing(ctx context.Context, ownerID, filterHash string, files []*model.File) error
	InvalidateListings(ctx context.Context, ownerID string) error
	EnqueueOrphan(ctx context.Context, key string, at time.Time) error
}

// FileService handles file listing, upload and mutations.
type FileService struct {
	repo          FileRepository
	users         UserDirectory
	blobs         BlobStore
	cache         ListingCache
	logger        *slog.Logger
	metrics       metrics.Recorder
	maxUploadSize int64
}

// NewFileService creates a new FileService.
func NewFileService(repo FileRepository, users UserDirectory, blobs BlobStore, cache ListingCache, logger *slog.Logger, recorder metrics.Recorder, maxUploadSize int64) *FileService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &FileService{
		repo:          repo,
		users:         users,
		blobs:         blobs,
		cache:         cache,
		logger:        logger,
		metrics:       recorder,
		maxUploadSize: maxUploadSize,
	}
}

// ParseSort splits a "<field>-<direction>" sort parameter.
// The field is taken as-is (the repository whitelists it); the
// direction is ascending only for an explicit "asc" - anything else,
// including malformed input, falls back to descending.
func ParseSort(sort string) (field string, asc bool) {
	if sort == "" {
		sort = DefaultSort
	}
	field, direction, found := strings.Cut(sort, "-")
	if !found {
		return field, false
	}
	return field, direction == "asc"
}

// ListFilesInput defines input for listing files.
type ListFilesInput struct {
	OwnerID string
	Email   string
	// Category is a browse section: documents, images, videos or empty.
	Category string
	Search   string
	Sort     string
	Limit    int
}

// ListFiles returns the files visible to the requester, filtered,
// sorted and capped. An unauthenticated requester gets an empty
// listing rather than an error - reads fail closed.
func (s *FileService) ListFiles(ctx context.Context, input ListFilesInput) ([]*model.File, error) {
	if input.OwnerID == "" {
		s.logger.Warn("file listing requested without a session")
		return []*model.File{}, nil
	}

	field, asc := ParseSort(input.Sort)
	filter := repository.FileFilter{
		OwnerID:   input.OwnerID,
		Email:     input.Email,
		Types:     model.CategoryTypes(input.Category),
		Search:    input.Search,
		SortField: field,
		SortAsc:   asc,
		Limit:     input.Limit,
	}

	hash := filterHash(filter)
	if cached, err := s.cache.GetListing(ctx, input.OwnerID, hash); err == nil {
		s.metrics.IncListingCacheHit()
		return cached, nil
	}
	s.metrics.IncListingCacheMiss()

	files, err := s.repo.ListFiles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	if files == nil {
		files = []*model.File{}
	}

	if err := s.cache.SetListing(ctx, input.OwnerID, hash, files); err != nil {
		s.logger.Warn("failed to cache listing", "error", err)
	}

	return files, nil
}

// filterHash derives a cache key component from a filter value.
func filterHash(filter repository.FileFilter) string {
	var sb strings.Builder
	for _, t := range filter.Types {
		sb.WriteString(string(t))
		sb.WriteByte(',')
	}
	fmt.Fprintf(&sb, "|%s|%s|%v|%d|%s", filter.Search, filter.SortField, filter.SortAsc, filter.Limit, filter.Email)
	return auth.QuickHash(sb.String())
}

// UploadInput defines input for uploading a file.
type UploadInput struct {
	Name        string
	ContentType string
	Size        int64
	Content     io.Reader
	OwnerID     string
}

// Upload validates the payload, writes it to the blob store under a
// collision-resistant key, then inserts the metadata row. If the row
// insert fails after a successful blob write, the blob is deleted as
// a compensating action; if that also fails the key is queued for the
// gc sweeper so no orphan outlives the failure.
func (s *FileService) Upload(ctx context.Context, input UploadInput) (*model.File, error) {
	if input.OwnerID == "" {
		return nil, ErrUnauthenticated
	}
	if input.Name == "" || input.Content == nil {
		return nil, ErrFileMissing
	}
	if input.Size <= 0 {
		return nil, ErrFileMissing
	}
	if input.Size > s.maxUploadSize {
		return nil, ErrFileTooLarge
	}

	start := time.Now()
	key := storageKey(input.OwnerID, input.Name, start)

	if err := s.blobs.Put(ctx, key, input.ContentType, input.Size, input.Content); err != nil {
		if errors.Is(err, blob.ErrKeyExists) {
			return nil, ErrKeyCollision
		}
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	extension := fileExtension(input.Name)
	file := &model.File{
		ID:            ulid.Make().String(),
		Name:          input.Name,
		URL:           s.blobs.ObjectURL(key),
		Type:          model.DetectFileType(input.ContentType, extension),
		Extension:     extension,
		Size:          input.Size,
		OwnerID:       input.OwnerID,
		Collaborators: []string{},
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.CreateFile(ctx, file); err != nil {
		// Compensate: the blob exists but the row does not.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to delete blob after row insert failure",
				"key", key, "error", delErr)
			if qErr := s.cache.EnqueueOrphan(ctx, key, time.Now()); qErr != nil {
				s.logger.Error("failed to queue orphaned blob", "key", key, "error", qErr)
			} else {
				s.metrics.IncOrphanEnqueued()
			}
		}
		return nil, fmt.Errorf("failed to record file: %w", err)
	}

	s.metrics.IncFileUploaded()
	s.metrics.ObserveUploadDuration(time.Since(start))

	s.invalidate(ctx, input.OwnerID)

	return file, nil
}

// storageKey builds the object key for an upload. The timestamp keeps
// keys unique per user; same-millisecond collisions are caught by the
// blob store's no-overwrite guard.
func storageKey(ownerID, name string, now time.Time) string {
	return fmt.Sprintf("%s/%d-%s", ownerID, now.UnixMilli(), sanitizeName(name))
}

// sanitizeName strips path separators from an upload name so it cannot
// escape the owner's key prefix.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	return name
}

// fileExtension returns the lowercased trailing dot-segment of a file
// name, or empty if there is none.
func fileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// RenameInput defines input for renaming a file.
type RenameInput struct {
	FileID    string
	Name      string
	Extension string
	UserID    string
}

// Rename overwrites the file's display name with "<name>.<extension>".
// Only the owner may rename; no uniqueness is enforced.
func (s *FileService) Rename(ctx context.Context, input RenameInput) (*model.File, error) {
	file, err := s.ownedFile(ctx, input.FileID, input.UserID)
	if err != nil {
		return nil, err
	}

	newName := input.Name
	if input.Extension != "" {
		newName = input.Name + "." + input.Extension
	}

	if err := s.repo.UpdateFileName(ctx, file.ID, newName); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to rename file: %w", err)
	}
	file.Name = newName

	s.metrics.IncFileRenamed()
	s.invalidate(ctx, file.OwnerID, file.Collaborators)

	return file, nil
}

// ShareInput defines input for replacing a file's collaborator list.
type ShareInput struct {
	FileID string
	Emails []string
	UserID string
}

// Share replaces the collaborator list entirely. Callers supply the
// full desired list; removals are expressed by omission.
func (s *FileService) Share(ctx context.Context, input ShareInput) (*model.File, error) {
	file, err := s.ownedFile(ctx, input.FileID, input.UserID)
	if err != nil {
		return nil, err
	}

	emails := input.Emails
	if emails == nil {
		emails = []string{}
	}

	if err := s.repo.UpdateFileCollaborators(ctx, file.ID, emails); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to update collaborators: %w", err)
	}
	previous := file.Collaborators
	file.Collaborators = emails

	s.metrics.IncFileShared()
	// Both the removed and the added collaborators see a different
	// listing after this, so invalidate across both lists.
	s.invalidate(ctx, file.OwnerID, previous, emails)

	return file, nil
}

// Delete removes the metadata row, then the blob. Row-first ordering
// makes the file disappear from listings immediately; if the blob
// delete fails afterwards the key is queued for the gc sweeper
// instead of failing the request.
func (s *FileService) Delete(ctx context.Context, fileID, userID string) error {
	file, err := s.ownedFile(ctx, fileID, userID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteFile(ctx, file.ID); err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	key := file.StorageKey()
	if key == "" {
		s.logger.Error("could not derive storage key for deleted file", "file_id", file.ID, "url", file.URL)
	} else if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete blob, queued for gc", "key", key, "error", err)
		if qErr := s.cache.EnqueueOrphan(ctx, key, time.Now()); qErr != nil {
			s.logger.Error("failed to queue orphaned blob", "key", key, "error", qErr)
		} else {
			s.metrics.IncOrphanEnqueued()
		}
	}

	s.metrics.IncFileDeleted()
	s.invalidate(ctx, file.OwnerID, file.Collaborators)

	return nil
}

// ownedFile loads a file and verifies the requester owns it.
func (s *FileService) ownedFile(ctx context.Context, fileID, userID string) (*model.File, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if fileID == "" {
		return nil, ErrFileNotFound
	}

	file, err := s.repo.GetFileByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to load file: %w", err)
	}

	if file.OwnerID != userID {
		return nil, ErrNotOwner
	}

	return file, nil
}

// invalidate drops cached listings for the owner and for every user
// behind the given collaborator email lists. Listings are cached per
// requester, so a mutation has to clear the cache of everyone the file
// was visible to, not just its owner.
func (s *FileService) invalidate(ctx context.Context, ownerID string, emailLists ...[]string) {
	s.invalidateUser(ctx, ownerID)

	seen := make(map[string]struct{})
	for _, emails := range emailLists {
		for _, email := range emails {
			lowered := strings.ToLower(email)
			if _, done := seen[lowered]; done {
				continue
			}
			seen[lowered] = struct{}{}

			user, err := s.users.GetUserByEmail(ctx, email)
			if err != nil {
				// Collaborators without an account have no cache.
				if !errors.Is(err, repository.ErrUserNotFound) {
					s.logger.Warn("failed to resolve collaborator", "email", email, "error", err)
				}
				continue
			}
			if user.ID != ownerID {
				s.invalidateUser(ctx, user.ID)
			}
		}
	}
}

func (s *FileService) invalidateUser(ctx context.Context, userID string) {
	if err := s.cache.InvalidateListings(ctx, userID); err != nil {
		s.logger.Warn("failed to invalidate listings", "user", userID, "error", err)
	}
}
