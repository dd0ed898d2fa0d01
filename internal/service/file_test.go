package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stashd/stashd/internal/blob"
	"github.com/stashd/stashd/internal/metrics"
	"github.com/stashd/stashd/internal/model"
	"github.com/stashd/stashd/internal/repository"
)

type fakeFileRepo struct {
	files map[string]*model.File

	listErr   error
	createErr error

	lastFilter repository.FileFilter
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[string]*model.File)}
}

func (r *fakeFileRepo) ListFiles(_ context.Context, filter repository.FileFilter) ([]*model.File, error) {
	r.lastFilter = filter
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*model.File, 0, len(r.files))
	for _, f := range r.files {
		out = append(out, f)
	}
	return out, nil
}

func (r *fakeFileRepo) CreateFile(_ context.Context, file *model.File) error {
	if r.createErr != nil {
		return r.createErr
	}
	clone := *file
	r.files[file.ID] = &clone
	return nil
}

func (r *fakeFileRepo) GetFileByID(_ context.Context, id string) (*model.File, error) {
	f, ok := r.files[id]
	if !ok {
		return nil, repository.ErrFileNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *fakeFileRepo) UpdateFileName(_ context.Context, id, name string) error {
	f, ok := r.files[id]
	if !ok {
		return repository.ErrFileNotFound
	}
	f.Name = name
	return nil
}

func (r *fakeFileRepo) UpdateFileCollaborators(_ context.Context, id string, emails []string) error {
	f, ok := r.files[id]
	if !ok {
		return repository.ErrFileNotFound
	}
	f.Collaborators = emails
	return nil
}

func (r *fakeFileRepo) DeleteFile(_ context.Context, id string) error {
	if _, ok := r.files[id]; !ok {
		return repository.ErrFileNotFound
	}
	delete(r.files, id)
	return nil
}

type fakeBlobStore struct {
	objects map[string]bool

	putErr    error
	deleteErr error

	puts    []string
	deletes []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string]bool)}
}

func (b *fakeBlobStore) Put(_ context.Context, key, _ string, _ int64, _ io.Reader) error {
	if b.putErr != nil {
		return b.putErr
	}
	if b.objects[key] {
		return blob.ErrKeyExists
	}
	b.objects[key] = true
	b.puts = append(b.puts, key)
	return nil
}

func (b *fakeBlobStore) Delete(_ context.Context, key string) error {
	b.deletes = append(b.deletes, key)
	if b.deleteErr != nil {
		return b.deleteErr
	}
	delete(b.objects, key)
	return nil
}

func (b *fakeBlobStore) ObjectURL(key string) string {
	return "https://blobs.test/" + key
}

type fakeListingCache struct {
	listings map[string][]*model.File

	enqueueErr error
	orphans    []string

	invalidated []string
}

func newFakeListingCache() *fakeListingCache {
	return &fakeListingCache{listings: make(map[string][]*model.File)}
}

func (c *fakeListingCache) GetListing(_ context.Context, ownerID, filterHash string) ([]*model.File, error) {
	files, ok := c.listings[ownerID+":"+filterHash]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return files, nil
}

func (c *fakeListingCache) SetListing(_ context.Context, ownerID, filterHash string, files []*model.File) error {
	c.listings[ownerID+":"+filterHash] = files
	return nil
}

// InvalidateListings drops only the one user's entries, mirroring the
// prefix scan the Redis cache does.
func (c *fakeListingCache) InvalidateListings(_ context.Context, ownerID string) error {
	c.invalidated = append(c.invalidated, ownerID)
	for key := range c.listings {
		if strings.HasPrefix(key, ownerID+":") {
			delete(c.listings, key)
		}
	}
	return nil
}

func (c *fakeListingCache) EnqueueOrphan(_ context.Context, key string, _ time.Time) error {
	if c.enqueueErr != nil {
		return c.enqueueErr
	}
	c.orphans = append(c.orphans, key)
	return nil
}

type fakeUserDirectory struct {
	byEmail map[string]*model.User
}

func newFakeUserDirectory(users ...*model.User) *fakeUserDirectory {
	d := &fakeUserDirectory{byEmail: make(map[string]*model.User)}
	for _, u := range users {
		d.byEmail[strings.ToLower(u.Email)] = u
	}
	return d
}

func (d *fakeUserDirectory) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := d.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func newTestFileService(repo *fakeFileRepo, blobs *fakeBlobStore, cache *fakeListingCache) (*FileService, *metrics.InMemoryRecorder) {
	return newTestFileServiceWithUsers(repo, newFakeUserDirectory(), blobs, cache)
}

func newTestFileServiceWithUsers(repo *fakeFileRepo, users *fakeUserDirectory, blobs *fakeBlobStore, cache *fakeListingCache) (*FileService, *metrics.InMemoryRecorder) {
	recorder := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewFileService(repo, users, blobs, cache, logger, recorder, 50<<20), recorder
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		name      string
		sort      string
		wantField string
		wantAsc   bool
	}{
		{"empty_uses_default", "", "created_at", false},
		{"name_asc", "name-asc", "name", true},
		{"size_desc", "size-desc", "size", false},
		{"unknown_direction", "name-bogus", "name", false},
		{"no_separator", "name", "name", false},
		{"uppercase_direction", "name-ASC", "name", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			field, asc := ParseSort(test.sort)
			if field != test.wantField || asc != test.wantAsc {
				t.Fatalf("ParseSort(%q) = (%q, %v), want (%q, %v)",
					test.sort, field, asc, test.wantField, test.wantAsc)
			}
		})
	}
}

func TestFileExtension(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "report.pdf", "pdf"},
		{"uppercase", "PHOTO.JPG", "jpg"},
		{"multiple_dots", "archive.tar.gz", "gz"},
		{"no_dot", "README", ""},
		{"trailing_dot", "notes.", ""},
		{"hidden_file", ".env", "env"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := fileExtension(test.in); got != test.want {
				t.Fatalf("fileExtension(%q) = %q, want %q", test.in, got, test.want)
			}
		})
	}
}

func TestStorageKey(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	key := storageKey("user-1", "report.pdf", now)
	if key != "user-1/1700000000123-report.pdf" {
		t.Fatalf("unexpected key %q", key)
	}

	key = storageKey("user-1", "../etc/passwd", now)
	if strings.Contains(key[len("user-1/"):], "/") {
		t.Fatalf("sanitized key still contains a separator: %q", key)
	}

	key = storageKey("user-1", `a\b.txt`, now)
	if strings.Contains(key, `\`) {
		t.Fatalf("sanitized key still contains a backslash: %q", key)
	}
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   UploadInput
		wantErr error
	}{
		{
			name:    "no_session",
			input:   UploadInput{Name: "a.txt", Size: 1, Content: strings.NewReader("x")},
			wantErr: ErrUnauthenticated,
		},
		{
			name:    "missing_name",
			input:   UploadInput{OwnerID: "u1", Size: 1, Content: strings.NewReader("x")},
			wantErr: ErrFileMissing,
		},
		{
			name:    "missing_content",
			input:   UploadInput{OwnerID: "u1", Name: "a.txt", Size: 1},
			wantErr: ErrFileMissing,
		},
		{
			name:    "zero_size",
			input:   UploadInput{OwnerID: "u1", Name: "a.txt", Size: 0, Content: strings.NewReader("")},
			wantErr: ErrFileMissing,
		},
		{
			name:    "over_limit",
			input:   UploadInput{OwnerID: "u1", Name: "a.txt", Size: (50 << 20) + 1, Content: strings.NewReader("x")},
			wantErr: ErrFileTooLarge,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			repo := newFakeFileRepo()
			blobs := newFakeBlobStore()
			svc, _ := newTestFileService(repo, blobs, newFakeListingCache())

			_, err := svc.Upload(context.Background(), test.input)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
			if len(blobs.puts) != 0 {
				t.Fatalf("rejected upload must not reach the blob store, got %v", blobs.puts)
			}
		})
	}
}

func TestUploadSuccess(t *testing.T) {
	repo := newFakeFileRepo()
	blobs := newFakeBlobStore()
	cache := newFakeListingCache()
	svc, recorder := newTestFileService(repo, blobs, cache)

	file, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:     "u1",
		Name:        "Quarterly Report.PDF",
		ContentType: "application/pdf",
		Size:        50 << 20, // exactly at the limit
		Content:     strings.NewReader("pdf bytes"),
	})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	if file.ID == "" {
		t.Fatal("expected a generated id")
	}
	if file.OwnerID != "u1" {
		t.Fatalf("owner = %q, want u1", file.OwnerID)
	}
	if file.Extension != "pdf" {
		t.Fatalf("extension = %q, want pdf", file.Extension)
	}
	if file.Type != model.FileTypeDocument {
		t.Fatalf("type = %q, want document", file.Type)
	}
	if file.Collaborators == nil || len(file.Collaborators) != 0 {
		t.Fatalf("collaborators = %#v, want empty slice", file.Collaborators)
	}
	if !strings.HasPrefix(file.URL, "https://blobs.test/u1/") {
		t.Fatalf("unexpected url %q", file.URL)
	}

	if _, ok := repo.files[file.ID]; !ok {
		t.Fatal("metadata row was not inserted")
	}
	if len(blobs.puts) != 1 {
		t.Fatalf("expected one blob write, got %d", len(blobs.puts))
	}
	if len(cache.invalidated) != 1 || cache.invalidated[0] != "u1" {
		t.Fatalf("expected listing invalidation for u1, got %v", cache.invalidated)
	}

	snap := recorder.Snapshot()
	if snap.FilesUploaded != 1 {
		t.Fatalf("FilesUploaded = %d, want 1", snap.FilesUploaded)
	}
	if snap.UploadDurationCount != 1 {
		t.Fatalf("UploadDurationCount = %d, want 1", snap.UploadDurationCount)
	}
}

func TestUploadKeyCollision(t *testing.T) {
	repo := newFakeFileRepo()
	blobs := newFakeBlobStore()
	blobs.putErr = blob.ErrKeyExists
	svc, _ := newTestFileService(repo, blobs, newFakeListingCache())

	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerID: "u1",
		Name:    "a.txt",
		Size:    1,
		Content: strings.NewReader("x"),
	})
	if !errors.Is(err, ErrKeyCollision) {
		t.Fatalf("expected ErrKeyCollision, got %v", err)
	}
	if len(repo.files) != 0 {
		t.Fatal("no row should be inserted on a key collision")
	}
}

func TestUploadCompensatesRowInsertFailure(t *testing.T) {
	repo := newFakeFileRepo()
	repo.createErr = errors.New("insert failed")
	blobs := newFakeBlobStore()
	cache := newFakeListingCache()
	svc, _ := newTestFileService(repo, blobs, cache)

	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerID: "u1",
		Name:    "a.txt",
		Size:    1,
		Content: strings.NewReader("x"),
	})
	if err == nil {
		t.Fatal("expected an error")
	}

	if len(blobs.deletes) != 1 {
		t.Fatalf("expected one compensating blob delete, got %d", len(blobs.deletes))
	}
	if len(blobs.objects) != 0 {
		t.Fatal("blob should have been removed")
	}
	if len(cache.orphans) != 0 {
		t.Fatalf("no orphan should be queued when the compensating delete succeeds, got %v", cache.orphans)
	}
}

func TestUploadQueuesOrphanOnDoubleFailure(t *testing.T) {
	repo := newFakeFileRepo()
	repo.createErr = errors.New("insert failed")
	blobs := newFakeBlobStore()
	blobs.deleteErr = errors.New("delete failed")
	cache := newFakeListingCache()
	svc, recorder := newTestFileService(repo, blobs, cache)

	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerID: "u1",
		Name:    "a.txt",
		Size:    1,
		Content: strings.NewReader("x"),
	})
	if err == nil {
		t.Fatal("expected an error")
	}

	if len(cache.orphans) != 1 {
		t.Fatalf("expected one queued orphan, got %v", cache.orphans)
	}
	if !strings.HasPrefix(cache.orphans[0], "u1/") {
		t.Fatalf("orphan key %q not under the owner prefix", cache.orphans[0])
	}
	if got := recorder.Snapshot().OrphansEnqueued; got != 1 {
		t.Fatalf("OrphansEnqueued = %d, want 1", got)
	}
}

func TestListFilesWithoutSession(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{ID: "f1", OwnerID: "u1"}
	svc, _ := newTestFileService(repo, newFakeBlobStore(), newFakeListingCache())

	files, err := svc.ListFiles(context.Background(), ListFilesInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected an empty listing, got %d files", len(files))
	}
}

func TestListFilesBuildsFilter(t *testing.T) {
	repo := newFakeFileRepo()
	svc, _ := newTestFileService(repo, newFakeBlobStore(), newFakeListingCache())

	_, err := svc.ListFiles(context.Background(), ListFilesInput{
		OwnerID:  "u1",
		Email:    "u1@example.com",
		Category: "videos",
		Search:   "demo",
		Sort:     "size-asc",
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	filter := repo.lastFilter
	if filter.OwnerID != "u1" || filter.Email != "u1@example.com" {
		t.Fatalf("unexpected scope: %+v", filter)
	}
	if len(filter.Types) != 2 {
		t.Fatalf("videos category should map to two types, got %v", filter.Types)
	}
	if filter.Search != "demo" || filter.SortField != "size" || !filter.SortAsc || filter.Limit != 10 {
		t.Fatalf("unexpected filter: %+v", filter)
	}
}

func TestListFilesCaching(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{ID: "f1", OwnerID: "u1", Name: "a.txt"}
	cache := newFakeListingCache()
	svc, recorder := newTestFileService(repo, newFakeBlobStore(), cache)

	input := ListFilesInput{OwnerID: "u1", Email: "u1@example.com"}

	first, err := svc.ListFiles(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.ListFiles(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected one file on both reads, got %d and %d", len(first), len(second))
	}

	snap := recorder.Snapshot()
	if snap.ListingCacheMisses != 1 || snap.ListingCacheHits != 1 {
		t.Fatalf("expected one miss then one hit, got misses=%d hits=%d",
			snap.ListingCacheMisses, snap.ListingCacheHits)
	}
}

func TestRename(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{ID: "f1", OwnerID: "u1", Name: "old.pdf", Extension: "pdf"}
	cache := newFakeListingCache()
	svc, _ := newTestFileService(repo, newFakeBlobStore(), cache)

	file, err := svc.Rename(context.Background(), RenameInput{
		FileID:    "f1",
		Name:      "annual report",
		Extension: "pdf",
		UserID:    "u1",
	})
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if file.Name != "annual report.pdf" {
		t.Fatalf("name = %q, want %q", file.Name, "annual report.pdf")
	}
	if repo.files["f1"].Name != "annual report.pdf" {
		t.Fatalf("stored name = %q", repo.files["f1"].Name)
	}
	if len(cache.invalidated) != 1 {
		t.Fatal("rename must invalidate listings")
	}
}

func TestRenameWithoutExtension(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{ID: "f1", OwnerID: "u1", Name: "README"}
	svc, _ := newTestFileService(repo, newFakeBlobStore(), newFakeListingCache())

	file, err := svc.Rename(context.Background(), RenameInput{
		FileID: "f1",
		Name:   "CHANGELOG",
		UserID: "u1",
	})
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if file.Name != "CHANGELOG" {
		t.Fatalf("name = %q, want CHANGELOG", file.Name)
	}
}

func TestShareReplacesCollaborators(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{
		ID: "f1", OwnerID: "u1",
		Collaborators: []string{"old@example.com"},
	}
	svc, _ := newTestFileService(repo, newFakeBlobStore(), newFakeListingCache())

	file, err := svc.Share(context.Background(), ShareInput{
		FileID: "f1",
		Emails: []string{"a@example.com", "b@example.com"},
		UserID: "u1",
	})
	if err != nil {
		t.Fatalf("share failed: %v", err)
	}
	if len(file.Collaborators) != 2 || file.Collaborators[0] != "a@example.com" {
		t.Fatalf("collaborators = %v", file.Collaborators)
	}

	// A nil list clears access entirely.
	file, err = svc.Share(context.Background(), ShareInput{FileID: "f1", UserID: "u1"})
	if err != nil {
		t.Fatalf("share failed: %v", err)
	}
	if file.Collaborators == nil || len(file.Collaborators) != 0 {
		t.Fatalf("collaborators = %#v, want empty slice", file.Collaborators)
	}
}

func TestDelete(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{
		ID: "f1", OwnerID: "u1",
		URL: "https://blobs.test/u1/123-a.txt",
	}
	blobs := newFakeBlobStore()
	blobs.objects["u1/123-a.txt"] = true
	cache := newFakeListingCache()
	svc, recorder := newTestFileService(repo, blobs, cache)

	if err := svc.Delete(context.Background(), "f1", "u1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, ok := repo.files["f1"]; ok {
		t.Fatal("row was not deleted")
	}
	if len(blobs.deletes) != 1 || blobs.deletes[0] != "u1/123-a.txt" {
		t.Fatalf("blob deletes = %v", blobs.deletes)
	}
	if recorder.Snapshot().FilesDeleted != 1 {
		t.Fatal("FilesDeleted counter not incremented")
	}
}

func TestDeleteQueuesOrphanWhenBlobDeleteFails(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{
		ID: "f1", OwnerID: "u1",
		URL: "https://blobs.test/u1/123-a.txt",
	}
	blobs := newFakeBlobStore()
	blobs.deleteErr = errors.New("s3 unavailable")
	cache := newFakeListingCache()
	svc, _ := newTestFileService(repo, blobs, cache)

	// Row-first: the request still succeeds and the key is queued.
	if err := svc.Delete(context.Background(), "f1", "u1"); err != nil {
		t.Fatalf("delete should succeed despite the blob failure, got %v", err)
	}
	if _, ok := repo.files["f1"]; ok {
		t.Fatal("row was not deleted")
	}
	if len(cache.orphans) != 1 || cache.orphans[0] != "u1/123-a.txt" {
		t.Fatalf("orphans = %v", cache.orphans)
	}
}

func TestDeleteInvalidatesCollaboratorListings(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{
		ID: "f1", OwnerID: "u1",
		URL:           "https://blobs.test/u1/123-a.txt",
		Collaborators: []string{"Collab@example.com"},
	}
	users := newFakeUserDirectory(&model.User{ID: "u2", Email: "collab@example.com"})
	cache := newFakeListingCache()
	svc, _ := newTestFileServiceWithUsers(repo, users, newFakeBlobStore(), cache)

	// Warm the collaborator's cache before the owner deletes.
	collab := ListFilesInput{OwnerID: "u2", Email: "collab@example.com"}
	files, err := svc.ListFiles(context.Background(), collab)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("collaborator should see the shared file, got %d", len(files))
	}

	if err := svc.Delete(context.Background(), "f1", "u1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	files, err = svc.ListFiles(context.Background(), collab)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("deleted file still served to collaborator: %v", files[0].ID)
	}

	wantInvalidated := map[string]bool{"u1": false, "u2": false}
	for _, id := range cache.invalidated {
		if _, ok := wantInvalidated[id]; ok {
			wantInvalidated[id] = true
		}
	}
	for id, hit := range wantInvalidated {
		if !hit {
			t.Fatalf("listings for %s were not invalidated, got %v", id, cache.invalidated)
		}
	}
}

func TestShareInvalidatesRemovedAndAddedCollaborators(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{
		ID: "f1", OwnerID: "u1",
		Collaborators: []string{"old@example.com"},
	}
	users := newFakeUserDirectory(
		&model.User{ID: "u2", Email: "old@example.com"},
		&model.User{ID: "u3", Email: "new@example.com"},
	)
	cache := newFakeListingCache()
	svc, _ := newTestFileServiceWithUsers(repo, users, newFakeBlobStore(), cache)

	// Warm the outgoing collaborator's cache.
	if _, err := svc.ListFiles(context.Background(), ListFilesInput{OwnerID: "u2", Email: "old@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Replacing the list must clear caches on both sides of the change.
	// The address without an account is skipped without failing the call.
	_, err := svc.Share(context.Background(), ShareInput{
		FileID: "f1",
		Emails: []string{"new@example.com", "ghost@example.com"},
		UserID: "u1",
	})
	if err != nil {
		t.Fatalf("share failed: %v", err)
	}

	for key := range cache.listings {
		if strings.HasPrefix(key, "u2:") {
			t.Fatalf("removed collaborator still has a cached listing: %s", key)
		}
	}

	wantInvalidated := map[string]bool{"u1": false, "u2": false, "u3": false}
	for _, id := range cache.invalidated {
		if _, ok := wantInvalidated[id]; ok {
			wantInvalidated[id] = true
		}
	}
	for id, hit := range wantInvalidated {
		if !hit {
			t.Fatalf("listings for %s were not invalidated, got %v", id, cache.invalidated)
		}
	}
}

func TestOwnerChecks(t *testing.T) {
	repo := newFakeFileRepo()
	repo.files["f1"] = &model.File{ID: "f1", OwnerID: "u1", Collaborators: []string{"u2@example.com"}}
	svc, _ := newTestFileService(repo, newFakeBlobStore(), newFakeListingCache())

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{
			name: "rename_by_non_owner",
			run: func() error {
				_, err := svc.Rename(context.Background(), RenameInput{FileID: "f1", Name: "x", UserID: "u2"})
				return err
			},
			wantErr: ErrNotOwner,
		},
		{
			name: "share_by_non_owner",
			run: func() error {
				_, err := svc.Share(context.Background(), ShareInput{FileID: "f1", UserID: "u2"})
				return err
			},
			wantErr: ErrNotOwner,
		},
		{
			name: "delete_by_non_owner",
			run: func() error {
				return svc.Delete(context.Background(), "f1", "u2")
			},
			wantErr: ErrNotOwner,
		},
		{
			name: "delete_without_session",
			run: func() error {
				return svc.Delete(context.Background(), "f1", "")
			},
			wantErr: ErrUnauthenticated,
		},
		{
			name: "rename_unknown_file",
			run: func() error {
				_, err := svc.Rename(context.Background(), RenameInput{FileID: "missing", Name: "x", UserID: "u1"})
				return err
			},
			wantErr: ErrFileNotFound,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := test.run(); !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
		})
	}
}
