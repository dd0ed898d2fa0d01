package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/stashd/stashd/internal/model"
)

// Common errors for file repository operations.
var (
	ErrFileNotFound = errors.New("file not found")
	ErrFileExists   = errors.New("file already exists")
)

// sortColumns whitelists the columns a listing may be ordered by.
// Anything else falls back to created_at.
var sortColumns = map[string]string{
	"created_at": "created_at",
	"name":       "name",
	"size":       "size",
	"extension":  "extension",
	"type":       "type",
}

// FileFilter is an immutable specification of a file listing query.
// OwnerID and Email scope the listing to files visible to the
// requester; the remaining fields narrow, order and cap the result.
type FileFilter struct {
	OwnerID   string
	Email     string
	Types     []model.FileType
	Search    string
	SortField string
	SortAsc   bool
	Limit     int
}

const fileColumns = "id, name, url, type, extension, size, owner, collaborators, created_at"

// buildListQuery translates a FileFilter into a parameterized SQL
// query. Visibility scoping is always present: a file is returned iff
// the requester owns it or their email matches a collaborator entry
// case-insensitively.
func buildListQuery(filter FileFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT " + fileColumns + " FROM files WHERE (owner = $1")
	sb.WriteString(" OR EXISTS (SELECT 1 FROM unnest(collaborators) AS c WHERE lower(c) = lower($2)))")
	args := []any{filter.OwnerID, filter.Email}

	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		sb.WriteString(fmt.Sprintf(" AND type = ANY($%d)", len(args)))
	}

	if filter.Search != "" {
		args = append(args, filter.Search)
		sb.WriteString(fmt.Sprintf(" AND name ILIKE '%%' || $%d || '%%'", len(args)))
	}

	column, ok := sortColumns[filter.SortField]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if filter.SortAsc {
		direction = "ASC"
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s, id %s", column, direction, direction))

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}

	return sb.String(), args
}

// ListFiles retrieves the files visible to the requester, filtered,
// ordered and capped per the filter. Applying the same filter twice
// against an unchanged table yields the same result.
func (r *Repository) ListFiles(ctx context.Context, filter FileFilter) ([]*model.File, error) {
	query, args := buildListQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*model.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating files: %w", err)
	}

	return files, nil
}

// CreateFile inserts a new file row.
func (r *Repository) CreateFile(ctx context.Context, file *model.File) error {
	query := `
		INSERT INTO files (id, name, url, type, extension, size, owner, collaborators, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		file.ID,
		file.Name,
		file.URL,
		string(file.Type),
		file.Extension,
		file.Size,
		file.OwnerID,
		file.Collaborators,
		file.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrFileExists
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// GetFileByID retrieves a file by its ID.
func (r *Repository) GetFileByID(ctx context.Context, id string) (*model.File, error) {
	query := "SELECT " + fileColumns + " FROM files WHERE id = $1"

	file, err := scanFile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to get file by ID: %w", err)
	}

	return file, nil
}

// UpdateFileName overwrites the display name of a file.
// No uniqueness is enforced; two files may share a name.
func (r *Repository) UpdateFileName(ctx context.Context, id, name string) error {
	result, err := r.pool.Exec(ctx, "UPDATE files SET name = $2 WHERE id = $1", id, name)
	if err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrFileNotFound
	}

	return nil
}

// UpdateFileCollaborators replaces the collaborator list entirely.
// Callers supply the full desired list, including removals.
func (r *Repository) UpdateFileCollaborators(ctx context.Context, id string, emails []string) error {
	if emails == nil {
		emails = []string{}
	}

	result, err := r.pool.Exec(ctx, "UPDATE files SET collaborators = $2 WHERE id = $1", id, emails)
	if err != nil {
		return fmt.Errorf("failed to update collaborators: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrFileNotFound
	}

	return nil
}

// DeleteFile removes a file row.
func (r *Repository) DeleteFile(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM files WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrFileNotFound
	}

	return nil
}

func scanFile(row pgx.Row) (*model.File, error) {
	var (
		file     model.File
		fileType string
	)
	err := row.Scan(
		&file.ID,
		&file.Name,
		&file.URL,
		&fileType,
		&file.Extension,
		&file.Size,
		&file.OwnerID,
		&file.Collaborators,
		&file.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	file.Type = model.FileType(fileType)
	return &file, nil
}
