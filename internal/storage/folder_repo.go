package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_folder_store.go -package=mocks docshelf/internal/storage FolderStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// FolderStore defines the interface for folder row operations.
type FolderStore interface {
	// Insert stores a new folder row with its precomputed path.
	Insert(ctx context.Context, rec *FolderRecord) error
	// Get returns a folder by id scoped to owner, or ErrNotFound.
	Get(ctx context.Context, id, owner string) (*FolderRecord, error)
	// ListChildren returns the direct child folders of a parent
	// (nil parentID = root), ordered by name.
	ListChildren(ctx context.Context, owner string, parentID *string) ([]FolderRecord, error)
	// Update rewrites a folder's name, parent, and path.
	Update(ctx context.Context, rec *FolderRecord) error
	// UpdatePath rewrites only the materialized path of a folder.
	UpdatePath(ctx context.Context, id, owner, path string) error
	// SetParent reassigns the given folders to a new parent (nil = root)
	// and returns the number of rows moved. Paths are not touched; callers
	// are responsible for recomputing them.
	SetParent(ctx context.Context, ids []string, parentID *string, owner string) (int, error)
	// Delete removes a folder row, or returns ErrNotFound. The row must
	// have no remaining children; recursive deletion is the hierarchy
	// manager's job.
	Delete(ctx context.Context, id, owner string) error
}

// FolderRepo provides methods for folder row operations.
// It implements the FolderStore interface.
type FolderRepo struct {
	db *sql.DB
}

// NewFolderRepo creates a new FolderRepo.
func NewFolderRepo(db *sql.DB) *FolderRepo {
	return &FolderRepo{db: db}
}

// Insert stores a new folder row.
func (r *FolderRepo) Insert(ctx context.Context, rec *FolderRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO folders (id, owner, name, parent_id, path) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Owner, rec.Name, rec.ParentID, rec.Path,
	)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}
	return nil
}

// Get returns a folder by id scoped to owner.
func (r *FolderRepo) Get(ctx context.Context, id, owner string) (*FolderRecord, error) {
	var rec FolderRecord
	var parentID sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner, name, parent_id, path FROM folders WHERE id = ? AND owner = ?`,
		id, owner,
	).Scan(&rec.ID, &rec.Owner, &rec.Name, &parentID, &rec.Path)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query folder: %w", err)
	}
	if parentID.Valid {
		rec.ParentID = &parentID.String
	}
	return &rec, nil
}

// ListChildren returns the direct child folders of a parent.
func (r *FolderRepo) ListChildren(ctx context.Context, owner string, parentID *string) ([]FolderRecord, error) {
	query := `SELECT id, owner, name, parent_id, path FROM folders WHERE owner = ? AND `
	args := []any{owner}
	if parentID == nil {
		query += `parent_id IS NULL`
	} else {
		query += `parent_id = ?`
		args = append(args, *parentID)
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []FolderRecord
	for rows.Next() {
		var rec FolderRecord
		var pid sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.Name, &pid, &rec.Path); err != nil {
			return nil, fmt.Errorf("failed to scan folder row: %w", err)
		}
		if pid.Valid {
			rec.ParentID = &pid.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Update rewrites a folder's name, parent, and path.
func (r *FolderRepo) Update(ctx context.Context, rec *FolderRecord) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE folders SET name = ?, parent_id = ?, path = ? WHERE id = ? AND owner = ?`,
		rec.Name, rec.ParentID, rec.Path, rec.ID, rec.Owner,
	)
	if err != nil {
		return fmt.Errorf("failed to update folder: %w", err)
	}
	return requireRow(res)
}

// UpdatePath rewrites only the materialized path of a folder.
func (r *FolderRepo) UpdatePath(ctx context.Context, id, owner, path string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE folders SET path = ? WHERE id = ? AND owner = ?`,
		path, id, owner,
	)
	if err != nil {
		return fmt.Errorf("failed to update folder path: %w", err)
	}
	return requireRow(res)
}

// SetParent reassigns the given folders to a new parent.
func (r *FolderRepo) SetParent(ctx context.Context, ids []string, parentID *string, owner string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+2)
	args = append(args, parentID, owner)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE folders SET parent_id = ? WHERE owner = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to move folders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count moved folders: %w", err)
	}
	return int(n), nil
}

// Delete removes a folder row.
func (r *FolderRepo) Delete(ctx context.Context, id, owner string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM folders WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return requireRow(res)
}
