package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_file_store.go -package=mocks docshelf/internal/storage FileStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found. An id that exists
	// under a different owner reports the same error.
	ErrNotFound = errors.New("record not found")
)

// timeFormat is the canonical timestamp encoding for all tables. Fixed-width
// fractional seconds keep lexicographic ordering chronological, which the
// ORDER BY uploaded_at queries rely on.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// FileStore defines the interface for file row operations.
type FileStore interface {
	// Insert stores a new file row. Content must be non-nil only for
	// inline-stored files.
	Insert(ctx context.Context, rec *FileRecord, content []byte) error
	// Get returns a file by id scoped to owner, or ErrNotFound.
	Get(ctx context.Context, id, owner string) (*FileRecord, error)
	// InlineContent returns the row-held bytes of an inline-stored file.
	InlineContent(ctx context.Context, id, owner string) ([]byte, error)
	// List returns files joined with metadata, newest first, excluding
	// errored files. Blob bytes and full excerpts are never selected.
	List(ctx context.Context, owner string, limit, offset int) ([]FileWithMetadata, error)
	// ListByFolder returns the file rows directly inside a folder
	// (nil folderID = root).
	ListByFolder(ctx context.Context, owner string, folderID *string) ([]FileRecord, error)
	// GetManyWithMetadata returns the given files joined with metadata, in
	// no particular order. Unknown ids are silently skipped.
	GetManyWithMetadata(ctx context.Context, owner string, ids []string) ([]FileWithMetadata, error)
	// UpdateStatus transitions a file's processing status.
	UpdateStatus(ctx context.Context, id, owner string, status Status, processedAt *time.Time, processError string) error
	// SetFolder reassigns the given files to a folder (nil = root) and
	// returns the number of rows moved.
	SetFolder(ctx context.Context, ids []string, folderID *string, owner string) (int, error)
	// Delete removes a file row, or returns ErrNotFound.
	Delete(ctx context.Context, id, owner string) error
	// Stats aggregates per-owner counts and byte totals.
	Stats(ctx context.Context, owner string) (*OwnerStats, error)
	// SearchKeyword runs the case-insensitive substring search across
	// filename, display name, summary, excerpt and the keyword/topic/
	// category sets, scoped to completed files.
	SearchKeyword(ctx context.Context, owner, query string, limit int) ([]FileWithMetadata, error)
}

// FileRepo provides methods for file row operations.
// It implements the FileStore interface.
type FileRepo struct {
	db *sql.DB
}

// NewFileRepo creates a new FileRepo.
func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

// joinedColumns is the column list for every query that returns
// FileWithMetadata. Content and the full excerpt are deliberately absent so
// responses stay O(1) in blob size.
const joinedColumns = `f.id, f.owner, f.filename, f.original_name, f.mime_type, f.size_bytes,
	f.storage_kind, f.storage_ref, f.folder_id, f.uploaded_at, f.processed_at, f.status, f.process_error,
	m.file_id, m.summary, m.keywords, m.topics, m.categories, substr(coalesce(m.excerpt, ''), 1, 280), m.confidence`

// Insert stores a new file row.
func (r *FileRepo) Insert(ctx context.Context, rec *FileRecord, content []byte) error {
	var contentArg any
	if rec.StorageKind == StorageInline {
		contentArg = content
	}

	var storageRef any
	if rec.StorageRef != "" {
		storageRef = rec.StorageRef
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (id, owner, filename, original_name, mime_type, size_bytes,
		 storage_kind, storage_ref, content, folder_id, uploaded_at, status, process_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Owner, rec.Filename, rec.OriginalName, rec.MIMEType, rec.SizeBytes,
		string(rec.StorageKind), storageRef, contentArg, rec.FolderID,
		rec.UploadedAt.UTC().Format(timeFormat), string(rec.Status), nullIfEmpty(rec.ProcessError),
	)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

// Get returns a file by id scoped to owner.
func (r *FileRepo) Get(ctx context.Context, id, owner string) (*FileRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, filename, original_name, mime_type, size_bytes, storage_kind,
		 storage_ref, folder_id, uploaded_at, processed_at, status, process_error
		 FROM files WHERE id = ? AND owner = ?`,
		id, owner,
	)
	rec, err := scanFileRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file: %w", err)
	}
	return rec, nil
}

// InlineContent returns the row-held bytes of an inline-stored file.
func (r *FileRepo) InlineContent(ctx context.Context, id, owner string) ([]byte, error) {
	var content []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT content FROM files WHERE id = ? AND owner = ? AND storage_kind = 'inline'`,
		id, owner,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file content: %w", err)
	}
	return content, nil
}

// List returns files joined with metadata, newest first, excluding errored
// files.
func (r *FileRepo) List(ctx context.Context, owner string, limit, offset int) ([]FileWithMetadata, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+joinedColumns+`
		 FROM files f
		 LEFT JOIN file_metadata m ON m.file_id = f.id
		 WHERE f.owner = ? AND f.status != 'error'
		 ORDER BY f.uploaded_at DESC, f.id
		 LIMIT ? OFFSET ?`,
		owner, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	return collectJoined(rows)
}

// ListByFolder returns the file rows directly inside a folder.
func (r *FileRepo) ListByFolder(ctx context.Context, owner string, folderID *string) ([]FileRecord, error) {
	query := `SELECT id, owner, filename, original_name, mime_type, size_bytes, storage_kind,
		 storage_ref, folder_id, uploaded_at, processed_at, status, process_error
		 FROM files WHERE owner = ? AND `
	args := []any{owner}
	if folderID == nil {
		query += `folder_id IS NULL`
	} else {
		query += `folder_id = ?`
		args = append(args, *folderID)
	}
	query += ` ORDER BY uploaded_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files by folder: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []FileRecord
	for rows.Next() {
		rec, err := scanFileRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetManyWithMetadata returns the given files joined with metadata.
func (r *FileRepo) GetManyWithMetadata(ctx context.Context, owner string, ids []string) ([]FileWithMetadata, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, owner)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+joinedColumns+`
		 FROM files f
		 LEFT JOIN file_metadata m ON m.file_id = f.id
		 WHERE f.owner = ? AND f.id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query files by id: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	return collectJoined(rows)
}

// UpdateStatus transitions a file's processing status.
func (r *FileRepo) UpdateStatus(ctx context.Context, id, owner string, status Status, processedAt *time.Time, processError string) error {
	var processedArg any
	if processedAt != nil {
		processedArg = processedAt.UTC().Format(timeFormat)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE files SET status = ?, processed_at = ?, process_error = ? WHERE id = ? AND owner = ?`,
		string(status), processedArg, nullIfEmpty(processError), id, owner,
	)
	if err != nil {
		return fmt.Errorf("failed to update file status: %w", err)
	}
	return requireRow(res)
}

// SetFolder reassigns the given files to a folder.
func (r *FileRepo) SetFolder(ctx context.Context, ids []string, folderID *string, owner string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+2)
	args = append(args, folderID, owner)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE files SET folder_id = ? WHERE owner = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to move files: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count moved files: %w", err)
	}
	return int(n), nil
}

// Delete removes a file row.
func (r *FileRepo) Delete(ctx context.Context, id, owner string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return requireRow(res)
}

// Stats aggregates per-owner counts and byte totals.
func (r *FileRepo) Stats(ctx context.Context, owner string) (*OwnerStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(size_bytes), 0),
		 COALESCE(SUM(CASE WHEN storage_kind = 'inline' THEN size_bytes ELSE 0 END), 0)
		 FROM files WHERE owner = ? GROUP BY status`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	stats := &OwnerStats{ByStatus: make(map[Status]int)}
	for rows.Next() {
		var status string
		var count int
		var total, inline int64
		if err := rows.Scan(&status, &count, &total, &inline); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.ByStatus[Status(status)] = count
		stats.TotalFiles += count
		stats.TotalBytes += total
		stats.InlineBytes += inline
	}
	return stats, rows.Err()
}

// SearchKeyword runs the case-insensitive substring search.
func (r *FileRepo) SearchKeyword(ctx context.Context, owner, query string, limit int) ([]FileWithMetadata, error) {
	needle := strings.ToLower(query)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+joinedColumns+`
		 FROM files f
		 LEFT JOIN file_metadata m ON m.file_id = f.id
		 WHERE f.owner = ? AND f.status = 'completed' AND (
			instr(lower(f.filename), ?) > 0 OR
			instr(lower(f.original_name), ?) > 0 OR
			instr(lower(coalesce(m.summary, '')), ?) > 0 OR
			instr(lower(coalesce(m.excerpt, '')), ?) > 0 OR
			instr(lower(coalesce(m.keywords, '')), ?) > 0 OR
			instr(lower(coalesce(m.topics, '')), ?) > 0 OR
			instr(lower(coalesce(m.categories, '')), ?) > 0
		 )
		 ORDER BY f.uploaded_at DESC, f.id
		 LIMIT ?`,
		owner, needle, needle, needle, needle, needle, needle, needle, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to run keyword search: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	return collectJoined(rows)
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(s scanner) (*FileRecord, error) {
	var rec FileRecord
	var storageKind, uploadedAt string
	var storageRef, folderID, processedAt, processError sql.NullString

	err := s.Scan(&rec.ID, &rec.Owner, &rec.Filename, &rec.OriginalName, &rec.MIMEType,
		&rec.SizeBytes, &storageKind, &storageRef, &folderID, &uploadedAt,
		&processedAt, (*string)(&rec.Status), &processError)
	if err != nil {
		return nil, err
	}

	rec.StorageKind = StorageKind(storageKind)
	rec.StorageRef = storageRef.String
	if folderID.Valid {
		rec.FolderID = &folderID.String
	}
	rec.ProcessError = processError.String

	rec.UploadedAt, err = parseTime(uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uploaded_at: %w", err)
	}
	if processedAt.Valid {
		t, err := parseTime(processedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse processed_at: %w", err)
		}
		rec.ProcessedAt = &t
	}
	return &rec, nil
}

// collectJoined scans joined file+metadata rows.
func collectJoined(rows *sql.Rows) ([]FileWithMetadata, error) {
	var out []FileWithMetadata
	for rows.Next() {
		var rec FileRecord
		var storageKind, uploadedAt string
		var storageRef, folderID, processedAt, processError sql.NullString
		var metaFileID, summary, keywords, topics, categories, excerpt sql.NullString
		var confidence sql.NullFloat64

		err := rows.Scan(&rec.ID, &rec.Owner, &rec.Filename, &rec.OriginalName, &rec.MIMEType,
			&rec.SizeBytes, &storageKind, &storageRef, &folderID, &uploadedAt,
			&processedAt, (*string)(&rec.Status), &processError,
			&metaFileID, &summary, &keywords, &topics, &categories, &excerpt, &confidence)
		if err != nil {
			return nil, fmt.Errorf("failed to scan joined row: %w", err)
		}

		rec.StorageKind = StorageKind(storageKind)
		rec.StorageRef = storageRef.String
		if folderID.Valid {
			rec.FolderID = &folderID.String
		}
		rec.ProcessError = processError.String
		rec.UploadedAt, err = parseTime(uploadedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse uploaded_at: %w", err)
		}
		if processedAt.Valid {
			t, err := parseTime(processedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse processed_at: %w", err)
			}
			rec.ProcessedAt = &t
		}

		item := FileWithMetadata{File: rec}
		if metaFileID.Valid {
			item.Metadata = &FileMetadataRecord{
				FileID:     metaFileID.String,
				Summary:    summary.String,
				Keywords:   decodeStrings(keywords.String),
				Topics:     decodeStrings(topics.String),
				Categories: decodeStrings(categories.String),
				Excerpt:    excerpt.String,
				Confidence: confidence.Float64,
			}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err == nil {
		return t, nil
	}
	if t, err = time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	// SQLite CURRENT_TIMESTAMP fallback
	return time.Parse("2006-01-02 15:04:05", s)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// requireRow converts a zero-row update/delete into ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
