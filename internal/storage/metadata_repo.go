package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_metadata_store.go -package=mocks docshelf/internal/storage MetadataStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// MetadataStore defines the interface for file metadata operations.
type MetadataStore interface {
	// Upsert inserts or replaces the metadata row for a file. Reprocessing
	// a file replaces its previous metadata wholesale.
	Upsert(ctx context.Context, rec *FileMetadataRecord) error
	// Get returns the full metadata row including the embedding vector.
	// Returns ErrNotFound when the file has no metadata.
	Get(ctx context.Context, fileID string) (*FileMetadataRecord, error)
	// DeleteByFile removes the metadata row for a file. Deleting metadata
	// that does not exist is not an error.
	DeleteByFile(ctx context.Context, fileID string) error
}

// MetadataRepo provides methods for file metadata operations.
// It implements the MetadataStore interface.
type MetadataRepo struct {
	db *sql.DB
}

// NewMetadataRepo creates a new MetadataRepo.
func NewMetadataRepo(db *sql.DB) *MetadataRepo {
	return &MetadataRepo{db: db}
}

// Upsert inserts or replaces the metadata row for a file.
func (r *MetadataRepo) Upsert(ctx context.Context, rec *FileMetadataRecord) error {
	embedding, err := encodeVector(rec.Embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO file_metadata (file_id, summary, keywords, topics, categories, excerpt, embedding, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (file_id) DO UPDATE SET
		 summary = excluded.summary, keywords = excluded.keywords, topics = excluded.topics,
		 categories = excluded.categories, excerpt = excluded.excerpt,
		 embedding = excluded.embedding, confidence = excluded.confidence`,
		rec.FileID, rec.Summary, encodeStrings(rec.Keywords), encodeStrings(rec.Topics),
		encodeStrings(rec.Categories), rec.Excerpt, embedding, rec.Confidence,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert metadata: %w", err)
	}
	return nil
}

// Get returns the full metadata row including the embedding vector.
func (r *MetadataRepo) Get(ctx context.Context, fileID string) (*FileMetadataRecord, error) {
	var rec FileMetadataRecord
	var summary, keywords, topics, categories, excerpt, embedding sql.NullString
	var confidence sql.NullFloat64

	err := r.db.QueryRowContext(ctx,
		`SELECT file_id, summary, keywords, topics, categories, excerpt, embedding, confidence
		 FROM file_metadata WHERE file_id = ?`,
		fileID,
	).Scan(&rec.FileID, &summary, &keywords, &topics, &categories, &excerpt, &embedding, &confidence)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}

	rec.Summary = summary.String
	rec.Keywords = decodeStrings(keywords.String)
	rec.Topics = decodeStrings(topics.String)
	rec.Categories = decodeStrings(categories.String)
	rec.Excerpt = excerpt.String
	rec.Confidence = confidence.Float64
	if embedding.Valid && embedding.String != "" {
		vec, err := decodeVector(embedding.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decode embedding: %w", err)
		}
		rec.Embedding = vec
	}
	return &rec, nil
}

// DeleteByFile removes the metadata row for a file.
func (r *MetadataRepo) DeleteByFile(ctx context.Context, fileID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM file_metadata WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}

// encodeStrings JSON-encodes a string slice for a TEXT column.
func encodeStrings(vals []string) string {
	if len(vals) == 0 {
		return "[]"
	}
	data, err := json.Marshal(vals)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// decodeStrings decodes a JSON string-array column. Malformed or empty
// values decode to nil rather than failing the whole scan.
func decodeStrings(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func encodeVector(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeVector(s string) ([]float32, error) {
	var out []float32
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
