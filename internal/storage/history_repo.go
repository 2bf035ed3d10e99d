package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_history_store.go -package=mocks docshelf/internal/storage HistoryStore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HistoryStore defines the interface for search-history operations.
type HistoryStore interface {
	// Record appends a search-history row.
	Record(ctx context.Context, rec *SearchHistoryRecord) error
	// List returns the most recent searches for an owner, newest first.
	List(ctx context.Context, owner string, limit int) ([]SearchHistoryRecord, error)
}

// HistoryRepo provides methods for search-history operations.
// It implements the HistoryStore interface.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Record appends a search-history row.
func (r *HistoryRepo) Record(ctx context.Context, rec *SearchHistoryRecord) error {
	searchedAt := rec.SearchedAt
	if searchedAt.IsZero() {
		searchedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO search_history (owner, query, result_ids, searched_at) VALUES (?, ?, ?, ?)`,
		rec.Owner, rec.Query, encodeStrings(rec.ResultIDs), searchedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

// List returns the most recent searches for an owner.
func (r *HistoryRepo) List(ctx context.Context, owner string, limit int) ([]SearchHistoryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, query, result_ids, searched_at FROM search_history
		 WHERE owner = ? ORDER BY searched_at DESC, id DESC LIMIT ?`,
		owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list search history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []SearchHistoryRecord
	for rows.Next() {
		var rec SearchHistoryRecord
		var resultIDs, searchedAt string
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.Query, &resultIDs, &searchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.ResultIDs = decodeStrings(resultIDs)
		rec.SearchedAt, err = parseTime(searchedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse searched_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
