// Package search implements the two-stage search pipeline: semantic
// nearest-neighbor first, keyword substring matching as the fallback.
package search

import (
	"context"
	"log/slog"
	"strings"

	"docshelf/internal/contextutil"
	"docshelf/internal/service"
	"docshelf/internal/storage"
	"docshelf/internal/vectorstore"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks docshelf/internal/search Embedder

// SimilarityFloor is the relevance cutoff: hits at or below it are dropped.
// A shorter result set with no false positives beats padding with poor
// matches.
const SimilarityFloor = 0.15

// defaultLimit is used when the caller does not cap the result set.
const defaultLimit = 20

// maxLimit caps any single search.
const maxLimit = 100

// Embedder computes an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Lister is the browse fallback for empty queries, served by the file
// record manager so it shares the listing cache.
type Lister interface {
	List(ctx context.Context, owner string, limit, offset int) ([]storage.FileWithMetadata, error)
}

// Result is one search hit. Similarity is set only for semantic hits.
type Result struct {
	File       storage.FileWithMetadata
	Similarity *float32
}

// Service is the search surface consumed by the HTTP layer.
type Service interface {
	Search(ctx context.Context, query, owner string, limit, offset int) ([]Result, error)
	History(ctx context.Context, owner string, limit int) ([]storage.SearchHistoryRecord, error)
}

// Engine implements Service.
type Engine struct {
	embedder Embedder
	vectors  vectorstore.VectorIndex
	files    storage.FileStore
	lister   Lister
	history  storage.HistoryStore
	logger   *slog.Logger
}

// NewEngine creates a new search engine.
func NewEngine(embedder Embedder, vectors vectorstore.VectorIndex, files storage.FileStore, lister Lister, history storage.HistoryStore) *Engine {
	return &Engine{
		embedder: embedder,
		vectors:  vectors,
		files:    files,
		lister:   lister,
		history:  history,
		logger:   slog.Default(),
	}
}

// Search runs the pipeline: blank queries browse the listing (paginated via
// offset), otherwise the semantic stage runs and the keyword stage catches
// whatever it misses. A provider or index failure downgrades to keyword
// search and is never surfaced to the caller.
func (e *Engine) Search(ctx context.Context, query, owner string, limit, offset int) ([]Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	query = strings.TrimSpace(query)
	if query == "" {
		listing, err := e.lister.List(ctx, owner, limit, offset)
		if err != nil {
			return nil, err
		}
		return asResults(listing), nil
	}

	results, err := e.semantic(ctx, query, owner, limit)
	if err != nil {
		logger.WarnContext(ctx, "semantic search failed, falling back to keyword",
			"owner", owner, "error", err)
		results = nil
	}
	if len(results) == 0 {
		listing, err := e.files.SearchKeyword(ctx, owner, query, limit)
		if err != nil {
			return nil, service.WrapError(err, "keyword search failed")
		}
		results = asResults(listing)
	}

	if len(results) > 0 {
		e.recordHistory(ctx, owner, query, results)
	}
	return results, nil
}

// semantic embeds the query, asks the index for neighbors, applies the
// similarity floor, and hydrates the surviving rows in index order.
func (e *Engine) semantic(ctx context.Context, query, owner string, limit int) ([]Result, error) {
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, service.WrapError(err, "failed to embed query")
	}

	hits, err := e.vectors.Query(ctx, owner, vector, limit)
	if err != nil {
		return nil, service.WrapError(err, "vector query failed")
	}

	kept := hits[:0]
	for _, hit := range hits {
		if hit.Similarity > SimilarityFloor {
			kept = append(kept, hit)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}

	ids := make([]string, len(kept))
	similarity := make(map[string]float32, len(kept))
	for i, hit := range kept {
		ids[i] = hit.FileID
		similarity[hit.FileID] = hit.Similarity
	}

	rows, err := e.files.GetManyWithMetadata(ctx, owner, ids)
	if err != nil {
		return nil, service.WrapError(err, "failed to hydrate search hits")
	}

	// GetManyWithMetadata returns rows in no particular order; re-emit them
	// in index order so the most similar hit stays first.
	byID := make(map[string]storage.FileWithMetadata, len(rows))
	for i := range rows {
		byID[rows[i].File.ID] = rows[i]
	}
	results := make([]Result, 0, len(rows))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			continue
		}
		s := similarity[id]
		results = append(results, Result{File: row, Similarity: &s})
	}
	return results, nil
}

// recordHistory appends a history row. Best-effort: a failure is logged and
// never fails the search.
func (e *Engine) recordHistory(ctx context.Context, owner, query string, results []Result) {
	logger := contextutil.LoggerFromContext(ctx)

	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].File.File.ID
	}
	rec := &storage.SearchHistoryRecord{Owner: owner, Query: query, ResultIDs: ids}
	if err := e.history.Record(ctx, rec); err != nil {
		logger.WarnContext(ctx, "failed to record search history", "owner", owner, "error", err)
	}
}

// History returns the owner's recent searches, newest first.
func (e *Engine) History(ctx context.Context, owner string, limit int) ([]storage.SearchHistoryRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	recs, err := e.history.List(ctx, owner, limit)
	if err != nil {
		return nil, service.WrapError(err, "failed to list search history")
	}
	return recs, nil
}

func asResults(listing []storage.FileWithMetadata) []Result {
	results := make([]Result, 0, len(listing))
	for i := range listing {
		results = append(results, Result{File: listing[i]})
	}
	return results
}
