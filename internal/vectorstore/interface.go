// Package vectorstore hosts the similarity operator over file-metadata
// embeddings. The durable embedding lives on the metadata row; the index is
// a rebuildable projection of it.
package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_index.go -package=mocks docshelf/internal/vectorstore VectorIndex

import "context"

// Point is one indexed embedding, keyed by its file id.
type Point struct {
	FileID string
	Vector []float32
	Owner  string
	Status string
}

// Scored is a nearest-neighbor hit. Similarity is cosine similarity as
// reported by the index; the equivalent distance is 1 - Similarity.
type Scored struct {
	FileID     string
	Similarity float32
}

// VectorIndex defines the operations the search engine and the file
// lifecycle need from the similarity index.
type VectorIndex interface {
	// Ensure creates the backing collection with the given vector
	// dimensionality, or validates an existing one against it.
	Ensure(ctx context.Context, dim int) error
	// Upsert inserts or replaces points.
	Upsert(ctx context.Context, points []Point) error
	// Query returns up to limit nearest neighbors of vector among the
	// owner's completed files, best match first.
	Query(ctx context.Context, owner string, vector []float32, limit int) ([]Scored, error)
	// Delete removes the points for the given file ids.
	Delete(ctx context.Context, fileIDs []string) error
}
