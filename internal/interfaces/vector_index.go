package interfaces

import "context"

// VectorPoint is one chunk's embedding plus the payload needed to build
// retrieval candidates without a second metadata lookup.
type VectorPoint struct {
	ChunkID    string
	BookID     string
	Vector     []float32
	Text       string
	SourceFile string
	Chapter    *string
	Section    *string
	Position   int
}

// ScoredPoint is a search hit. Score is the raw cosine similarity reported by
// the index, in [-1, 1]; normalization happens in the retriever.
type ScoredPoint struct {
	ChunkID    string
	BookID     string
	Text       string
	SourceFile string
	Chapter    *string
	Section    *string
	Position   int
	Score      float64
}

// VectorIndex is the similarity search backend. Implementations scope every
// search and delete to a single book.
type VectorIndex interface {
	// Upsert writes points, replacing any existing points with the same IDs.
	Upsert(ctx context.Context, points []VectorPoint) error

	// Search returns the topK nearest points for the query vector within one
	// book, ordered by descending similarity.
	Search(ctx context.Context, bookID string, queryVector []float32, topK int) ([]ScoredPoint, error)

	// DeleteBook removes every point belonging to a book.
	DeleteBook(ctx context.Context, bookID string) error

	// Count returns the total number of points in the collection.
	Count(ctx context.Context) (int, error)

	// HealthCheck verifies the index is reachable and the collection exists.
	HealthCheck(ctx context.Context) error
}
