package interfaces

import "context"

// EmbeddingGateway converts text into fixed-dimension vectors. All vectors for
// a deployment come from one model at one dimension; mixing models in a single
// index produces meaningless similarity scores.
type EmbeddingGateway interface {
	// EmbedBatch embeds a batch of chunk texts, preserving order. The result
	// has one vector per input text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single query string.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimension returns the configured output dimensionality.
	Dimension() int

	// IsAvailable reports whether the embedding provider is reachable.
	IsAvailable(ctx context.Context) bool
}
