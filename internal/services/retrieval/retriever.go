package retrieval

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
	"github.com/ternarybob/liber/internal/models"
)

// Retriever turns a reader question into a ranked, deduplicated candidate
// list. It owns score normalization and the similarity floor; the index
// returns raw cosine scores and the retriever decides what survives.
type Retriever struct {
	embeddings      interfaces.EmbeddingGateway
	index           interfaces.VectorIndex
	books           interfaces.BookStorage
	maxChunks       int
	overFetchFactor int
	minSimilarity   float64
	logger          arbor.ILogger
}

// NewRetriever creates a retriever with config-driven ranking parameters.
func NewRetriever(
	embeddings interfaces.EmbeddingGateway,
	index interfaces.VectorIndex,
	books interfaces.BookStorage,
	cfg *common.RetrievalConfig,
	logger arbor.ILogger,
) *Retriever {
	return &Retriever{
		embeddings:      embeddings,
		index:           index,
		books:           books,
		maxChunks:       cfg.MaxChunks,
		overFetchFactor: cfg.OverFetchFactor,
		minSimilarity:   cfg.MinSimilarity,
		logger:          logger,
	}
}

// Retrieve runs full-book similarity retrieval scoped to a single book.
func (r *Retriever) Retrieve(ctx context.Context, bookID, query string, maxChunks int) ([]models.RetrievedCandidate, error) {
	if maxChunks <= 0 {
		maxChunks = r.maxChunks
	}
	if err := r.requireReadyBook(bookID); err != nil {
		return nil, err
	}

	queryVector, err := r.embeddings.EmbedQuery(ctx, query)
	if err != nil {
		return nil, models.WrapError(models.ErrUpstreamUnavailable, err, "embedding query failed")
	}

	candidates, err := r.searchAndRank(ctx, bookID, queryVector, maxChunks)
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("book_id", bookID).
		Int("candidates", len(candidates)).
		Msg("Full-book retrieval complete")

	return candidates, nil
}

// RetrieveWithSelection anchors retrieval on a reader-highlighted passage. The
// selection always appears first with score 1.0; the remaining slots are
// filled with related chunks retrieved against the query plus selection.
func (r *Retriever) RetrieveWithSelection(ctx context.Context, bookID, query, selectedText string, maxChunks int) ([]models.RetrievedCandidate, error) {
	if maxChunks <= 0 {
		maxChunks = r.maxChunks
	}
	if len(selectedText) > models.MaxSelectionLength {
		cut := models.MaxSelectionLength
		for cut > 0 && !utf8.RuneStart(selectedText[cut]) {
			cut--
		}
		selectedText = selectedText[:cut]
	}

	candidates := []models.RetrievedCandidate{models.NewSelectionCandidate(selectedText)}
	if maxChunks <= 1 {
		return candidates, nil
	}

	if err := r.requireReadyBook(bookID); err != nil {
		// A selection is answerable even when the book is not present in the
		// index; the pseudo-chunk alone carries the context.
		r.logger.Debug().Str("book_id", bookID).Msg("Selection-only retrieval, book not ready")
		return candidates, nil
	}

	// Embed the query together with the selection so supplemental chunks are
	// related to the highlighted passage, not just the question.
	queryVector, err := r.embeddings.EmbedQuery(ctx, query+"\n\n"+selectedText)
	if err != nil {
		return nil, models.WrapError(models.ErrUpstreamUnavailable, err, "embedding query failed")
	}

	supplemental, err := r.searchAndRank(ctx, bookID, queryVector, maxChunks-1)
	if err != nil {
		return nil, err
	}

	candidates = append(candidates, supplemental...)
	for i := range candidates {
		candidates[i].Rank = i
	}
	return candidates, nil
}

// searchAndRank over-fetches from the index, normalizes scores, applies the
// similarity floor, dedupes by chunk ID keeping the best score, and returns
// the top limit candidates ranked from zero.
func (r *Retriever) searchAndRank(ctx context.Context, bookID string, queryVector []float32, limit int) ([]models.RetrievedCandidate, error) {
	topK := limit * r.overFetchFactor
	if topK < limit {
		topK = limit
	}

	points, err := r.index.Search(ctx, bookID, queryVector, topK)
	if err != nil {
		return nil, models.WrapError(models.ErrUpstreamUnavailable, err, "vector search failed")
	}

	best := make(map[string]models.RetrievedCandidate, len(points))
	for _, point := range points {
		score := normalizeCosine(point.Score)
		if score < r.minSimilarity {
			continue
		}
		existing, seen := best[point.ChunkID]
		if seen && existing.Score >= score {
			continue
		}
		best[point.ChunkID] = models.RetrievedCandidate{
			ChunkID:    point.ChunkID,
			Text:       point.Text,
			SourceFile: point.SourceFile,
			Chapter:    point.Chapter,
			Section:    point.Section,
			Position:   point.Position,
			Score:      score,
		}
	}

	candidates := make([]models.RetrievedCandidate, 0, len(best))
	for _, candidate := range best {
		candidates = append(candidates, candidate)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Position < candidates[j].Position
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for i := range candidates {
		candidates[i].Rank = i
	}
	return candidates, nil
}

// requireReadyBook rejects retrieval against unknown or unpublished books.
func (r *Retriever) requireReadyBook(bookID string) error {
	if bookID == "" {
		return models.NewError(models.ErrValidation, "book_id is required")
	}
	book, err := r.books.GetBook(bookID)
	if err != nil {
		return models.NewError(models.ErrValidation, "book %s not found", bookID)
	}
	if book.Status != models.IngestionReady {
		return models.NewError(models.ErrValidation, "book %s is not ready (status %s)", bookID, book.Status)
	}
	return nil
}

// normalizeCosine maps raw cosine similarity from [-1,1] to [0,1].
func normalizeCosine(score float64) float64 {
	normalized := (score + 1) / 2
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}
