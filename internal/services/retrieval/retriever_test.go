package retrieval

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
	"github.com/ternarybob/liber/internal/models"
)

type stubEmbeddings struct {
	lastQuery string
}

func (s *stubEmbeddings) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, 4)
	}
	return vectors, nil
}

func (s *stubEmbeddings) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	s.lastQuery = query
	return make([]float32, 4), nil
}

func (s *stubEmbeddings) Dimension() int                   { return 4 }
func (s *stubEmbeddings) IsAvailable(context.Context) bool { return true }

type stubIndex struct {
	points []interfaces.ScoredPoint
	topK   int
}

func (s *stubIndex) Upsert(context.Context, []interfaces.VectorPoint) error { return nil }

func (s *stubIndex) Search(_ context.Context, _ string, _ []float32, topK int) ([]interfaces.ScoredPoint, error) {
	s.topK = topK
	if topK < len(s.points) {
		return s.points[:topK], nil
	}
	return s.points, nil
}

func (s *stubIndex) DeleteBook(context.Context, string) error { return nil }
func (s *stubIndex) Count(context.Context) (int, error)       { return len(s.points), nil }
func (s *stubIndex) HealthCheck(context.Context) error        { return nil }

type stubBooks struct {
	status models.IngestionStatus
}

func (s *stubBooks) SaveBook(*models.Book) error { return nil }

func (s *stubBooks) GetBook(id string) (*models.Book, error) {
	if s.status == "" {
		return nil, fmt.Errorf("book %s not found", id)
	}
	return &models.Book{ID: id, Status: s.status}, nil
}

func (s *stubBooks) UpdateStatus(string, models.IngestionStatus, int) error { return nil }
func (s *stubBooks) ListBooks() ([]*models.Book, error)                     { return nil, nil }

// raw cosine scores; the retriever normalizes to (s+1)/2.
func scored(chunkID string, rawScore float64, position int) interfaces.ScoredPoint {
	return interfaces.ScoredPoint{
		ChunkID:    chunkID,
		BookID:     "book-a",
		Text:       "text for " + chunkID,
		SourceFile: "ch.md",
		Position:   position,
		Score:      rawScore,
	}
}

func newTestRetriever(index interfaces.VectorIndex, books interfaces.BookStorage) (*Retriever, *stubEmbeddings) {
	embeddings := &stubEmbeddings{}
	cfg := &common.RetrievalConfig{MaxChunks: 5, OverFetchFactor: 3, MinSimilarity: 0.30}
	return NewRetriever(embeddings, index, books, cfg, common.GetLogger()), embeddings
}

func TestRetrieveNormalizesAndRanks(t *testing.T) {
	index := &stubIndex{points: []interfaces.ScoredPoint{
		scored("c1", 0.8, 0), // normalized 0.90
		scored("c2", 0.2, 1), // normalized 0.60
		scored("c3", 0.5, 2), // normalized 0.75
	}}
	retriever, _ := newTestRetriever(index, &stubBooks{status: models.IngestionReady})

	candidates, err := retriever.Retrieve(context.Background(), "book-a", "q", 5)

	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, []string{"c1", "c3", "c2"}, []string{candidates[0].ChunkID, candidates[1].ChunkID, candidates[2].ChunkID})
	assert.InDelta(t, 0.90, candidates[0].Score, 1e-9)
	for i, c := range candidates {
		assert.Equal(t, i, c.Rank)
	}
	assert.Equal(t, 15, index.topK, "top_k must be max_chunks times the over-fetch factor")
}

func TestRetrieveAppliesSimilarityFloor(t *testing.T) {
	index := &stubIndex{points: []interfaces.ScoredPoint{
		scored("keep", 0.4, 0),   // normalized 0.70
		scored("drop", -0.5, 1),  // normalized 0.25
		scored("edge", -0.45, 2), // normalized 0.275
	}}
	retriever, _ := newTestRetriever(index, &stubBooks{status: models.IngestionReady})

	candidates, err := retriever.Retrieve(context.Background(), "book-a", "q", 5)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "keep", candidates[0].ChunkID)
}

func TestRetrieveDeduplicatesKeepingBestScore(t *testing.T) {
	index := &stubIndex{points: []interfaces.ScoredPoint{
		scored("c1", 0.2, 0),
		scored("c1", 0.8, 0),
		scored("c2", 0.5, 1),
	}}
	retriever, _ := newTestRetriever(index, &stubBooks{status: models.IngestionReady})

	candidates, err := retriever.Retrieve(context.Background(), "book-a", "q", 5)

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "c1", candidates[0].ChunkID)
	assert.InDelta(t, 0.90, candidates[0].Score, 1e-9)
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	retriever, _ := newTestRetriever(&stubIndex{}, &stubBooks{status: models.IngestionReady})

	candidates, err := retriever.Retrieve(context.Background(), "book-a", "q", 5)

	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestRetrieveRejectsUnreadyBook(t *testing.T) {
	cases := []struct {
		name  string
		books *stubBooks
	}{
		{"unknown book", &stubBooks{}},
		{"still ingesting", &stubBooks{status: models.IngestionIngesting}},
		{"failed", &stubBooks{status: models.IngestionFailed}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			retriever, _ := newTestRetriever(&stubIndex{}, tc.books)
			_, err := retriever.Retrieve(context.Background(), "book-a", "q", 5)
			require.Error(t, err)
			assert.True(t, models.IsKind(err, models.ErrValidation))
		})
	}
}

func TestRetrieveWithSelectionLeadsWithPseudoChunk(t *testing.T) {
	index := &stubIndex{points: []interfaces.ScoredPoint{
		scored("c1", 0.8, 0),
		scored("c2", 0.6, 1),
	}}
	retriever, embeddings := newTestRetriever(index, &stubBooks{status: models.IngestionReady})

	candidates, err := retriever.RetrieveWithSelection(context.Background(), "book-a", "what does this mean?", "Call me Ishmael.", 3)

	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.True(t, candidates[0].IsSelection())
	assert.Equal(t, 1.0, candidates[0].Score)
	assert.Equal(t, models.SelectedSource, candidates[0].SourceFile)
	assert.Equal(t, 0, candidates[0].Rank)
	assert.Equal(t, "c1", candidates[1].ChunkID)

	// Supplemental retrieval embeds the query together with the selection.
	assert.Contains(t, embeddings.lastQuery, "Call me Ishmael.")
	assert.Contains(t, embeddings.lastQuery, "what does this mean?")
}

func TestRetrieveWithSelectionTruncatesLongSelections(t *testing.T) {
	retriever, _ := newTestRetriever(&stubIndex{}, &stubBooks{status: models.IngestionReady})

	long := make([]byte, models.MaxSelectionLength+500)
	for i := range long {
		long[i] = 'a'
	}

	candidates, err := retriever.RetrieveWithSelection(context.Background(), "book-a", "q", string(long), 3)

	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Len(t, candidates[0].Text, models.MaxSelectionLength)
}

func TestRetrieveWithSelectionTruncatesOnRuneBoundary(t *testing.T) {
	retriever, _ := newTestRetriever(&stubIndex{}, &stubBooks{status: models.IngestionReady})

	// Multi-byte runes so the byte cap lands mid-rune.
	long := strings.Repeat("é", models.MaxSelectionLength)

	candidates, err := retriever.RetrieveWithSelection(context.Background(), "book-a", "q", long, 3)

	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.True(t, utf8.ValidString(candidates[0].Text))
	assert.LessOrEqual(t, len(candidates[0].Text), models.MaxSelectionLength)
}

func TestRetrieveWithSelectionWorksWithoutReadyBook(t *testing.T) {
	retriever, _ := newTestRetriever(&stubIndex{}, &stubBooks{})

	candidates, err := retriever.RetrieveWithSelection(context.Background(), "missing", "q", "a passage", 3)

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].IsSelection())
}
