package models

import "time"

const (
	// SelectedChunkID is the reserved chunk_id sentinel for a reader-highlighted
	// passage. It never collides with real chunk IDs, which are hex digests.
	SelectedChunkID = "selected"

	// SelectedSource is the reserved source label attached to selected-text
	// citations in place of a source file.
	SelectedSource = "User Selection"

	// MaxSelectionLength caps a reader-highlighted passage in characters.
	// Longer selections are truncated, not rejected.
	MaxSelectionLength = 5000
)

// Chunk is a retrieval-sized unit of book text with stable identity and
// structural metadata. Chunks are created in bulk at ingestion time and are
// never mutated in place; re-ingestion replaces the full set for a book.
type Chunk struct {
	ID         string    `json:"chunk_id" badgerhold:"key"`
	BookID     string    `json:"book_id" badgerhold:"index"`
	Text       string    `json:"text"`
	SourceFile string    `json:"source_file"`
	Chapter    *string   `json:"chapter"`
	Section    *string   `json:"section"`
	Position   int       `json:"position"`
	TokenCount int       `json:"token_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkSummary is the trimmed view returned by the chunk listing endpoint.
type ChunkSummary struct {
	ChunkID    string  `json:"chunk_id"`
	SourceFile string  `json:"source_file"`
	Chapter    *string `json:"chapter"`
	Section    *string `json:"section"`
	Position   int     `json:"position"`
	TokenCount int     `json:"token_count"`
}

// Summary returns the listing view of a chunk.
func (c *Chunk) Summary() ChunkSummary {
	return ChunkSummary{
		ChunkID:    c.ID,
		SourceFile: c.SourceFile,
		Chapter:    c.Chapter,
		Section:    c.Section,
		Position:   c.Position,
		TokenCount: c.TokenCount,
	}
}

// RetrievedCandidate is a chunk surfaced by retrieval for a single query.
// Scores are normalized to [0,1], higher is better. Candidates are ephemeral
// and never persisted.
type RetrievedCandidate struct {
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	SourceFile string  `json:"source_file"`
	Chapter    *string `json:"chapter"`
	Section    *string `json:"section"`
	Position   int     `json:"position"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
}

// IsSelection reports whether the candidate is the selected-text pseudo-chunk.
func (c *RetrievedCandidate) IsSelection() bool {
	return c.ChunkID == SelectedChunkID
}

// NewSelectionCandidate builds the pseudo-candidate representing a
// reader-highlighted passage. Score is fixed at 1.0 and the source is the
// reserved selection label.
func NewSelectionCandidate(selectedText string) RetrievedCandidate {
	return RetrievedCandidate{
		ChunkID:    SelectedChunkID,
		Text:       selectedText,
		SourceFile: SelectedSource,
		Score:      1.0,
		Rank:       0,
	}
}
