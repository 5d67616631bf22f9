package interfaces

import (
	"context"

	"github.com/ternarybob/liber/internal/models"
)

// ChatRequest is a reader question against an ingested book. SelectedText,
// when present, switches retrieval to selected-text mode; over-long
// selections are truncated by the retriever, not rejected.
type ChatRequest struct {
	Query        string `json:"query" validate:"required,min=1,max=1000"`
	SelectedText string `json:"selected_text,omitempty"`
	BookID       string `json:"book_id,omitempty"`
	Mode         string `json:"mode,omitempty" validate:"omitempty,oneof=full_book selected_text"`
	MaxChunks    int    `json:"max_chunks,omitempty" validate:"omitempty,min=1,max=20"`
}

// ChatService answers reader questions with grounded, cited responses.
type ChatService interface {
	// Chat routes the request to the appropriate retrieval mode and returns a
	// grounded answer with citations.
	Chat(ctx context.Context, req *ChatRequest) (*models.Answer, error)

	// HealthCheck verifies the retrieval and generation path is operational.
	HealthCheck(ctx context.Context) error
}

// Retriever produces ranked, deduplicated candidate chunks for a query.
type Retriever interface {
	// Retrieve runs full-book similarity retrieval scoped to a book.
	Retrieve(ctx context.Context, bookID, query string, maxChunks int) ([]models.RetrievedCandidate, error)

	// RetrieveWithSelection prepends the reader-highlighted passage and
	// supplements it with related chunks from the rest of the book.
	RetrieveWithSelection(ctx context.Context, bookID, query, selectedText string, maxChunks int) ([]models.RetrievedCandidate, error)
}

// GroundingEnforcer turns retrieved candidates into a cited answer, refusing
// when generation cannot be grounded in the supplied material.
type GroundingEnforcer interface {
	Answer(ctx context.Context, query string, candidates []models.RetrievedCandidate, mode models.ChatMode) (*models.Answer, error)
}

// IngestService makes a book searchable. Idempotent per book.
type IngestService interface {
	Ingest(ctx context.Context, req *IngestRequest) (*models.IngestResult, error)
}

// IngestRequest describes a book source to ingest. BookID is optional; when
// empty it is derived from the source path.
type IngestRequest struct {
	BookPath string `json:"book_path" validate:"required"`
	BookID   string `json:"book_id,omitempty"`
	Format   string `json:"format,omitempty" validate:"omitempty,oneof=md txt pdf"`
}
