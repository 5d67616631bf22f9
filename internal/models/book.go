package models

import "time"

// IngestionStatus tracks a book's lifecycle through the ingestion pipeline.
type IngestionStatus string

const (
	IngestionPending   IngestionStatus = "pending"
	IngestionIngesting IngestionStatus = "ingesting"
	IngestionReady     IngestionStatus = "ready"
	IngestionFailed    IngestionStatus = "failed"
)

// Book represents an ingested book. The ID is derived deterministically from
// the source path so re-ingestion of the same source resolves to the same book.
type Book struct {
	ID           string          `json:"id" badgerhold:"key"`
	Title        string          `json:"title"`
	SourcePath   string          `json:"source_path"`
	SourceFormat string          `json:"source_format"` // md, txt, pdf
	Status       IngestionStatus `json:"status"`
	ChunkCount   int             `json:"chunk_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IngestResult summarizes a completed (or failed) ingestion run.
type IngestResult struct {
	BookID                string  `json:"book_id"`
	ChunksCreated         int     `json:"chunks_created"`
	Status                string  `json:"status"`
	Message               string  `json:"message"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}
