package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
	"github.com/ternarybob/liber/internal/models"
	"github.com/ternarybob/liber/internal/services/chunker"
)

// Orchestrator runs the ingestion pipeline: load, chunk, embed, publish.
// A book only becomes queryable when the publish protocol completes; a
// failure at any stage leaves the book failed and its vectors cleaned up
// rather than half-indexed.
type Orchestrator struct {
	chunker    *chunker.Chunker
	embeddings interfaces.EmbeddingGateway
	index      interfaces.VectorIndex
	storage    interfaces.StorageManager
	config     *common.IngestionConfig
	validate   *validator.Validate
	logger     arbor.ILogger

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewOrchestrator creates the ingestion orchestrator.
func NewOrchestrator(
	chk *chunker.Chunker,
	embeddings interfaces.EmbeddingGateway,
	index interfaces.VectorIndex,
	storage interfaces.StorageManager,
	cfg *common.IngestionConfig,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		chunker:    chk,
		embeddings: embeddings,
		index:      index,
		storage:    storage,
		config:     cfg,
		validate:   validator.New(),
		logger:     logger,
		inFlight:   make(map[string]bool),
	}
}

// Ingest makes a book searchable. Re-ingesting an unchanged source is
// idempotent: identical chunk IDs, identical count. Concurrent ingestion of
// the same book is rejected with a conflict.
func (o *Orchestrator) Ingest(ctx context.Context, req *interfaces.IngestRequest) (*models.IngestResult, error) {
	if err := o.validate.Struct(req); err != nil {
		return nil, models.WrapError(models.ErrValidation, err, "invalid ingest request")
	}

	bookID := req.BookID
	if bookID == "" {
		bookID = common.BookID(req.BookPath)
	}

	if !o.acquire(bookID) {
		return nil, models.NewError(models.ErrIngestionConflict, "ingestion already in progress for book %s", bookID)
	}
	defer o.release(bookID)

	start := time.Now()

	result, err := o.run(ctx, bookID, req)
	if err != nil {
		o.logger.Error().Err(err).Str("book_id", bookID).Msg("Ingestion failed")
		return nil, err
	}

	result.ProcessingTimeSeconds = time.Since(start).Seconds()
	o.logger.Info().
		Str("book_id", bookID).
		Int("chunks", result.ChunksCreated).
		Float64("seconds", result.ProcessingTimeSeconds).
		Msg("Ingestion complete")
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, bookID string, req *interfaces.IngestRequest) (*models.IngestResult, error) {
	files, format, err := loadSource(req.BookPath, req.Format)
	if err != nil {
		return nil, models.WrapError(models.ErrValidation, err, "cannot read book source")
	}

	// Chunk every file with positions continuing across file boundaries.
	var chunks []*models.Chunk
	position := 0
	for _, file := range files {
		fileChunks := o.chunker.Chunk(&chunker.Request{
			BookID:        bookID,
			SourceFile:    file.Name,
			Text:          file.Text,
			StartPosition: position,
		})
		chunks = append(chunks, fileChunks...)
		position += len(fileChunks)
	}
	if len(chunks) == 0 {
		return nil, models.NewError(models.ErrValidation, "book source produced no chunks")
	}

	if err := o.checkCapacity(ctx, bookID, len(chunks)); err != nil {
		return nil, err
	}

	book := &models.Book{
		ID:           bookID,
		Title:        titleFromPath(req.BookPath),
		SourcePath:   req.BookPath,
		SourceFormat: format,
		Status:       models.IngestionIngesting,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if existing, err := o.storage.BookStorage().GetBook(bookID); err == nil {
		book.CreatedAt = existing.CreatedAt
	}
	if err := o.storage.BookStorage().SaveBook(book); err != nil {
		return nil, models.WrapError(models.ErrUpstreamUnavailable, err, "saving book record")
	}

	if err := o.publish(ctx, bookID, chunks); err != nil {
		o.markFailed(ctx, bookID)
		return nil, err
	}

	if err := o.storage.BookStorage().UpdateStatus(bookID, models.IngestionReady, len(chunks)); err != nil {
		// The vectors are already published but the book never reached ready,
		// so treat this like any other mid-ingestion failure.
		o.markFailed(ctx, bookID)
		return nil, models.WrapError(models.ErrUpstreamUnavailable, err, "publishing book status")
	}

	return &models.IngestResult{
		BookID:        bookID,
		ChunksCreated: len(chunks),
		Status:        string(models.IngestionReady),
		Message:       fmt.Sprintf("ingested %d chunks from %d file(s)", len(chunks), len(files)),
	}, nil
}

// publish embeds chunks in batches and replaces the book's vectors and
// metadata. Old vectors are removed first so a shrinking book never leaves
// stale points behind.
func (o *Orchestrator) publish(ctx context.Context, bookID string, chunks []*models.Chunk) error {
	if err := o.index.DeleteBook(ctx, bookID); err != nil {
		return models.WrapError(models.ErrUpstreamUnavailable, err, "clearing previous vectors")
	}

	batchSize := o.config.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	for offset := 0; offset < len(chunks); offset += batchSize {
		end := offset + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[offset:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := o.embeddings.EmbedBatch(ctx, texts)
		if err != nil {
			return models.WrapError(models.ErrUpstreamUnavailable, err, "embedding batch at offset %d", offset)
		}

		points := make([]interfaces.VectorPoint, len(batch))
		for i, chunk := range batch {
			points[i] = interfaces.VectorPoint{
				ChunkID:    chunk.ID,
				BookID:     chunk.BookID,
				Vector:     vectors[i],
				Text:       chunk.Text,
				SourceFile: chunk.SourceFile,
				Chapter:    chunk.Chapter,
				Section:    chunk.Section,
				Position:   chunk.Position,
			}
		}
		if err := o.index.Upsert(ctx, points); err != nil {
			return models.WrapError(models.ErrUpstreamUnavailable, err, "upserting vectors at offset %d", offset)
		}

		o.logger.Debug().
			Str("book_id", bookID).
			Int("offset", offset).
			Int("batch", len(batch)).
			Msg("Published vector batch")
	}

	if err := o.storage.ChunkStorage().ReplaceBookChunks(bookID, chunks); err != nil {
		return models.WrapError(models.ErrUpstreamUnavailable, err, "replacing chunk metadata")
	}
	return nil
}

// checkCapacity enforces the deployment-wide vector ceiling before any
// embedding spend.
func (o *Orchestrator) checkCapacity(ctx context.Context, bookID string, incoming int) error {
	if o.config.MaxVectors <= 0 {
		return nil
	}
	total, err := o.index.Count(ctx)
	if err != nil {
		return models.WrapError(models.ErrUpstreamUnavailable, err, "counting indexed vectors")
	}
	// Re-ingestion replaces the book's own vectors, so they don't count
	// against the ceiling.
	existing, err := o.storage.ChunkStorage().CountChunks(bookID)
	if err != nil {
		existing = 0
	}
	projected := total - existing + incoming
	if projected > o.config.MaxVectors {
		return models.NewError(models.ErrCapacity,
			"ingesting %d chunks would exceed the %d vector ceiling (%d indexed)",
			incoming, o.config.MaxVectors, total)
	}
	if projected*10 >= o.config.MaxVectors*8 {
		o.logger.Warn().
			Str("book_id", bookID).
			Int("projected_vectors", projected).
			Int("max_vectors", o.config.MaxVectors).
			Msg("Vector index approaching storage ceiling")
	}
	return nil
}

// markFailed records the failure and removes any partially published vectors.
func (o *Orchestrator) markFailed(ctx context.Context, bookID string) {
	if err := o.storage.BookStorage().UpdateStatus(bookID, models.IngestionFailed, 0); err != nil {
		o.logger.Warn().Err(err).Str("book_id", bookID).Msg("Failed to record failed status")
	}
	if err := o.index.DeleteBook(ctx, bookID); err != nil {
		o.logger.Warn().Err(err).Str("book_id", bookID).Msg("Failed to clean up vectors after failed ingestion")
	}
}

func (o *Orchestrator) acquire(bookID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[bookID] {
		return false
	}
	o.inFlight[bookID] = true
	return true
}

func (o *Orchestrator) release(bookID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inFlight, bookID)
}
