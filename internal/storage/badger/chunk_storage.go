package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/liber/internal/models"
)

// ChunkStorage persists chunk metadata. The vector index holds the
// embeddings; this store answers listing and count queries without touching
// the index.
type ChunkStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChunkStorage creates a chunk storage instance.
func NewChunkStorage(db *BadgerDB, logger arbor.ILogger) *ChunkStorage {
	return &ChunkStorage{db: db, logger: logger}
}

// ReplaceBookChunks deletes a book's prior chunk set and inserts the new one.
func (s *ChunkStorage) ReplaceBookChunks(bookID string, chunks []*models.Chunk) error {
	if err := s.DeleteBookChunks(bookID); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := s.db.Store().Upsert(chunk.ID, chunk); err != nil {
			return fmt.Errorf("failed to store chunk %s: %w", chunk.ID, err)
		}
	}
	s.db.RunGC()
	s.logger.Debug().Str("book_id", bookID).Int("chunks", len(chunks)).Msg("Chunk metadata replaced")
	return nil
}

// ListChunks returns a book's chunks ordered by position. limit <= 0 means
// no limit.
func (s *ChunkStorage) ListChunks(bookID string, limit, offset int) ([]*models.Chunk, error) {
	query := badgerhold.Where("BookID").Eq(bookID).Index("BookID").SortBy("Position")
	if offset > 0 {
		query = query.Skip(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var chunks []*models.Chunk
	if err := s.db.Store().Find(&chunks, query); err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	return chunks, nil
}

// CountChunks returns the number of stored chunks for a book.
func (s *ChunkStorage) CountChunks(bookID string) (int, error) {
	count, err := s.db.Store().Count(&models.Chunk{}, badgerhold.Where("BookID").Eq(bookID).Index("BookID"))
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return int(count), nil
}

// DeleteBookChunks removes every chunk belonging to a book.
func (s *ChunkStorage) DeleteBookChunks(bookID string) error {
	if err := s.db.Store().DeleteMatching(&models.Chunk{}, badgerhold.Where("BookID").Eq(bookID).Index("BookID")); err != nil {
		return fmt.Errorf("failed to delete chunks for book %s: %w", bookID, err)
	}
	return nil
}
