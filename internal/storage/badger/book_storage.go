package badger

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/liber/internal/models"
)

// BookStorage persists book records.
type BookStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewBookStorage creates a book storage instance.
func NewBookStorage(db *BadgerDB, logger arbor.ILogger) *BookStorage {
	return &BookStorage{db: db, logger: logger}
}

// SaveBook upserts a book record.
func (s *BookStorage) SaveBook(book *models.Book) error {
	book.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(book.ID, book); err != nil {
		return fmt.Errorf("failed to save book: %w", err)
	}
	return nil
}

// GetBook retrieves a book by ID.
func (s *BookStorage) GetBook(id string) (*models.Book, error) {
	var book models.Book
	if err := s.db.Store().Get(id, &book); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("book not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &book, nil
}

// UpdateStatus advances a book through the ingestion lifecycle.
func (s *BookStorage) UpdateStatus(id string, status models.IngestionStatus, chunkCount int) error {
	book, err := s.GetBook(id)
	if err != nil {
		return err
	}
	book.Status = status
	book.ChunkCount = chunkCount
	book.UpdatedAt = time.Now()
	if err := s.db.Store().Upsert(book.ID, book); err != nil {
		return fmt.Errorf("failed to update book status: %w", err)
	}
	s.logger.Debug().Str("book_id", id).Str("status", string(status)).Msg("Book status updated")
	return nil
}

// ListBooks returns all books, newest first.
func (s *BookStorage) ListBooks() ([]*models.Book, error) {
	var books []*models.Book
	if err := s.db.Store().Find(&books, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}
