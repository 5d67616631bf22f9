package interfaces

import "github.com/ternarybob/liber/internal/models"

// BookStorage persists book records in the metadata store.
type BookStorage interface {
	SaveBook(book *models.Book) error
	GetBook(id string) (*models.Book, error)
	UpdateStatus(id string, status models.IngestionStatus, chunkCount int) error
	ListBooks() ([]*models.Book, error)
}

// ChunkStorage persists chunk records. Chunks are written in bulk during
// ingestion; ReplaceBookChunks supersedes the prior set for a book atomically
// from the caller's perspective.
type ChunkStorage interface {
	ReplaceBookChunks(bookID string, chunks []*models.Chunk) error
	ListChunks(bookID string, limit, offset int) ([]*models.Chunk, error)
	CountChunks(bookID string) (int, error)
	DeleteBookChunks(bookID string) error
}

// StorageManager provides access to all metadata storage interfaces.
type StorageManager interface {
	BookStorage() BookStorage
	ChunkStorage() ChunkStorage
	HealthCheck() error
	Close() error
}
