package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
)

// Manager implements the StorageManager interface over Badger.
type Manager struct {
	db     *BadgerDB
	books  interfaces.BookStorage
	chunks interfaces.ChunkStorage
	logger arbor.ILogger
}

// NewManager opens the metadata store and wires the per-entity storages.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:     db,
		books:  NewBookStorage(db, logger),
		chunks: NewChunkStorage(db, logger),
		logger: logger,
	}

	logger.Info().Msg("Badger storage manager initialized")
	return manager, nil
}

// BookStorage returns the book storage interface.
func (m *Manager) BookStorage() interfaces.BookStorage {
	return m.books
}

// ChunkStorage returns the chunk storage interface.
func (m *Manager) ChunkStorage() interfaces.ChunkStorage {
	return m.chunks
}

// HealthCheck verifies the store responds to a trivial read.
func (m *Manager) HealthCheck() error {
	_, err := m.books.ListBooks()
	return err
}

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}
