package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/handlers"
	"github.com/ternarybob/liber/internal/interfaces"
	"github.com/ternarybob/liber/internal/services/chat"
	"github.com/ternarybob/liber/internal/services/chunker"
	"github.com/ternarybob/liber/internal/services/grounding"
	"github.com/ternarybob/liber/internal/services/ingest"
	"github.com/ternarybob/liber/internal/services/llm"
	"github.com/ternarybob/liber/internal/services/retrieval"
	badgerstore "github.com/ternarybob/liber/internal/storage/badger"
	"github.com/ternarybob/liber/internal/storage/qdrant"
)

// App holds all application components and dependencies.
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// External gateways
	LLMService  interfaces.LLMService
	Embeddings  interfaces.EmbeddingGateway
	VectorIndex interfaces.VectorIndex

	// Pipeline services
	Chunker       *chunker.Chunker
	IngestService interfaces.IngestService
	Retriever     interfaces.Retriever
	Enforcer      interfaces.GroundingEnforcer
	ChatService   interfaces.ChatService

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	IngestHandler *handlers.IngestHandler
	ChatHandler   *handlers.ChatHandler
	BookHandler   *handlers.BookHandler
}

// New initializes the application with all dependencies.
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	app.StorageManager = storageManager

	llmService, embeddings, err := llm.NewLLMService(cfg, logger)
	if err != nil {
		storageManager.Close()
		return nil, err
	}
	app.LLMService = llmService
	app.Embeddings = embeddings

	index, err := qdrant.NewClient(ctx, &cfg.Qdrant, embeddings.Dimension(), logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	app.VectorIndex = index

	app.Chunker = chunker.New(&cfg.Ingestion, logger)
	app.IngestService = ingest.NewOrchestrator(app.Chunker, embeddings, index, storageManager, &cfg.Ingestion, logger)
	app.Retriever = retrieval.NewRetriever(embeddings, index, storageManager.BookStorage(), &cfg.Retrieval, logger)
	app.Enforcer = grounding.NewEnforcer(llmService, &cfg.Grounding, logger)
	app.ChatService = chat.NewService(app.Retriever, app.Enforcer, logger)

	app.APIHandler = handlers.NewAPIHandler(storageManager, index, llmService)
	app.IngestHandler = handlers.NewIngestHandler(app.IngestService, logger)
	app.ChatHandler = handlers.NewChatHandler(app.ChatService, logger)
	app.BookHandler = handlers.NewBookHandler(storageManager, logger)

	logger.Info().Msg("Application initialized")
	return app, nil
}

// Close releases application resources.
func (a *App) Close() error {
	var firstErr error
	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
