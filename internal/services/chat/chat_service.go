package chat

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/interfaces"
	"github.com/ternarybob/liber/internal/models"
)

// Service routes chat requests between full-book and selected-text retrieval
// and runs every answer through the grounding enforcer. There is no path to
// the model that bypasses enforcement.
type Service struct {
	retriever interfaces.Retriever
	enforcer  interfaces.GroundingEnforcer
	validate  *validator.Validate
	logger    arbor.ILogger
}

// NewService creates the chat service.
func NewService(retriever interfaces.Retriever, enforcer interfaces.GroundingEnforcer, logger arbor.ILogger) *Service {
	return &Service{
		retriever: retriever,
		enforcer:  enforcer,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Chat answers a reader question with a grounded, cited response.
func (s *Service) Chat(ctx context.Context, req *interfaces.ChatRequest) (*models.Answer, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, models.WrapError(models.ErrValidation, err, "invalid chat request")
	}

	mode := resolveMode(req)
	start := time.Now()

	var (
		candidates []models.RetrievedCandidate
		err        error
	)
	switch mode {
	case models.ModeSelectedText:
		candidates, err = s.retriever.RetrieveWithSelection(ctx, req.BookID, req.Query, req.SelectedText, req.MaxChunks)
	default:
		candidates, err = s.retriever.Retrieve(ctx, req.BookID, req.Query, req.MaxChunks)
	}
	if err != nil {
		return nil, err
	}

	answer, err := s.enforcer.Answer(ctx, req.Query, candidates, mode)
	if err != nil {
		return nil, err
	}
	answer.LatencyMS = float64(time.Since(start).Nanoseconds()) / 1e6

	s.logger.Info().
		Str("book_id", req.BookID).
		Str("mode", string(mode)).
		Int("chunks", answer.ChunksRetrieved).
		Int("citations", len(answer.Citations)).
		Float64("latency_ms", answer.LatencyMS).
		Msg("Chat answered")

	return answer, nil
}

// HealthCheck verifies the generation path when the enforcer exposes one.
func (s *Service) HealthCheck(ctx context.Context) error {
	if hc, ok := s.enforcer.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

// resolveMode picks the retrieval mode. An explicit Mode field wins; otherwise
// the presence of selected text decides.
func resolveMode(req *interfaces.ChatRequest) models.ChatMode {
	switch req.Mode {
	case string(models.ModeSelectedText):
		return models.ModeSelectedText
	case string(models.ModeFullBook):
		return models.ModeFullBook
	}
	if req.SelectedText != "" {
		return models.ModeSelectedText
	}
	return models.ModeFullBook
}
