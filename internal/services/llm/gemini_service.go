package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
)

// GeminiService provides both embeddings and grounded generation through the
// Google Gemini API. It is the only embedding provider; generation can be
// switched to Claude while embeddings stay here.
type GeminiService struct {
	config  *common.GeminiConfig
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
	logger  arbor.ILogger
}

// NewGeminiService creates a Gemini gateway. The rate limiter spaces calls to
// stay inside the API quota; the timeout bounds each individual call.
func NewGeminiService(cfg *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key in config)")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	interval := common.ParseDurationOr(cfg.RateLimit, 100*time.Millisecond)

	svc := &GeminiService{
		config:  cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		timeout: common.ParseDurationOr(cfg.Timeout, 30*time.Second),
		logger:  logger,
	}

	logger.Info().
		Str("model", cfg.Model).
		Str("embed_model", cfg.EmbedModel).
		Int("embed_dimension", cfg.EmbedDimension).
		Msg("Gemini service initialized")

	return svc, nil
}

// EmbedBatch embeds chunk texts one request per batch entry, preserving
// order. A single failure fails the whole batch so ingestion never publishes
// partial vectors.
func (s *GeminiService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for i, text := range texts {
		vector, err := s.embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d of %d: %w", i+1, len(texts), err)
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (s *GeminiService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return s.embed(ctx, query)
}

// Dimension returns the configured output dimensionality.
func (s *GeminiService) Dimension() int {
	return s.config.EmbedDimension
}

// IsAvailable reports whether the embedding endpoint responds.
func (s *GeminiService) IsAvailable(ctx context.Context) bool {
	_, err := s.embed(ctx, "health check")
	return err == nil
}

func (s *GeminiService) embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outputDim := int32(s.config.EmbedDimension)
	result, err := s.client.Models.EmbedContent(ctx, s.config.EmbedModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &outputDim})
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0].Values == nil {
		return nil, fmt.Errorf("no embedding returned from API")
	}
	embedding := result.Embeddings[0].Values
	if len(embedding) != s.config.EmbedDimension {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", s.config.EmbedDimension, len(embedding))
	}
	return embedding, nil
}

// Generate produces a completion constrained by the request's system
// instruction and context blocks.
func (s *GeminiService) Generate(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildUserPrompt(req), genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	var response strings.Builder
	if resp != nil {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated")
	}
	return response.String(), nil
}

// ModelName identifies the generation model for answer metadata.
func (s *GeminiService) ModelName() string {
	return s.config.Model
}

// HealthCheck verifies the gateway with a minimal embedding call.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	if _, err := s.embed(ctx, "health check"); err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	return nil
}

// Close releases the client. The genai client holds no connections that need
// explicit shutdown.
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}

// buildUserPrompt assembles the user turn from context blocks and query.
func buildUserPrompt(req *interfaces.GenerateRequest) string {
	if req.ContextBlocks == "" {
		return req.Query
	}
	return "Book excerpts:\n\n" + req.ContextBlocks + "\n\nQuestion: " + req.Query
}
