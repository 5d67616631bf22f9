package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
)

// ClaudeService provides grounded generation through the Anthropic API.
// It is generation-only; embeddings always come from the Gemini gateway.
type ClaudeService struct {
	config  *common.ClaudeConfig
	client  *anthropic.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// NewClaudeService creates a Claude generation gateway.
func NewClaudeService(cfg *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))

	svc := &ClaudeService{
		config:  cfg,
		client:  &client,
		timeout: common.ParseDurationOr(cfg.Timeout, 30*time.Second),
		logger:  logger,
	}

	logger.Info().Str("model", cfg.Model).Msg("Claude service initialized")
	return svc, nil
}

// Generate produces a completion constrained by the request's system
// instruction and context blocks.
func (s *ClaudeService) Generate(ctx context.Context, req *interfaces.GenerateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(s.config.Model),
		MaxTokens:   int64(s.config.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(req))),
		},
	}
	if req.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemInstruction}}
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated")
	}
	return response.String(), nil
}

// ModelName identifies the generation model for answer metadata.
func (s *ClaudeService) ModelName() string {
	return s.config.Model
}

// HealthCheck verifies the gateway with a one-token completion.
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("claude health check failed: %w", err)
	}
	return nil
}

// Close releases gateway resources.
func (s *ClaudeService) Close() error {
	return nil
}
