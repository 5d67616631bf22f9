package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/liber/internal/common"
	"github.com/ternarybob/liber/internal/interfaces"
)

// NewLLMService creates the generation gateway selected by configuration.
// The Gemini service is always created because it is the only embedding
// provider; when Claude is selected it handles generation only.
//
// Returns the generation service and the embedding gateway. When Gemini is
// the generation provider both are the same instance.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, interfaces.EmbeddingGateway, error) {
	gemini, err := NewGeminiService(&cfg.Gemini, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini service: %w", err)
	}

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderGemini, "":
		logger.Info().Str("provider", "gemini").Msg("Initializing LLM service")
		return gemini, gemini, nil

	case common.LLMProviderClaude:
		logger.Info().Str("provider", "claude").Msg("Initializing LLM service")
		claude, err := NewClaudeService(&cfg.Claude, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Claude service: %w", err)
		}
		return claude, gemini, nil

	default:
		return nil, nil, fmt.Errorf("unsupported LLM provider %q: must be 'gemini' or 'claude'", cfg.LLM.DefaultProvider)
	}
}
