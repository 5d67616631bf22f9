package interfaces

import "context"

// GenerateRequest is a single constrained generation call to the language
// model gateway. ContextBlocks carry the marker-tagged passages the model is
// restricted to; SystemInstruction carries the grounding rules.
type GenerateRequest struct {
	SystemInstruction string
	ContextBlocks     string
	Query             string
	Temperature       float32
}

// LLMService is the language model gateway used for grounded generation.
// One deterministic-leaning call per grounding attempt.
type LLMService interface {
	// Generate produces a completion constrained by the request's system
	// instruction and context blocks.
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	// ModelName identifies the model for answer metadata.
	ModelName() string

	// HealthCheck verifies the gateway is operational.
	HealthCheck(ctx context.Context) error

	// Close releases gateway resources.
	Close() error
}
