package domain

import "context"

// LLMClient defines the capability to send a system instruction and a user
// prompt to a generation provider and receive the answer text.
type LLMClient interface {
	Generate(ctx context.Context, system, prompt string, maxTokens int) (*LLMResponse, error)
	Version() string
}

// LLMResponse carries the provider output verbatim.
type LLMResponse struct {
	Text string
}
