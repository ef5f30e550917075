// Package insight turns a fact pack into grounded insights, either
// through an external generation provider or the deterministic fallback
// the fact pack already carries.
package insight

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationRequest is the provider collaborator contract: a system
// instruction, a message list, and a task tag for the provider's own
// accounting.
type GenerationRequest struct {
	System   string
	Messages []Message
	Task     string
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type GenerationResponse struct {
	Content   string
	Usage     Usage
	LatencyMS int
}

// Provider issues exactly one generation request per call. Implementations
// own their timeout; they must not retry.
type Provider interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}
