package interfaces

import "context"

// Message represents a single turn in a model conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// CompletionRequest is a provider-agnostic content generation request.
type CompletionRequest struct {
	Messages          []Message
	Model             string
	Temperature       float32
	MaxTokens         int
	SystemInstruction string
}

// CompletionResponse is a provider-agnostic content generation response.
type CompletionResponse struct {
	Text     string
	Provider string
	Model    string
}

// ModelProvider is the single-method capability the orchestration layer
// depends on. Concrete implementations normalize each provider's wire
// envelope to a plain text field.
type ModelProvider interface {
	// Complete issues one completion call. No internal retry; failures
	// surface as a typed error for the retry layer above.
	Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error)

	// ProviderType identifies the provider ("claude", "openai", "gemini").
	ProviderType() string

	// HealthCheck verifies the provider is reachable and configured.
	HealthCheck(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}
