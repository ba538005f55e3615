// Package llm provides the model-provider adapters used by the analysis
// orchestration layer. Each provider normalizes its wire envelope to a
// single text field behind the interfaces.ModelProvider capability.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderOpenAI uses the OpenAI chat completions API
	ProviderOpenAI ProviderType = "openai"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// ProviderError is a typed upstream failure carrying the HTTP status and
// response body when available. Surfaced unretried by the providers; the
// retry layer above decides what to do with it.
type ProviderError struct {
	Provider ProviderType
	Status   int
	Body     string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s provider error (status %d): %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s provider error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Factory creates and caches provider instances, dispatching completion
// requests to the provider implied by the model name.
type Factory struct {
	config    *common.Config
	logger    arbor.ILogger
	mu        sync.Mutex
	providers map[ProviderType]interfaces.ModelProvider
}

// NewFactory creates a new provider factory. Providers are constructed
// lazily on first use so that only the configured provider needs an API key.
func NewFactory(config *common.Config, logger arbor.ILogger) *Factory {
	return &Factory{
		config:    config,
		logger:    logger,
		providers: make(map[ProviderType]interfaces.ModelProvider),
	}
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-20250514" -> Claude
// - "claude/claude-sonnet-4-20250514" -> Claude (with prefix)
// - "gpt-4o" or "openai/gpt-4o" -> OpenAI
// - "gemini-3-flash" -> Gemini
// - Empty string -> uses default provider from config
func (f *Factory) DetectProvider(model string) ProviderType {
	if model == "" {
		return ProviderType(f.config.LLM.DefaultProvider)
	}

	model = strings.ToLower(model)

	// Check for explicit provider prefix
	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "openai/") {
		return ProviderOpenAI
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}

	// Check for model name patterns
	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1-") || strings.HasPrefix(model, "o3-") {
		return ProviderOpenAI
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}

	return ProviderType(f.config.LLM.DefaultProvider)
}

// NormalizeModel removes the provider prefix from a model name if present
func (f *Factory) NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "openai/", "gemini/", "google/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// DefaultModel returns the configured default model for a provider
func (f *Factory) DefaultModel(provider ProviderType) string {
	switch provider {
	case ProviderClaude:
		return f.config.Claude.Model
	case ProviderOpenAI:
		return f.config.OpenAI.Model
	case ProviderGemini:
		return f.config.Gemini.Model
	default:
		return f.config.Claude.Model
	}
}

// Provider returns the provider instance for a type, creating it if
// necessary. A missing API key surfaces here as a configuration error.
func (f *Factory) Provider(providerType ProviderType) (interfaces.ModelProvider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.providers[providerType]; ok {
		return p, nil
	}

	var provider interfaces.ModelProvider
	var err error
	switch providerType {
	case ProviderClaude:
		provider, err = NewClaudeProvider(&f.config.Claude, f.logger)
	case ProviderOpenAI:
		provider, err = NewOpenAIProvider(&f.config.OpenAI, f.logger)
	case ProviderGemini:
		provider, err = NewGeminiProvider(&f.config.Gemini, f.logger)
	default:
		return nil, fmt.Errorf("unknown provider type: %s", providerType)
	}
	if err != nil {
		return nil, err
	}

	f.providers[providerType] = provider
	return provider, nil
}

// Complete dispatches a completion request to the provider implied by the
// request's model name.
func (f *Factory) Complete(ctx context.Context, request *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	providerType := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)
	if model == "" {
		model = f.DefaultModel(providerType)
	}

	provider, err := f.Provider(providerType)
	if err != nil {
		return nil, err
	}

	f.logger.Debug().
		Str("provider", string(providerType)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Msg("Dispatching completion to provider")

	normalized := *request
	normalized.Model = model
	return provider.Complete(ctx, &normalized)
}

// Close closes all provider clients
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.providers {
		if err := p.Close(); err != nil {
			f.logger.Warn().Err(err).Str("provider", p.ProviderType()).Msg("Failed to close provider")
		}
	}
	f.providers = make(map[ProviderType]interfaces.ModelProvider)
	return nil
}
