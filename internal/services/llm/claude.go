package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
)

// ClaudeProvider implements interfaces.ModelProvider using the Anthropic
// Claude API.
type ClaudeProvider struct {
	config    *common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	maxTokens int
}

// convertMessagesToClaude converts []interfaces.Message to Claude
// MessageParam format. System messages are extracted separately for use
// with the System parameter; chronological ordering is preserved.
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue // Don't add system messages to messages array
		}

		switch msg.Role {
		case "assistant":
			claudeMessages = append(claudeMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		default:
			// Default to user for unknown roles
			claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return claudeMessages, systemText, nil
}

// NewClaudeProvider creates a new Claude provider instance. A missing API
// key is a fatal configuration error surfaced immediately.
func NewClaudeProvider(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the Claude provider (set ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	model := config.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
		config.Model = model
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	rateLimit, err := time.ParseDuration(config.RateLimit)
	if err != nil || rateLimit <= 0 {
		rateLimit = time.Second
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	provider := &ClaudeProvider{
		config:    config,
		logger:    logger,
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(rateLimit), 1),
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude provider initialized")

	return provider, nil
}

// Complete issues a single completion call to the Claude API. Retries are
// the caller's responsibility.
func (p *ClaudeProvider) Complete(ctx context.Context, request *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	claudeMessages, systemText, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages to Claude format: %w", err)
	}

	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	model := request.Model
	if model == "" {
		model = p.config.Model
	}

	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}

	if request.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(request.Temperature))
	}

	if systemText != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemText},
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := p.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return nil, wrapClaudeError(err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return nil, &ProviderError{Provider: ProviderClaude, Err: fmt.Errorf("empty response from Claude API")}
	}

	p.logger.Debug().
		Str("model", model).
		Int("response_length", text.Len()).
		Dur("duration", time.Since(startTime)).
		Msg("Claude completion succeeded")

	return &interfaces.CompletionResponse{
		Text:     text.String(),
		Provider: string(ProviderClaude),
		Model:    model,
	}, nil
}

// wrapClaudeError converts an SDK error into a typed ProviderError,
// preserving the HTTP status when the SDK exposes it.
func wrapClaudeError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider: ProviderClaude,
			Status:   apiErr.StatusCode,
			Err:      err,
		}
	}
	return &ProviderError{Provider: ProviderClaude, Err: err}
}

// ProviderType identifies this provider.
func (p *ClaudeProvider) ProviderType() string {
	return string(ProviderClaude)
}

// HealthCheck exercises the Claude API with a minimal probe.
func (p *ClaudeProvider) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := p.Complete(healthCtx, &interfaces.CompletionRequest{
		Messages:  []interfaces.Message{{Role: "user", Content: "ping"}},
		MaxTokens: 16,
	})
	if err != nil {
		return fmt.Errorf("Claude probe failed: %w", err)
	}
	if len(strings.TrimSpace(resp.Text)) == 0 {
		return fmt.Errorf("Claude probe returned empty response")
	}
	return nil
}

// Close releases resources. The Claude client needs no explicit cleanup.
func (p *ClaudeProvider) Close() error {
	p.logger.Debug().Msg("Closing Claude provider")
	return nil
}
