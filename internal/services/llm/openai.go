package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ayush6624/go-chatgpt"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
)

// OpenAIProvider implements interfaces.ModelProvider using the OpenAI
// chat completions API. The choices[0].message.content envelope is
// normalized to a plain text field here.
type OpenAIProvider struct {
	config    *common.OpenAIConfig
	logger    arbor.ILogger
	client    *chatgpt.Client
	limiter   *rate.Limiter
	timeout   time.Duration
	maxTokens int
}

// NewOpenAIProvider creates a new OpenAI provider instance. A missing API
// key is a fatal configuration error surfaced immediately.
func NewOpenAIProvider(config *common.OpenAIConfig, logger arbor.ILogger) (*OpenAIProvider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("OpenAI API key is required for the OpenAI provider (set OPENAI_API_KEY or openai.api_key in config)")
	}

	client, err := chatgpt.NewClient(config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to construct OpenAI client: %w", err)
	}

	if config.Model == "" {
		config.Model = "gpt-4o"
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

	provider := &OpenAIProvider{
		config:    config,
		logger:    logger,
		client:    client,
		limiter:   rate.NewLimiter(rate.Every(rateLimit), 1),
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("OpenAI provider initialized")

	return provider, nil
}

// Complete issues a single completion call to the OpenAI API.
func (p *OpenAIProvider) Complete(ctx context.Context, request *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	if len(request.Messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	model := request.Model
	if model == "" {
		model = p.config.Model
	}

	messages := make([]chatgpt.ChatMessage, 0, len(request.Messages)+1)
	if request.SystemInstruction != "" {
		messages = append(messages, chatgpt.ChatMessage{
			Role:    chatgpt.ChatGPTModelRoleSystem,
			Content: request.SystemInstruction,
		})
	}
	for _, msg := range request.Messages {
		var role chatgpt.ChatGPTModelRole
		switch msg.Role {
		case "system":
			role = chatgpt.ChatGPTModelRoleSystem
		case "assistant":
			role = chatgpt.ChatGPTModelRoleAssistant
		default:
			role = chatgpt.ChatGPTModelRoleUser
		}
		messages = append(messages, chatgpt.ChatMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	req := &chatgpt.ChatCompletionRequest{
		Model:    chatgpt.ChatGPTModel(model),
		Messages: messages,
	}
	if request.Temperature > 0 {
		req.Temperature = float64(request.Temperature)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := p.client.Send(timeoutCtx, req)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderOpenAI, Err: err}
	}

	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: ProviderOpenAI, Err: fmt.Errorf("empty response from OpenAI API")}
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return nil, &ProviderError{Provider: ProviderOpenAI, Err: fmt.Errorf("empty text in OpenAI response")}
	}

	p.logger.Debug().
		Str("model", model).
		Int("response_length", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("OpenAI completion succeeded")

	return &interfaces.CompletionResponse{
		Text:     text,
		Provider: string(ProviderOpenAI),
		Model:    model,
	}, nil
}

// ProviderType identifies this provider.
func (p *OpenAIProvider) ProviderType() string {
	return string(ProviderOpenAI)
}

// HealthCheck exercises the OpenAI API with a minimal probe.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := p.Complete(healthCtx, &interfaces.CompletionRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "ping"}},
	})
	if err != nil {
		return fmt.Errorf("OpenAI probe failed: %w", err)
	}
	if len(strings.TrimSpace(resp.Text)) == 0 {
		return fmt.Errorf("OpenAI probe returned empty response")
	}
	return nil
}

// Close releases resources. The OpenAI client needs no explicit cleanup.
func (p *OpenAIProvider) Close() error {
	p.logger.Debug().Msg("Closing OpenAI provider")
	return nil
}
