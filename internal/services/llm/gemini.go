package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
)

// GeminiProvider implements interfaces.ModelProvider using the Google
// Gemini API.
type GeminiProvider struct {
	config  *common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format. System messages are extracted separately for the system
// instruction parameter.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
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

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue // Don't add system messages to contents
		}

		geminiRole := genai.RoleUser
		if msg.Role == "assistant" {
			geminiRole = genai.RoleModel
		}

		contents = append(contents, genai.NewContentFromText(msg.Content, genai.Role(geminiRole)))
	}

	return contents, systemText, nil
}

// NewGeminiProvider creates a new Gemini provider instance. A missing API
// key is a fatal configuration error surfaced immediately.
func NewGeminiProvider(config *common.GeminiConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("Gemini API key is required for the Gemini provider (set GEMINI_API_KEY or gemini.api_key in config)")
	}

	if config.Model == "" {
		config.Model = "gemini-3-flash-preview"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	rateLimit, err := time.ParseDuration(config.RateLimit)
	if err != nil || rateLimit <= 0 {
		rateLimit = 4 * time.Second
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	provider := &GeminiProvider{
		config:  config,
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(rateLimit), 1),
		timeout: timeout,
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Gemini provider initialized")

	return provider, nil
}

// Complete issues a single completion call to the Gemini API.
func (p *GeminiProvider) Complete(ctx context.Context, request *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	contents, systemText, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	if request.SystemInstruction != "" {
		systemText = request.SystemInstruction
	}

	model := request.Model
	if model == "" {
		model = p.config.Model
	}

	config := &genai.GenerateContentConfig{}
	if request.Temperature > 0 {
		config.Temperature = genai.Ptr(request.Temperature)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := p.client.Models.GenerateContent(timeoutCtx, model, contents, config)
	if err != nil {
		return nil, &ProviderError{Provider: ProviderGemini, Err: err}
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, &ProviderError{Provider: ProviderGemini, Err: fmt.Errorf("empty response from Gemini API")}
	}

	text := resp.Text()
	if text == "" {
		return nil, &ProviderError{Provider: ProviderGemini, Err: fmt.Errorf("empty text in Gemini response")}
	}

	p.logger.Debug().
		Str("model", model).
		Int("response_length", len(text)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini completion succeeded")

	return &interfaces.CompletionResponse{
		Text:     text,
		Provider: string(ProviderGemini),
		Model:    model,
	}, nil
}

// ProviderType identifies this provider.
func (p *GeminiProvider) ProviderType() string {
	return string(ProviderGemini)
}

// HealthCheck exercises the Gemini API with a minimal probe.
func (p *GeminiProvider) HealthCheck(ctx context.Context) error {
	healthCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := p.Complete(healthCtx, &interfaces.CompletionRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "ping"}},
	})
	if err != nil {
		return fmt.Errorf("Gemini probe failed: %w", err)
	}
	if len(strings.TrimSpace(resp.Text)) == 0 {
		return fmt.Errorf("Gemini probe returned empty response")
	}
	return nil
}

// Close releases resources.
func (p *GeminiProvider) Close() error {
	p.logger.Debug().Msg("Closing Gemini provider")
	p.client = nil
	return nil
}
