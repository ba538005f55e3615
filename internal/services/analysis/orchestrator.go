// Package analysis implements the LLM-backed financial risk assessment
// pipeline: deterministic request fingerprinting, result caching, circuit
// breaking, bounded retries and a deterministic fallback when the
// upstream model stays unavailable.
package analysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/singleflight"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
	"github.com/solvency-io/solvency/internal/models"
)

// Completer issues a single model completion. Satisfied by llm.Factory.
type Completer interface {
	Complete(ctx context.Context, request *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error)
}

// Orchestrator coordinates the full analysis flow and implements
// interfaces.AnalysisService. Identical concurrent requests are collapsed
// into one upstream call via singleflight.
type Orchestrator struct {
	logger    arbor.ILogger
	completer Completer
	prompts   *PromptBuilder
	parser    *ResponseParser
	cache     *ResultCache
	circuit   *CircuitBreaker
	retry     *RetryExecutor
	events    interfaces.EventService
	group     singleflight.Group

	now func() time.Time
}

// NewOrchestrator wires the pipeline from configuration. events may be nil
// when no subscriber cares about analysis telemetry.
func NewOrchestrator(config *common.Config, completer Completer, events interfaces.EventService, logger arbor.ILogger) (*Orchestrator, error) {
	backoffBase, err := time.ParseDuration(config.Analysis.BackoffBase)
	if err != nil {
		return nil, fmt.Errorf("invalid backoff_base '%s': %w", config.Analysis.BackoffBase, err)
	}
	backoffCap, err := time.ParseDuration(config.Analysis.BackoffCap)
	if err != nil {
		return nil, fmt.Errorf("invalid backoff_cap '%s': %w", config.Analysis.BackoffCap, err)
	}
	cooldown, err := time.ParseDuration(config.Analysis.CircuitCooldown)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit_cooldown '%s': %w", config.Analysis.CircuitCooldown, err)
	}

	return &Orchestrator{
		logger:    logger,
		completer: completer,
		prompts:   NewPromptBuilder(config.Analysis.Temperature, ""),
		parser:    NewResponseParser(logger),
		cache:     NewResultCache(config.Analysis.CacheEnabled, logger),
		circuit:   NewCircuitBreaker(config.Analysis.CircuitThreshold, cooldown, logger),
		retry:     NewRetryExecutor(config.Analysis.MaxAttempts, backoffBase, backoffCap, logger),
		events:    events,
		now:       time.Now,
	}, nil
}

// Analyze runs an analysis for the given companies and mode. Provider and
// parse failures are retried up to the attempt cap and then masked behind
// a deterministic fallback; only bad input and an open circuit surface as
// errors.
func (o *Orchestrator) Analyze(ctx context.Context, companyNames []string, mode models.AnalysisMode) (*interfaces.AnalysisOutcome, error) {
	names := normalizeRequest(companyNames)
	if len(names) == 0 {
		return nil, fmt.Errorf("at least one company name is required")
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("invalid analysis mode: %q", mode)
	}

	fingerprint := Fingerprint(names, mode)

	// Concurrent identical requests share one execution and one result.
	v, err, shared := o.group.Do(strconv.FormatInt(fingerprint, 10), func() (interface{}, error) {
		return o.analyzeOnce(ctx, names, mode, fingerprint)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		o.logger.Debug().
			Int64("fingerprint", fingerprint).
			Msg("Concurrent identical request coalesced")
	}
	return v.(*interfaces.AnalysisOutcome), nil
}

func (o *Orchestrator) analyzeOnce(ctx context.Context, names []string, mode models.AnalysisMode, fingerprint int64) (*interfaces.AnalysisOutcome, error) {
	o.publish(ctx, interfaces.EventAnalysisStarted, map[string]interface{}{
		"companies":   names,
		"mode":        string(mode),
		"fingerprint": fingerprint,
	})

	if cached := o.cache.Get(fingerprint, names); cached != nil {
		o.publish(ctx, interfaces.EventAnalysisCacheHit, map[string]interface{}{
			"fingerprint": fingerprint,
		})
		return o.outcome(cached, fingerprint), nil
	}

	if o.circuit.IsOpen() {
		retryAfter := o.circuit.RetryAfter()
		o.logger.Warn().
			Int64("fingerprint", fingerprint).
			Int("retry_after_s", retryAfter).
			Msg("Analysis rejected, circuit breaker open")
		return nil, &CircuitOpenError{RetryAfterSeconds: retryAfter}
	}

	result, attempts := o.runAttempts(ctx, names, mode, fingerprint)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result.Metadata.Fingerprint = fingerprint
	result.Metadata.Temperature = o.prompts.Temperature()
	result.Metadata.AttemptsUsed = attempts
	result.Metadata.ProducedAt = o.now()
	result.Metadata.ZoneMismatches = countZoneMismatches(result)

	// Fallbacks are cached too: a degraded upstream keeps answering the
	// same request the same way instead of flapping.
	o.cache.Put(fingerprint, names, result)

	o.publish(ctx, interfaces.EventAnalysisCompleted, map[string]interface{}{
		"fingerprint":   fingerprint,
		"attempts":      attempts,
		"used_fallback": result.Metadata.UsedFallback,
		"companies":     len(result.Companies),
	})

	return o.outcome(result, fingerprint), nil
}

// runAttempts drives the retry loop and returns either a parsed upstream
// result or the deterministic fallback, along with the attempts used.
func (o *Orchestrator) runAttempts(ctx context.Context, names []string, mode models.AnalysisMode, fingerprint int64) (*models.AnalysisResult, int) {
	var result *models.AnalysisResult
	var modelID string

	attempts, err := o.retry.Execute(ctx, func(ctx context.Context, attempt int) error {
		request := o.prompts.Build(names, mode, fingerprint)
		response, err := o.completer.Complete(ctx, request)
		if err != nil {
			return err
		}

		// A malformed response is retried like a transport failure: the
		// upstream is not usable either way.
		parsed, err := o.parser.Parse(response.Text)
		if err != nil {
			return err
		}

		result = parsed
		modelID = response.Model
		return nil
	}, func(attempt int) {
		o.publish(ctx, interfaces.EventAnalysisAttempt, map[string]interface{}{
			"fingerprint": fingerprint,
			"attempt":     attempt,
		})
	})

	if err != nil {
		if ctx.Err() != nil {
			// Cancellation is the caller's choice, not an upstream
			// failure; the breaker stays untouched.
			return nil, attempts
		}

		// The breaker moves on terminal outcomes only: one failure per
		// exhausted run, not one per attempt.
		o.circuit.RecordFailure()
		o.logger.Warn().
			Int64("fingerprint", fingerprint).
			Int("attempts", attempts).
			Err(err).
			Msg("All analysis attempts failed, using deterministic fallback")
		o.publish(ctx, interfaces.EventAnalysisFallback, map[string]interface{}{
			"fingerprint": fingerprint,
			"attempts":    attempts,
			"error":       err.Error(),
		})
		if o.circuit.IsOpen() {
			o.publish(ctx, interfaces.EventCircuitOpened, map[string]interface{}{
				"retry_after_s": o.circuit.RetryAfter(),
			})
		}
		fallback := FallbackResult(names, mode, fingerprint)
		fallback.Metadata.UsedFallback = true
		return fallback, attempts
	}

	o.circuit.RecordSuccess()
	result.Metadata.ModelID = modelID
	return result, attempts
}

// outcome pairs a result with its consistency metadata.
func (o *Orchestrator) outcome(result *models.AnalysisResult, fingerprint int64) *interfaces.AnalysisOutcome {
	temperature := result.Metadata.Temperature
	attempts := result.Metadata.AttemptsUsed
	return &interfaces.AnalysisOutcome{
		Result: result,
		Consistency: models.ConsistencyMetadata{
			Seed:        fingerprint,
			Temperature: temperature,
			Timestamp:   o.now(),
			Attempts:    attempts,
			Score:       ConsistencyScore(temperature, attempts, true),
		},
	}
}

// ConsistencyScore estimates how reproducible a result is on a 0-100
// scale. High temperatures and retries erode the score; a pinned seed
// buys a small bonus.
func ConsistencyScore(temperature float32, attempts int, seeded bool) float64 {
	score := 100.0
	if temperature > 0.2 {
		score -= float64(temperature-0.2) * 100
	}
	if attempts > 1 {
		score -= 5 * float64(attempts-1)
	}
	if seeded {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func countZoneMismatches(result *models.AnalysisResult) int {
	mismatches := 0
	for i := range result.Companies {
		if result.Companies[i].ZoneMismatch() {
			mismatches++
		}
	}
	return mismatches
}

func normalizeRequest(companyNames []string) []string {
	names := make([]string, 0, len(companyNames))
	seen := make(map[string]bool, len(companyNames))
	for _, name := range companyNames {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, trimmed)
	}
	return names
}

func (o *Orchestrator) publish(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		o.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to publish analysis event")
	}
}
