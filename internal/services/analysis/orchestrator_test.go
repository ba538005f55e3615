package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
	"github.com/solvency-io/solvency/internal/models"
)

// fakeCompleter scripts provider behavior per call.
type fakeCompleter struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeCompleter) Complete(ctx context.Context, request *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	r := f.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &interfaces.CompletionResponse{Text: r.text, Provider: "claude", Model: "claude-sonnet-4-20250514"}, nil
}

// blockingCompleter holds every call on a gate so concurrent requests
// provably overlap.
type blockingCompleter struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (b *blockingCompleter) Complete(ctx context.Context, request *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-b.release
	return &interfaces.CompletionResponse{Text: validResponse, Provider: "claude", Model: "claude-sonnet-4-20250514"}, nil
}

func (b *blockingCompleter) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func newTestOrchestrator(t *testing.T, completer Completer) *Orchestrator {
	t.Helper()
	config := common.NewDefaultConfig()
	o, err := NewOrchestrator(config, completer, nil, common.GetLogger())
	require.NoError(t, err)
	o.retry.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return o
}

func TestAnalyzeSuccess(t *testing.T) {
	completer := &fakeCompleter{responses: []fakeResponse{{text: validResponse}}}
	o := newTestOrchestrator(t, completer)

	outcome, err := o.Analyze(context.Background(), []string{"Apple Inc"}, models.ModeDetailed)
	require.NoError(t, err)

	result := outcome.Result
	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, 1, result.Metadata.AttemptsUsed)
	assert.False(t, result.Metadata.UsedFallback)
	assert.False(t, result.Metadata.FromCache)
	assert.Equal(t, "claude-sonnet-4-20250514", result.Metadata.ModelID)
	assert.Equal(t, Fingerprint([]string{"Apple Inc"}, models.ModeDetailed), result.Metadata.Fingerprint)
	assert.Equal(t, float32(0.1), result.Metadata.Temperature)
	assert.Equal(t, outcome.Consistency.Seed, result.Metadata.Fingerprint)
	assert.Equal(t, 100.0, outcome.Consistency.Score)
}

func TestAnalyzeSecondCallHitsCache(t *testing.T) {
	completer := &fakeCompleter{responses: []fakeResponse{{text: validResponse}}}
	o := newTestOrchestrator(t, completer)

	_, err := o.Analyze(context.Background(), []string{"Apple Inc"}, models.ModeDetailed)
	require.NoError(t, err)

	outcome, err := o.Analyze(context.Background(), []string{"apple inc"}, models.ModeDetailed)
	require.NoError(t, err)

	assert.Equal(t, 1, completer.calls, "second request should not hit the provider")
	assert.True(t, outcome.Result.Metadata.FromCache)
	assert.NotNil(t, outcome.Result.Metadata.CachedAt)
}

func TestAnalyzeRetriesThenSucceeds(t *testing.T) {
	completer := &fakeCompleter{responses: []fakeResponse{
		{err: errors.New("upstream 500")},
		{text: "not json at all"},
		{text: validResponse},
	}}
	o := newTestOrchestrator(t, completer)

	outcome, err := o.Analyze(context.Background(), []string{"Apple Inc"}, models.ModeDetailed)
	require.NoError(t, err)

	assert.Equal(t, 3, completer.calls)
	assert.Equal(t, 3, outcome.Result.Metadata.AttemptsUsed)
	assert.False(t, outcome.Result.Metadata.UsedFallback)
	// 100 base, 10 attempt penalty, 5 seed bonus.
	assert.Equal(t, 95.0, outcome.Consistency.Score)

	// The failed attempts inside a run that ends in success never reach
	// the breaker.
	assert.Equal(t, 0, o.circuit.failures)
	assert.False(t, o.circuit.IsOpen())
}

func TestAnalyzeFallsBackAfterExhaustion(t *testing.T) {
	completer := &fakeCompleter{responses: []fakeResponse{{err: errors.New("upstream down")}}}
	o := newTestOrchestrator(t, completer)

	names := []string{"Apple Inc", "Tesla"}
	outcome, err := o.Analyze(context.Background(), names, models.ModeQuick)
	require.NoError(t, err, "exhaustion is masked behind the fallback, not surfaced")

	result := outcome.Result
	assert.Equal(t, 3, completer.calls)
	assert.True(t, result.Metadata.UsedFallback)
	assert.Equal(t, 3, result.Metadata.AttemptsUsed)
	assert.Len(t, result.Companies, 2)

	// The fallback is cached: a repeat answers identically with no
	// further provider calls.
	again, err := o.Analyze(context.Background(), names, models.ModeQuick)
	require.NoError(t, err)
	assert.Equal(t, 3, completer.calls)
	assert.True(t, again.Result.Metadata.FromCache)
	assert.True(t, again.Result.Metadata.UsedFallback)
}

func TestExhaustedRunRecordsOneBreakerFailure(t *testing.T) {
	completer := &fakeCompleter{responses: []fakeResponse{{err: errors.New("upstream down")}}}
	o := newTestOrchestrator(t, completer)

	_, err := o.Analyze(context.Background(), []string{"Apple Inc"}, models.ModeQuick)
	require.NoError(t, err)

	assert.Equal(t, 3, completer.calls, "all attempts are consumed before the run is terminal")
	assert.Equal(t, 1, o.circuit.failures, "one exhausted run is one breaker failure")
	assert.False(t, o.circuit.IsOpen())
}

func TestAnalyzeCircuitOpensAndSurfaces(t *testing.T) {
	completer := &fakeCompleter{responses: []fakeResponse{{err: errors.New("upstream down")}}}
	o := newTestOrchestrator(t, completer)

	// Five exhausted runs, each a single terminal failure, reach the
	// threshold of 5 and open the breaker.
	for _, name := range []string{"Apple Inc", "Tesla", "Microsoft", "Amazon", "Netflix"} {
		_, err := o.Analyze(context.Background(), []string{name}, models.ModeQuick)
		require.NoError(t, err)
	}
	assert.Equal(t, 15, completer.calls)

	_, err := o.Analyze(context.Background(), []string{"Alphabet"}, models.ModeQuick)
	require.Error(t, err)

	var circuitErr *CircuitOpenError
	assert.ErrorAs(t, err, &circuitErr)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Greater(t, circuitErr.RetryAfterSeconds, 0)
	assert.Equal(t, 15, completer.calls, "an open circuit must not reach the provider")
}

func TestAnalyzeCacheBypassesOpenCircuit(t *testing.T) {
	completer := &fakeCompleter{responses: []fakeResponse{
		{text: validResponse},
		{err: errors.New("upstream down")},
	}}
	o := newTestOrchestrator(t, completer)

	_, err := o.Analyze(context.Background(), []string{"Apple Inc"}, models.ModeDetailed)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		o.circuit.RecordFailure()
	}
	require.True(t, o.circuit.IsOpen())

	outcome, err := o.Analyze(context.Background(), []string{"Apple Inc"}, models.ModeDetailed)
	require.NoError(t, err, "cached results remain served while the circuit is open")
	assert.True(t, outcome.Result.Metadata.FromCache)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCompleter{responses: []fakeResponse{{text: validResponse}}})

	_, err := o.Analyze(context.Background(), nil, models.ModeQuick)
	assert.Error(t, err, "empty company list")

	_, err = o.Analyze(context.Background(), []string{"  ", ""}, models.ModeQuick)
	assert.Error(t, err, "blank company names only")

	_, err = o.Analyze(context.Background(), []string{"Apple Inc"}, models.AnalysisMode("verbose"))
	assert.Error(t, err, "unknown mode")
}

func TestAnalyzeDeduplicatesNames(t *testing.T) {
	completer := &fakeCompleter{responses: []fakeResponse{{text: validResponse}}}
	o := newTestOrchestrator(t, completer)

	outcome, err := o.Analyze(context.Background(), []string{"Apple Inc", "apple inc", " Apple Inc "}, models.ModeDetailed)
	require.NoError(t, err)

	want := Fingerprint([]string{"Apple Inc"}, models.ModeDetailed)
	assert.Equal(t, want, outcome.Result.Metadata.Fingerprint)
}

func TestAnalyzeCoalescesConcurrentIdenticalRequests(t *testing.T) {
	completer := &blockingCompleter{release: make(chan struct{})}
	o := newTestOrchestrator(t, completer)

	const callers = 5
	var wg sync.WaitGroup
	outcomes := make([]*interfaces.AnalysisOutcome, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = o.Analyze(context.Background(), []string{"Apple Inc"}, models.ModeDetailed)
		}(i)
	}

	// Let the callers queue up behind the held provider call, then let
	// the single in-flight execution finish.
	time.Sleep(50 * time.Millisecond)
	close(completer.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, outcomes[i])
		assert.Len(t, outcomes[i].Result.Companies, 1)
	}
	assert.Equal(t, 1, completer.callCount(), "identical concurrent requests share one provider call")
}

func TestAnalyzeCancellationCachesNothing(t *testing.T) {
	completer := &fakeCompleter{responses: []fakeResponse{{err: errors.New("upstream down")}}}
	config := common.NewDefaultConfig()
	o, err := NewOrchestrator(config, completer, nil, common.GetLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	o.retry.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err = o.Analyze(ctx, []string{"Apple Inc"}, models.ModeQuick)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 0, o.cache.Len(), "a cancelled run must not leave a partial result behind")
	assert.Equal(t, 0, o.circuit.failures, "cancellation is not an upstream failure")
}

func TestConsistencyScore(t *testing.T) {
	tests := []struct {
		name        string
		temperature float32
		attempts    int
		seeded      bool
		want        float64
	}{
		{"ideal seeded run", 0.1, 1, true, 100}, // clamped at 100
		{"ideal unseeded run", 0.1, 1, false, 100},
		{"low temp within grace band", 0.2, 1, false, 100},
		{"high temperature penalized", 0.7, 1, false, 50},
		{"retries penalized", 0.1, 3, false, 90},
		{"seed offsets one retry", 0.1, 2, true, 100},
		{"floor at zero", 1.5, 10, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ConsistencyScore(tt.temperature, tt.attempts, tt.seeded), 0.001)
		})
	}
}

func TestZoneMismatchCounting(t *testing.T) {
	score := 5.0
	badZone := models.ZoneDistress
	result := &models.AnalysisResult{
		Companies: []models.CompanyAnalysis{
			{Name: "A", AltmanZScore: models.AltmanZScore{Score: &score, Zone: models.ZoneSafe}},
			{Name: "B", AltmanZScore: models.AltmanZScore{Score: &score, Zone: badZone}},
			{Name: "C", AltmanZScore: models.AltmanZScore{Zone: models.ZoneSafe}}, // no score, not a mismatch
		},
	}
	assert.Equal(t, 1, countZoneMismatches(result))
}
