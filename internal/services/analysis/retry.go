package analysis

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
)

// RetryExecutor runs an operation up to a fixed attempt cap with
// exponential backoff between attempts. Every failure is considered
// retryable here; non-retryable conditions (open circuit, bad
// configuration) are checked before the executor is entered.
type RetryExecutor struct {
	logger      arbor.ILogger
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration

	// sleep is swapped in tests so backoff is observable without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryExecutor creates an executor with the given attempt cap and
// backoff schedule.
func NewRetryExecutor(maxAttempts int, backoffBase, backoffCap time.Duration, logger arbor.ILogger) *RetryExecutor {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	if backoffCap <= 0 {
		backoffCap = 10 * time.Second
	}
	return &RetryExecutor{
		logger:      logger,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		backoffCap:  backoffCap,
		sleep:       sleepCtx,
	}
}

// Backoff returns the delay before retrying after the given 1-based
// attempt number: base doubled per attempt, capped.
func (r *RetryExecutor) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := r.backoffBase << (attempt - 1)
	if d > r.backoffCap || d <= 0 {
		d = r.backoffCap
	}
	return d
}

// Execute runs op until it succeeds or the attempt cap is exhausted,
// invoking onAttempt (when set) before each try. It returns the number of
// attempts used alongside the last error.
func (r *RetryExecutor) Execute(ctx context.Context, op func(ctx context.Context, attempt int) error, onAttempt func(attempt int)) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if onAttempt != nil {
			onAttempt(attempt)
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}

		if attempt < r.maxAttempts {
			delay := r.Backoff(attempt)
			r.logger.Warn().
				Int("attempt", attempt).
				Int("max_attempts", r.maxAttempts).
				Dur("backoff", delay).
				Err(lastErr).
				Msg("Analysis attempt failed, backing off")
			if err := r.sleep(ctx, delay); err != nil {
				return attempt, err
			}
		}
	}
	return r.maxAttempts, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
