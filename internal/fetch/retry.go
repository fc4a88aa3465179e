package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy bounds how often and how patiently a fetch is retried.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Backoff returns the wait before the given retry (1-based), exponential with jitter.
func (p RetryPolicy) Backoff(retry int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}

	delay := p.BaseDelay << (retry - 1)
	if p.MaxDelay > 0 && (delay > p.MaxDelay || delay <= 0) {
		delay = p.MaxDelay
	}

	jitter := time.Duration(rand.Int63n(int64(delay)/2 + 1))
	return delay + jitter
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry runs fn until it succeeds, the attempts are exhausted or ctx ends.
func Retry(ctx context.Context, policy RetryPolicy, logger *slog.Logger, url string, fn func(context.Context) (string, error)) (string, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := policy.Backoff(attempt - 1)
			logger.Debug("retrying fetch", "url", url, "attempt", attempt, "delay", delay, "error", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("fetch %s aborted: %w", url, ctx.Err())
			case <-timer.C:
			}
		}

		body, err := fn(ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return "", fmt.Errorf("fetch %s aborted: %w", url, err)
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return "", fmt.Errorf("fetch %s failed: %w", url, perm.err)
		}
	}

	return "", fmt.Errorf("fetch %s failed after %d attempts: %w", url, attempts, lastErr)
}
