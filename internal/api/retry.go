package api

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	apierrors "github.com/dl-alexandre/gdrv-ingest/internal/errors"
	"github.com/dl-alexandre/gdrv-ingest/internal/logging"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"google.golang.org/api/googleapi"
)

// RetryPolicy controls how Retry repeats a failed call. The zero value
// performs exactly one attempt.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns the policy used for Drive read calls
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: utils.DefaultMaxRetries,
		BaseDelay:  time.Duration(utils.DefaultRetryDelayMs) * time.Millisecond,
		MaxDelay:   time.Duration(utils.MaxRetryDelayMs) * time.Millisecond,
	}
}

// Retry calls fn until it succeeds, returns a non-retryable error, or the
// policy's attempts run out. Only retryable classified errors are repeated.
func Retry[T any](ctx context.Context, policy RetryPolicy, logger logging.Logger, fn func() (T, error)) (T, error) {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	var result T
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}
		if !apierrors.IsRetryable(lastErr) || attempt == policy.MaxRetries {
			break
		}

		delay := policy.backoff(attempt, lastErr)
		logger.Warn("Retrying after retryable error",
			logging.F("attempt", attempt+1),
			logging.F("maxRetries", policy.MaxRetries),
			logging.F("delay_ms", delay.Milliseconds()),
			logging.F("error", lastErr.Error()),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}
	return result, lastErr
}

// backoff is base * 2^attempt with +/-25% jitter, capped at MaxDelay.
// A Retry-After header on the underlying API error wins.
func (p RetryPolicy) backoff(attempt int, err error) time.Duration {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Duration(utils.MaxRetryDelayMs) * time.Millisecond
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if delay := retryAfter(apiErr); delay > 0 {
			if delay > maxDelay {
				return maxDelay
			}
			return delay
		}
	}

	delay := p.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
	if delay > maxDelay || delay < 0 {
		delay = maxDelay
	}

	jitterRange := delay / 4
	if jitterRange > 0 {
		delay += time.Duration(rand.Int63n(int64(jitterRange*2))) - jitterRange
	}
	if delay < 0 {
		delay = p.BaseDelay
	}
	return delay
}
