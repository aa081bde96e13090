package cluster

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// Retry classification errors.
var (
	ErrRetryable = &lenderr.LendError{
		Code:     "RETRYABLE_ERROR",
		Message:  "retryable error",
		ExitCode: lenderr.ExitGeneral,
	}

	ErrRateLimited = &lenderr.LendError{
		Code:     "RATE_LIMITED",
		Message:  "rate limited by RPC endpoint",
		ExitCode: lenderr.ExitGeneral,
	}
)

// RetryConfig is the per-endpoint backoff policy.
type RetryConfig struct {
	MaxAttempts int           // attempts per endpoint, including the first
	BaseDelay   time.Duration // delay before the first retry, doubled each time
	MaxDelay    time.Duration // cap on a single delay
}

// DefaultRetryConfig makes 3 attempts per endpoint with 250ms, 500ms delays.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// retry runs op with exponential backoff while it fails with a retryable
// error. The last error is returned when attempts run out.
func retry[T any](ctx context.Context, cfg RetryConfig, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	attempts := max(cfg.MaxAttempts, 1)

	for attempt := 0; attempt < attempts; attempt++ {
		result, err = op(ctx)
		if err == nil || !IsRetryable(err) {
			return result, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := backoff(attempt, cfg.BaseDelay, cfg.MaxDelay)
		var ra *retryAfterError
		if errors.As(err, &ra) && ra.after > delay {
			delay = ra.after
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}
	return result, fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}

// backoff returns the delay before retry attempt+1, with jitter in [d/2, d).
func backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << attempt
	if maxDelay > 0 && (d > maxDelay || d <= 0) {
		d = maxDelay
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half) //nolint:gosec // G404: jitter needs no cryptographic randomness
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRetryable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded)
}

// retryAfterError carries a server-requested wait.
type retryAfterError struct {
	err   error
	after time.Duration
}

func (e *retryAfterError) Error() string { return e.err.Error() }
func (e *retryAfterError) Unwrap() error { return e.err }

// ParseRetryAfter parses a Retry-After header given in seconds.
func ParseRetryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func retryable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}
