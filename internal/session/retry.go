package session

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// RetryPolicy bounds connect retries on transient provider errors.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Default retry settings: one retry after half a second.
const (
	DefaultMaxAttempts = 2
	DefaultRetryDelay  = 500 * time.Millisecond
)

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, Delay: DefaultRetryDelay}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do runs fn until it succeeds, returns an error retryable rejects, or
// the attempts run out. Waits between attempts use clk, so tests can drive
// them with a mock clock. It returns the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, clk clock.Clock, fn func(ctx context.Context) error, retryable func(error) bool) (int, error) {
	var err error
	limit := p.attempts()
	for attempt := 1; attempt <= limit; attempt++ {
		err = fn(ctx)
		if err == nil || !retryable(err) || attempt == limit {
			return attempt, err
		}
		if werr := sleep(ctx, clk, p.Delay); werr != nil {
			return attempt, werr
		}
	}
	return limit, err
}

// sleep waits d on clk or until ctx is done.
func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := clk.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
