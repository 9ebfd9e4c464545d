package app

import (
	"context"
	"errors"
	"time"

	"github.com/fd1az/albion-market-router/internal/apperror"
	"github.com/fd1az/albion-market-router/internal/circuitbreaker"
)

// RetryPolicy decides how many times a fetch is attempted and which
// failures are worth another attempt. Attempts are strictly sequential.
type RetryPolicy struct {
	MaxAttempts int
	// Backoff is the delay before the second attempt, doubled for each
	// further attempt up to MaxBackoff. Zero retries immediately.
	Backoff    time.Duration
	MaxBackoff time.Duration
	Retryable  func(err error) bool
}

// DefaultRetryPolicy returns three attempts with a short exponential backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     250 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
		Retryable:   IsRetryable,
	}
}

// IsRetryable retries transport and status failures. Malformed payloads,
// an open circuit and caller cancellation are final.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case IsMalformed(err):
		return false
	case circuitbreaker.IsRejection(err), apperror.GetCode(err) == apperror.CodeCircuitOpen:
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable == nil {
		return IsRetryable(err)
	}
	return p.Retryable(err)
}

// delay returns the wait before attempt n (n >= 2).
func (p RetryPolicy) delay(n int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	d := p.Backoff
	for i := 2; i < n; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
