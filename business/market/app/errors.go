package app

import (
	"errors"
	"fmt"

	"github.com/fd1az/albion-market-router/business/market/domain"
	"github.com/fd1az/albion-market-router/internal/apperror"
)

// ErrAttemptTimeout is the context cause set when a single upstream attempt
// exceeds its timeout. Adapters use it to tell a slow upstream apart from a
// caller that stopped waiting.
var ErrAttemptTimeout = errors.New("upstream attempt timed out")

// StatusError is a non-2xx answer from the upstream.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Body)
}

// AttemptError records how a fetch ended after retries.
type AttemptError struct {
	Attempts   int
	StatusCode int // last upstream status, zero when no response was received
	Err        error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("price fetch failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// IsMalformed reports whether err is an upstream contract failure.
func IsMalformed(err error) bool {
	return errors.Is(err, domain.ErrMalformedPayload)
}

// statusOf extracts the upstream status from err, or zero.
func statusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// fetchFailure builds the error surfaced to callers once retrying stops.
func fetchFailure(err error, attempts int, items int) *apperror.AppError {
	status := statusOf(err)

	code := apperror.CodeUpstreamUnavailable
	if IsMalformed(err) {
		code = apperror.CodeMalformedUpstreamPayload
	}

	opts := []apperror.Option{
		apperror.WithCause(&AttemptError{Attempts: attempts, StatusCode: status, Err: err}),
		apperror.WithContext(fmt.Sprintf("%d item(s), %d attempt(s)", items, attempts)),
		apperror.WithDetail("attempts", attempts),
	}
	if status > 0 {
		opts = append(opts, apperror.WithDetail("upstreamStatus", status))
	}
	return apperror.New(code, opts...)
}
