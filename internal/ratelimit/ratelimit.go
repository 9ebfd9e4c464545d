// Package ratelimit enforces upstream request quotas over one or more
// windows using golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Window allows Requests per Per. A non-positive Requests disables it.
type Window struct {
	Requests int
	Per      time.Duration
}

// Limiter admits a request only when every window has a token.
type Limiter struct {
	limiters []*rate.Limiter
}

// New creates a limiter over windows. Each window gets a burst of 10% of
// its quota, at least 1. With no active window every request passes.
func New(windows ...Window) *Limiter {
	l := &Limiter{}
	for _, w := range windows {
		if w.Requests <= 0 || w.Per <= 0 {
			continue
		}
		every := w.Per / time.Duration(w.Requests)
		burst := max(w.Requests/10, 1)
		l.limiters = append(l.limiters, rate.NewLimiter(rate.Every(every), burst))
	}
	return l
}

// PerMinute is shorthand for a single requests-per-minute window.
func PerMinute(n int) *Limiter {
	return New(Window{Requests: n, Per: time.Minute})
}

// Wait blocks until every window admits the request or ctx is done. Tokens
// taken from some windows are returned when the wait is abandoned.
func (l *Limiter) Wait(ctx context.Context) error {
	if len(l.limiters) == 0 {
		return ctx.Err()
	}

	now := time.Now()
	reservations := make([]*rate.Reservation, 0, len(l.limiters))
	cancelAll := func() {
		for _, r := range reservations {
			r.CancelAt(now)
		}
	}

	var delay time.Duration
	for _, lim := range l.limiters {
		r := lim.ReserveN(now, 1)
		if !r.OK() {
			cancelAll()
			return fmt.Errorf("ratelimit: request exceeds burst")
		}
		reservations = append(reservations, r)
		delay = max(delay, r.DelayFrom(now))
	}

	if delay == 0 {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(now.Add(delay)) {
		cancelAll()
		return fmt.Errorf("ratelimit: wait of %s exceeds context deadline", delay)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		cancelAll()
		return ctx.Err()
	}
}

// Allow reports whether every window admits a request now, consuming a
// token from each only when all of them do.
func (l *Limiter) Allow() bool {
	now := time.Now()
	for _, lim := range l.limiters {
		if lim.TokensAt(now) < 1 {
			return false
		}
	}
	for _, lim := range l.limiters {
		lim.AllowN(now, 1)
	}
	return true
}
