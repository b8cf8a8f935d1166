// Package retry runs calls to flaky remote APIs with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var ErrExhausted = errors.New("retries exhausted")

type Policy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	// Jitter scales each delay by a random factor in [1-Jitter, 1+Jitter].
	Jitter float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		Initial:     time.Second,
		Max:         60 * time.Second,
		Jitter:      0.2,
	}
}

// BackOff returns a fresh doubling schedule for p.
func (p Policy) BackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.Initial
	bo.MaxInterval = p.Max
	bo.RandomizationFactor = p.Jitter
	bo.Multiplier = 2
	bo.Reset()
	return bo
}

// Permanent marks err as not worth retrying. Do returns it after one attempt.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// PermanentStatus reports whether an HTTP status means a retry cannot succeed.
func PermanentStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// Do calls fn until it succeeds, the attempts run out, fn returns a
// Permanent error or ctx is done.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)

	attempt := 0
	var last error
	permanent := false
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		last = fn(ctx)
		var perm *backoff.PermanentError
		if errors.As(last, &perm) {
			permanent = true
		}
		return struct{}{}, last
	},
		backoff.WithBackOff(p.BackOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			slog.Warn("Retry scheduled", "op", op, "attempt", attempt, "max_attempts", attempts, "delay", delay.String(), "error", err)
		}),
	)
	if err == nil {
		return nil
	}

	switch {
	case permanent:
		slog.Error("Operation failed with permanent error", "op", op, "attempt", attempt, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	case ctx.Err() != nil && attempt < attempts:
		return fmt.Errorf("%s: %w", op, err)
	}

	slog.Error("Operation failed after maximum retries", "op", op, "max_attempts", attempts, "last_error", last)
	return fmt.Errorf("%s: %w: %w", op, ErrExhausted, last)
}
