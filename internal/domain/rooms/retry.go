package rooms

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultAttempts    = 3
	defaultBaseBackoff = 200 * time.Millisecond
	defaultMaxBackoff  = 2 * time.Second
	platformTimeout    = 10 * time.Second
)

// RetryPolicy is a bounded exponential backoff.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: defaultAttempts, Base: defaultBaseBackoff, Max: defaultMaxBackoff}
}

// Do runs fn until it succeeds, returns a permanent error, or the attempts
// run out. Domain outcomes, context errors and forbidden/gone platform errors
// are permanent.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	backoff := p.Base
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil || permanent(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		slog.Warn("Retrying operation",
			slog.String("type", "sys"),
			slog.String("operation", op),
			slog.Int("attempt", i+1),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		}
		backoff = min(backoff*2, p.Max)
	}
	return err
}

func permanent(err error) bool {
	return IsDomainError(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrPlatformForbidden) ||
		errors.Is(err, ErrChannelGone)
}

// persist runs a store call under the retry policy and tags failures.
func (p RetryPolicy) persist(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := p.Do(ctx, op, fn)
	if err == nil || IsDomainError(err) {
		return err
	}
	return &persistenceError{op: op, err: err}
}

// platform runs an idempotent platform call with a bounded timeout per attempt.
func (p RetryPolicy) platform(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := p.Do(ctx, op, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, platformTimeout)
		defer cancel()
		return fn(callCtx)
	})
	if err == nil || errors.Is(err, ErrChannelGone) {
		return err
	}
	return &platformError{op: op, err: err}
}

// platformCreate runs a non-idempotent platform call. It is only repeated
// when the platform guarantees the failed attempt had no effect.
func (p RetryPolicy) platformCreate(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	backoff := p.Base
	var err error
	for i := 0; i < attempts; i++ {
		callCtx, cancel := context.WithTimeout(ctx, platformTimeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotApplied) || i == attempts-1 {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return &platformError{op: op, err: errors.Join(err, ctx.Err())}
		}
		backoff = min(backoff*2, p.Max)
	}
	return &platformError{op: op, err: err}
}
