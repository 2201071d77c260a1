package rooms

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRateLimited       = errors.New("room creation is on cooldown")
	ErrNotFound          = errors.New("room not found")
	ErrSpawnerNotFound   = errors.New("spawner not found")
	ErrNotOwner          = errors.New("not the room owner")
	ErrNotEligible       = errors.New("not eligible to claim this room")
	ErrAlreadyOwned      = errors.New("room already has an owner")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrPersistence       = errors.New("persistence failure")
	ErrPlatform          = errors.New("platform failure")
	ErrPlatformForbidden = errors.New("platform refused the request")
	ErrChannelGone       = errors.New("channel no longer exists")
	// ErrNotApplied marks platform failures that provably changed nothing,
	// which makes even non-idempotent calls safe to retry.
	ErrNotApplied = errors.New("platform request was not applied")
)

// RateLimitedError carries how long the caller has to wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// persistenceError wraps a store failure that survived the retry budget.
type persistenceError struct {
	op  string
	err error
}

func (e *persistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.op, e.err)
}

func (e *persistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.err}
}

type platformError struct {
	op  string
	err error
}

func (e *platformError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPlatform, e.op, e.err)
}

func (e *platformError) Unwrap() []error {
	return []error{ErrPlatform, e.err}
}

// IsDomainError reports whether err is one of the user-facing outcomes that
// must never be retried.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrRateLimited, ErrNotFound, ErrSpawnerNotFound, ErrNotOwner,
		ErrNotEligible, ErrAlreadyOwned, ErrInvalidArgument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
