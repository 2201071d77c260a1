package rooms

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// CooldownTracker throttles room creation per (user, guild). The check and
// the write happen in a single store operation so two concurrent joins from
// the same user cannot both pass.
type CooldownTracker struct {
	store  CooldownStore
	retry  RetryPolicy
	window time.Duration
	now    func() time.Time
}

func NewCooldownTracker(store CooldownStore, window time.Duration) *CooldownTracker {
	return &CooldownTracker{
		store:  store,
		retry:  DefaultRetryPolicy(),
		window: window,
		now:    time.Now,
	}
}

// TryAcquire reports whether a room may be created now. When allowed, the
// returned stamp identifies the recorded slot for Release.
func (t *CooldownTracker) TryAcquire(ctx context.Context, userID, guildID snowflake.ID) (allowed bool, retryAfter time.Duration, stamp time.Time, err error) {
	// Stores keep microseconds; the stamp must round-trip for Release.
	now := t.now().UTC().Truncate(time.Microsecond)
	if t.window <= 0 {
		return true, 0, now, nil
	}

	var last time.Time
	err = t.retry.persist(ctx, "acquire cooldown", func(ctx context.Context) error {
		var e error
		allowed, last, e = t.store.AcquireCooldown(ctx, userID, guildID, now, t.window)
		return e
	})
	if err != nil {
		return false, 0, time.Time{}, err
	}
	if !allowed {
		return false, max(last.Add(t.window).Sub(now), 0), time.Time{}, nil
	}
	return true, 0, now, nil
}

// Release gives the slot back after a creation that did not go through.
func (t *CooldownTracker) Release(ctx context.Context, userID, guildID snowflake.ID, stamp time.Time) {
	if t.window <= 0 {
		return
	}
	err := t.retry.persist(ctx, "release cooldown", func(ctx context.Context) error {
		return t.store.ReleaseCooldown(ctx, userID, guildID, stamp)
	})
	if err != nil {
		slog.Warn("Failed to release cooldown",
			slog.String("type", "db"),
			slog.String("user_id", userID.String()),
			slog.String("guild_id", guildID.String()),
			slog.Any("error", err),
		)
	}
}

// Purge evicts entries whose window has long passed.
func (t *CooldownTracker) Purge(ctx context.Context) (int64, error) {
	var n int64
	err := t.retry.persist(ctx, "purge cooldowns", func(ctx context.Context) error {
		var e error
		n, e = t.store.PurgeCooldowns(ctx, t.now().UTC().Add(-t.window))
		return e
	})
	return n, err
}
