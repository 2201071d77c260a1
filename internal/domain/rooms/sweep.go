package rooms

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

// SweepResult counts what one sweep cycle did.
type SweepResult struct {
	// Removed rooms had their live channel and row deleted.
	Removed int
	// Reconciled rows pointed at channels that no longer existed.
	Reconciled int
	// Restored rooms got a member back while being retired.
	Restored int
	// Marked rooms were seen empty for the first time.
	Marked int
}

type sweepOutcome int

const (
	outcomeNone sweepOutcome = iota
	outcomeRemoved
	outcomeReconciled
	outcomeRestored
	outcomeMarked
)

// Sweeper reconciles stored rooms against the live platform.
type Sweeper struct {
	*core
	cooldown *CooldownTracker
	grace    time.Duration
	workers  int
}

func NewSweeper(c *core, cooldown *CooldownTracker, grace time.Duration, workers int) *Sweeper {
	return &Sweeper{core: c, cooldown: cooldown, grace: grace, workers: workers}
}

// Sweep runs one full pass. Rooms are independent: a failure on one is logged
// and the pass continues, and cancelling ctx stops between rooms.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	var rooms []*Room
	err := s.retry.persist(ctx, "list rooms", func(ctx context.Context) error {
		var e error
		rooms, e = s.store.ListRooms(ctx)
		return e
	})
	if err != nil {
		return result, err
	}

	byGuild := make(map[snowflake.ID][]snowflake.ID)
	for _, r := range rooms {
		byGuild[r.GuildID] = append(byGuild[r.GuildID], r.RoomID)
	}

	var removed, reconciled, restored, marked atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.workers)
	for guildID, roomIDs := range byGuild {
		g.Go(func() error {
			for _, roomID := range roomIDs {
				if err := ctx.Err(); err != nil {
					return err
				}
				outcome, err := s.sweepRoom(ctx, roomID)
				if err != nil {
					slog.Error("Failed to sweep room",
						slog.String("type", "error"),
						slog.String("guild_id", guildID.String()),
						slog.String("room_id", roomID.String()),
						slog.Any("error", err),
					)
					continue
				}
				switch outcome {
				case outcomeRemoved:
					removed.Add(1)
				case outcomeReconciled:
					reconciled.Add(1)
				case outcomeRestored:
					restored.Add(1)
				case outcomeMarked:
					marked.Add(1)
				}
			}
			return nil
		})
	}
	err = g.Wait()

	result = SweepResult{
		Removed:    int(removed.Load()),
		Reconciled: int(reconciled.Load()),
		Restored:   int(restored.Load()),
		Marked:     int(marked.Load()),
	}
	if err != nil {
		return result, err
	}

	if s.cooldown != nil {
		if _, err := s.cooldown.Purge(ctx); err != nil {
			slog.Warn("Failed to purge cooldowns",
				slog.String("type", "db"),
				slog.Any("error", err))
		}
	}
	return result, nil
}

func (s *Sweeper) sweepRoom(ctx context.Context, roomID snowflake.ID) (sweepOutcome, error) {
	unlock, err := s.locks.Lock(ctx, roomID)
	if err != nil {
		return outcomeNone, err
	}
	defer unlock()

	var room *Room
	err = s.retry.persist(ctx, "get room", func(ctx context.Context) error {
		var e error
		room, e = s.store.GetRoom(ctx, roomID)
		return e
	})
	if errors.Is(err, ErrNotFound) {
		return outcomeNone, nil
	}
	if err != nil {
		return outcomeNone, err
	}

	exists, err := s.channelExists(ctx, room.GuildID, roomID)
	if err != nil {
		return outcomeNone, err
	}
	if !exists {
		if err := s.deleteRow(ctx, roomID); err != nil {
			return outcomeNone, err
		}
		slog.Info("Reconciled room without channel",
			slog.String("type", "sys"),
			slog.String("room_id", roomID.String()))
		return outcomeReconciled, nil
	}

	members, err := s.members(ctx, room.GuildID, roomID)
	if err != nil {
		return outcomeNone, err
	}
	if len(members) > 0 {
		switch {
		case !room.IsActive:
			return outcomeRestored, s.reactivate(ctx, roomID)
		case room.EmptySince != nil:
			// A join event was missed; the room is in use again.
			return outcomeNone, s.retry.persist(ctx, "touch room", func(ctx context.Context) error {
				return s.store.TouchRoom(ctx, roomID, s.now().UTC())
			})
		}
		return outcomeNone, nil
	}

	if room.IsActive {
		if room.EmptySince == nil {
			err := s.retry.persist(ctx, "mark room empty", func(ctx context.Context) error {
				_, e := s.store.MarkRoomEmpty(ctx, roomID, s.now().UTC())
				return e
			})
			return outcomeMarked, err
		}
		if s.now().Sub(*room.EmptySince) < s.grace {
			return outcomeNone, nil
		}

		var deactivated bool
		err := s.retry.persist(ctx, "deactivate room", func(ctx context.Context) error {
			var e error
			deactivated, e = s.store.DeactivateRoom(ctx, roomID, *room.EmptySince)
			return e
		})
		if err != nil || !deactivated {
			return outcomeNone, err
		}
	}

	// Last look right before the channel goes away.
	members, err = s.members(ctx, room.GuildID, roomID)
	if err != nil {
		return outcomeNone, err
	}
	if len(members) > 0 {
		return outcomeRestored, s.reactivate(ctx, roomID)
	}

	if err := s.deleteChannel(ctx, room.GuildID, roomID); err != nil {
		// The row stays inactive and the next pass tries again.
		return outcomeNone, err
	}
	if err := s.deleteRow(ctx, roomID); err != nil {
		return outcomeNone, err
	}
	slog.Info("Removed empty room",
		slog.String("type", "sys"),
		slog.String("room_id", roomID.String()),
		slog.String("guild_id", room.GuildID.String()),
	)
	return outcomeRemoved, nil
}

func (s *Sweeper) deleteRow(ctx context.Context, roomID snowflake.ID) error {
	return s.retry.persist(ctx, "delete room", func(ctx context.Context) error {
		_, e := s.store.DeleteRoom(ctx, roomID)
		return e
	})
}

func (s *Sweeper) reactivate(ctx context.Context, roomID snowflake.ID) error {
	slog.Info("Room got a member back during cleanup",
		slog.String("type", "sys"),
		slog.String("room_id", roomID.String()))
	return s.retry.persist(ctx, "reactivate room", func(ctx context.Context) error {
		return s.store.ReactivateRoom(ctx, roomID, s.now().UTC())
	})
}

// SweepScheduler runs Sweep on a cron schedule, never overlapping itself.
type SweepScheduler struct {
	sweeper *Sweeper
	spec    string
	timeout time.Duration
}

// NewSweepScheduler runs a sweep every interval. Each pass is bounded by
// timeout.
func NewSweepScheduler(sweeper *Sweeper, interval, timeout time.Duration) *SweepScheduler {
	return &SweepScheduler{
		sweeper: sweeper,
		spec:    "@every " + interval.String(),
		timeout: timeout,
	}
}

// Run blocks until ctx is done. A pass in flight is cancelled with ctx.
func (s *SweepScheduler) Run(ctx context.Context) {
	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(s.spec, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		slog.Error("Invalid sweep schedule",
			slog.String("type", "error"),
			slog.String("spec", s.spec),
			slog.Any("error", err))
		return
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

func (s *SweepScheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.sweeper.Sweep(sweepCtx)
	if err != nil {
		slog.Error("Sweep interrupted",
			slog.String("type", "error"),
			slog.Any("error", err),
			slog.Duration("took", time.Since(start)))
		return
	}
	if result == (SweepResult{}) {
		return
	}
	slog.Info("Sweep completed",
		slog.String("type", "sys"),
		slog.Int("removed", result.Removed),
		slog.Int("reconciled", result.Reconciled),
		slog.Int("restored", result.Restored),
		slog.Int("marked", result.Marked),
		slog.Duration("took", time.Since(start)),
	)
}
