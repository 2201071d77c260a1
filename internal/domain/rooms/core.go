package rooms

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Config tunes the engine. Zero values fall back to the defaults below.
type Config struct {
	CooldownWindow   time.Duration
	EmptyGrace       time.Duration
	SweepWorkers     int
	SpawnerCacheSize int
	Retry            RetryPolicy
	// Clock defaults to time.Now.
	Clock func() time.Time
}

const (
	DefaultCooldownWindow   = 15 * time.Second
	DefaultEmptyGrace       = 30 * time.Second
	DefaultSweepWorkers     = 4
	DefaultSpawnerCacheSize = 1024
)

func (c Config) withDefaults() Config {
	if c.CooldownWindow < 0 {
		c.CooldownWindow = 0
	} else if c.CooldownWindow == 0 {
		c.CooldownWindow = DefaultCooldownWindow
	}
	if c.EmptyGrace <= 0 {
		c.EmptyGrace = DefaultEmptyGrace
	}
	if c.SweepWorkers <= 0 {
		c.SweepWorkers = DefaultSweepWorkers
	}
	if c.SpawnerCacheSize <= 0 {
		c.SpawnerCacheSize = DefaultSpawnerCacheSize
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Retry.Attempts <= 0 {
		c.Retry = DefaultRetryPolicy()
	}
	return c
}

// core bundles what every manager needs to touch a room safely.
type core struct {
	store    Store
	platform Platform
	locks    *KeyedMutex
	retry    RetryPolicy
	now      func() time.Time
}

// room loads an active room. Rooms being retired by the sweep count as gone.
func (c *core) room(ctx context.Context, roomID snowflake.ID) (*Room, error) {
	var room *Room
	err := c.retry.persist(ctx, "get room", func(ctx context.Context) error {
		var e error
		room, e = c.store.GetRoom(ctx, roomID)
		return e
	})
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrNotFound
	}
	return room, nil
}

func (c *core) state(ctx context.Context, roomID snowflake.ID) (*RoomState, error) {
	var state *RoomState
	err := c.retry.persist(ctx, "get room state", func(ctx context.Context) error {
		var e error
		state, e = c.store.GetRoomState(ctx, roomID)
		return e
	})
	if err != nil {
		return nil, err
	}
	if !state.Room.IsActive {
		return nil, ErrNotFound
	}
	return state, nil
}

func (c *core) members(ctx context.Context, guildID, channelID snowflake.ID) ([]snowflake.ID, error) {
	var members []snowflake.ID
	err := c.retry.platform(ctx, "list members", func(ctx context.Context) error {
		var e error
		members, e = c.platform.ChannelMembers(ctx, guildID, channelID)
		return e
	})
	return members, err
}

func (c *core) isMember(ctx context.Context, guildID, channelID, userID snowflake.ID) (bool, error) {
	members, err := c.members(ctx, guildID, channelID)
	if err != nil {
		return false, err
	}
	return slices.Contains(members, userID), nil
}

// sync pushes the stored state to the live channel.
func (c *core) sync(ctx context.Context, roomID snowflake.ID) error {
	state, err := c.state(ctx, roomID)
	if err != nil {
		return err
	}
	err = c.retry.platform(ctx, "update channel", func(ctx context.Context) error {
		return c.platform.UpdateVoiceChannel(ctx, roomID, state.ChannelSpec())
	})
	if errors.Is(err, ErrChannelGone) {
		return ErrNotFound
	}
	return err
}

// deleteChannel removes a live channel; an already missing channel is success.
func (c *core) deleteChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	err := c.retry.platform(ctx, "delete channel", func(ctx context.Context) error {
		return c.platform.DeleteChannel(ctx, channelID)
	})
	if err == nil || errors.Is(err, ErrChannelGone) {
		return nil
	}
	// The delete may have landed even though the response got lost.
	exists, checkErr := c.channelExists(ctx, guildID, channelID)
	if checkErr == nil && !exists {
		return nil
	}
	return err
}

func (c *core) channelExists(ctx context.Context, guildID, channelID snowflake.ID) (bool, error) {
	var exists bool
	err := c.retry.platform(ctx, "check channel", func(ctx context.Context) error {
		var e error
		exists, e = c.platform.ChannelExists(ctx, guildID, channelID)
		return e
	})
	return exists, err
}

// destroy deletes the live channel first and the row second, so a failure in
// between leaves a row the sweep can reconcile rather than an untracked channel.
func (c *core) destroy(ctx context.Context, room *Room) error {
	if err := c.deleteChannel(ctx, room.GuildID, room.RoomID); err != nil {
		return err
	}
	var deleted bool
	err := c.retry.persist(ctx, "delete room", func(ctx context.Context) error {
		var e error
		deleted, e = c.store.DeleteRoom(ctx, room.RoomID)
		return e
	})
	if err != nil {
		return err
	}
	if !deleted {
		slog.Debug("Room row was already gone",
			slog.String("type", "db"),
			slog.String("room_id", room.RoomID.String()))
	}
	return nil
}
