package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/disgoorg/snowflake/v2"
	lru "github.com/hashicorp/golang-lru"
)

const (
	DefaultCategoryName = "Voice Rooms"
	DefaultSpawnerName  = "➕ Join to Create"
	MaxSpawnersPerSetup = 10
)

// notSpawner is cached for channels known not to be spawners.
type notSpawner struct{}

// LifecycleManager creates and destroys rooms and spawners.
type LifecycleManager struct {
	*core
	cooldown *CooldownTracker
	spawners *lru.Cache
}

func NewLifecycleManager(c *core, cooldown *CooldownTracker, cacheSize int) *LifecycleManager {
	cache, err := lru.New(cacheSize)
	if err != nil {
		panic(fmt.Sprintf("spawner cache: %v", err))
	}
	return &LifecycleManager{core: c, cooldown: cooldown, spawners: cache}
}

// Spawner returns the spawner definition for channelID, served from cache
// when possible.
func (m *LifecycleManager) Spawner(ctx context.Context, channelID snowflake.ID) (*Spawner, error) {
	if cached, ok := m.spawners.Get(channelID); ok {
		if s, ok := cached.(*Spawner); ok {
			return s, nil
		}
		return nil, ErrSpawnerNotFound
	}

	var spawner *Spawner
	err := m.retry.persist(ctx, "get spawner", func(ctx context.Context) error {
		var e error
		spawner, e = m.store.GetSpawner(ctx, channelID)
		return e
	})
	if errors.Is(err, ErrSpawnerNotFound) {
		m.spawners.Add(channelID, notSpawner{})
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	m.spawners.Add(channelID, spawner)
	return spawner, nil
}

// KnownSpawner reports whether the cache already holds channelID as a
// spawner. It never touches the store.
func (m *LifecycleManager) KnownSpawner(channelID snowflake.ID) bool {
	cached, ok := m.spawners.Peek(channelID)
	if !ok {
		return false
	}
	_, isSpawner := cached.(*Spawner)
	return isSpawner
}

func (m *LifecycleManager) IsSpawner(ctx context.Context, channelID snowflake.ID) (bool, error) {
	_, err := m.Spawner(ctx, channelID)
	if errors.Is(err, ErrSpawnerNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CreateRoom provisions a room for userID from the given spawner.
func (m *LifecycleManager) CreateRoom(ctx context.Context, spawnerID, userID snowflake.ID) (*Room, error) {
	spawner, err := m.Spawner(ctx, spawnerID)
	if err != nil {
		return nil, err
	}

	allowed, retryAfter, stamp, err := m.cooldown.TryAcquire(ctx, userID, spawner.GuildID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, &RateLimitedError{RetryAfter: retryAfter}
	}
	created := false
	defer func() {
		if !created {
			m.cooldown.Release(context.WithoutCancel(ctx), userID, spawner.GuildID, stamp)
		}
	}()

	var tmpl *UserTemplate
	err = m.retry.persist(ctx, "get user template", func(ctx context.Context) error {
		var e error
		tmpl, e = m.store.GetUserTemplate(ctx, userID)
		return e
	})
	if err != nil {
		return nil, err
	}

	ownerName := m.memberName(ctx, spawner.GuildID, userID)
	now := m.now().UTC()
	owner := userID
	state := ResolveTemplate(spawner, tmpl, ownerName).NewRoomState(Room{
		GuildID:        spawner.GuildID,
		SpawnerID:      spawner.ChannelID,
		OwnerID:        &owner,
		CreatedAt:      now,
		LastActivityAt: now,
		IsActive:       true,
	})

	var roomID snowflake.ID
	err = m.retry.platformCreate(ctx, "create channel", func(ctx context.Context) error {
		var e error
		roomID, e = m.platform.CreateVoiceChannel(ctx, spawner.GuildID, spawner.CategoryID, state.ChannelSpec())
		return e
	})
	if err != nil {
		return nil, err
	}

	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		m.compensate(ctx, spawner.GuildID, roomID)
		return nil, err
	}
	defer unlock()

	state.SetRoomID(roomID)
	err = m.retry.persist(ctx, "create room", func(ctx context.Context) error {
		return m.store.CreateRoom(ctx, state)
	})
	if err != nil {
		m.compensate(ctx, spawner.GuildID, roomID)
		return nil, err
	}
	created = true

	err = m.retry.platform(ctx, "move member", func(ctx context.Context) error {
		return m.platform.MoveMember(ctx, spawner.GuildID, userID, roomID)
	})
	if err != nil {
		// The room stays; if the user never arrives the sweep reclaims it.
		slog.Warn("Failed to move member into new room",
			slog.String("type", "sys"),
			slog.String("room_id", roomID.String()),
			slog.String("user_id", userID.String()),
			slog.Any("error", err),
		)
	}

	slog.Info("Room created",
		slog.String("type", "sys"),
		slog.String("room_id", roomID.String()),
		slog.String("guild_id", spawner.GuildID.String()),
		slog.String("spawner_id", spawner.ChannelID.String()),
		slog.String("owner_id", userID.String()),
	)
	room := state.Room
	return &room, nil
}

func (m *LifecycleManager) memberName(ctx context.Context, guildID, userID snowflake.ID) string {
	var name string
	err := m.retry.platform(ctx, "member name", func(ctx context.Context) error {
		var e error
		name, e = m.platform.MemberName(ctx, guildID, userID)
		return e
	})
	if err != nil || name == "" {
		return "Voice"
	}
	return name
}

// compensate removes a live channel whose row could not be written.
func (m *LifecycleManager) compensate(ctx context.Context, guildID, roomID snowflake.ID) {
	ctx = context.WithoutCancel(ctx)
	if err := m.deleteChannel(ctx, guildID, roomID); err != nil {
		slog.Error("Failed to delete channel after aborted room creation",
			slog.String("type", "error"),
			slog.String("room_id", roomID.String()),
			slog.Any("error", err),
		)
		return
	}
	slog.Warn("Rolled back room channel",
		slog.String("type", "sys"),
		slog.String("room_id", roomID.String()),
	)
}

// CloseRoom deletes a room on behalf of its owner, or of an admin.
func (m *LifecycleManager) CloseRoom(ctx context.Context, roomID, requesterID snowflake.ID, isAdmin bool) error {
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := m.room(ctx, roomID)
	if err != nil {
		return err
	}
	if !isAdmin && !room.IsOwnedBy(requesterID) {
		return ErrNotOwner
	}
	if err := m.destroy(ctx, room); err != nil {
		return err
	}
	slog.Info("Room closed",
		slog.String("type", "sys"),
		slog.String("room_id", roomID.String()),
		slog.String("requester_id", requesterID.String()),
	)
	return nil
}

// AdminReset force-deletes a room of guildID regardless of ownership. Rooms
// of other guilds are reported as ErrNotFound.
func (m *LifecycleManager) AdminReset(ctx context.Context, guildID, roomID, adminID snowflake.ID) error {
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := m.room(ctx, roomID)
	if err != nil {
		return err
	}
	if room.GuildID != guildID {
		slog.Warn("Rejected cross-guild room reset",
			slog.String("type", "admin"),
			slog.String("room_id", roomID.String()),
			slog.String("room_guild_id", room.GuildID.String()),
			slog.String("guild_id", guildID.String()),
			slog.String("admin_id", adminID.String()),
		)
		return ErrNotFound
	}
	owner := "none"
	if room.OwnerID != nil {
		owner = room.OwnerID.String()
	}
	slog.Warn("Privileged room reset",
		slog.String("type", "admin"),
		slog.String("room_id", roomID.String()),
		slog.String("guild_id", room.GuildID.String()),
		slog.String("admin_id", adminID.String()),
		slog.String("owner_id", owner),
	)
	return m.destroy(ctx, room)
}

// Setup creates count spawner channels in guildID. A new category is created
// when categoryID is zero.
func (m *LifecycleManager) Setup(ctx context.Context, guildID, categoryID snowflake.ID, count int, tmpl SpawnerTemplate) ([]*Spawner, error) {
	if count < 1 || count > MaxSpawnersPerSetup {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidArgument, MaxSpawnersPerSetup)
	}
	tmpl.UserLimit = clampLimit(tmpl.UserLimit)

	if categoryID == 0 {
		err := m.retry.platformCreate(ctx, "create category", func(ctx context.Context) error {
			var e error
			categoryID, e = m.platform.CreateCategory(ctx, guildID, DefaultCategoryName)
			return e
		})
		if err != nil {
			return nil, err
		}
	}

	spawners := make([]*Spawner, 0, count)
	for i := 0; i < count; i++ {
		name := DefaultSpawnerName
		if count > 1 {
			name = fmt.Sprintf("%s #%d", DefaultSpawnerName, i+1)
		}
		var channelID snowflake.ID
		err := m.retry.platformCreate(ctx, "create spawner channel", func(ctx context.Context) error {
			var e error
			channelID, e = m.platform.CreateVoiceChannel(ctx, guildID, categoryID, ChannelSpec{Name: name})
			return e
		})
		if err != nil {
			return spawners, err
		}

		spawner := &Spawner{
			GuildID:         guildID,
			ChannelID:       channelID,
			CategoryID:      categoryID,
			DefaultTemplate: tmpl,
			CreatedAt:       m.now().UTC(),
		}
		err = m.retry.persist(ctx, "create spawner", func(ctx context.Context) error {
			return m.store.CreateSpawner(ctx, spawner)
		})
		if err != nil {
			m.compensate(ctx, guildID, channelID)
			return spawners, err
		}
		m.spawners.Add(channelID, spawner)
		spawners = append(spawners, spawner)
	}

	slog.Info("Spawners set up",
		slog.String("type", "sys"),
		slog.String("guild_id", guildID.String()),
		slog.String("category_id", categoryID.String()),
		slog.Int("count", len(spawners)),
	)
	return spawners, nil
}

// Teardown deletes a spawner channel of guildID and its definition. Rooms it
// already created live on until they empty out.
func (m *LifecycleManager) Teardown(ctx context.Context, guildID, spawnerID snowflake.ID) error {
	spawner, err := m.Spawner(ctx, spawnerID)
	if err != nil {
		return err
	}
	if spawner.GuildID != guildID {
		return ErrSpawnerNotFound
	}
	if err := m.deleteChannel(ctx, spawner.GuildID, spawner.ChannelID); err != nil {
		return err
	}
	_, err = m.ForgetSpawner(ctx, spawnerID)
	return err
}

// ForgetSpawner drops the spawner definition without touching the channel.
func (m *LifecycleManager) ForgetSpawner(ctx context.Context, spawnerID snowflake.ID) (bool, error) {
	var deleted bool
	err := m.retry.persist(ctx, "delete spawner", func(ctx context.Context) error {
		var e error
		deleted, e = m.store.DeleteSpawner(ctx, spawnerID)
		return e
	})
	m.spawners.Remove(spawnerID)
	return deleted, err
}

// ForgetRoom drops the row of a room whose live channel disappeared.
func (m *LifecycleManager) ForgetRoom(ctx context.Context, roomID snowflake.ID) (bool, error) {
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return false, err
	}
	defer unlock()

	var deleted bool
	err = m.retry.persist(ctx, "delete room", func(ctx context.Context) error {
		var e error
		deleted, e = m.store.DeleteRoom(ctx, roomID)
		return e
	})
	if deleted {
		slog.Info("Room deleted externally, row removed",
			slog.String("type", "sys"),
			slog.String("room_id", roomID.String()),
		)
	}
	return deleted, err
}

func (m *LifecycleManager) ListSpawners(ctx context.Context, guildID snowflake.ID) ([]*Spawner, error) {
	var spawners []*Spawner
	err := m.retry.persist(ctx, "list spawners", func(ctx context.Context) error {
		var e error
		spawners, e = m.store.ListSpawners(ctx, guildID)
		return e
	})
	return spawners, err
}
