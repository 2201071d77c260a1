package rooms_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/internal/gateways/buntstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := snowflake.ID(10)
	h.platform.names[alice] = "alice"

	room := h.createRoom(t, alice)

	require.NotNil(t, room.OwnerID)
	assert.Equal(t, alice, *room.OwnerID)
	assert.True(t, room.IsActive)
	assert.Equal(t, h.spawner.ChannelID, room.SpawnerID)

	state, err := h.svc.RoomState(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, "alice's room", state.Settings.Name)
	assert.Zero(t, state.Settings.UserLimit)
	assert.False(t, *state.Toggles.PushToTalk)

	spec := h.platform.spec(room.RoomID)
	assert.Equal(t, "alice's room", spec.Name)

	members, err := h.platform.ChannelMembers(ctx, testGuild, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{alice}, members)
}

func TestCreateRoom_UnknownSpawner(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Lifecycle.CreateRoom(context.Background(), 4242, 10)
	assert.ErrorIs(t, err, rooms.ErrSpawnerNotFound)
}

func TestCreateRoom_ConcurrentRequestsCreateOneRoom(t *testing.T) {
	h := newHarness(t)
	user := snowflake.ID(10)
	h.platform.join(user, h.spawner.ChannelID)
	before := h.platform.voiceChannels()

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.svc.Lifecycle.CreateRoom(context.Background(), h.spawner.ChannelID, user)
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		var limited *rooms.RateLimitedError
		require.True(t, errors.As(err, &limited), "unexpected error %v", err)
		assert.Positive(t, limited.RetryAfter)
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, before+1, h.platform.voiceChannels())

	views, err := h.svc.ListGuildRooms(context.Background(), testGuild)
	require.NoError(t, err)
	assert.Len(t, views, 1)
}

func TestCreateRoom_CooldownExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := snowflake.ID(10)

	room := h.createRoom(t, user)
	require.NoError(t, h.svc.Lifecycle.CloseRoom(ctx, room.RoomID, user, false))

	_, err := h.svc.Lifecycle.CreateRoom(ctx, h.spawner.ChannelID, user)
	assert.ErrorIs(t, err, rooms.ErrRateLimited)

	h.clock.Advance(16 * time.Second)
	h.createRoom(t, user)
}

func TestCreateRoom_CooldownIsPerGuild(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := snowflake.ID(10)
	h.createRoom(t, user)

	other, err := h.svc.Lifecycle.Setup(ctx, 2, 0, 1, rooms.DefaultSpawnerTemplate())
	require.NoError(t, err)
	_, err = h.svc.Lifecycle.CreateRoom(ctx, other[0].ChannelID, user)
	assert.NoError(t, err)
}

func TestCreateRoom_AppliesTemplate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	user := snowflake.ID(10)
	friend := snowflake.ID(11)
	role := snowflake.ID(500)

	require.NoError(t, h.svc.Ownership.SetPermission(ctx, 0, user, rooms.Target{ID: friend, Type: rooms.TargetUser}, rooms.ModePermit, rooms.ScopeTemplate))
	require.NoError(t, h.svc.Ownership.SetPermission(ctx, 0, user, rooms.Target{ID: role, Type: rooms.TargetRole}, rooms.ModeReject, rooms.ScopeTemplate))
	require.NoError(t, h.svc.Ownership.SetToggle(ctx, 0, user, rooms.TogglePushToTalk, true, rooms.ScopeTemplate))

	room := h.createRoom(t, user)

	state, err := h.svc.RoomState(ctx, room.RoomID)
	require.NoError(t, err)
	assert.True(t, *state.Toggles.PushToTalk)
	require.Len(t, state.Permissions, 2)
	for _, p := range state.Permissions {
		assert.Equal(t, rooms.ScopeLive, p.Scope)
		assert.Equal(t, room.RoomID, p.Key)
	}

	var sawRole bool
	for _, ow := range h.platform.spec(room.RoomID).Overwrites {
		if r, ok := ow.(discord.RolePermissionOverwrite); ok && r.RoleID == role {
			sawRole = true
			assert.True(t, r.Deny.Has(discord.PermissionConnect))
		}
	}
	assert.True(t, sawRole)
}

func TestTemplateSurvivesRestart(t *testing.T) {
	path := t.TempDir() + "/rooms.db"
	ctx := context.Background()
	user := snowflake.ID(10)
	friend := snowflake.ID(11)

	store, err := buntstore.Open(path)
	require.NoError(t, err)
	h := newHarnessWith(t, store, newFakePlatform())
	require.NoError(t, h.svc.Ownership.SetPermission(ctx, 0, user, rooms.Target{ID: friend, Type: rooms.TargetUser}, rooms.ModePermit, rooms.ScopeTemplate))
	h.svc.Close()
	require.NoError(t, store.Close())

	reopened, err := buntstore.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	h2 := newHarnessWith(t, reopened, newFakePlatform())

	room := h2.createRoom(t, user)
	state, err := h2.svc.RoomState(ctx, room.RoomID)
	require.NoError(t, err)
	require.Len(t, state.Permissions, 1)
	assert.Equal(t, friend, state.Permissions[0].Target.ID)
	assert.Equal(t, rooms.ModePermit, state.Permissions[0].Mode)
}

// failingStore refuses to write rooms.
type failingStore struct {
	rooms.Store
	mu   sync.Mutex
	fail bool
}

func (s *failingStore) CreateRoom(ctx context.Context, state *rooms.RoomState) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.Store.CreateRoom(ctx, state)
}

func TestCreateRoom_PersistFailureRollsBack(t *testing.T) {
	inner, err := buntstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = inner.Close() })
	store := &failingStore{Store: inner, fail: true}
	h := newHarnessWith(t, store, newFakePlatform())
	ctx := context.Background()
	user := snowflake.ID(10)
	h.platform.join(user, h.spawner.ChannelID)
	before := h.platform.voiceChannels()

	_, err = h.svc.Lifecycle.CreateRoom(ctx, h.spawner.ChannelID, user)
	require.ErrorIs(t, err, rooms.ErrPersistence)
	assert.Equal(t, before, h.platform.voiceChannels())

	// The cooldown slot was handed back.
	store.mu.Lock()
	store.fail = false
	store.mu.Unlock()
	_, err = h.svc.Lifecycle.CreateRoom(ctx, h.spawner.ChannelID, user)
	assert.NoError(t, err)
}

func TestCloseRoom_Twice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := snowflake.ID(10)
	room := h.createRoom(t, owner)

	require.NoError(t, h.svc.Lifecycle.CloseRoom(ctx, room.RoomID, owner, false))
	err := h.svc.Lifecycle.CloseRoom(ctx, room.RoomID, owner, false)
	assert.ErrorIs(t, err, rooms.ErrNotFound)

	assert.Equal(t, 1, h.platform.deleteCount(room.RoomID))
	assert.False(t, h.platform.exists(room.RoomID))
	_, err = h.store.GetRoom(ctx, room.RoomID)
	assert.ErrorIs(t, err, rooms.ErrNotFound)
}

func TestCloseRoom_Authorization(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := snowflake.ID(10)
	admin := snowflake.ID(99)
	room := h.createRoom(t, owner)

	err := h.svc.Lifecycle.CloseRoom(ctx, room.RoomID, admin, false)
	assert.ErrorIs(t, err, rooms.ErrNotOwner)
	assert.True(t, h.platform.exists(room.RoomID))

	assert.NoError(t, h.svc.Lifecycle.CloseRoom(ctx, room.RoomID, admin, true))
	assert.False(t, h.platform.exists(room.RoomID))
}

func TestAdminReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room := h.createRoom(t, 10)

	require.NoError(t, h.svc.Lifecycle.AdminReset(ctx, testGuild, room.RoomID, 99))
	assert.False(t, h.platform.exists(room.RoomID))
	assert.ErrorIs(t, h.svc.Lifecycle.AdminReset(ctx, testGuild, room.RoomID, 99), rooms.ErrNotFound)
}

func TestAdminReset_OtherGuild(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room := h.createRoom(t, 10)
	otherGuild := snowflake.ID(2)

	err := h.svc.Lifecycle.AdminReset(ctx, otherGuild, room.RoomID, 99)
	assert.ErrorIs(t, err, rooms.ErrNotFound)
	assert.True(t, h.platform.exists(room.RoomID))
	assert.Zero(t, h.platform.deleteCount(room.RoomID))

	got, err := h.svc.Room(ctx, room.RoomID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestSetupAndTeardown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Lifecycle.Setup(ctx, testGuild, 0, 0, rooms.DefaultSpawnerTemplate())
	assert.ErrorIs(t, err, rooms.ErrInvalidArgument)

	spawners, err := h.svc.Lifecycle.Setup(ctx, testGuild, h.spawner.CategoryID, 2, rooms.SpawnerTemplate{NamePattern: "{user} zone", UserLimit: 500})
	require.NoError(t, err)
	require.Len(t, spawners, 2)
	assert.Equal(t, rooms.MaxUserLimit, spawners[0].DefaultTemplate.UserLimit)

	all, err := h.svc.Lifecycle.ListSpawners(ctx, testGuild)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.ErrorIs(t, h.svc.Lifecycle.Teardown(ctx, 2, spawners[0].ChannelID), rooms.ErrSpawnerNotFound)
	assert.True(t, h.platform.exists(spawners[0].ChannelID))

	require.NoError(t, h.svc.Lifecycle.Teardown(ctx, testGuild, spawners[0].ChannelID))
	assert.False(t, h.platform.exists(spawners[0].ChannelID))
	ok, err := h.svc.Lifecycle.IsSpawner(ctx, spawners[0].ChannelID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKnownSpawner(t *testing.T) {
	h := newHarness(t)
	room := h.createRoom(t, 10)

	assert.True(t, h.svc.Lifecycle.KnownSpawner(h.spawner.ChannelID))
	assert.False(t, h.svc.Lifecycle.KnownSpawner(room.RoomID))
	assert.False(t, h.svc.Lifecycle.KnownSpawner(9999))

	isSpawner, err := h.svc.Lifecycle.IsSpawner(context.Background(), room.RoomID)
	require.NoError(t, err)
	assert.False(t, isSpawner)
	assert.False(t, h.svc.Lifecycle.KnownSpawner(room.RoomID))
}
