package rooms_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/internal/gateways/buntstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) guildRooms(t *testing.T) []rooms.RoomView {
	t.Helper()
	views, err := h.svc.ListGuildRooms(context.Background(), testGuild)
	require.NoError(t, err)
	return views
}

func TestReconciler_JoinSpawnerCreatesRoom(t *testing.T) {
	h := newHarness(t)
	user := snowflake.ID(10)
	h.platform.join(user, h.spawner.ChannelID)

	h.svc.Reconciler.Dispatch(rooms.VoiceJoined{GuildID: testGuild, ChannelID: h.spawner.ChannelID, UserID: user, At: h.clock.Now()})
	h.svc.Reconciler.Wait()

	views := h.guildRooms(t)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].OwnerID)
	assert.Equal(t, user, *views[0].OwnerID)
	assert.Equal(t, "user10's room", views[0].Name)
}

func TestReconciler_RepeatedJoinsAreThrottled(t *testing.T) {
	h := newHarness(t)
	user := snowflake.ID(10)
	h.platform.join(user, h.spawner.ChannelID)

	for i := 0; i < 5; i++ {
		h.svc.Reconciler.Dispatch(rooms.VoiceJoined{GuildID: testGuild, ChannelID: h.spawner.ChannelID, UserID: user})
	}
	h.svc.Reconciler.Wait()

	assert.Len(t, h.guildRooms(t), 1)
	assert.Equal(t, 2, h.platform.voiceChannels())
}

func TestReconciler_OwnerLeaves(t *testing.T) {
	h := newHarness(t)
	owner := snowflake.ID(10)
	room := h.createRoom(t, owner)
	h.platform.join(11, room.RoomID)
	h.platform.leave(owner)

	h.svc.Reconciler.Dispatch(rooms.VoiceLeft{GuildID: testGuild, ChannelID: room.RoomID, UserID: owner})
	h.svc.Reconciler.Wait()

	got, err := h.svc.Room(context.Background(), room.RoomID)
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID)
	assert.True(t, got.Abandoned())
	assert.True(t, h.platform.exists(room.RoomID))
}

func TestReconciler_EventsForOneChannelKeepOrder(t *testing.T) {
	h := newHarness(t)
	owner := snowflake.ID(10)
	room := h.createRoom(t, owner)
	h.platform.leave(owner)

	// Leave marks the room empty; the later join must clear it again.
	h.svc.Reconciler.Dispatch(rooms.VoiceLeft{GuildID: testGuild, ChannelID: room.RoomID, UserID: owner})
	h.platform.join(12, room.RoomID)
	h.svc.Reconciler.Dispatch(rooms.VoiceJoined{GuildID: testGuild, ChannelID: room.RoomID, UserID: 12})
	h.svc.Reconciler.Wait()

	got, err := h.svc.Room(context.Background(), room.RoomID)
	require.NoError(t, err)
	assert.Nil(t, got.EmptySince)
	assert.Nil(t, got.OwnerID)
}

func TestReconciler_ChannelDeleted(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	room := h.createRoom(t, 10)

	h.platform.dropChannel(room.RoomID)
	h.svc.Reconciler.Dispatch(rooms.ChannelDeleted{GuildID: testGuild, ChannelID: room.RoomID})
	h.svc.Reconciler.Wait()
	assert.Empty(t, h.guildRooms(t))

	h.platform.dropChannel(h.spawner.ChannelID)
	h.svc.Reconciler.Dispatch(rooms.ChannelDeleted{GuildID: testGuild, ChannelID: h.spawner.ChannelID})
	h.svc.Reconciler.Wait()

	isSpawner, err := h.svc.Lifecycle.IsSpawner(ctx, h.spawner.ChannelID)
	require.NoError(t, err)
	assert.False(t, isSpawner)
	spawners, err := h.svc.Lifecycle.ListSpawners(ctx, testGuild)
	require.NoError(t, err)
	assert.Empty(t, spawners)
}

func TestReconciler_UnknownChannelIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.svc.Reconciler.Dispatch(rooms.VoiceJoined{GuildID: testGuild, ChannelID: 4242, UserID: 10})
	h.svc.Reconciler.Dispatch(rooms.VoiceLeft{GuildID: testGuild, ChannelID: 4242, UserID: 10})
	h.svc.Reconciler.Dispatch(rooms.ChannelDeleted{GuildID: testGuild, ChannelID: 4242})
	h.svc.Reconciler.Wait()
	assert.Empty(t, h.guildRooms(t))
}

func TestReconciler_CloseIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.svc.Reconciler.Close()
	h.svc.Reconciler.Close()

	h.platform.join(10, h.spawner.ChannelID)
	h.svc.Reconciler.Dispatch(rooms.VoiceJoined{GuildID: testGuild, ChannelID: h.spawner.ChannelID, UserID: 10})
	h.svc.Reconciler.Wait()
	assert.Empty(t, h.guildRooms(t))
}

func TestScenario_RoomOutlivesOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, b := snowflake.ID(10), snowflake.ID(11)

	// A joins the spawner and gets a room with default settings.
	h.platform.join(a, h.spawner.ChannelID)
	h.svc.Reconciler.Dispatch(rooms.VoiceJoined{GuildID: testGuild, ChannelID: h.spawner.ChannelID, UserID: a})
	h.svc.Reconciler.Wait()
	views := h.guildRooms(t)
	require.Len(t, views, 1)
	roomID := views[0].RoomID
	assert.Equal(t, 0, views[0].UserLimit)

	state, err := h.svc.RoomState(ctx, roomID)
	require.NoError(t, err)
	assert.False(t, *state.Toggles.PushToTalk)

	require.NoError(t, h.svc.Ownership.SetLimit(ctx, roomID, a, 5))
	h.platform.join(b, roomID)

	// A leaves while B stays: the room survives without an owner.
	h.platform.leave(a)
	h.svc.Reconciler.Dispatch(rooms.VoiceLeft{GuildID: testGuild, ChannelID: roomID, UserID: a})
	h.svc.Reconciler.Wait()
	room, err := h.svc.Room(ctx, roomID)
	require.NoError(t, err)
	assert.Nil(t, room.OwnerID)

	require.NoError(t, h.svc.Ownership.Claim(ctx, roomID, b))
	state, err = h.svc.RoomState(ctx, roomID)
	require.NoError(t, err)
	assert.True(t, state.Room.IsOwnedBy(b))
	assert.Equal(t, 5, state.Settings.UserLimit)
	assert.Equal(t, 5, h.platform.spec(roomID).UserLimit)

	// B leaves and the sweep reclaims the room once the grace period ends.
	h.platform.leave(b)
	h.svc.Reconciler.Dispatch(rooms.VoiceLeft{GuildID: testGuild, ChannelID: roomID, UserID: b})
	h.svc.Reconciler.Wait()
	assert.Equal(t, rooms.SweepResult{}, h.sweep(t))

	h.clock.Advance(31 * time.Second)
	assert.Equal(t, rooms.SweepResult{Removed: 1}, h.sweep(t))
	assert.False(t, h.platform.exists(roomID))
	_, err = h.store.GetRoom(ctx, roomID)
	assert.ErrorIs(t, err, rooms.ErrNotFound)
}

// slowNamePlatform stalls MemberName for one user until release is closed.
type slowNamePlatform struct {
	*fakePlatform
	slowUser snowflake.ID
	release  chan struct{}
}

func (p *slowNamePlatform) MemberName(ctx context.Context, guildID, userID snowflake.ID) (string, error) {
	if userID == p.slowUser {
		select {
		case <-p.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.fakePlatform.MemberName(ctx, guildID, userID)
}

func TestReconciler_SpawnerJoinsDoNotQueueBehindEachOther(t *testing.T) {
	store, err := buntstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	slow, fast := snowflake.ID(10), snowflake.ID(11)
	platform := &slowNamePlatform{fakePlatform: newFakePlatform(), slowUser: slow, release: make(chan struct{})}
	svc := rooms.NewService(store, platform, rooms.Config{Retry: fastRetry()})
	t.Cleanup(svc.Close)

	ctx := context.Background()
	spawners, err := svc.Lifecycle.Setup(ctx, testGuild, 0, 1, rooms.DefaultSpawnerTemplate())
	require.NoError(t, err)
	spawnerID := spawners[0].ChannelID

	platform.join(slow, spawnerID)
	platform.join(fast, spawnerID)
	svc.Reconciler.Dispatch(rooms.VoiceJoined{GuildID: testGuild, ChannelID: spawnerID, UserID: slow})
	svc.Reconciler.Dispatch(rooms.VoiceJoined{GuildID: testGuild, ChannelID: spawnerID, UserID: fast})

	require.Eventually(t, func() bool {
		views, err := svc.ListGuildRooms(ctx, testGuild)
		return err == nil && len(views) == 1 && views[0].OwnerID != nil && *views[0].OwnerID == fast
	}, 5*time.Second, 5*time.Millisecond)

	close(platform.release)
	svc.Reconciler.Wait()
	views, err := svc.ListGuildRooms(ctx, testGuild)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestReconciler_DispatchDuringClose(t *testing.T) {
	h := newHarness(t)
	h.platform.join(10, h.spawner.ChannelID)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.svc.Reconciler.Dispatch(rooms.VoiceLeft{GuildID: testGuild, ChannelID: snowflake.ID(5000 + j), UserID: 10})
			}
		}()
	}
	h.svc.Reconciler.Close()
	wg.Wait()

	// Anything dispatched after Close is dropped without starting work.
	h.svc.Reconciler.Dispatch(rooms.VoiceJoined{GuildID: testGuild, ChannelID: h.spawner.ChannelID, UserID: 10})
	h.svc.Reconciler.Wait()
	assert.Empty(t, h.guildRooms(t))
}
