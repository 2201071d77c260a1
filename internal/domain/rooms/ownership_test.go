package rooms_test

import (
	"context"
	"sync"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// abandonedRoom returns a room whose owner left while members stayed.
func abandonedRoom(t *testing.T, h *harness, members ...snowflake.ID) *rooms.Room {
	t.Helper()
	owner := snowflake.ID(10)
	room := h.createRoom(t, owner)
	for _, m := range members {
		h.platform.join(m, room.RoomID)
	}
	h.platform.leave(owner)
	d, err := h.svc.Ownership.HandleDeparture(context.Background(), room.RoomID, owner)
	require.NoError(t, err)
	require.True(t, d.OwnerCleared)
	require.Equal(t, len(members) == 0, d.Empty)
	return room
}

func TestClaim_OneWinner(t *testing.T) {
	h := newHarness(t)
	claimants := []snowflake.ID{20, 21, 22, 23, 24, 25, 26, 27}
	room := abandonedRoom(t, h, claimants...)

	var wg sync.WaitGroup
	errs := make([]error, len(claimants))
	for i, c := range claimants {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = h.svc.Ownership.Claim(context.Background(), room.RoomID, c)
		}()
	}
	wg.Wait()

	var winner snowflake.ID
	for i, err := range errs {
		if err == nil {
			require.Zero(t, winner, "two claimants won")
			winner = claimants[i]
			continue
		}
		assert.ErrorIs(t, err, rooms.ErrAlreadyOwned)
	}
	require.NotZero(t, winner)

	got, err := h.svc.Room(context.Background(), room.RoomID)
	require.NoError(t, err)
	assert.True(t, got.IsOwnedBy(winner))
}

func TestClaim_Rules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	member := snowflake.ID(20)
	outsider := snowflake.ID(30)

	owned := h.createRoom(t, 40)
	assert.ErrorIs(t, h.svc.Ownership.Claim(ctx, owned.RoomID, 40), rooms.ErrAlreadyOwned)

	room := abandonedRoom(t, h, member)
	assert.ErrorIs(t, h.svc.Ownership.Claim(ctx, room.RoomID, outsider), rooms.ErrNotEligible)
	assert.ErrorIs(t, h.svc.Ownership.Claim(ctx, 777, member), rooms.ErrNotFound)
	require.NoError(t, h.svc.Ownership.Claim(ctx, room.RoomID, member))

	// The new owner gets the owner overwrite on the live channel.
	var found bool
	for _, ow := range h.platform.spec(room.RoomID).Overwrites {
		if m, ok := ow.(discord.MemberPermissionOverwrite); ok && m.UserID == member {
			found = m.Allow.Has(discord.PermissionConnect)
		}
	}
	assert.True(t, found)
}

func TestTransfer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := snowflake.ID(10)
	friend := snowflake.ID(11)
	outsider := snowflake.ID(12)
	room := h.createRoom(t, owner)
	h.platform.join(friend, room.RoomID)

	assert.ErrorIs(t, h.svc.Ownership.Transfer(ctx, room.RoomID, owner, owner), rooms.ErrInvalidArgument)
	assert.ErrorIs(t, h.svc.Ownership.Transfer(ctx, room.RoomID, friend, owner), rooms.ErrNotOwner)
	assert.ErrorIs(t, h.svc.Ownership.Transfer(ctx, room.RoomID, owner, outsider), rooms.ErrNotEligible)

	require.NoError(t, h.svc.Ownership.Transfer(ctx, room.RoomID, owner, friend))
	got, err := h.svc.Room(ctx, room.RoomID)
	require.NoError(t, err)
	assert.True(t, got.IsOwnedBy(friend))
}

func TestSettings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := snowflake.ID(10)
	other := snowflake.ID(11)
	room := h.createRoom(t, owner)

	require.NoError(t, h.svc.Ownership.SetName(ctx, room.RoomID, owner, "  study hall "))
	require.NoError(t, h.svc.Ownership.SetLimit(ctx, room.RoomID, owner, 5))
	require.NoError(t, h.svc.Ownership.SetLock(ctx, room.RoomID, owner, true))

	spec := h.platform.spec(room.RoomID)
	assert.Equal(t, "study hall", spec.Name)
	assert.Equal(t, 5, spec.UserLimit)
	var everyoneDenied bool
	for _, ow := range spec.Overwrites {
		if r, ok := ow.(discord.RolePermissionOverwrite); ok && r.RoleID == testGuild {
			everyoneDenied = r.Deny.Has(discord.PermissionConnect)
		}
	}
	assert.True(t, everyoneDenied)

	assert.ErrorIs(t, h.svc.Ownership.SetName(ctx, room.RoomID, other, "mine"), rooms.ErrNotOwner)
	assert.ErrorIs(t, h.svc.Ownership.SetLimit(ctx, room.RoomID, owner, rooms.MaxUserLimit+1), rooms.ErrInvalidArgument)
	assert.ErrorIs(t, h.svc.Ownership.SetName(ctx, room.RoomID, owner, "   "), rooms.ErrInvalidArgument)

	state, err := h.svc.RoomState(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Equal(t, "study hall", state.Settings.Name)
	assert.Equal(t, 5, state.Settings.UserLimit)
	assert.True(t, state.Settings.Locked)
}

func TestSetPermission_Live(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := snowflake.ID(10)
	troll := snowflake.ID(13)
	room := h.createRoom(t, owner)
	h.platform.join(troll, room.RoomID)

	target := rooms.Target{ID: troll, Type: rooms.TargetUser}
	assert.ErrorIs(t, h.svc.Ownership.SetPermission(ctx, room.RoomID, troll, rooms.Target{ID: owner, Type: rooms.TargetUser}, rooms.ModeReject, rooms.ScopeLive), rooms.ErrNotOwner)
	assert.ErrorIs(t, h.svc.Ownership.SetPermission(ctx, room.RoomID, owner, rooms.Target{ID: owner, Type: rooms.TargetUser}, rooms.ModeReject, rooms.ScopeLive), rooms.ErrInvalidArgument)

	require.NoError(t, h.svc.Ownership.SetPermission(ctx, room.RoomID, owner, target, rooms.ModeReject, rooms.ScopeLive))
	assert.Contains(t, h.platform.disconnects, troll)

	state, err := h.svc.RoomState(ctx, room.RoomID)
	require.NoError(t, err)
	require.Len(t, state.Permissions, 1)
	assert.Equal(t, rooms.ModeReject, state.Permissions[0].Mode)

	require.NoError(t, h.svc.Ownership.SetPermission(ctx, room.RoomID, owner, target, rooms.ModeClear, rooms.ScopeLive))
	state, err = h.svc.RoomState(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Empty(t, state.Permissions)

	// Live changes never leak into the owner's template.
	tmpl, err := h.svc.Ownership.Template(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, tmpl.Permissions)
}

func TestSetToggle_TemplateAlsoUpdatesOwnedRoom(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := snowflake.ID(10)
	room := h.createRoom(t, owner)

	require.NoError(t, h.svc.Ownership.SetToggle(ctx, room.RoomID, owner, rooms.ToggleSoundboard, false, rooms.ScopeTemplate))

	state, err := h.svc.RoomState(ctx, room.RoomID)
	require.NoError(t, err)
	assert.False(t, *state.Toggles.Soundboard)

	tmpl, err := h.svc.Ownership.Template(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, tmpl.Toggles)
	assert.False(t, *tmpl.Toggles.Soundboard)
	assert.Nil(t, tmpl.Toggles.PushToTalk)

	require.NoError(t, h.svc.Ownership.ResetTemplate(ctx, owner))
	tmpl, err = h.svc.Ownership.Template(ctx, owner)
	require.NoError(t, err)
	assert.Nil(t, tmpl.Toggles)
}

func TestSetToggle_UnknownKind(t *testing.T) {
	h := newHarness(t)
	err := h.svc.Ownership.SetToggle(context.Background(), 0, 10, rooms.ToggleKind("video"), true, rooms.ScopeTemplate)
	assert.ErrorIs(t, err, rooms.ErrInvalidArgument)
}

func TestHandleDeparture(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner := snowflake.ID(10)
	guest := snowflake.ID(11)
	room := h.createRoom(t, owner)
	h.platform.join(guest, room.RoomID)

	h.platform.leave(guest)
	d, err := h.svc.Ownership.HandleDeparture(ctx, room.RoomID, guest)
	require.NoError(t, err)
	assert.Equal(t, rooms.Departure{}, d)

	h.platform.leave(owner)
	d, err = h.svc.Ownership.HandleDeparture(ctx, room.RoomID, owner)
	require.NoError(t, err)
	assert.Equal(t, rooms.Departure{OwnerCleared: true, Empty: true}, d)

	got, err := h.svc.Room(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID)
	require.NotNil(t, got.EmptySince)
	assert.False(t, got.Abandoned())

	require.NoError(t, h.svc.Ownership.HandleArrival(ctx, room.RoomID))
	got, err = h.svc.Room(ctx, room.RoomID)
	require.NoError(t, err)
	assert.Nil(t, got.EmptySince)
}
