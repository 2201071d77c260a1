package rooms

import (
	"strings"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestRenderName(t *testing.T) {
	assert.Equal(t, "ana's room", RenderName("", "ana"))
	assert.Equal(t, "Gaming with ana", RenderName("Gaming with {user}", "ana"))
	assert.Equal(t, "Lobby", RenderName("  Lobby ", "ana"))
	assert.Len(t, []rune(RenderName("{user}", strings.Repeat("é", 150))), MaxNameLength)
}

func TestResolveTemplate(t *testing.T) {
	spawner := &Spawner{DefaultTemplate: SpawnerTemplate{
		NamePattern: "{user}",
		UserLimit:   150,
		Soundboard:  true,
		PushToTalk:  true,
	}}

	tmpl := ResolveTemplate(spawner, nil, "ana")
	assert.Equal(t, RoomTemplate{Name: "ana", UserLimit: MaxUserLimit, PushToTalk: true, Soundboard: true}, tmpl)

	user := &UserTemplate{
		UserID:  10,
		Toggles: &Toggles{PushToTalk: ptr(false)},
		Permissions: []PermissionEntry{
			{Scope: ScopeTemplate, Key: 10, Target: Target{ID: 20, Type: TargetUser}, Mode: ModeReject},
			{Scope: ScopeTemplate, Key: 10, Target: Target{ID: 21, Type: TargetUser}, Mode: ModeClear},
		},
	}
	tmpl = ResolveTemplate(spawner, user, "ana")
	assert.False(t, tmpl.PushToTalk)
	assert.True(t, tmpl.Soundboard, "unset toggles fall back to the spawner")
	require.Len(t, tmpl.Permissions, 1)
	assert.Equal(t, snowflake.ID(20), tmpl.Permissions[0].Target.ID)

	state := tmpl.NewRoomState(Room{GuildID: 1})
	state.SetRoomID(500)
	require.Len(t, state.Permissions, 1)
	assert.Equal(t, ScopeLive, state.Permissions[0].Scope)
	assert.Equal(t, snowflake.ID(500), state.Permissions[0].Key)
	assert.Equal(t, snowflake.ID(500), state.Settings.RoomID)
}

func TestBuildOverwrites(t *testing.T) {
	owner := snowflake.ID(10)
	state := &RoomState{
		Room:     Room{GuildID: 1, OwnerID: &owner},
		Settings: Settings{Locked: true},
		Toggles:  Toggles{PushToTalk: ptr(true), Soundboard: ptr(false), PrioritySpeaker: ptr(true)},
		Permissions: []PermissionEntry{
			{Target: Target{ID: 20, Type: TargetUser}, Mode: ModePermit},
			{Target: Target{ID: 30, Type: TargetRole}, Mode: ModeReject},
		},
	}

	overwrites := BuildOverwrites(state)
	require.Len(t, overwrites, 4)

	everyone := overwrites[0].(discord.RolePermissionOverwrite)
	assert.Equal(t, snowflake.ID(1), everyone.RoleID)
	assert.Equal(t, discord.PermissionConnect|discord.PermissionUseVAD|discord.PermissionUseSoundboard, everyone.Deny)

	role := overwrites[1].(discord.RolePermissionOverwrite)
	assert.Equal(t, snowflake.ID(30), role.RoleID)
	assert.True(t, role.Deny.Has(discord.PermissionConnect))

	ownerOW := overwrites[2].(discord.MemberPermissionOverwrite)
	assert.Equal(t, owner, ownerOW.UserID)
	assert.True(t, ownerOW.Allow.Has(discord.PermissionConnect|discord.PermissionPrioritySpeaker))

	permitted := overwrites[3].(discord.MemberPermissionOverwrite)
	assert.Equal(t, snowflake.ID(20), permitted.UserID)
	assert.True(t, permitted.Allow.Has(discord.PermissionConnect))
}

func TestBuildOverwrites_OwnerBeatsReject(t *testing.T) {
	owner := snowflake.ID(10)
	state := &RoomState{
		Room: Room{GuildID: 1, OwnerID: &owner},
		Permissions: []PermissionEntry{
			{Target: Target{ID: owner, Type: TargetUser}, Mode: ModeReject},
		},
	}
	overwrites := BuildOverwrites(state)
	require.Len(t, overwrites, 1)
	ow := overwrites[0].(discord.MemberPermissionOverwrite)
	assert.False(t, ow.Deny.Has(discord.PermissionConnect))
	assert.True(t, ow.Allow.Has(discord.PermissionConnect))
}
