package rooms

import (
	"sort"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
)

const (
	MaxUserLimit  = 99
	MaxNameLength = 100

	permitPermissions = discord.PermissionViewChannel | discord.PermissionConnect
	ownerPermissions  = discord.PermissionViewChannel | discord.PermissionConnect | discord.PermissionSpeak
)

// RoomTemplate is the fully materialized configuration for a new room.
type RoomTemplate struct {
	Name            string
	UserLimit       int
	Locked          bool
	PushToTalk      bool
	PrioritySpeaker bool
	Soundboard      bool
	Permissions     []PermissionEntry
}

// ResolveTemplate merges the user's saved template over the spawner defaults.
// Toggles the user never set fall back to the spawner; permissions only come
// from the user.
func ResolveTemplate(spawner *Spawner, user *UserTemplate, ownerName string) RoomTemplate {
	def := spawner.DefaultTemplate
	tmpl := RoomTemplate{
		Name:            RenderName(def.NamePattern, ownerName),
		UserLimit:       clampLimit(def.UserLimit),
		Locked:          def.Locked,
		PushToTalk:      def.PushToTalk,
		PrioritySpeaker: def.PrioritySpeaker,
		Soundboard:      def.Soundboard,
	}
	if user == nil {
		return tmpl
	}
	if t := user.Toggles; t != nil {
		tmpl.PushToTalk = boolOr(t.PushToTalk, tmpl.PushToTalk)
		tmpl.PrioritySpeaker = boolOr(t.PrioritySpeaker, tmpl.PrioritySpeaker)
		tmpl.Soundboard = boolOr(t.Soundboard, tmpl.Soundboard)
	}
	for _, p := range user.Permissions {
		if p.Mode == ModeClear {
			continue
		}
		tmpl.Permissions = append(tmpl.Permissions, p)
	}
	return tmpl
}

// NewRoomState turns a resolved template into the rows stored for a new room.
func (t RoomTemplate) NewRoomState(room Room) *RoomState {
	state := &RoomState{
		Room: room,
		Settings: Settings{
			RoomID:    room.RoomID,
			Name:      t.Name,
			UserLimit: t.UserLimit,
			Locked:    t.Locked,
		},
		Toggles: Toggles{Scope: ScopeLive, Key: room.RoomID},
	}
	state.Toggles.Set(TogglePushToTalk, t.PushToTalk)
	state.Toggles.Set(TogglePrioritySpeaker, t.PrioritySpeaker)
	state.Toggles.Set(ToggleSoundboard, t.Soundboard)
	for _, p := range t.Permissions {
		state.Permissions = append(state.Permissions, PermissionEntry{
			Scope:  ScopeLive,
			Key:    room.RoomID,
			Target: p.Target,
			Mode:   p.Mode,
		})
	}
	return state
}

// ChannelSpec renders the live channel configuration for the state.
func (s *RoomState) ChannelSpec() ChannelSpec {
	return ChannelSpec{
		Name:       s.Settings.Name,
		UserLimit:  s.Settings.UserLimit,
		Overwrites: BuildOverwrites(s),
	}
}

// BuildOverwrites computes every permission overwrite a room needs. The
// guild id doubles as the @everyone role id.
func BuildOverwrites(s *RoomState) []discord.PermissionOverwrite {
	type bits struct{ allow, deny discord.Permissions }
	members := map[snowflake.ID]*bits{}
	roles := map[snowflake.ID]*bits{}

	get := func(m map[snowflake.ID]*bits, id snowflake.ID) *bits {
		b, ok := m[id]
		if !ok {
			b = &bits{}
			m[id] = b
		}
		return b
	}

	everyone := get(roles, s.Room.GuildID)
	if s.Settings.Locked {
		everyone.deny |= discord.PermissionConnect
	}
	if boolOr(s.Toggles.PushToTalk, false) {
		everyone.deny |= discord.PermissionUseVAD
	}
	if !boolOr(s.Toggles.Soundboard, true) {
		everyone.deny |= discord.PermissionUseSoundboard
	}

	for _, p := range s.Permissions {
		m := members
		if p.Target.Type == TargetRole {
			m = roles
		}
		b := get(m, p.Target.ID)
		switch p.Mode {
		case ModePermit:
			b.allow |= permitPermissions
			b.deny &^= permitPermissions
		case ModeReject:
			b.deny |= permitPermissions
			b.allow &^= permitPermissions
		}
	}

	if s.Room.OwnerID != nil {
		b := get(members, *s.Room.OwnerID)
		b.allow |= ownerPermissions
		b.deny &^= ownerPermissions
		if boolOr(s.Toggles.PrioritySpeaker, false) {
			b.allow |= discord.PermissionPrioritySpeaker
		}
	}

	out := make([]discord.PermissionOverwrite, 0, len(members)+len(roles))
	for _, id := range sortedKeys(roles) {
		b := roles[id]
		if b.allow == 0 && b.deny == 0 {
			continue
		}
		out = append(out, discord.RolePermissionOverwrite{RoleID: id, Allow: b.allow, Deny: b.deny})
	}
	for _, id := range sortedKeys(members) {
		b := members[id]
		if b.allow == 0 && b.deny == 0 {
			continue
		}
		out = append(out, discord.MemberPermissionOverwrite{UserID: id, Allow: b.allow, Deny: b.deny})
	}
	return out
}

// RenderName expands {user} in a spawner name pattern.
func RenderName(pattern string, ownerName string) string {
	if pattern == "" {
		pattern = DefaultSpawnerTemplate().NamePattern
	}
	name := strings.ReplaceAll(pattern, "{user}", ownerName)
	return truncateName(name)
}

func truncateName(name string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > MaxNameLength {
		name = string(r[:MaxNameLength])
	}
	return name
}

func clampLimit(limit int) int {
	return max(0, min(limit, MaxUserLimit))
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func sortedKeys[V any](m map[snowflake.ID]V) []snowflake.ID {
	keys := make([]snowflake.ID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
