package rooms

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

type Scope string

const (
	ScopeLive     Scope = "live"
	ScopeTemplate Scope = "template"
)

type TargetType string

const (
	TargetUser TargetType = "user"
	TargetRole TargetType = "role"
)

type Mode string

const (
	ModePermit Mode = "permit"
	ModeReject Mode = "reject"
	// ModeClear removes an existing entry for the target.
	ModeClear Mode = "clear"
)

type ToggleKind string

const (
	TogglePushToTalk      ToggleKind = "ptt"
	TogglePrioritySpeaker ToggleKind = "priority"
	ToggleSoundboard      ToggleKind = "soundboard"
)

// SpawnerTemplate holds the defaults a spawner applies to every room it creates.
type SpawnerTemplate struct {
	NamePattern     string `json:"name_pattern"`
	UserLimit       int    `json:"user_limit"`
	PushToTalk      bool   `json:"push_to_talk"`
	PrioritySpeaker bool   `json:"priority_speaker"`
	Soundboard      bool   `json:"soundboard"`
	Locked          bool   `json:"locked"`
}

func DefaultSpawnerTemplate() SpawnerTemplate {
	return SpawnerTemplate{
		NamePattern: "{user}'s room",
		Soundboard:  true,
	}
}

type Spawner struct {
	GuildID         snowflake.ID
	ChannelID       snowflake.ID
	CategoryID      snowflake.ID
	DefaultTemplate SpawnerTemplate
	CreatedAt       time.Time
}

type Room struct {
	RoomID         snowflake.ID
	GuildID        snowflake.ID
	SpawnerID      snowflake.ID
	OwnerID        *snowflake.ID
	CreatedAt      time.Time
	LastActivityAt time.Time
	EmptySince     *time.Time
	IsActive       bool
}

func (r *Room) IsOwnedBy(userID snowflake.ID) bool {
	return r.OwnerID != nil && *r.OwnerID == userID
}

// Abandoned reports whether the owner left while the room stayed in use.
func (r *Room) Abandoned() bool {
	return r.OwnerID == nil && r.EmptySince == nil
}

type Settings struct {
	RoomID    snowflake.ID
	Name      string
	UserLimit int
	Locked    bool
}

type Target struct {
	ID   snowflake.ID
	Type TargetType
}

type PermissionEntry struct {
	Scope Scope
	// Key is the room id for live entries and the user id for template entries.
	Key    snowflake.ID
	Target Target
	Mode   Mode
}

type Toggles struct {
	Scope           Scope
	Key             snowflake.ID
	PushToTalk      *bool
	PrioritySpeaker *bool
	Soundboard      *bool
}

func (t *Toggles) Get(kind ToggleKind) *bool {
	switch kind {
	case TogglePushToTalk:
		return t.PushToTalk
	case TogglePrioritySpeaker:
		return t.PrioritySpeaker
	case ToggleSoundboard:
		return t.Soundboard
	}
	return nil
}

func (t *Toggles) Set(kind ToggleKind, enabled bool) {
	v := enabled
	switch kind {
	case TogglePushToTalk:
		t.PushToTalk = &v
	case TogglePrioritySpeaker:
		t.PrioritySpeaker = &v
	case ToggleSoundboard:
		t.Soundboard = &v
	}
}

type CooldownEntry struct {
	UserID        snowflake.ID
	GuildID       snowflake.ID
	LastCreatedAt time.Time
}

// UserTemplate is everything a user has saved for future rooms.
type UserTemplate struct {
	UserID      snowflake.ID
	Toggles     *Toggles
	Permissions []PermissionEntry
}

// RoomState is the full persisted state of one room.
type RoomState struct {
	Room        Room
	Settings    Settings
	Toggles     Toggles
	Permissions []PermissionEntry
}

// RoomView is the read-only projection used by listings and exports.
type RoomView struct {
	RoomID         snowflake.ID  `json:"room_id"`
	GuildID        snowflake.ID  `json:"guild_id"`
	SpawnerID      snowflake.ID  `json:"spawner_id"`
	OwnerID        *snowflake.ID `json:"owner_id,omitempty"`
	Name           string        `json:"name"`
	UserLimit      int           `json:"user_limit"`
	Locked         bool          `json:"locked"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActivityAt time.Time     `json:"last_activity_at"`
}

// SetRoomID stamps the live channel id on every row of a freshly built state.
func (s *RoomState) SetRoomID(id snowflake.ID) {
	s.Room.RoomID = id
	s.Settings.RoomID = id
	s.Toggles.Key = id
	for i := range s.Permissions {
		s.Permissions[i].Key = id
	}
}

// View projects the state for listings.
func (s *RoomState) View() RoomView {
	return RoomView{
		RoomID:         s.Room.RoomID,
		GuildID:        s.Room.GuildID,
		SpawnerID:      s.Room.SpawnerID,
		OwnerID:        s.Room.OwnerID,
		Name:           s.Settings.Name,
		UserLimit:      s.Settings.UserLimit,
		Locked:         s.Settings.Locked,
		CreatedAt:      s.Room.CreatedAt,
		LastActivityAt: s.Room.LastActivityAt,
	}
}
