package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SpawnerTemplate mirrors the JSONB default_template column.
type SpawnerTemplate struct {
	NamePattern     string `json:"name_pattern"`
	UserLimit       int    `json:"user_limit"`
	PushToTalk      bool   `json:"push_to_talk"`
	PrioritySpeaker bool   `json:"priority_speaker"`
	Soundboard      bool   `json:"soundboard"`
	Locked          bool   `json:"locked"`
}

type Spawner struct {
	bun.BaseModel `bun:"table:spawners,alias:sp"`

	ChannelID       int64           `bun:"channel_id,pk"`
	GuildID         int64           `bun:"guild_id,notnull"`
	CategoryID      int64           `bun:"category_id,notnull"`
	DefaultTemplate SpawnerTemplate `bun:"default_template,type:jsonb,notnull"`
	CreatedAt       time.Time       `bun:"created_at,notnull"`
}

// Room is one live voice room. is_active=false marks a room being retired
// by the sweep.
type Room struct {
	bun.BaseModel `bun:"table:rooms,alias:r"`

	RoomID         int64      `bun:"room_id,pk"`
	GuildID        int64      `bun:"guild_id,notnull"`
	SpawnerID      int64      `bun:"spawner_id,notnull"`
	OwnerID        *int64     `bun:"owner_id"`
	CreatedAt      time.Time  `bun:"created_at,notnull"`
	LastActivityAt time.Time  `bun:"last_activity_at,notnull"`
	EmptySince     *time.Time `bun:"empty_since"`
	IsActive       bool       `bun:"is_active,notnull,default:true"`
}

type RoomSettings struct {
	bun.BaseModel `bun:"table:room_settings,alias:rs"`

	RoomID    int64  `bun:"room_id,pk"`
	Name      string `bun:"name,notnull"`
	UserLimit int    `bun:"user_limit,notnull,default:0"`
	Locked    bool   `bun:"locked,notnull,default:false"`
}

// PermissionEntry is keyed by room id in live scope and by user id in
// template scope.
type PermissionEntry struct {
	bun.BaseModel `bun:"table:permission_entries,alias:pe"`

	Scope      string `bun:"scope,pk"`
	KeyID      int64  `bun:"key_id,pk"`
	TargetID   int64  `bun:"target_id,pk"`
	TargetType string `bun:"target_type,notnull"`
	Mode       string `bun:"mode,notnull"`
}

type ToggleSet struct {
	bun.BaseModel `bun:"table:toggles,alias:tg"`

	Scope           string `bun:"scope,pk"`
	KeyID           int64  `bun:"key_id,pk"`
	PushToTalk      *bool  `bun:"push_to_talk"`
	PrioritySpeaker *bool  `bun:"priority_speaker"`
	Soundboard      *bool  `bun:"soundboard"`
}

type Cooldown struct {
	bun.BaseModel `bun:"table:cooldowns,alias:cd"`

	UserID        int64     `bun:"user_id,pk"`
	GuildID       int64     `bun:"guild_id,pk"`
	LastCreatedAt time.Time `bun:"last_created_at,notnull"`
}

// RoomView is the scan target for room listings.
type RoomView struct {
	RoomID         int64     `bun:"room_id"`
	GuildID        int64     `bun:"guild_id"`
	SpawnerID      int64     `bun:"spawner_id"`
	OwnerID        *int64    `bun:"owner_id"`
	Name           string    `bun:"name"`
	UserLimit      int       `bun:"user_limit"`
	Locked         bool      `bun:"locked"`
	CreatedAt      time.Time `bun:"created_at"`
	LastActivityAt time.Time `bun:"last_activity_at"`
}
