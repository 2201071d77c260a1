// Package buntstore keeps room state in an embedded buntdb file. Use
// ":memory:" as the path for a throwaway store.
package buntstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/logger"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/tidwall/buntdb"
)

const (
	spawnerPrefix  = "spawner:"
	roomPrefix     = "room:"
	templatePrefix = "template:"
	cooldownPrefix = "cooldown:"
)

type Store struct {
	db *buntdb.DB
}

var _ rooms.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb %q: %w", path, err)
	}
	if err := db.CreateIndex("rooms_by_created", roomPrefix+"*", buntdb.IndexJSON("Room.CreatedAt")); err != nil {
		db.Close()
		return nil, fmt.Errorf("create room index: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) view(op string, fn func(tx *buntdb.Tx) error) error {
	ql := logger.NewQueryLogger(op, "buntdb view")
	err := s.db.View(fn)
	ql.Log(ignoreNotFound(err), 0)
	return err
}

func (s *Store) update(op string, fn func(tx *buntdb.Tx) error) error {
	ql := logger.NewQueryLogger(op, "buntdb update")
	err := s.db.Update(fn)
	ql.Log(ignoreNotFound(err), 0)
	return err
}

// ignoreNotFound keeps expected misses out of the error log.
func ignoreNotFound(err error) error {
	if errors.Is(err, buntdb.ErrNotFound) || rooms.IsDomainError(err) {
		return nil
	}
	return err
}

func getJSON(tx *buntdb.Tx, key string, v any) error {
	raw, err := tx.Get(key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func setJSON(tx *buntdb.Tx, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, _, err = tx.Set(key, string(raw), nil)
	return err
}

func ctxErr(ctx context.Context) error {
	return ctx.Err()
}

// Spawners

func (s *Store) CreateSpawner(ctx context.Context, spawner *rooms.Spawner) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return s.update("create_spawner", func(tx *buntdb.Tx) error {
		return setJSON(tx, spawnerPrefix+spawner.ChannelID.String(), spawner)
	})
}

func (s *Store) GetSpawner(ctx context.Context, channelID snowflake.ID) (*rooms.Spawner, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var spawner rooms.Spawner
	err := s.view("get_spawner", func(tx *buntdb.Tx) error {
		return getJSON(tx, spawnerPrefix+channelID.String(), &spawner)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, rooms.ErrSpawnerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &spawner, nil
}

func (s *Store) ListSpawners(ctx context.Context, guildID snowflake.ID) ([]*rooms.Spawner, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var spawners []*rooms.Spawner
	err := s.view("list_spawners", func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.AscendKeys(spawnerPrefix+"*", func(_, value string) bool {
			var sp rooms.Spawner
			if decodeErr = json.Unmarshal([]byte(value), &sp); decodeErr != nil {
				return false
			}
			if sp.GuildID == guildID {
				spawners = append(spawners, &sp)
			}
			return true
		})
		return errors.Join(err, decodeErr)
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(spawners, func(a, b *rooms.Spawner) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return spawners, nil
}

func (s *Store) DeleteSpawner(ctx context.Context, channelID snowflake.ID) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	deleted := false
	err := s.update("delete_spawner", func(tx *buntdb.Tx) error {
		_, err := tx.Delete(spawnerPrefix + channelID.String())
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		deleted = err == nil
		return err
	})
	return deleted, err
}

// Rooms

func (s *Store) CreateRoom(ctx context.Context, state *rooms.RoomState) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return s.update("create_room", func(tx *buntdb.Tx) error {
		key := roomPrefix + state.Room.RoomID.String()
		if _, err := tx.Get(key); err == nil {
			return fmt.Errorf("room %s already exists", state.Room.RoomID)
		}
		return setJSON(tx, key, state)
	})
}

func (s *Store) GetRoom(ctx context.Context, roomID snowflake.ID) (*rooms.Room, error) {
	state, err := s.GetRoomState(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &state.Room, nil
}

func (s *Store) GetRoomState(ctx context.Context, roomID snowflake.ID) (*rooms.RoomState, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var state rooms.RoomState
	err := s.view("get_room", func(tx *buntdb.Tx) error {
		return getJSON(tx, roomPrefix+roomID.String(), &state)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, rooms.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) eachRoom(op string, fn func(state *rooms.RoomState)) error {
	return s.view(op, func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.Ascend("rooms_by_created", func(_, value string) bool {
			var state rooms.RoomState
			if decodeErr = json.Unmarshal([]byte(value), &state); decodeErr != nil {
				return false
			}
			fn(&state)
			return true
		})
		return errors.Join(err, decodeErr)
	})
}

func (s *Store) ListRooms(ctx context.Context) ([]*rooms.Room, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var list []*rooms.Room
	err := s.eachRoom("list_rooms", func(state *rooms.RoomState) {
		room := state.Room
		list = append(list, &room)
	})
	return list, err
}

// ListRoomViews lists active rooms, oldest first.
func (s *Store) ListRoomViews(ctx context.Context, guildID *snowflake.ID) ([]rooms.RoomView, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	views := []rooms.RoomView{}
	err := s.eachRoom("list_room_views", func(state *rooms.RoomState) {
		if !state.Room.IsActive {
			return
		}
		if guildID != nil && state.Room.GuildID != *guildID {
			return
		}
		views = append(views, state.View())
	})
	return views, err
}

func (s *Store) DeleteRoom(ctx context.Context, roomID snowflake.ID) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	deleted := false
	err := s.update("delete_room", func(tx *buntdb.Tx) error {
		_, err := tx.Delete(roomPrefix + roomID.String())
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		deleted = err == nil
		return err
	})
	return deleted, err
}

// modifyRoom applies fn to the stored state inside one write transaction. fn
// returns false to leave the row untouched.
func (s *Store) modifyRoom(ctx context.Context, op string, roomID snowflake.ID, fn func(state *rooms.RoomState) (bool, error)) (bool, error) {
	if err := ctxErr(ctx); err != nil {
		return false, err
	}
	changed := false
	err := s.update(op, func(tx *buntdb.Tx) error {
		key := roomPrefix + roomID.String()
		var state rooms.RoomState
		if err := getJSON(tx, key, &state); err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return rooms.ErrNotFound
			}
			return err
		}
		ok, err := fn(&state)
		if err != nil || !ok {
			return err
		}
		changed = true
		return setJSON(tx, key, &state)
	})
	return changed, err
}

func sameOwner(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *Store) CompareAndSwapOwner(ctx context.Context, roomID snowflake.ID, expected, next *snowflake.ID) (bool, error) {
	swapped, err := s.modifyRoom(ctx, "swap_owner", roomID, func(state *rooms.RoomState) (bool, error) {
		if !state.Room.IsActive || !sameOwner(state.Room.OwnerID, expected) {
			return false, nil
		}
		if next != nil {
			owner := *next
			state.Room.OwnerID = &owner
		} else {
			state.Room.OwnerID = nil
		}
		return true, nil
	})
	if errors.Is(err, rooms.ErrNotFound) {
		return false, nil
	}
	return swapped, err
}

func (s *Store) TouchRoom(ctx context.Context, roomID snowflake.ID, at time.Time) error {
	_, err := s.modifyRoom(ctx, "touch_room", roomID, func(state *rooms.RoomState) (bool, error) {
		state.Room.LastActivityAt = at
		state.Room.EmptySince = nil
		return true, nil
	})
	return err
}

func (s *Store) MarkRoomEmpty(ctx context.Context, roomID snowflake.ID, at time.Time) (bool, error) {
	return s.modifyRoom(ctx, "mark_room_empty", roomID, func(state *rooms.RoomState) (bool, error) {
		if state.Room.EmptySince != nil {
			return false, nil
		}
		state.Room.EmptySince = &at
		return true, nil
	})
}

func (s *Store) DeactivateRoom(ctx context.Context, roomID snowflake.ID, emptySince time.Time) (bool, error) {
	ok, err := s.modifyRoom(ctx, "deactivate_room", roomID, func(state *rooms.RoomState) (bool, error) {
		r := &state.Room
		if !r.IsActive || r.EmptySince == nil || !r.EmptySince.Equal(emptySince) {
			return false, nil
		}
		r.IsActive = false
		return true, nil
	})
	if errors.Is(err, rooms.ErrNotFound) {
		return false, nil
	}
	return ok, err
}

func (s *Store) ReactivateRoom(ctx context.Context, roomID snowflake.ID, at time.Time) error {
	_, err := s.modifyRoom(ctx, "reactivate_room", roomID, func(state *rooms.RoomState) (bool, error) {
		state.Room.IsActive = true
		state.Room.EmptySince = nil
		state.Room.LastActivityAt = at
		return true, nil
	})
	return err
}

func (s *Store) UpdateSettings(ctx context.Context, settings rooms.Settings) error {
	_, err := s.modifyRoom(ctx, "update_settings", settings.RoomID, func(state *rooms.RoomState) (bool, error) {
		state.Settings = settings
		return true, nil
	})
	return err
}

// Templates and live overrides

func upsertEntry(entries []rooms.PermissionEntry, entry rooms.PermissionEntry) []rooms.PermissionEntry {
	for i := range entries {
		if entries[i].Target.ID == entry.Target.ID {
			entries[i] = entry
			return entries
		}
	}
	return append(entries, entry)
}

func removeEntry(entries []rooms.PermissionEntry, targetID snowflake.ID) []rooms.PermissionEntry {
	return slices.DeleteFunc(entries, func(e rooms.PermissionEntry) bool {
		return e.Target.ID == targetID
	})
}

func (s *Store) modifyTemplate(ctx context.Context, op string, userID snowflake.ID, fn func(t *rooms.UserTemplate)) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return s.update(op, func(tx *buntdb.Tx) error {
		key := templatePrefix + userID.String()
		tmpl := rooms.UserTemplate{UserID: userID}
		if err := getJSON(tx, key, &tmpl); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		fn(&tmpl)
		return setJSON(tx, key, &tmpl)
	})
}

func (s *Store) UpsertPermission(ctx context.Context, entry rooms.PermissionEntry) error {
	if entry.Scope == rooms.ScopeTemplate {
		return s.modifyTemplate(ctx, "upsert_template_permission", entry.Key, func(t *rooms.UserTemplate) {
			t.Permissions = upsertEntry(t.Permissions, entry)
		})
	}
	_, err := s.modifyRoom(ctx, "upsert_room_permission", entry.Key, func(state *rooms.RoomState) (bool, error) {
		state.Permissions = upsertEntry(state.Permissions, entry)
		return true, nil
	})
	return err
}

func (s *Store) DeletePermission(ctx context.Context, scope rooms.Scope, key, targetID snowflake.ID) error {
	if scope == rooms.ScopeTemplate {
		return s.modifyTemplate(ctx, "delete_template_permission", key, func(t *rooms.UserTemplate) {
			t.Permissions = removeEntry(t.Permissions, targetID)
		})
	}
	_, err := s.modifyRoom(ctx, "delete_room_permission", key, func(state *rooms.RoomState) (bool, error) {
		state.Permissions = removeEntry(state.Permissions, targetID)
		return true, nil
	})
	return err
}

func (s *Store) SaveToggles(ctx context.Context, toggles rooms.Toggles) error {
	if toggles.Scope == rooms.ScopeTemplate {
		return s.modifyTemplate(ctx, "save_template_toggles", toggles.Key, func(t *rooms.UserTemplate) {
			t.Toggles = &toggles
		})
	}
	_, err := s.modifyRoom(ctx, "save_room_toggles", toggles.Key, func(state *rooms.RoomState) (bool, error) {
		state.Toggles = toggles
		return true, nil
	})
	return err
}

func (s *Store) GetUserTemplate(ctx context.Context, userID snowflake.ID) (*rooms.UserTemplate, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	tmpl := &rooms.UserTemplate{UserID: userID}
	err := s.view("get_user_template", func(tx *buntdb.Tx) error {
		return getJSON(tx, templatePrefix+userID.String(), tmpl)
	})
	if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
		return nil, err
	}
	return tmpl, nil
}

func (s *Store) DeleteUserTemplate(ctx context.Context, userID snowflake.ID) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return s.update("delete_user_template", func(tx *buntdb.Tx) error {
		_, err := tx.Delete(templatePrefix + userID.String())
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		return err
	})
}

// Cooldowns

func cooldownKey(userID, guildID snowflake.ID) string {
	return cooldownPrefix + guildID.String() + ":" + userID.String()
}

func parseStamp(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func (s *Store) AcquireCooldown(ctx context.Context, userID, guildID snowflake.ID, now time.Time, window time.Duration) (bool, time.Time, error) {
	if err := ctxErr(ctx); err != nil {
		return false, time.Time{}, err
	}
	allowed := false
	var last time.Time
	err := s.update("acquire_cooldown", func(tx *buntdb.Tx) error {
		key := cooldownKey(userID, guildID)
		raw, err := tx.Get(key)
		switch {
		case err == nil:
			last, err = parseStamp(raw)
			if err != nil {
				return err
			}
			if now.Sub(last) < window {
				return nil
			}
		case !errors.Is(err, buntdb.ErrNotFound):
			return err
		}
		allowed = true
		_, _, err = tx.Set(key, now.UTC().Format(time.RFC3339Nano), nil)
		return err
	})
	if err != nil {
		return false, time.Time{}, err
	}
	return allowed, last, nil
}

func (s *Store) ReleaseCooldown(ctx context.Context, userID, guildID snowflake.ID, stamp time.Time) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return s.update("release_cooldown", func(tx *buntdb.Tx) error {
		key := cooldownKey(userID, guildID)
		raw, err := tx.Get(key)
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		last, err := parseStamp(raw)
		if err != nil || !last.Equal(stamp) {
			return err
		}
		_, err = tx.Delete(key)
		return err
	})
}

func (s *Store) PurgeCooldowns(ctx context.Context, before time.Time) (int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	var purged int64
	err := s.update("purge_cooldowns", func(tx *buntdb.Tx) error {
		var stale []string
		err := tx.AscendKeys(cooldownPrefix+"*", func(key, value string) bool {
			if last, err := parseStamp(value); err == nil && last.Before(before) {
				stale = append(stale, key)
			}
			return true
		})
		if err != nil {
			return err
		}
		for _, key := range stale {
			if _, err := tx.Delete(key); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
			purged++
		}
		return nil
	})
	return purged, err
}
