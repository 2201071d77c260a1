package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/snowflake/v2"
)

// OwnershipManager enforces who may change a room and how.
type OwnershipManager struct {
	*core
}

func NewOwnershipManager(c *core) *OwnershipManager {
	return &OwnershipManager{core: c}
}

// Claim hands an abandoned room to a member who is still inside it.
func (m *OwnershipManager) Claim(ctx context.Context, roomID, claimantID snowflake.ID) error {
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := m.room(ctx, roomID)
	if err != nil {
		return err
	}
	if room.OwnerID != nil {
		return ErrAlreadyOwned
	}
	present, err := m.isMember(ctx, room.GuildID, roomID, claimantID)
	if err != nil {
		return err
	}
	if !present {
		return ErrNotEligible
	}

	if err := m.swapOwner(ctx, roomID, nil, &claimantID); err != nil {
		return err
	}
	slog.Info("Room claimed",
		slog.String("type", "sys"),
		slog.String("room_id", roomID.String()),
		slog.String("owner_id", claimantID.String()),
	)
	m.syncAfterOwnerChange(ctx, roomID)
	return nil
}

// Transfer passes ownership from the current owner to another member.
func (m *OwnershipManager) Transfer(ctx context.Context, roomID, ownerID, newOwnerID snowflake.ID) error {
	if ownerID == newOwnerID {
		return fmt.Errorf("%w: already the owner", ErrInvalidArgument)
	}
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := m.room(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsOwnedBy(ownerID) {
		return ErrNotOwner
	}
	present, err := m.isMember(ctx, room.GuildID, roomID, newOwnerID)
	if err != nil {
		return err
	}
	if !present {
		return ErrNotEligible
	}
	if err := m.swapOwner(ctx, roomID, &ownerID, &newOwnerID); err != nil {
		if errors.Is(err, ErrAlreadyOwned) {
			return ErrNotOwner
		}
		return err
	}
	m.syncAfterOwnerChange(ctx, roomID)
	return nil
}

func (m *OwnershipManager) swapOwner(ctx context.Context, roomID snowflake.ID, expected, next *snowflake.ID) error {
	var swapped bool
	err := m.retry.persist(ctx, "swap owner", func(ctx context.Context) error {
		var e error
		swapped, e = m.store.CompareAndSwapOwner(ctx, roomID, expected, next)
		return e
	})
	if err != nil {
		return err
	}
	if !swapped {
		return ErrAlreadyOwned
	}
	return nil
}

// syncAfterOwnerChange refreshes owner overwrites. Ownership already changed
// in the store, so a platform failure here is only logged.
func (m *OwnershipManager) syncAfterOwnerChange(ctx context.Context, roomID snowflake.ID) {
	if err := m.sync(ctx, roomID); err != nil {
		slog.Warn("Failed to sync room after owner change",
			slog.String("type", "sys"),
			slog.String("room_id", roomID.String()),
			slog.Any("error", err),
		)
	}
}

// SetPermission permits, rejects or clears a target. Live scope needs
// ownership of roomID. Template scope is saved for actorID and, when actorID
// owns roomID, applied to it right away.
func (m *OwnershipManager) SetPermission(ctx context.Context, roomID, actorID snowflake.ID, target Target, mode Mode, scope Scope) error {
	if err := validatePermission(actorID, target, mode, scope); err != nil {
		return err
	}

	if scope == ScopeTemplate {
		entry := PermissionEntry{Scope: ScopeTemplate, Key: actorID, Target: target, Mode: mode}
		if err := m.writePermission(ctx, entry); err != nil {
			return err
		}
		if roomID == 0 {
			return nil
		}
		err := m.setLivePermission(ctx, roomID, actorID, target, mode)
		if errors.Is(err, ErrNotOwner) || errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return m.setLivePermission(ctx, roomID, actorID, target, mode)
}

func (m *OwnershipManager) setLivePermission(ctx context.Context, roomID, actorID snowflake.ID, target Target, mode Mode) error {
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	room, err := m.room(ctx, roomID)
	if err != nil {
		return err
	}
	if !room.IsOwnedBy(actorID) {
		return ErrNotOwner
	}
	entry := PermissionEntry{Scope: ScopeLive, Key: roomID, Target: target, Mode: mode}
	if err := m.writePermission(ctx, entry); err != nil {
		return err
	}
	if err := m.sync(ctx, roomID); err != nil {
		return err
	}

	if mode == ModeReject && target.Type == TargetUser {
		present, err := m.isMember(ctx, room.GuildID, roomID, target.ID)
		if err == nil && present {
			err = m.retry.platform(ctx, "disconnect member", func(ctx context.Context) error {
				return m.platform.DisconnectMember(ctx, room.GuildID, target.ID)
			})
		}
		if err != nil {
			slog.Warn("Failed to disconnect rejected member",
				slog.String("type", "sys"),
				slog.String("room_id", roomID.String()),
				slog.String("target_id", target.ID.String()),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

func (m *OwnershipManager) writePermission(ctx context.Context, entry PermissionEntry) error {
	return m.retry.persist(ctx, "write permission", func(ctx context.Context) error {
		if entry.Mode == ModeClear {
			return m.store.DeletePermission(ctx, entry.Scope, entry.Key, entry.Target.ID)
		}
		return m.store.UpsertPermission(ctx, entry)
	})
}

func validatePermission(actorID snowflake.ID, target Target, mode Mode, scope Scope) error {
	switch {
	case target.ID == 0:
		return fmt.Errorf("%w: missing target", ErrInvalidArgument)
	case target.Type != TargetUser && target.Type != TargetRole:
		return fmt.Errorf("%w: unknown target type %q", ErrInvalidArgument, target.Type)
	case mode != ModePermit && mode != ModeReject && mode != ModeClear:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, mode)
	case scope != ScopeLive && scope != ScopeTemplate:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidArgument, scope)
	case target.Type == TargetUser && target.ID == actorID && mode == ModeReject:
		return fmt.Errorf("%w: cannot reject yourself", ErrInvalidArgument)
	}
	return nil
}

// SetToggle switches push-to-talk, priority speaker or soundboard access.
// Scopes behave as in SetPermission.
func (m *OwnershipManager) SetToggle(ctx context.Context, roomID, actorID snowflake.ID, kind ToggleKind, enabled bool, scope Scope) error {
	switch kind {
	case TogglePushToTalk, TogglePrioritySpeaker, ToggleSoundboard:
	default:
		return fmt.Errorf("%w: unknown toggle %q", ErrInvalidArgument, kind)
	}

	switch scope {
	case ScopeTemplate:
		if err := m.saveTemplateToggle(ctx, actorID, kind, enabled); err != nil {
			return err
		}
		if roomID == 0 {
			return nil
		}
		err := m.setLiveToggle(ctx, roomID, actorID, kind, enabled)
		if errors.Is(err, ErrNotOwner) || errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	case ScopeLive:
		return m.setLiveToggle(ctx, roomID, actorID, kind, enabled)
	}
	return fmt.Errorf("%w: unknown scope %q", ErrInvalidArgument, scope)
}

func (m *OwnershipManager) saveTemplateToggle(ctx context.Context, userID snowflake.ID, kind ToggleKind, enabled bool) error {
	// Template rows are keyed by user, so the user id serializes their writes.
	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	return m.retry.persist(ctx, "save template toggles", func(ctx context.Context) error {
		tmpl, err := m.store.GetUserTemplate(ctx, userID)
		if err != nil {
			return err
		}
		toggles := Toggles{Scope: ScopeTemplate, Key: userID}
		if tmpl.Toggles != nil {
			toggles = *tmpl.Toggles
		}
		toggles.Set(kind, enabled)
		return m.store.SaveToggles(ctx, toggles)
	})
}

func (m *OwnershipManager) setLiveToggle(ctx context.Context, roomID, actorID snowflake.ID, kind ToggleKind, enabled bool) error {
	return m.mutate(ctx, roomID, actorID, func(state *RoomState) error {
		state.Toggles.Set(kind, enabled)
		return m.retry.persist(ctx, "save room toggles", func(ctx context.Context) error {
			return m.store.SaveToggles(ctx, state.Toggles)
		})
	})
}

func (m *OwnershipManager) SetLock(ctx context.Context, roomID, actorID snowflake.ID, locked bool) error {
	return m.updateSettings(ctx, roomID, actorID, func(s *Settings) error {
		s.Locked = locked
		return nil
	})
}

func (m *OwnershipManager) SetName(ctx context.Context, roomID, actorID snowflake.ID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidArgument, MaxNameLength)
	}
	return m.updateSettings(ctx, roomID, actorID, func(s *Settings) error {
		s.Name = name
		return nil
	})
}

func (m *OwnershipManager) SetLimit(ctx context.Context, roomID, actorID snowflake.ID, limit int) error {
	if limit < 0 || limit > MaxUserLimit {
		return fmt.Errorf("%w: limit must be between 0 and %d", ErrInvalidArgument, MaxUserLimit)
	}
	return m.updateSettings(ctx, roomID, actorID, func(s *Settings) error {
		s.UserLimit = limit
		return nil
	})
}

func (m *OwnershipManager) updateSettings(ctx context.Context, roomID, actorID snowflake.ID, fn func(*Settings) error) error {
	return m.mutate(ctx, roomID, actorID, func(state *RoomState) error {
		if err := fn(&state.Settings); err != nil {
			return err
		}
		return m.retry.persist(ctx, "update settings", func(ctx context.Context) error {
			return m.store.UpdateSettings(ctx, state.Settings)
		})
	})
}

// mutate runs an owner-only change under the room lock and pushes the result
// to the live channel.
func (m *OwnershipManager) mutate(ctx context.Context, roomID, actorID snowflake.ID, fn func(*RoomState) error) error {
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	state, err := m.state(ctx, roomID)
	if err != nil {
		return err
	}
	if !state.Room.IsOwnedBy(actorID) {
		return ErrNotOwner
	}
	if err := fn(state); err != nil {
		return err
	}
	return m.sync(ctx, roomID)
}

// ResetTemplate forgets everything userID saved for future rooms.
func (m *OwnershipManager) ResetTemplate(ctx context.Context, userID snowflake.ID) error {
	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	return m.retry.persist(ctx, "reset template", func(ctx context.Context) error {
		return m.store.DeleteUserTemplate(ctx, userID)
	})
}

func (m *OwnershipManager) Template(ctx context.Context, userID snowflake.ID) (*UserTemplate, error) {
	var tmpl *UserTemplate
	err := m.retry.persist(ctx, "get user template", func(ctx context.Context) error {
		var e error
		tmpl, e = m.store.GetUserTemplate(ctx, userID)
		return e
	})
	return tmpl, err
}

// Departure describes what a member leaving did to a room.
type Departure struct {
	OwnerCleared bool
	Empty        bool
}

// HandleDeparture clears the owner when they leave and marks empty rooms for
// the sweep. Rooms are never deleted here.
func (m *OwnershipManager) HandleDeparture(ctx context.Context, roomID, userID snowflake.ID) (Departure, error) {
	var d Departure
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return d, err
	}
	defer unlock()

	room, err := m.room(ctx, roomID)
	if err != nil {
		return d, err
	}

	if room.IsOwnedBy(userID) {
		owner := userID
		err := m.swapOwner(ctx, roomID, &owner, nil)
		if err != nil && !errors.Is(err, ErrAlreadyOwned) {
			return d, err
		}
		d.OwnerCleared = err == nil
	}

	members, err := m.members(ctx, room.GuildID, roomID)
	if err != nil {
		return d, err
	}
	d.Empty = len(members) == 0
	if d.Empty {
		err = m.retry.persist(ctx, "mark room empty", func(ctx context.Context) error {
			_, e := m.store.MarkRoomEmpty(ctx, roomID, m.now().UTC())
			return e
		})
		if err != nil {
			return d, err
		}
	} else if d.OwnerCleared {
		m.syncAfterOwnerChange(ctx, roomID)
	}

	if d.OwnerCleared {
		slog.Info("Room owner left",
			slog.String("type", "sys"),
			slog.String("room_id", roomID.String()),
			slog.String("user_id", userID.String()),
			slog.Bool("empty", d.Empty),
		)
	}
	return d, nil
}

// HandleArrival records activity so the sweep does not reclaim the room.
func (m *OwnershipManager) HandleArrival(ctx context.Context, roomID snowflake.ID) error {
	unlock, err := m.locks.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	return m.retry.persist(ctx, "touch room", func(ctx context.Context) error {
		return m.store.TouchRoom(ctx, roomID, m.now().UTC())
	})
}
