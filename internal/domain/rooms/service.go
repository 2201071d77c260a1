package rooms

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Service wires the managers over one store and one platform.
type Service struct {
	Cooldown   *CooldownTracker
	Lifecycle  *LifecycleManager
	Ownership  *OwnershipManager
	Sweeper    *Sweeper
	Reconciler *Reconciler

	core *core
}

func NewService(store Store, platform Platform, cfg Config) *Service {
	cfg = cfg.withDefaults()
	c := &core{
		store:    store,
		platform: platform,
		locks:    NewKeyedMutex(),
		retry:    cfg.Retry,
		now:      cfg.Clock,
	}
	cooldown := NewCooldownTracker(store, cfg.CooldownWindow)
	cooldown.retry = cfg.Retry
	cooldown.now = cfg.Clock
	lifecycle := NewLifecycleManager(c, cooldown, cfg.SpawnerCacheSize)
	ownership := NewOwnershipManager(c)

	return &Service{
		Cooldown:   cooldown,
		Lifecycle:  lifecycle,
		Ownership:  ownership,
		Sweeper:    NewSweeper(c, cooldown, cfg.EmptyGrace, cfg.SweepWorkers),
		Reconciler: NewReconciler(lifecycle, ownership),
		core:       c,
	}
}

// Scheduler returns a sweep runner for the background process manager.
func (s *Service) Scheduler(interval time.Duration) *SweepScheduler {
	return NewSweepScheduler(s.Sweeper, interval, max(interval*4, time.Minute))
}

// ListActiveRooms is the admin export across all guilds.
func (s *Service) ListActiveRooms(ctx context.Context) ([]RoomView, error) {
	return s.listViews(ctx, nil)
}

func (s *Service) ListGuildRooms(ctx context.Context, guildID snowflake.ID) ([]RoomView, error) {
	return s.listViews(ctx, &guildID)
}

func (s *Service) listViews(ctx context.Context, guildID *snowflake.ID) ([]RoomView, error) {
	var views []RoomView
	err := s.core.retry.persist(ctx, "list room views", func(ctx context.Context) error {
		var e error
		views, e = s.core.store.ListRoomViews(ctx, guildID)
		return e
	})
	return views, err
}

// Room returns an active room, or ErrNotFound.
func (s *Service) Room(ctx context.Context, roomID snowflake.ID) (*Room, error) {
	return s.core.room(ctx, roomID)
}

func (s *Service) RoomState(ctx context.Context, roomID snowflake.ID) (*RoomState, error) {
	return s.core.state(ctx, roomID)
}

// Close stops the event reconciler.
func (s *Service) Close() {
	s.Reconciler.Close()
}
