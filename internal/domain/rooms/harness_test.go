package rooms_test

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/internal/gateways/buntstore"
	"github.com/stretchr/testify/require"
)

const testGuild = snowflake.ID(1)

type fakeChannel struct {
	guildID  snowflake.ID
	parentID snowflake.ID
	category bool
	spec     rooms.ChannelSpec
	members  []snowflake.ID
}

// fakePlatform is an in-memory guild. Channel and voice state changes made
// through it are visible to the engine immediately.
type fakePlatform struct {
	mu          sync.Mutex
	nextID      snowflake.ID
	channels    map[snowflake.ID]*fakeChannel
	names       map[snowflake.ID]string
	deletes     map[snowflake.ID]int
	disconnects []snowflake.ID
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		nextID:   1000,
		channels: map[snowflake.ID]*fakeChannel{},
		names:    map[snowflake.ID]string{},
		deletes:  map[snowflake.ID]int{},
	}
}

func (p *fakePlatform) newID() snowflake.ID {
	p.nextID++
	return p.nextID
}

func (p *fakePlatform) CreateCategory(_ context.Context, guildID snowflake.ID, _ string) (snowflake.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.newID()
	p.channels[id] = &fakeChannel{guildID: guildID, category: true}
	return id, nil
}

func (p *fakePlatform) CreateVoiceChannel(_ context.Context, guildID, parentID snowflake.ID, spec rooms.ChannelSpec) (snowflake.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.newID()
	p.channels[id] = &fakeChannel{guildID: guildID, parentID: parentID, spec: spec}
	return id, nil
}

func (p *fakePlatform) UpdateVoiceChannel(_ context.Context, channelID snowflake.ID, spec rooms.ChannelSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[channelID]
	if !ok {
		return rooms.ErrChannelGone
	}
	ch.spec = spec
	return nil
}

func (p *fakePlatform) DeleteChannel(_ context.Context, channelID snowflake.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletes[channelID]++
	if _, ok := p.channels[channelID]; !ok {
		return rooms.ErrChannelGone
	}
	delete(p.channels, channelID)
	return nil
}

func (p *fakePlatform) ChannelExists(_ context.Context, _, channelID snowflake.ID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.channels[channelID]
	return ok, nil
}

func (p *fakePlatform) ChannelMembers(_ context.Context, _, channelID snowflake.ID) ([]snowflake.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[channelID]
	if !ok {
		return nil, rooms.ErrChannelGone
	}
	return slices.Clone(ch.members), nil
}

func (p *fakePlatform) MemberName(_ context.Context, _, userID snowflake.ID) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if name, ok := p.names[userID]; ok {
		return name, nil
	}
	return "user" + userID.String(), nil
}

func (p *fakePlatform) MoveMember(_ context.Context, _, userID, channelID snowflake.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[channelID]
	if !ok {
		return rooms.ErrChannelGone
	}
	p.removeLocked(userID)
	ch.members = append(ch.members, userID)
	return nil
}

func (p *fakePlatform) DisconnectMember(_ context.Context, _, userID snowflake.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(userID)
	p.disconnects = append(p.disconnects, userID)
	return nil
}

func (p *fakePlatform) removeLocked(userID snowflake.ID) {
	for _, ch := range p.channels {
		ch.members = slices.DeleteFunc(ch.members, func(id snowflake.ID) bool { return id == userID })
	}
}

// join puts userID in channelID as if they connected themselves.
func (p *fakePlatform) join(userID, channelID snowflake.ID) {
	if err := p.MoveMember(context.Background(), testGuild, userID, channelID); err != nil {
		panic(err)
	}
}

func (p *fakePlatform) leave(userID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(userID)
}

// dropChannel deletes a channel behind the engine's back.
func (p *fakePlatform) dropChannel(channelID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.channels, channelID)
}

func (p *fakePlatform) exists(channelID snowflake.ID) bool {
	ok, _ := p.ChannelExists(context.Background(), testGuild, channelID)
	return ok
}

func (p *fakePlatform) spec(channelID snowflake.ID) rooms.ChannelSpec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channels[channelID].spec
}

func (p *fakePlatform) deleteCount(channelID snowflake.ID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deletes[channelID]
}

func (p *fakePlatform) voiceChannels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ch := range p.channels {
		if !ch.category {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc      *rooms.Service
	store    rooms.Store
	platform *fakePlatform
	clock    *fakeClock
	spawner  *rooms.Spawner
}

func fastRetry() rooms.RetryPolicy {
	return rooms.RetryPolicy{Attempts: 2, Base: time.Millisecond, Max: time.Millisecond}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := buntstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return newHarnessWith(t, store, newFakePlatform())
}

func newHarnessWith(t *testing.T, store rooms.Store, platform *fakePlatform) *harness {
	t.Helper()
	clock := newFakeClock()
	svc := rooms.NewService(store, platform, rooms.Config{
		CooldownWindow: 15 * time.Second,
		EmptyGrace:     30 * time.Second,
		SweepWorkers:   2,
		Retry:          fastRetry(),
		Clock:          clock.Now,
	})
	t.Cleanup(svc.Close)

	spawners, err := svc.Lifecycle.Setup(context.Background(), testGuild, 0, 1, rooms.DefaultSpawnerTemplate())
	require.NoError(t, err)
	require.Len(t, spawners, 1)

	return &harness{svc: svc, store: store, platform: platform, clock: clock, spawner: spawners[0]}
}

// createRoom runs the join-to-create flow for userID.
func (h *harness) createRoom(t *testing.T, userID snowflake.ID) *rooms.Room {
	t.Helper()
	h.platform.join(userID, h.spawner.ChannelID)
	room, err := h.svc.Lifecycle.CreateRoom(context.Background(), h.spawner.ChannelID, userID)
	require.NoError(t, err)
	return room
}
