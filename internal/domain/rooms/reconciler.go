package rooms

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

const eventTimeout = 30 * time.Second

// Event is a voice notification from the platform.
type Event interface {
	// Key is the channel the event is ordered by.
	Key() snowflake.ID
}

type VoiceJoined struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	UserID    snowflake.ID
	At        time.Time
}

func (e VoiceJoined) Key() snowflake.ID { return e.ChannelID }

type VoiceLeft struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	UserID    snowflake.ID
	At        time.Time
}

func (e VoiceLeft) Key() snowflake.ID { return e.ChannelID }

type ChannelDeleted struct {
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	At        time.Time
}

func (e ChannelDeleted) Key() snowflake.ID { return e.ChannelID }

type mailbox struct {
	queue []Event
}

// mailboxKey orders events. Joins of a known spawner are keyed per user so
// one slow creation does not hold up everyone else joining that spawner.
type mailboxKey struct {
	channelID snowflake.ID
	userID    snowflake.ID
}

// Reconciler turns voice notifications into room operations. Events for one
// channel run in arrival order on a single goroutine; different channels run
// in parallel. A goroutine exists only while its mailbox has work.
type Reconciler struct {
	lifecycle *LifecycleManager
	ownership *OwnershipManager

	mailboxes *xsync.MapOf[mailboxKey, *mailbox]
	pending   sync.WaitGroup
	// mu orders pending.Add in Dispatch against pending.Wait in Close.
	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewReconciler(lifecycle *LifecycleManager, ownership *OwnershipManager) *Reconciler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		lifecycle: lifecycle,
		ownership: ownership,
		mailboxes: xsync.NewMapOf[mailboxKey, *mailbox](),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (r *Reconciler) keyOf(ev Event) mailboxKey {
	key := mailboxKey{channelID: ev.Key()}
	if join, ok := ev.(VoiceJoined); ok && r.lifecycle.KnownSpawner(join.ChannelID) {
		key.userID = join.UserID
	}
	return key
}

// Dispatch queues ev and returns immediately. Events after Close are dropped.
func (r *Reconciler) Dispatch(ev Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	key := r.keyOf(ev)
	r.pending.Add(1)
	spawn := false
	r.mailboxes.Compute(key, func(mb *mailbox, loaded bool) (*mailbox, bool) {
		if !loaded {
			mb = &mailbox{}
			spawn = true
		}
		mb.queue = append(mb.queue, ev)
		return mb, false
	})
	if spawn {
		go r.drain(key)
	}
}

func (r *Reconciler) drain(key mailboxKey) {
	for {
		var ev Event
		r.mailboxes.Compute(key, func(mb *mailbox, loaded bool) (*mailbox, bool) {
			if !loaded || len(mb.queue) == 0 {
				return nil, true
			}
			ev = mb.queue[0]
			mb.queue[0] = nil
			mb.queue = mb.queue[1:]
			return mb, false
		})
		if ev == nil {
			return
		}
		r.handle(ev)
		r.pending.Done()
	}
}

// Wait blocks until every queued event has been handled. Callers must not
// dispatch concurrently with Wait.
func (r *Reconciler) Wait() {
	r.pending.Wait()
}

// Close stops accepting events, cancels in-flight work and waits for the
// queues to drain.
func (r *Reconciler) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.pending.Wait()
}

func (r *Reconciler) handle(ev Event) {
	ctx, cancel := context.WithTimeout(r.ctx, eventTimeout)
	defer cancel()

	switch ev := ev.(type) {
	case VoiceJoined:
		r.memberJoined(ctx, ev)
	case VoiceLeft:
		r.memberLeftRoom(ctx, ev)
	case ChannelDeleted:
		r.channelDeleted(ctx, ev)
	}
}

func (r *Reconciler) memberJoined(ctx context.Context, ev VoiceJoined) {
	isSpawner, err := r.lifecycle.IsSpawner(ctx, ev.ChannelID)
	if err != nil {
		logEventError("join", ev.ChannelID, ev.UserID, err)
		return
	}
	if isSpawner {
		r.memberJoinedSpawner(ctx, ev)
		return
	}
	err = r.ownership.HandleArrival(ctx, ev.ChannelID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		logEventError("join", ev.ChannelID, ev.UserID, err)
	}
}

func (r *Reconciler) memberJoinedSpawner(ctx context.Context, ev VoiceJoined) {
	_, err := r.lifecycle.CreateRoom(ctx, ev.ChannelID, ev.UserID)
	var limited *RateLimitedError
	switch {
	case err == nil:
	case errors.As(err, &limited):
		slog.Debug("Room creation on cooldown",
			slog.String("type", "sys"),
			slog.String("user_id", ev.UserID.String()),
			slog.Duration("retry_after", limited.RetryAfter),
		)
	case errors.Is(err, ErrSpawnerNotFound):
	default:
		logEventError("create room", ev.ChannelID, ev.UserID, err)
	}
}

func (r *Reconciler) memberLeftRoom(ctx context.Context, ev VoiceLeft) {
	_, err := r.ownership.HandleDeparture(ctx, ev.ChannelID, ev.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		logEventError("leave", ev.ChannelID, ev.UserID, err)
	}
}

func (r *Reconciler) channelDeleted(ctx context.Context, ev ChannelDeleted) {
	deleted, err := r.lifecycle.ForgetRoom(ctx, ev.ChannelID)
	if err != nil {
		logEventError("channel delete", ev.ChannelID, 0, err)
		return
	}
	if deleted {
		return
	}
	deleted, err = r.lifecycle.ForgetSpawner(ctx, ev.ChannelID)
	if err != nil {
		logEventError("channel delete", ev.ChannelID, 0, err)
		return
	}
	if deleted {
		slog.Info("Spawner deleted externally",
			slog.String("type", "sys"),
			slog.String("channel_id", ev.ChannelID.String()))
	}
}

func logEventError(event string, channelID, userID snowflake.ID, err error) {
	attrs := []any{
		slog.String("type", "error"),
		slog.String("event", event),
		slog.String("channel_id", channelID.String()),
		slog.Any("error", err),
	}
	if userID != 0 {
		attrs = append(attrs, slog.String("user_id", userID.String()))
	}
	slog.Error("Failed to handle voice event", attrs...)
}
