package voicebot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/internal/gateways/buntstore"
	"github.com/ellavondegurechaff/gohye-voice/internal/gateways/database/repositories"
	"github.com/ellavondegurechaff/gohye-voice/internal/gateways/platform"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/config"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/database"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/logger"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/services"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/utils"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Processes: utils.NewBackgroundProcessManager(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Processes *utils.BackgroundProcessManager
	Version   string
	Commit    string

	DB            *database.DB
	Store         rooms.Store
	Rooms         *rooms.Service
	SpacesService *services.SpacesService

	closeStore func() error
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(
			gateway.IntentGuilds,
			gateway.IntentGuildVoiceStates,
		)),
		bot.WithCacheConfigOpts(cache.WithCaches(
			cache.FlagGuilds,
			cache.FlagChannels,
			cache.FlagVoiceStates,
			cache.FlagMembers,
			cache.FlagRoles,
		)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

// SetupStorage opens the configured store.
func (b *Bot) SetupStorage(ctx context.Context) error {
	switch b.Cfg.Storage.Driver {
	case config.StorageDriverBuntDB:
		if dir := filepath.Dir(b.Cfg.Storage.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create storage dir: %w", err)
			}
		}
		store, err := buntstore.Open(b.Cfg.Storage.Path)
		if err != nil {
			return err
		}
		b.Store, b.closeStore = store, store.Close
	default:
		db, err := database.New(ctx, b.Cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.InitializeSchema(ctx); err != nil {
			db.Close()
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		b.DB = db
		b.Store = repositories.NewRoomRepository(db.BunDB())
		b.closeStore = func() error {
			db.Close()
			return nil
		}
	}

	logger.LogDB("Storage ready", slog.String("driver", b.Cfg.Storage.Driver))
	return nil
}

// SetupRooms wires the room engine to the store and the discord client.
func (b *Bot) SetupRooms() {
	b.Rooms = rooms.NewService(b.Store, platform.NewDiscord(b.Client), b.Cfg.Rooms.Engine())
}

// SetupSpaces connects the snapshot bucket when enabled.
func (b *Bot) SetupSpaces(ctx context.Context) error {
	if !b.Cfg.Spaces.Enabled {
		return nil
	}
	s, err := services.NewSpacesService(ctx,
		b.Cfg.Spaces.Key, b.Cfg.Spaces.Secret, b.Cfg.Spaces.Region, b.Cfg.Spaces.Bucket, b.Cfg.Spaces.Root)
	if err != nil {
		return err
	}
	b.SpacesService = s
	return nil
}

// StartBackground registers the sweep and the optional snapshot export.
func (b *Bot) StartBackground() {
	sweep := b.Rooms.Scheduler(b.Cfg.Rooms.SweepInterval.Std())
	b.Processes.StartProcess("room-sweep", "Removes empty voice rooms", sweep.Run)

	if b.SpacesService != nil {
		exporter := services.NewSnapshotExporter(b.Rooms, b.SpacesService, b.Cfg.Spaces.Interval.Std())
		b.Processes.StartProcess("room-snapshot", "Uploads active room snapshots", exporter.Run)
	}
}

// Dispatch forwards gateway voice events to the reconciler. Events that
// arrive before the engine is set up are dropped.
func (b *Bot) Dispatch(ev rooms.Event) {
	if b.Rooms == nil {
		return
	}
	b.Rooms.Reconciler.Dispatch(ev)
}

// VoiceChannelOf returns the voice channel userID is connected to.
func (b *Bot) VoiceChannelOf(guildID, userID snowflake.ID) (snowflake.ID, bool) {
	vs, ok := b.Client.Caches().VoiceState(guildID, userID)
	if !ok || vs.ChannelID == nil {
		return 0, false
	}
	return *vs.ChannelID, true
}

func (b *Bot) OnReady(_ *events.Ready) {
	logger.LogSystem("Voice room bot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithListeningActivity("join ➕ to create a room"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		logger.LogError("Failed to set presence", err)
	}
}

// Close stops background work, the reconciler and the store, in that order.
func (b *Bot) Close() {
	if err := b.Processes.Shutdown(config.ShutdownTimeout); err != nil {
		slog.Warn("Background processes did not stop in time", slog.String("type", "sys"))
	}
	if b.Rooms != nil {
		b.Rooms.Close()
	}
	if b.closeStore != nil {
		if err := b.closeStore(); err != nil {
			logger.LogError("Failed to close store", err)
		}
	}
}
