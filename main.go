package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/voicebot"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/commands"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/handlers"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	slog.SetDefault(slog.New(logger.NewHandler("VOICE", slog.LevelInfo)))

	cfg, err := voicebot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}
	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Prefix, cfg.Log.Level)))

	slog.Info("Starting voice room bot",
		slog.String("type", "sys"),
		slog.String("version", version),
		slog.String("commit", commit))

	b := voicebot.New(*cfg, version, commit)

	initCtx, initCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer initCancel()

	storeStart := time.Now()
	if err := b.SetupStorage(initCtx); err != nil {
		slog.Error("Failed to set up storage",
			slog.String("type", "db"),
			slog.String("driver", cfg.Storage.Driver),
			slog.Any("error", err),
			slog.Duration("took", time.Since(storeStart)))
		os.Exit(-1)
	}

	if err := b.SetupSpaces(initCtx); err != nil {
		slog.Error("Failed to set up snapshot bucket", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(-1)
	}

	h := handler.New()
	registerCommands(h, b)

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady), handlers.VoiceListener(b)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}
	b.SetupRooms()
	b.StartBackground()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	gatewayCtx, gatewayCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gatewayCancel()
	if err = b.Client.OpenGateway(gatewayCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		b.Close()
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...", slog.String("type", "sys"))

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	b.Client.Close(closeCtx)
	b.Close()
}

func registerCommands(h *handler.Mux, b *voicebot.Bot) {
	cmd := func(name string, fn handler.CommandHandler) {
		h.Command("/"+name, handlers.WrapWithLogging(name, fn))
	}

	cmd("setup", commands.SetupHandler(b))
	cmd("teardown", commands.TeardownHandler(b))

	cmd("permit", commands.PermissionHandler(b, rooms.ModePermit))
	cmd("reject", commands.PermissionHandler(b, rooms.ModeReject))
	cmd("unpermit", commands.PermissionHandler(b, rooms.ModeClear))

	cmd("ptt", commands.ToggleHandler(b, rooms.TogglePushToTalk))
	cmd("priority", commands.ToggleHandler(b, rooms.TogglePrioritySpeaker))
	cmd("soundboard", commands.ToggleHandler(b, rooms.ToggleSoundboard))

	cmd("lock", commands.LockHandler(b, true))
	cmd("unlock", commands.LockHandler(b, false))
	cmd("name", commands.NameHandler(b))
	cmd("limit", commands.LimitHandler(b))

	cmd("close", commands.CloseHandler(b))
	cmd("reset", commands.ResetHandler(b))
	cmd("claim", commands.ClaimHandler(b))
	cmd("transfer", commands.TransferHandler(b))

	cmd("admin-reset", commands.AdminResetHandler(b))
	h.Autocomplete("/admin-reset", commands.AdminResetAutocomplete(b))
	cmd("rooms", commands.RoomsHandler(b))
}
