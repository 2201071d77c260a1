package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ellavondegurechaff/gohye-voice/backend/handlers"
	"github.com/ellavondegurechaff/gohye-voice/backend/middleware"
	"github.com/ellavondegurechaff/gohye-voice/internal/gateways/database/repositories"
	"github.com/ellavondegurechaff/gohye-voice/voicebot"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/config"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/database"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "../config.toml", "path to config")
	flag.Parse()

	slog.SetDefault(slog.New(logger.NewHandler("VOICE-API", slog.LevelInfo)))

	cfg, err := voicebot.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load config", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Storage.Driver != config.StorageDriverPostgres {
		slog.Error("The API needs a shared store, set storage.driver = \"postgres\"",
			slog.String("type", "sys"),
			slog.String("driver", cfg.Storage.Driver))
		os.Exit(1)
	}
	if cfg.Web.Token == "" {
		slog.Error("The API needs web.token to be set", slog.String("type", "sys"))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Failed to connect to database", slog.String("type", "db"), slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	api := &handlers.API{
		Rooms:   repositories.NewRoomRepository(db.BunDB()),
		Version: version,
		Commit:  commit,
	}
	app := newApp(api, cfg.Web.Token)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("Starting API server", slog.String("type", "sys"), slog.String("address", cfg.Web.Addr))
		if err := app.Listen(cfg.Web.Addr); err != nil {
			slog.Error("Failed to start server", slog.String("type", "sys"), slog.Any("error", err))
		}
	}()

	<-c
	slog.Info("Shutting down API server...", slog.String("type", "sys"))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.String("type", "sys"), slog.Any("error", err))
	}
}

func newApp(api *handlers.API, token string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Voice Rooms API",
		ErrorHandler:          middleware.CustomErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.SecurityHeaders())
	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(middleware.LoggingMiddleware())

	app.Get("/health", api.HealthCheck)

	v := app.Group("/api", middleware.APIRateLimit(), middleware.BearerAuth(token))
	v.Get("/rooms", api.ListRooms)
	v.Get("/guilds/:id/rooms", api.ListGuildRooms)

	return app
}
