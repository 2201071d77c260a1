package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/config"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/logger"
)

// WrapWithLogging wraps a command handler with logging and a hard timeout.
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()
		user := []any{
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
		}

		slog.Debug("Command started", append([]any{
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("guild_id", guildString(e)),
			slog.String("channel_id", e.ChannelID().String()),
		}, user...)...)

		done := make(chan error, 1)
		go func() {
			done <- h(e)
		}()

		select {
		case err := <-done:
			logger.LogCommand(name, time.Since(start), config.SlowCommandThreshold, err, user...)
			return err

		case <-time.After(config.CommandExecutionTimeout):
			logger.LogCommandTimeout(name, config.CommandExecutionTimeout, user...)
			return fmt.Errorf("command timed out after %s", config.CommandExecutionTimeout)
		}
	}
}

func guildString(e *handler.CommandEvent) string {
	if id := e.GuildID(); id != nil {
		return id.String()
	}
	return "dm"
}
