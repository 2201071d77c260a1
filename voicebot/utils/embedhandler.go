// File: utils/embedhandler.go

package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/gohye-voice/internal/domain/rooms"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/config"
)

// ResponseHandler provides standardized response methods for commands
type ResponseHandler struct{}

var EH = &ResponseHandler{}

// ErrorType represents different categories of errors for consistent handling
type ErrorType int

const (
	// UserError - User input issues, validation failures, parameter problems
	UserError ErrorType = iota
	// SystemError - Database failures, network issues, internal server errors
	SystemError
	// NotFoundError - Requested resources don't exist
	NotFoundError
	// PermissionError - Unauthorized actions, access denied
	PermissionError
	// BusinessLogicError - Cooldowns and room rule violations
	BusinessLogicError
)

func getErrorPrefix(errorType ErrorType) string {
	switch errorType {
	case UserError:
		return "⚠️"
	case SystemError:
		return "🔧"
	case NotFoundError:
		return "🔍"
	case PermissionError:
		return "🚫"
	case BusinessLogicError:
		return "⏰"
	default:
		return "❌"
	}
}

func getErrorColor(errorType ErrorType) int {
	switch errorType {
	case UserError, BusinessLogicError:
		return config.WarningColor
	case NotFoundError:
		return config.InfoColor
	default:
		return config.ErrorColor
	}
}

// ClassifyError maps a room engine error to a category and a message safe to
// show the user. Unknown errors are system errors with a generic message.
func ClassifyError(err error) (ErrorType, string) {
	var limited *rooms.RateLimitedError
	switch {
	case errors.As(err, &limited):
		return BusinessLogicError, fmt.Sprintf("You're creating rooms too fast. Try again in %s.",
			limited.RetryAfter.Round(time.Second))
	case errors.Is(err, rooms.ErrNotFound):
		return NotFoundError, "That room no longer exists."
	case errors.Is(err, rooms.ErrSpawnerNotFound):
		return NotFoundError, "That channel is not a room spawner."
	case errors.Is(err, rooms.ErrNotOwner):
		return PermissionError, "Only the room owner can do that."
	case errors.Is(err, rooms.ErrNotEligible):
		return PermissionError, "You need to be in the room to do that."
	case errors.Is(err, rooms.ErrAlreadyOwned):
		return BusinessLogicError, "This room already has an owner."
	case errors.Is(err, rooms.ErrInvalidArgument):
		return UserError, errorDetail(err)
	case errors.Is(err, rooms.ErrPlatformForbidden):
		return SystemError, "I'm missing permissions to manage that channel."
	case errors.Is(err, rooms.ErrPersistence), errors.Is(err, rooms.ErrPlatform):
		return SystemError, "Something went wrong on our side. Please try again."
	}
	return SystemError, "An unexpected error occurred."
}

// errorDetail strips the sentinel prefix from a wrapped invalid-argument error.
func errorDetail(err error) string {
	msg := err.Error()
	prefix := rooms.ErrInvalidArgument.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return "Invalid input."
}

// CreateClassifiedError creates an ephemeral error response for the category.
func (h *ResponseHandler) CreateClassifiedError(event *handler.CommandEvent, errorType ErrorType, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: getErrorPrefix(errorType) + " " + message,
			Color:       getErrorColor(errorType),
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

// HandleRoomError answers the interaction for err. The original error is
// returned for system errors so the command logger records it.
func (h *ResponseHandler) HandleRoomError(event *handler.CommandEvent, err error) error {
	errorType, message := ClassifyError(err)
	if respErr := h.CreateClassifiedError(event, errorType, message); respErr != nil {
		return errors.Join(err, respErr)
	}
	if errorType == SystemError {
		return err
	}
	return nil
}

func (h *ResponseHandler) CreateUserError(event *handler.CommandEvent, message string) error {
	return h.CreateClassifiedError(event, UserError, message)
}

func (h *ResponseHandler) CreatePermissionError(event *handler.CommandEvent, message string) error {
	return h.CreateClassifiedError(event, PermissionError, message)
}

// CreateSuccessEmbed creates a standard success embed for command events
func (h *ResponseHandler) CreateSuccessEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: "✅ " + message,
			Color:       config.SuccessColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

// CreateInfoEmbed creates a standard info embed for command events
func (h *ResponseHandler) CreateInfoEmbed(event *handler.CommandEvent, title, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       title,
			Description: message,
			Color:       config.InfoColor,
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}
