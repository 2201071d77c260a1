package logger

import (
	"log/slog"
	"time"
)

// Command statuses shown in the [Status: ...] column.
const (
	StatusSuccess = "success"
	StatusSlow    = "slow"
	StatusFailed  = "failed"
	StatusTimeout = "timeout"
)

// LogCommand records how one slash command ended. Runs longer than slow are
// warnings even when they succeed.
func LogCommand(name string, took, slow time.Duration, err error, attrs ...any) {
	base := append([]any{
		slog.String("type", "cmd"),
		slog.String("name", name),
		slog.Duration("took", took),
	}, attrs...)

	switch {
	case err != nil:
		slog.Error("Command failed", append(base,
			slog.Any("error", err),
			slog.String("status", StatusFailed))...)
	case slow > 0 && took > slow:
		slog.Warn("Command executed slowly", append(base, slog.String("status", StatusSlow))...)
	default:
		slog.Info("Command completed", append(base, slog.String("status", StatusSuccess))...)
	}
}

// LogCommandTimeout records a command that did not return in time.
func LogCommandTimeout(name string, timeout time.Duration, attrs ...any) {
	slog.Error("Command timed out", append([]any{
		slog.String("type", "cmd"),
		slog.String("name", name),
		slog.String("status", StatusTimeout),
		slog.Duration("timeout", timeout),
	}, attrs...)...)
}

func LogSystem(msg string, attrs ...any) {
	slog.Info(msg, append([]any{slog.String("type", "sys")}, attrs...)...)
}

func LogDB(msg string, attrs ...any) {
	slog.Info(msg, append([]any{slog.String("type", "db")}, attrs...)...)
}

func LogError(msg string, err error, attrs ...any) {
	base := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(base, attrs...)...)
}
