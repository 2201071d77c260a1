package logger

import (
	"log/slog"
	"time"
)

// SlowQuery is the duration above which successful queries log at warn.
var SlowQuery = 500 * time.Millisecond

// QueryLogger times one store operation and reports it under type=db.
type QueryLogger struct {
	Operation string
	Query     string
	Args      []any
	StartTime time.Time
}

func NewQueryLogger(operation, query string, args ...any) *QueryLogger {
	return &QueryLogger{
		Operation: operation,
		Query:     query,
		Args:      args,
		StartTime: time.Now(),
	}
}

func (l *QueryLogger) Log(err error, rowsAffected int64) {
	took := time.Since(l.StartTime)
	attrs := []any{
		slog.String("type", "db"),
		slog.String("operation", l.Operation),
		slog.String("query", l.Query),
		slog.Duration("took", took),
	}
	if len(l.Args) > 0 {
		attrs = append(attrs, slog.Any("args", l.Args))
	}

	switch {
	case err != nil:
		slog.Error("Query failed", append(attrs, slog.Any("error", err))...)
	case took > SlowQuery:
		slog.Warn("Slow query", append(attrs, slog.Int64("affected_rows", rowsAffected))...)
	default:
		slog.Debug("Query executed", append(attrs, slog.Int64("affected_rows", rowsAffected))...)
	}
}
