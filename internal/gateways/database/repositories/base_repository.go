package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/gohye-voice/internal/domain/logger"
	"github.com/ellavondegurechaff/gohye-voice/voicebot/config"
	"github.com/uptrace/bun"
)

// BaseRepository provides timeouts, query logging and error wrapping.
type BaseRepository struct {
	db             *bun.DB
	defaultTimeout time.Duration
}

func NewBaseRepository(db *bun.DB) *BaseRepository {
	return &BaseRepository{
		db:             db,
		defaultTimeout: config.DefaultQueryTimeout,
	}
}

// RepositoryError represents a repository-level error
type RepositoryError struct {
	Operation string
	Entity    string
	Err       error
}

func (re *RepositoryError) Error() string {
	return fmt.Sprintf("repository error during %s for %s: %v", re.Operation, re.Entity, re.Err)
}

func (re *RepositoryError) Unwrap() error {
	return re.Err
}

// HandleError wraps err for operation. notFound replaces sql.ErrNoRows when
// set.
func (br *BaseRepository) HandleError(operation, entity string, err, notFound error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return &RepositoryError{Operation: operation, Entity: entity, Err: err}
}

// Exec runs a write with the default timeout and reports rows affected.
func (br *BaseRepository) Exec(ctx context.Context, operation, entity string, query func(context.Context) (sql.Result, error)) (int64, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, br.defaultTimeout)
	defer cancel()

	ql := logger.NewQueryLogger(operation, entity)
	result, err := query(timeoutCtx)
	var affected int64
	if err == nil {
		affected, err = result.RowsAffected()
	}
	ql.Log(err, affected)
	return affected, br.HandleError(operation, entity, err, nil)
}

// Select runs a read with the default timeout.
func (br *BaseRepository) Select(ctx context.Context, operation, entity string, notFound error, query func(context.Context) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, br.defaultTimeout)
	defer cancel()

	ql := logger.NewQueryLogger(operation, entity)
	err := query(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		ql.Log(nil, 0)
	} else {
		ql.Log(err, 0)
	}
	return br.HandleError(operation, entity, err, notFound)
}

// Transaction executes fn within a database transaction
func (br *BaseRepository) Transaction(ctx context.Context, operation string, fn func(context.Context, bun.Tx) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, br.defaultTimeout)
	defer cancel()

	ql := logger.NewQueryLogger(operation, "tx")
	err := br.db.RunInTx(timeoutCtx, nil, fn)
	ql.Log(err, 0)
	return br.HandleError(operation, "tx", err, nil)
}

// IsRepositoryError checks if an error is a RepositoryError
func IsRepositoryError(err error) bool {
	var re *RepositoryError
	return errors.As(err, &re)
}
