package pgsql

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes the repositories react to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgNumericOutOfRange    = "22003"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return wrapDBError("failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction. Rolling back an already committed transaction is a no-op.
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(http.StatusInternalServerError, "failed to rollback transaction", err)
	}
	return nil
}

// classifyPgError attaches the matching application sentinel to a PostgreSQL error,
// keeping the driver error in the chain.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %w", apperrors.ErrTransactionConflict, err)
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s: %w", apperrors.ErrDuplicate, pgErr.ConstraintName, err)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s: %w", apperrors.ErrInvalidAccount, pgErr.ConstraintName, err)
	case pgNumericOutOfRange:
		return fmt.Errorf("%w: amount out of range: %w", apperrors.ErrValidation, err)
	}
	return err
}

// wrapDBError classifies err and wraps it in an AppError with a fitting status code.
func wrapDBError(msg string, err error) error {
	classified := classifyPgError(err)
	code := http.StatusInternalServerError
	switch {
	case errors.Is(classified, apperrors.ErrTransactionConflict), errors.Is(classified, apperrors.ErrDuplicate):
		code = http.StatusConflict
	case errors.Is(classified, apperrors.ErrInvalidAccount), errors.Is(classified, apperrors.ErrValidation):
		code = http.StatusBadRequest
	}
	return apperrors.NewAppError(code, msg, classified)
}

// isUniqueViolationOn reports whether err is a unique violation of the named constraint.
func isUniqueViolationOn(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}
