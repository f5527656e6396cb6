package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TransactionManager exposes the transaction boundary used by the multi-row writes
// (posting, reversal, counter advance).
type TransactionManager interface {
	Begin(ctx context.Context) (pgx.Tx, error)

	// Commit maps serialization failures and deadlocks to apperrors.ErrTransactionConflict.
	Commit(ctx context.Context, tx pgx.Tx) error

	// Rollback is safe to defer: it is a no-op once tx has been committed.
	Rollback(ctx context.Context, tx pgx.Tx) error
}
