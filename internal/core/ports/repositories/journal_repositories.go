package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// JournalReader defines read operations for journal entry data
type JournalReader interface {
	// FindEntryByID retrieves an entry header by its ID. Returns apperrors.ErrEntryNotFound when absent.
	FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// FindEntryByIdempotencyKey retrieves the entry created with the given key.
	FindEntryByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, error)

	// FindLinesByEntryID retrieves the lines of an entry in line-number order.
	FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalEntryLine, error)

	// ListEntriesByPeriod retrieves entries dated within [from, to] ordered by date and
	// creation time, using token-based pagination.
	ListEntriesByPeriod(ctx context.Context, from, to *time.Time, limit int, nextToken *string) ([]domain.JournalEntry, *string, error)
}

// JournalWriter defines write operations for journal data. Every method is a single
// database transaction: either everything it describes is visible afterwards or nothing is.
type JournalWriter interface {
	// SaveEntry inserts a posted entry with its lines and applies balanceChanges to the
	// affected accounts. Returns the balances after the update.
	SaveEntry(ctx context.Context, entry domain.JournalEntry, balanceChanges map[string]decimal.Decimal) (map[string]decimal.Decimal, error)

	// SaveReversal inserts the reversing entry, applies balanceChanges and flips the
	// original entry from POSTED to REVERSED. Returns apperrors.ErrAlreadyReversed if the
	// original is no longer POSTED.
	SaveReversal(ctx context.Context, originalEntryID string, reversal domain.JournalEntry, balanceChanges map[string]decimal.Decimal) (map[string]decimal.Decimal, error)
}

// LedgerActivityReader aggregates posted activity for balance replays and reports.
type LedgerActivityReader interface {
	// SumAccountActivity totals debits and credits of one account over entries dated on
	// or before asOf (all dates when asOf is nil).
	SumAccountActivity(ctx context.Context, accountID string, asOf *time.Time) (domain.AccountActivity, error)

	// ListAccountActivity returns the totals of every account with activity.
	ListAccountActivity(ctx context.Context, asOf *time.Time) (map[string]domain.AccountActivity, error)
}

// JournalRepositoryFacade combines all journal-related repository interfaces
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
	LedgerActivityReader
}

// JournalRepositoryWithTx extends JournalRepositoryFacade with transaction capabilities
type JournalRepositoryWithTx interface {
	JournalRepositoryFacade
	TransactionManager
}
