package services

import (
	"context"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	"github.com/SscSPs/fiscal_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerPosterSvc defines the operations that mutate account balances.
type LedgerPosterSvc interface {
	// PostEntry validates and atomically posts a balanced entry, updating the running
	// balance of every affected account.
	PostEntry(ctx context.Context, req dto.PostEntryRequest, userID string) (*domain.PostingResult, error)

	// ReverseEntry posts the mirror image of a posted entry and marks the original REVERSED.
	ReverseEntry(ctx context.Context, entryID string, req dto.ReverseEntryRequest, userID string) (*domain.PostingResult, error)
}

// LedgerReaderSvc defines read operations for journal entries.
type LedgerReaderSvc interface {
	// GetEntry retrieves an entry with its lines.
	GetEntry(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// ListEntries retrieves a page of entries by date range.
	ListEntries(ctx context.Context, params dto.ListEntriesParams) ([]domain.JournalEntry, *string, error)
}

// LedgerCalculatorSvc defines balance computations.
type LedgerCalculatorSvc interface {
	// GetAccountBalance returns the running balance, or the balance replayed from posted
	// lines dated on or before asOf when asOf is given.
	GetAccountBalance(ctx context.Context, accountID string, asOf *time.Time) (decimal.Decimal, error)

	// TrialBalance returns per-account debit and credit totals.
	TrialBalance(ctx context.Context, asOf *time.Time) (*domain.TrialBalance, error)
}

// LedgerSvcFacade combines all ledger-related service interfaces
type LedgerSvcFacade interface {
	LedgerPosterSvc
	LedgerReaderSvc
	LedgerCalculatorSvc
}
