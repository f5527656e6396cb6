package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is the row shape of the journal_entries table.
type JournalEntry struct {
	EntryID           string          `db:"entry_id"`
	EntryDate         time.Time       `db:"entry_date"`
	Description       string          `db:"description"`
	Status            string          `db:"status"`
	Amount            decimal.Decimal `db:"amount"`
	FiscalNumber      *string         `db:"fiscal_number"`
	Reference         *string         `db:"reference"`
	IdempotencyKey    *string         `db:"idempotency_key"`
	ReversalOfEntryID *string         `db:"reversal_of_entry_id"`
	ReversedByEntryID *string         `db:"reversed_by_entry_id"`
	AuditFields
}

// JournalLine is the row shape of the journal_lines table.
type JournalLine struct {
	LineID       string          `db:"line_id"`
	EntryID      string          `db:"entry_id"`
	LineNumber   int             `db:"line_number"`
	AccountID    string          `db:"account_id"`
	DebitAmount  decimal.Decimal `db:"debit_amount"`
	CreditAmount decimal.Decimal `db:"credit_amount"`
	Memo         *string         `db:"memo"`
	CreatedAt    time.Time       `db:"created_at"`
	CreatedBy    string          `db:"created_by"`
}
