package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus indicates the state of a journal entry.
type EntryStatus string

const (
	Draft    EntryStatus = "DRAFT"
	Posted   EntryStatus = "POSTED"
	Reversed EntryStatus = "REVERSED"
)

// Side is the debit or credit side of a journal line.
type Side string

const (
	Debit  Side = "DEBIT"
	Credit Side = "CREDIT"
)

// JournalEntry is a single balanced financial event composed of lines.
type JournalEntry struct {
	EntryID           string             `json:"entryID"`
	EntryDate         time.Time          `json:"entryDate"`
	Description       string             `json:"description"`
	Status            EntryStatus        `json:"status"`
	Amount            decimal.Decimal    `json:"amount"` // Total of the debit side
	FiscalNumber      *string            `json:"fiscalNumber,omitempty"`
	Reference         *string            `json:"reference,omitempty"`
	IdempotencyKey    *string            `json:"-"`
	ReversalOfEntryID *string            `json:"reversalOfEntryID,omitempty"`
	ReversedByEntryID *string            `json:"reversedByEntryID,omitempty"`
	Lines             []JournalEntryLine `json:"lines,omitempty"`
	AuditFields
}

// IsReversal reports whether the entry offsets another entry.
func (e JournalEntry) IsReversal() bool {
	return e.ReversalOfEntryID != nil
}

// JournalEntryLine is a single debit or credit against one account.
type JournalEntryLine struct {
	LineID       string          `json:"lineID"`
	EntryID      string          `json:"entryID"`
	LineNumber   int             `json:"lineNumber"`
	AccountID    string          `json:"accountID"`
	DebitAmount  decimal.Decimal `json:"debitAmount"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	Memo         string          `json:"memo"`
}

// Side returns the side carrying the non-zero amount.
func (l JournalEntryLine) Side() Side {
	if l.DebitAmount.IsPositive() {
		return Debit
	}
	return Credit
}

// Amount returns the non-zero amount of the line.
func (l JournalEntryLine) Amount() decimal.Decimal {
	if l.DebitAmount.IsPositive() {
		return l.DebitAmount
	}
	return l.CreditAmount
}

// Swapped returns a copy of the line with debit and credit exchanged.
func (l JournalEntryLine) Swapped() JournalEntryLine {
	l.DebitAmount, l.CreditAmount = l.CreditAmount, l.DebitAmount
	return l
}

// AccountBalance is the balance of one account after a posting.
type AccountBalance struct {
	AccountID string          `json:"accountID"`
	Balance   decimal.Decimal `json:"balance"`
}

// PostingResult is what a successful posting returns to the caller.
type PostingResult struct {
	Entry           JournalEntry     `json:"entry"`
	UpdatedBalances []AccountBalance `json:"updatedBalances"`
}

// AccountActivity aggregates the posted lines of one account.
type AccountActivity struct {
	AccountID    string
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
}

// TrialBalanceRow represents a single row in a trial balance report.
type TrialBalanceRow struct {
	AccountID     string          `json:"accountID"`
	Code          string          `json:"code"`
	AccountName   string          `json:"accountName"`
	AccountType   AccountType     `json:"accountType"`
	NormalBalance NormalBalance   `json:"normalBalance"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
}

// TrialBalance is the set of rows plus column totals.
type TrialBalance struct {
	AsOf        *time.Time        `json:"asOf,omitempty"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
}
