package dto

import (
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// JournalLineRequest is one debit or credit of a posting request.
type JournalLineRequest struct {
	AccountID    string          `json:"accountID" binding:"required"`
	DebitAmount  decimal.Decimal `json:"debitAmount"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	Memo         string          `json:"memo" binding:"max=255"`
}

// PostEntryRequest defines the data needed to post a journal entry.
type PostEntryRequest struct {
	EntryDate    string               `json:"entryDate" binding:"required,datetime=2006-01-02"`
	Description  string               `json:"description" binding:"required,max=500"`
	Lines        []JournalLineRequest `json:"lines" binding:"required,min=1,dive"`
	FiscalNumber *string              `json:"fiscalNumber" binding:"omitempty,max=32"`
	Reference    *string              `json:"reference" binding:"omitempty,max=100"`

	// IdempotencyKey is taken from the Idempotency-Key header.
	IdempotencyKey string `json:"-"`
}

// ReverseEntryRequest optionally overrides the reversal's date and description.
type ReverseEntryRequest struct {
	EntryDate   *string `json:"entryDate" binding:"omitempty,datetime=2006-01-02"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

// JournalLineResponse defines the data returned for a journal line.
type JournalLineResponse struct {
	LineID       string          `json:"lineID"`
	LineNumber   int             `json:"lineNumber"`
	AccountID    string          `json:"accountID"`
	DebitAmount  decimal.Decimal `json:"debitAmount"`
	CreditAmount decimal.Decimal `json:"creditAmount"`
	Memo         string          `json:"memo,omitempty"`
}

// JournalEntryResponse defines the data returned for a journal entry.
type JournalEntryResponse struct {
	EntryID           string                `json:"entryID"`
	EntryDate         string                `json:"entryDate"`
	Description       string                `json:"description"`
	Status            domain.EntryStatus    `json:"status"`
	Amount            decimal.Decimal       `json:"amount"`
	FiscalNumber      *string               `json:"fiscalNumber,omitempty"`
	Reference         *string               `json:"reference,omitempty"`
	ReversalOfEntryID *string               `json:"reversalOfEntryID,omitempty"`
	ReversedByEntryID *string               `json:"reversedByEntryID,omitempty"`
	Lines             []JournalLineResponse `json:"lines,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	CreatedBy         string                `json:"createdBy"`
}

// PostingResponse is returned by posting and reversal.
type PostingResponse struct {
	Entry           JournalEntryResponse     `json:"entry"`
	UpdatedBalances []AccountBalanceResponse `json:"updatedBalances"`
}

// ListEntriesParams defines query parameters for listing journal entries.
type ListEntriesParams struct {
	From      string  `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string  `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Limit     int     `form:"limit,default=20" binding:"min=1,max=100"`
	NextToken *string `form:"nextToken"`
}

// ListEntriesResponse wraps a page of entries.
type ListEntriesResponse struct {
	Entries   []JournalEntryResponse `json:"entries"`
	NextToken *string                `json:"nextToken,omitempty"`
}

// ToJournalLineResponse converts a domain.JournalEntryLine to its DTO.
func ToJournalLineResponse(l *domain.JournalEntryLine) JournalLineResponse {
	return JournalLineResponse{
		LineID:       l.LineID,
		LineNumber:   l.LineNumber,
		AccountID:    l.AccountID,
		DebitAmount:  l.DebitAmount,
		CreditAmount: l.CreditAmount,
		Memo:         l.Memo,
	}
}

// ToJournalEntryResponse converts a domain.JournalEntry to JournalEntryResponse DTO.
func ToJournalEntryResponse(e *domain.JournalEntry) JournalEntryResponse {
	resp := JournalEntryResponse{
		EntryID:           e.EntryID,
		EntryDate:         e.EntryDate.Format(DateLayout),
		Description:       e.Description,
		Status:            e.Status,
		Amount:            e.Amount,
		FiscalNumber:      e.FiscalNumber,
		Reference:         e.Reference,
		ReversalOfEntryID: e.ReversalOfEntryID,
		ReversedByEntryID: e.ReversedByEntryID,
		CreatedAt:         e.CreatedAt,
		CreatedBy:         e.CreatedBy,
	}
	if len(e.Lines) > 0 {
		resp.Lines = make([]JournalLineResponse, len(e.Lines))
		for i, l := range e.Lines {
			resp.Lines[i] = ToJournalLineResponse(&l)
		}
	}
	return resp
}

// ToPostingResponse converts a domain.PostingResult.
func ToPostingResponse(r *domain.PostingResult) PostingResponse {
	balances := make([]AccountBalanceResponse, len(r.UpdatedBalances))
	for i, b := range r.UpdatedBalances {
		balances[i] = AccountBalanceResponse{AccountID: b.AccountID, Balance: b.Balance}
	}
	return PostingResponse{
		Entry:           ToJournalEntryResponse(&r.Entry),
		UpdatedBalances: balances,
	}
}
