package domain

import (
	"github.com/shopspring/decimal"
)

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Income    AccountType = "INCOME"
	Expense   AccountType = "EXPENSE"
)

// IsValid reports whether t is one of the known account types.
func (t AccountType) IsValid() bool {
	switch t {
	case Asset, Liability, Equity, Income, Expense:
		return true
	}
	return false
}

// NormalBalance is the side on which an account naturally accumulates value.
type NormalBalance string

const (
	DebitBalance  NormalBalance = "DEBIT"
	CreditBalance NormalBalance = "CREDIT"
)

// IsValid reports whether b is DEBIT or CREDIT.
func (b NormalBalance) IsValid() bool {
	return b == DebitBalance || b == CreditBalance
}

// DefaultNormalBalance returns the conventional normal balance for an account type:
// ASSET/EXPENSE accumulate on the debit side, everything else on the credit side.
func DefaultNormalBalance(t AccountType) NormalBalance {
	if t == Asset || t == Expense {
		return DebitBalance
	}
	return CreditBalance
}

// Account represents an entry of the chart of accounts.
type Account struct {
	AccountID       string          `json:"accountID"`       // Primary Key (UUID)
	Code            string          `json:"code"`            // Unique hierarchical code, e.g. "1.1.01"
	Name            string          `json:"name"`
	AccountType     AccountType     `json:"accountType"`
	NormalBalance   NormalBalance   `json:"normalBalance"`
	ParentAccountID string          `json:"parentAccountID"` // Lookup relation only; empty for roots
	Description     string          `json:"description"`
	IsActive        bool            `json:"isActive"`
	AllowPosting    bool            `json:"allowPosting"` // Leaf accounts only
	Balance         decimal.Decimal `json:"balance"`      // Running total in the normal-balance sense
	AuditFields
}

// CanReceivePostings reports whether journal lines may reference the account.
func (a Account) CanReceivePostings() bool {
	return a.IsActive && a.AllowPosting
}
