package models

import (
	"github.com/shopspring/decimal"
)

// Account is the row shape of the accounts table.
type Account struct {
	AccountID       string          `db:"account_id"`
	Code            string          `db:"code"`
	Name            string          `db:"name"`
	AccountType     string          `db:"account_type"`
	NormalBalance   string          `db:"normal_balance"`
	ParentAccountID *string         `db:"parent_account_id"` // Nullable
	Description     *string         `db:"description"`       // Nullable
	IsActive        bool            `db:"is_active"`
	AllowPosting    bool            `db:"allow_posting"`
	Balance         decimal.Decimal `db:"balance"`
	AuditFields
}
