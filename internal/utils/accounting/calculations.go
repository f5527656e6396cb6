package accounting

import (
	"fmt"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places a currency amount may carry.
const AmountScale = 2

// AmountLimit is the exclusive upper bound of any stored amount, matching NUMERIC(20, 2).
var AmountLimit = decimal.New(1, 18)

// BalanceTolerance is the largest debit/credit difference still treated as balanced.
// It is below the smallest currency unit so that no real imbalance passes.
var BalanceTolerance = decimal.RequireFromString("0.005")

// SignedDelta returns the change a line applies to an account balance: positive when
// the line is on the account's normal side, negative otherwise.
func SignedDelta(line domain.JournalEntryLine, normal domain.NormalBalance) decimal.Decimal {
	delta := line.DebitAmount.Sub(line.CreditAmount)
	if normal == domain.CreditBalance {
		return delta.Neg()
	}
	return delta
}

// SignedBalance converts debit and credit totals into a balance in the normal-balance sense.
func SignedBalance(totalDebits, totalCredits decimal.Decimal, normal domain.NormalBalance) decimal.Decimal {
	if normal == domain.CreditBalance {
		return totalCredits.Sub(totalDebits)
	}
	return totalDebits.Sub(totalCredits)
}

// ValidateLine checks a single line: amounts non-negative and below AmountLimit, exactly
// one side non-zero and no more than AmountScale decimal places.
func ValidateLine(line domain.JournalEntryLine) error {
	if line.AccountID == "" {
		return fmt.Errorf("%w: line %d has no account", apperrors.ErrValidation, line.LineNumber)
	}
	if line.DebitAmount.IsNegative() || line.CreditAmount.IsNegative() {
		return fmt.Errorf("%w: line %d has a negative amount", apperrors.ErrValidation, line.LineNumber)
	}
	if line.DebitAmount.IsZero() == line.CreditAmount.IsZero() {
		return fmt.Errorf("%w: line %d must have exactly one non-zero side", apperrors.ErrValidation, line.LineNumber)
	}
	if line.DebitAmount.GreaterThanOrEqual(AmountLimit) || line.CreditAmount.GreaterThanOrEqual(AmountLimit) {
		return fmt.Errorf("%w: line %d amount must be below %s", apperrors.ErrValidation, line.LineNumber, AmountLimit.String())
	}
	if !hasValidScale(line.DebitAmount) || !hasValidScale(line.CreditAmount) {
		return fmt.Errorf("%w: line %d has more than %d decimal places", apperrors.ErrValidation, line.LineNumber, AmountScale)
	}
	return nil
}

// ValidateEntryLines checks every line and the debit/credit balance of the whole set.
// It returns the debit total on success.
func ValidateEntryLines(lines []domain.JournalEntryLine) (decimal.Decimal, error) {
	if len(lines) == 0 {
		return decimal.Zero, fmt.Errorf("%w: journal entry must have at least one line", apperrors.ErrValidation)
	}

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for _, line := range lines {
		if err := ValidateLine(line); err != nil {
			return decimal.Zero, err
		}
		totalDebit = totalDebit.Add(line.DebitAmount)
		totalCredit = totalCredit.Add(line.CreditAmount)
	}

	if totalDebit.Sub(totalCredit).Abs().GreaterThanOrEqual(BalanceTolerance) {
		return decimal.Zero, fmt.Errorf("%w: debits %s, credits %s", apperrors.ErrUnbalancedEntry, totalDebit.StringFixed(AmountScale), totalCredit.StringFixed(AmountScale))
	}
	if totalDebit.GreaterThanOrEqual(AmountLimit) {
		return decimal.Zero, fmt.Errorf("%w: entry total must be below %s", apperrors.ErrValidation, AmountLimit.String())
	}
	return totalDebit, nil
}

// BalanceChanges aggregates the signed delta of every line per account.
func BalanceChanges(lines []domain.JournalEntryLine, accounts map[string]domain.Account) (map[string]decimal.Decimal, error) {
	changes := make(map[string]decimal.Decimal, len(accounts))
	for _, line := range lines {
		acc, ok := accounts[line.AccountID]
		if !ok {
			return nil, fmt.Errorf("%w: account %s not found", apperrors.ErrInvalidAccount, line.AccountID)
		}
		changes[line.AccountID] = changes[line.AccountID].Add(SignedDelta(line, acc.NormalBalance))
	}
	return changes, nil
}

func hasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(AmountScale))
}
