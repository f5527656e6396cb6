package accounting

import (
	"testing"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debit(account, amount string) domain.JournalEntryLine {
	return domain.JournalEntryLine{AccountID: account, DebitAmount: decimal.RequireFromString(amount), CreditAmount: decimal.Zero}
}

func credit(account, amount string) domain.JournalEntryLine {
	return domain.JournalEntryLine{AccountID: account, DebitAmount: decimal.Zero, CreditAmount: decimal.RequireFromString(amount)}
}

func TestSignedDelta(t *testing.T) {
	tests := []struct {
		name   string
		line   domain.JournalEntryLine
		normal domain.NormalBalance
		want   string
	}{
		{"debit to debit-normal", debit("a", "100"), domain.DebitBalance, "100"},
		{"credit to debit-normal", credit("a", "100"), domain.DebitBalance, "-100"},
		{"credit to credit-normal", credit("a", "18"), domain.CreditBalance, "18"},
		{"debit to credit-normal", debit("a", "18"), domain.CreditBalance, "-18"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SignedDelta(tt.line, tt.normal)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestValidateEntryLines(t *testing.T) {
	t.Run("cash sale with tax balances", func(t *testing.T) {
		total, err := ValidateEntryLines([]domain.JournalEntryLine{
			debit("cash", "118.00"),
			credit("sales", "100.00"),
			credit("itbis", "18.00"),
		})
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(118)))
	})

	t.Run("unbalanced by one cent", func(t *testing.T) {
		_, err := ValidateEntryLines([]domain.JournalEntryLine{debit("cash", "100.00"), credit("sales", "99.99")})
		assert.ErrorIs(t, err, apperrors.ErrUnbalancedEntry)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ValidateEntryLines(nil)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := ValidateEntryLines([]domain.JournalEntryLine{debit("cash", "-5"), credit("sales", "-5")})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("both sides set", func(t *testing.T) {
		line := debit("cash", "5")
		line.CreditAmount = decimal.NewFromInt(5)
		_, err := ValidateEntryLines([]domain.JournalEntryLine{line})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("zero line", func(t *testing.T) {
		_, err := ValidateEntryLines([]domain.JournalEntryLine{debit("cash", "0"), credit("sales", "0")})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("three decimals", func(t *testing.T) {
		_, err := ValidateEntryLines([]domain.JournalEntryLine{debit("cash", "1.001"), credit("sales", "1.001")})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("largest storable amount", func(t *testing.T) {
		total, err := ValidateEntryLines([]domain.JournalEntryLine{
			debit("cash", "999999999999999999.99"),
			credit("sales", "999999999999999999.99"),
		})
		require.NoError(t, err)
		assert.True(t, total.LessThan(AmountLimit))
	})

	t.Run("line above storable range", func(t *testing.T) {
		_, err := ValidateEntryLines([]domain.JournalEntryLine{
			debit("cash", "1000000000000000000.00"),
			credit("sales", "1000000000000000000.00"),
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("total above storable range", func(t *testing.T) {
		_, err := ValidateEntryLines([]domain.JournalEntryLine{
			debit("cash", "600000000000000000.00"),
			debit("bank", "600000000000000000.00"),
			credit("sales", "999999999999999999.99"),
			credit("other", "200000000000000000.01"),
		})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestBalanceChanges(t *testing.T) {
	accounts := map[string]domain.Account{
		"cash":  {AccountID: "cash", NormalBalance: domain.DebitBalance},
		"sales": {AccountID: "sales", NormalBalance: domain.CreditBalance},
	}
	changes, err := BalanceChanges([]domain.JournalEntryLine{
		debit("cash", "60"), debit("cash", "40"), credit("sales", "100"),
	}, accounts)
	require.NoError(t, err)
	assert.True(t, changes["cash"].Equal(decimal.NewFromInt(100)))
	assert.True(t, changes["sales"].Equal(decimal.NewFromInt(100)))

	_, err = BalanceChanges([]domain.JournalEntryLine{debit("ghost", "1")}, accounts)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAccount)
}

func TestSignedBalance(t *testing.T) {
	d, c := decimal.NewFromInt(150), decimal.NewFromInt(50)
	assert.True(t, SignedBalance(d, c, domain.DebitBalance).Equal(decimal.NewFromInt(100)))
	assert.True(t, SignedBalance(d, c, domain.CreditBalance).Equal(decimal.NewFromInt(-100)))
}
