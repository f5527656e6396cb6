package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func b01Series() FiscalSeries {
	return FiscalSeries{
		DocumentType:  CreditFiscal,
		Prefix:        "B01",
		StartNumber:   1,
		EndNumber:     100,
		CurrentNumber: 1,
		NumberWidth:   NCFNumberWidth,
		Status:        SeriesActive,
	}
}

func TestFiscalSeries_Format(t *testing.T) {
	s := b01Series()
	assert.Equal(t, "B0100000001", s.Format(1))
	assert.Equal(t, "B0100000100", s.Format(100))

	e := FiscalSeries{Prefix: "E31", NumberWidth: DefaultNumberWidth(ECreditFiscal)}
	assert.Equal(t, "E310000000042", e.Format(42))
}

func TestFiscalSeries_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*FiscalSeries)
		wantErr bool
	}{
		{"valid", func(*FiscalSeries) {}, false},
		{"single number range", func(s *FiscalSeries) { s.EndNumber = 1 }, false},
		{"unknown type", func(s *FiscalSeries) { s.DocumentType = "X01" }, true},
		{"empty prefix", func(s *FiscalSeries) { s.Prefix = "" }, true},
		{"prefix of another type", func(s *FiscalSeries) { s.Prefix = "B02" }, true},
		{"prefix not starting with type", func(s *FiscalSeries) { s.Prefix = "XB01" }, true},
		{"prefix extending type", func(s *FiscalSeries) { s.Prefix = "B01A" }, false},
		{"zero start", func(s *FiscalSeries) { s.StartNumber = 0 }, true},
		{"end before start", func(s *FiscalSeries) { s.StartNumber, s.EndNumber = 50, 49 }, true},
		{"end wider than width", func(s *FiscalSeries) { s.EndNumber = 100000000 }, true},
		{"width too large", func(s *FiscalSeries) { s.NumberWidth = 19 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := b01Series()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFiscalSeries_NextStatusAndRemaining(t *testing.T) {
	s := b01Series()
	assert.Equal(t, SeriesActive, s.NextStatus(99))
	assert.Equal(t, SeriesExpired, s.NextStatus(100))
	assert.Equal(t, int64(100), s.Remaining())

	s.CurrentNumber = 101
	assert.True(t, s.IsExhausted())
	assert.Equal(t, int64(0), s.Remaining())
}

func TestFiscalSeries_IsExpiredAt(t *testing.T) {
	s := b01Series()
	assert.False(t, s.IsExpiredAt(time.Now()), "no expiration date never expires")

	exp := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	s.ExpirationDate = &exp
	assert.False(t, s.IsExpiredAt(time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)))
	assert.True(t, s.IsExpiredAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFiscalSeries_Overlaps(t *testing.T) {
	a := FiscalSeries{StartNumber: 1, EndNumber: 100}
	assert.True(t, a.Overlaps(FiscalSeries{StartNumber: 100, EndNumber: 200}))
	assert.True(t, a.Overlaps(FiscalSeries{StartNumber: 10, EndNumber: 20}))
	assert.False(t, a.Overlaps(FiscalSeries{StartNumber: 101, EndNumber: 200}))
}

func TestDocumentType(t *testing.T) {
	assert.True(t, CreditFiscal.IsValid())
	assert.True(t, EForeignPayments.IsValid())
	assert.False(t, DocumentType("B05").IsValid())
	assert.True(t, EFinalConsumer.IsElectronic())
	assert.False(t, FinalConsumer.IsElectronic())
	assert.Equal(t, NCFNumberWidth, DefaultNumberWidth(FinalConsumer))
	assert.Equal(t, ECFNumberWidth, DefaultNumberWidth(EFinalConsumer))
}

func TestDefaultNormalBalance(t *testing.T) {
	assert.Equal(t, DebitBalance, DefaultNormalBalance(Asset))
	assert.Equal(t, DebitBalance, DefaultNormalBalance(Expense))
	assert.Equal(t, CreditBalance, DefaultNormalBalance(Liability))
	assert.Equal(t, CreditBalance, DefaultNormalBalance(Equity))
	assert.Equal(t, CreditBalance, DefaultNormalBalance(Income))
}
