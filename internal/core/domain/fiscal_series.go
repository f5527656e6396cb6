package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType is the DGII fiscal document kind a series numbers.
type DocumentType string

// NCF (paper/printed) document types.
const (
	CreditFiscal       DocumentType = "B01"
	FinalConsumer      DocumentType = "B02"
	DebitNote          DocumentType = "B03"
	CreditNote         DocumentType = "B04"
	Purchases          DocumentType = "B11"
	SingleIncomeRecord DocumentType = "B12"
	MinorExpenses      DocumentType = "B13"
	SpecialRegime      DocumentType = "B14"
	Government         DocumentType = "B15"
	Export             DocumentType = "B16"
	ForeignPayments    DocumentType = "B17"
)

// Electronic (e-CF) document types.
const (
	ECreditFiscal    DocumentType = "E31"
	EFinalConsumer   DocumentType = "E32"
	EDebitNote       DocumentType = "E33"
	ECreditNote      DocumentType = "E34"
	EPurchases       DocumentType = "E41"
	EMinorExpenses   DocumentType = "E43"
	ESpecialRegime   DocumentType = "E44"
	EGovernment      DocumentType = "E45"
	EExport          DocumentType = "E46"
	EForeignPayments DocumentType = "E47"
)

var documentTypes = map[DocumentType]struct{}{
	CreditFiscal: {}, FinalConsumer: {}, DebitNote: {}, CreditNote: {}, Purchases: {},
	SingleIncomeRecord: {}, MinorExpenses: {}, SpecialRegime: {}, Government: {}, Export: {},
	ForeignPayments: {}, ECreditFiscal: {}, EFinalConsumer: {}, EDebitNote: {}, ECreditNote: {},
	EPurchases: {}, EMinorExpenses: {}, ESpecialRegime: {}, EGovernment: {}, EExport: {},
	EForeignPayments: {},
}

// IsValid reports whether d is a known DGII document type.
func (d DocumentType) IsValid() bool {
	_, ok := documentTypes[d]
	return ok
}

// IsElectronic reports whether d is an e-CF document type.
func (d DocumentType) IsElectronic() bool {
	return strings.HasPrefix(string(d), "E")
}

// Sequence widths used by DGII: B0100000001 (8 digits), E310000000001 (10 digits).
const (
	NCFNumberWidth  = 8
	ECFNumberWidth  = 10
	MaxNumberWidth  = 18
	MinNumberWidth  = 1
	maxPrefixLength = 10
)

// DefaultNumberWidth returns the zero-padding width for a document type.
func DefaultNumberWidth(d DocumentType) int {
	if d.IsElectronic() {
		return ECFNumberWidth
	}
	return NCFNumberWidth
}

// SeriesStatus is the lifecycle state of a fiscal series.
type SeriesStatus string

const (
	SeriesActive   SeriesStatus = "ACTIVE"
	SeriesInactive SeriesStatus = "INACTIVE"
	SeriesExpired  SeriesStatus = "EXPIRED" // terminal
)

// FiscalSeries is an administratively defined range of fiscal numbers for one document type.
type FiscalSeries struct {
	SeriesID         string       `json:"seriesID"`
	DocumentType     DocumentType `json:"documentType"`
	Prefix           string       `json:"prefix"`
	StartNumber      int64        `json:"startNumber"`
	EndNumber        int64        `json:"endNumber"`     // inclusive
	CurrentNumber    int64        `json:"currentNumber"` // next number to allocate
	NumberWidth      int          `json:"numberWidth"`
	Status           SeriesStatus `json:"status"`
	ExpirationDate   *time.Time   `json:"expirationDate,omitempty"` // valid through the whole day
	AuthorizationRef string       `json:"authorizationRef,omitempty"`
	AuditFields
}

// Validate checks the static shape of a series definition.
func (s FiscalSeries) Validate() error {
	if !s.DocumentType.IsValid() {
		return fmt.Errorf("unknown document type %q", s.DocumentType)
	}
	if s.Prefix == "" || len(s.Prefix) > maxPrefixLength {
		return fmt.Errorf("prefix must have between 1 and %d characters", maxPrefixLength)
	}
	if !strings.HasPrefix(s.Prefix, string(s.DocumentType)) {
		return fmt.Errorf("prefix %q must start with document type %s", s.Prefix, s.DocumentType)
	}
	if s.StartNumber < 1 {
		return fmt.Errorf("start number must be positive")
	}
	if s.EndNumber < s.StartNumber {
		return fmt.Errorf("end number %d is lower than start number %d", s.EndNumber, s.StartNumber)
	}
	if s.NumberWidth < MinNumberWidth || s.NumberWidth > MaxNumberWidth {
		return fmt.Errorf("number width must be between %d and %d", MinNumberWidth, MaxNumberWidth)
	}
	if digits := len(fmt.Sprint(s.EndNumber)); digits > s.NumberWidth {
		return fmt.Errorf("end number %d does not fit in %d digits", s.EndNumber, s.NumberWidth)
	}
	return nil
}

// Overlaps reports whether the numeric ranges of s and other intersect.
func (s FiscalSeries) Overlaps(other FiscalSeries) bool {
	return s.StartNumber <= other.EndNumber && other.StartNumber <= s.EndNumber
}

// IsExhausted reports whether every number of the range has been issued.
func (s FiscalSeries) IsExhausted() bool {
	return s.CurrentNumber > s.EndNumber
}

// IsExpiredAt reports whether the expiration date has passed at instant now.
func (s FiscalSeries) IsExpiredAt(now time.Time) bool {
	if s.ExpirationDate == nil {
		return false
	}
	exp := *s.ExpirationDate
	cutoff := time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, exp.Location()).AddDate(0, 0, 1)
	return !now.Before(cutoff)
}

// Remaining returns how many numbers are still available.
func (s FiscalSeries) Remaining() int64 {
	if s.IsExhausted() {
		return 0
	}
	return s.EndNumber - s.CurrentNumber + 1
}

// Format renders a sequence number as a fiscal number, e.g. B01 + 00000001.
func (s FiscalSeries) Format(number int64) string {
	return fmt.Sprintf("%s%0*d", s.Prefix, s.NumberWidth, number)
}

// NextStatus returns the status the series must carry once number has been issued.
func (s FiscalSeries) NextStatus(number int64) SeriesStatus {
	if number >= s.EndNumber {
		return SeriesExpired
	}
	return s.Status
}

// FiscalAllocation records one issued fiscal number.
type FiscalAllocation struct {
	AllocationID   string       `json:"allocationID"`
	SeriesID       string       `json:"seriesID"`
	DocumentType   DocumentType `json:"documentType"`
	SequenceNumber int64        `json:"sequenceNumber"`
	FiscalNumber   string       `json:"fiscalNumber"`
	IdempotencyKey *string      `json:"idempotencyKey,omitempty"`
	AllocatedAt    time.Time    `json:"allocatedAt"`
	AllocatedBy    string       `json:"allocatedBy"`
}

// SeriesAdvance is the conditional counter move persisted together with an allocation.
// It only applies while the stored counter still equals ExpectedCurrent and the series
// is still ACTIVE.
type SeriesAdvance struct {
	SeriesID        string
	ExpectedCurrent int64
	NewStatus       SeriesStatus
	Allocation      FiscalAllocation
}
