package dto

import (
	"fmt"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
)

// DateLayout is the calendar date format accepted in requests and query strings.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD value as a UTC calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", apperrors.ErrValidation, value)
	}
	return t, nil
}

// ParseOptionalDate returns nil for an empty value.
func ParseOptionalDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatOptionalDate renders a date pointer, or "" when nil.
func FormatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}
