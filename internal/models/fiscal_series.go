package models

import "time"

// FiscalSeries is the row shape of the fiscal_series table.
type FiscalSeries struct {
	SeriesID         string     `db:"series_id"`
	DocumentType     string     `db:"document_type"`
	Prefix           string     `db:"prefix"`
	StartNumber      int64      `db:"start_number"`
	EndNumber        int64      `db:"end_number"`
	CurrentNumber    int64      `db:"current_number"`
	NumberWidth      int        `db:"number_width"`
	Status           string     `db:"status"`
	ExpirationDate   *time.Time `db:"expiration_date"`
	AuthorizationRef *string    `db:"authorization_ref"`
	AuditFields
}

// FiscalAllocation is the row shape of the fiscal_allocations table.
type FiscalAllocation struct {
	AllocationID   string    `db:"allocation_id"`
	SeriesID       string    `db:"series_id"`
	DocumentType   string    `db:"document_type"`
	SequenceNumber int64     `db:"sequence_number"`
	FiscalNumber   string    `db:"fiscal_number"`
	IdempotencyKey *string   `db:"idempotency_key"`
	AllocatedAt    time.Time `db:"allocated_at"`
	AllocatedBy    string    `db:"allocated_by"`
}
