package mapping

import (
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	"github.com/SscSPs/fiscal_ledger/internal/models"
)

// ToModelFiscalSeries converts a domain FiscalSeries to a model FiscalSeries
func ToModelFiscalSeries(d domain.FiscalSeries) models.FiscalSeries {
	return models.FiscalSeries{
		SeriesID:         d.SeriesID,
		DocumentType:     string(d.DocumentType),
		Prefix:           d.Prefix,
		StartNumber:      d.StartNumber,
		EndNumber:        d.EndNumber,
		CurrentNumber:    d.CurrentNumber,
		NumberWidth:      d.NumberWidth,
		Status:           string(d.Status),
		ExpirationDate:   d.ExpirationDate,
		AuthorizationRef: nullable(d.AuthorizationRef),
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainFiscalSeries converts a model FiscalSeries to a domain FiscalSeries
func ToDomainFiscalSeries(m models.FiscalSeries) domain.FiscalSeries {
	return domain.FiscalSeries{
		SeriesID:         m.SeriesID,
		DocumentType:     domain.DocumentType(m.DocumentType),
		Prefix:           m.Prefix,
		StartNumber:      m.StartNumber,
		EndNumber:        m.EndNumber,
		CurrentNumber:    m.CurrentNumber,
		NumberWidth:      m.NumberWidth,
		Status:           domain.SeriesStatus(m.Status),
		ExpirationDate:   m.ExpirationDate,
		AuthorizationRef: deref(m.AuthorizationRef),
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelFiscalAllocation converts a domain FiscalAllocation to a model FiscalAllocation
func ToModelFiscalAllocation(d domain.FiscalAllocation) models.FiscalAllocation {
	return models.FiscalAllocation{
		AllocationID:   d.AllocationID,
		SeriesID:       d.SeriesID,
		DocumentType:   string(d.DocumentType),
		SequenceNumber: d.SequenceNumber,
		FiscalNumber:   d.FiscalNumber,
		IdempotencyKey: d.IdempotencyKey,
		AllocatedAt:    d.AllocatedAt,
		AllocatedBy:    d.AllocatedBy,
	}
}

// ToDomainFiscalAllocation converts a model FiscalAllocation to a domain FiscalAllocation
func ToDomainFiscalAllocation(m models.FiscalAllocation) domain.FiscalAllocation {
	return domain.FiscalAllocation{
		AllocationID:   m.AllocationID,
		SeriesID:       m.SeriesID,
		DocumentType:   domain.DocumentType(m.DocumentType),
		SequenceNumber: m.SequenceNumber,
		FiscalNumber:   m.FiscalNumber,
		IdempotencyKey: m.IdempotencyKey,
		AllocatedAt:    m.AllocatedAt,
		AllocatedBy:    m.AllocatedBy,
	}
}
