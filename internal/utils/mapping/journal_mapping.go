package mapping

import (
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	"github.com/SscSPs/fiscal_ledger/internal/models"
)

// ToModelJournalEntry converts a domain JournalEntry (without lines) to a model JournalEntry
func ToModelJournalEntry(d domain.JournalEntry) models.JournalEntry {
	return models.JournalEntry{
		EntryID:           d.EntryID,
		EntryDate:         d.EntryDate,
		Description:       d.Description,
		Status:            string(d.Status),
		Amount:            d.Amount,
		FiscalNumber:      d.FiscalNumber,
		Reference:         d.Reference,
		IdempotencyKey:    d.IdempotencyKey,
		ReversalOfEntryID: d.ReversalOfEntryID,
		ReversedByEntryID: d.ReversedByEntryID,
		AuditFields:       ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainJournalEntry converts a model JournalEntry to a domain JournalEntry
func ToDomainJournalEntry(m models.JournalEntry) domain.JournalEntry {
	return domain.JournalEntry{
		EntryID:           m.EntryID,
		EntryDate:         m.EntryDate,
		Description:       m.Description,
		Status:            domain.EntryStatus(m.Status),
		Amount:            m.Amount,
		FiscalNumber:      m.FiscalNumber,
		Reference:         m.Reference,
		IdempotencyKey:    m.IdempotencyKey,
		ReversalOfEntryID: m.ReversalOfEntryID,
		ReversedByEntryID: m.ReversedByEntryID,
		AuditFields:       ToDomainAuditFields(m.AuditFields),
	}
}

// ToModelJournalLine converts a domain JournalEntryLine to a model JournalLine.
// The line inherits the creation audit data of its entry.
func ToModelJournalLine(d domain.JournalEntryLine, audit domain.AuditFields) models.JournalLine {
	return models.JournalLine{
		LineID:       d.LineID,
		EntryID:      d.EntryID,
		LineNumber:   d.LineNumber,
		AccountID:    d.AccountID,
		DebitAmount:  d.DebitAmount,
		CreditAmount: d.CreditAmount,
		Memo:         nullable(d.Memo),
		CreatedAt:    audit.CreatedAt,
		CreatedBy:    audit.CreatedBy,
	}
}

// ToDomainJournalLine converts a model JournalLine to a domain JournalEntryLine
func ToDomainJournalLine(m models.JournalLine) domain.JournalEntryLine {
	return domain.JournalEntryLine{
		LineID:       m.LineID,
		EntryID:      m.EntryID,
		LineNumber:   m.LineNumber,
		AccountID:    m.AccountID,
		DebitAmount:  m.DebitAmount,
		CreditAmount: m.CreditAmount,
		Memo:         deref(m.Memo),
	}
}

// ToDomainJournalLineSlice converts a slice of model JournalLines
func ToDomainJournalLineSlice(ms []models.JournalLine) []domain.JournalEntryLine {
	ds := make([]domain.JournalEntryLine, len(ms))
	for i, m := range ms {
		ds[i] = ToDomainJournalLine(m)
	}
	return ds
}
