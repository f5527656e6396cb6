package services

import (
	"context"

	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	"github.com/SscSPs/fiscal_ledger/internal/dto"
)

// FiscalAllocatorSvc hands out fiscal numbers.
type FiscalAllocatorSvc interface {
	// Allocate issues the next number of the active series for the document type. A
	// repeated idempotency key returns the allocation made the first time.
	Allocate(ctx context.Context, req dto.AllocateRequest, userID string) (*domain.FiscalAllocation, error)

	// GetAllocationByKey returns the allocation made under an idempotency key.
	GetAllocationByKey(ctx context.Context, idempotencyKey string) (*domain.FiscalAllocation, error)

	// GetAllocationByNumber returns the allocation of an issued fiscal number.
	GetAllocationByNumber(ctx context.Context, fiscalNumber string) (*domain.FiscalAllocation, error)
}

// FiscalSeriesAdminSvc manages the lifecycle of fiscal series.
type FiscalSeriesAdminSvc interface {
	RegisterSeries(ctx context.Context, req dto.RegisterSeriesRequest, userID string) (*domain.FiscalSeries, error)
	RetireSeries(ctx context.Context, seriesID string, userID string) (*domain.FiscalSeries, error)
	ActivateSeries(ctx context.Context, seriesID string, userID string) (*domain.FiscalSeries, error)
	GetSeries(ctx context.Context, seriesID string) (*domain.FiscalSeries, error)
	ListSeries(ctx context.Context, params dto.ListSeriesParams) ([]domain.FiscalSeries, error)
}

// FiscalSequenceSvcFacade combines all fiscal sequence service interfaces
type FiscalSequenceSvcFacade interface {
	FiscalAllocatorSvc
	FiscalSeriesAdminSvc
}
