package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
)

// FiscalSeriesReader defines read operations for fiscal series and issued numbers.
type FiscalSeriesReader interface {
	FindSeriesByID(ctx context.Context, seriesID string) (*domain.FiscalSeries, error)

	// ListSeries returns series ordered by document type and start number. Empty filter
	// values match everything.
	ListSeries(ctx context.Context, documentType domain.DocumentType, status domain.SeriesStatus) ([]domain.FiscalSeries, error)

	// FindAllocationByIdempotencyKey returns apperrors.ErrNotFound when the key is unknown.
	FindAllocationByIdempotencyKey(ctx context.Context, key string) (*domain.FiscalAllocation, error)

	// FindAllocationByFiscalNumber returns apperrors.ErrNotFound when the number was never issued.
	FindAllocationByFiscalNumber(ctx context.Context, fiscalNumber string) (*domain.FiscalAllocation, error)
}

// FiscalSeriesWriter defines the only mutation paths of a series. The counter is never
// written directly; it moves exclusively through AdvanceSeries.
type FiscalSeriesWriter interface {
	// SaveSeries inserts a new series after checking, serialised per document type,
	// that its range does not overlap any existing series of the same type. The series
	// is stored ACTIVE unless another series of the type already is, in which case it is
	// stored INACTIVE. Returns the series as stored.
	SaveSeries(ctx context.Context, series domain.FiscalSeries) (*domain.FiscalSeries, error)

	// AdvanceSeries moves the counter from adv.ExpectedCurrent to ExpectedCurrent+1,
	// sets adv.NewStatus and records adv.Allocation in one transaction. Returns
	// apperrors.ErrTransactionConflict if the stored counter or status no longer match,
	// and apperrors.ErrDuplicate if the idempotency key was used concurrently.
	AdvanceSeries(ctx context.Context, adv domain.SeriesAdvance) error

	// TransitionSeriesStatus changes status only if the series is currently in `from`.
	// Returns apperrors.ErrConflict when it is not.
	TransitionSeriesStatus(ctx context.Context, seriesID string, from, to domain.SeriesStatus, userID string, now time.Time) error
}

// FiscalSeriesRepositoryFacade combines all fiscal series repository interfaces
type FiscalSeriesRepositoryFacade interface {
	FiscalSeriesReader
	FiscalSeriesWriter
}

// FiscalSeriesRepositoryWithTx extends FiscalSeriesRepositoryFacade with transaction capabilities
type FiscalSeriesRepositoryWithTx interface {
	FiscalSeriesRepositoryFacade
	TransactionManager
}
