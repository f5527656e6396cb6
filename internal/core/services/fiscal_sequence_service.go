package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fiscal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fiscal_ledger/internal/core/ports/services"
	"github.com/SscSPs/fiscal_ledger/internal/dto"
	"github.com/google/uuid"
)

// fiscalSequenceService allocates NCF / e-CF numbers and manages the series they come from.
type fiscalSequenceService struct {
	BaseService
	seriesRepo           portsrepo.FiscalSeriesRepositoryFacade
	allocationMaxRetries int
	idempotencyKeyMaxLen int
}

// NewFiscalSequenceService creates the fiscal number allocator.
func NewFiscalSequenceService(seriesRepo portsrepo.FiscalSeriesRepositoryFacade, options ...Option) portssvc.FiscalSequenceSvcFacade {
	o := applyOptions(options)
	return &fiscalSequenceService{
		BaseService:          newBaseService(o),
		seriesRepo:           seriesRepo,
		allocationMaxRetries: o.allocationMaxRetries,
		idempotencyKeyMaxLen: o.idempotencyKeyMaxLen,
	}
}

// Allocate issues the next number of the active series. The counter only moves through
// a conditional update on the value read, so two allocators can never both succeed for
// the same number; the loser re-reads and tries again within the retry budget.
func (s *fiscalSequenceService) Allocate(ctx context.Context, req dto.AllocateRequest, userID string) (*domain.FiscalAllocation, error) {
	docType := req.DocumentType
	if !docType.IsValid() {
		return nil, fmt.Errorf("%w: unknown document type %q", apperrors.ErrValidation, docType)
	}
	if err := checkIdempotencyKey(req.IdempotencyKey, s.idempotencyKeyMaxLen); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.existingAllocation(ctx, req.IdempotencyKey, docType)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	var allocation domain.FiscalAllocation
	attempt := 0
	err := retryOnConflict(ctx, s.allocationMaxRetries, func() error {
		attempt++
		a, err := s.tryAllocate(ctx, docType, req.IdempotencyKey, userID)
		if err != nil {
			if apperrors.IsRetryable(err) {
				s.LogDebug(ctx, "Fiscal counter moved, retrying allocation",
					slog.String("document_type", string(docType)),
					slog.Int("attempt", attempt))
			}
			return err
		}
		allocation = *a
		return nil
	})
	if err != nil {
		if req.IdempotencyKey != "" && errors.Is(err, apperrors.ErrDuplicate) {
			// A concurrent request with the same key committed first.
			return s.existingAllocation(ctx, req.IdempotencyKey, docType)
		}
		if apperrors.IsRetryable(err) {
			s.LogWarn(ctx, "Fiscal allocation retry budget exhausted",
				slog.String("document_type", string(docType)),
				slog.Int("attempts", attempt))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Fiscal number allocated",
		slog.String("fiscal_number", allocation.FiscalNumber),
		slog.String("series_id", allocation.SeriesID))
	return &allocation, nil
}

// tryAllocate makes a single allocation attempt against the current state of the series.
func (s *fiscalSequenceService) tryAllocate(ctx context.Context, docType domain.DocumentType, key string, userID string) (*domain.FiscalAllocation, error) {
	series, err := s.activeSeries(ctx, docType)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	if series.IsExpiredAt(now) {
		s.expire(ctx, series, domain.SeriesActive, userID)
		return nil, fmt.Errorf("%w: series %s expired on %s", apperrors.ErrSeriesExpired, series.SeriesID, dto.FormatOptionalDate(series.ExpirationDate))
	}
	if series.IsExhausted() {
		s.expire(ctx, series, domain.SeriesActive, userID)
		return nil, fmt.Errorf("%w: series %s", apperrors.ErrRangeExhausted, series.SeriesID)
	}

	number := series.CurrentNumber
	allocation := domain.FiscalAllocation{
		AllocationID:   uuid.NewString(),
		SeriesID:       series.SeriesID,
		DocumentType:   docType,
		SequenceNumber: number,
		FiscalNumber:   series.Format(number),
		AllocatedAt:    now,
		AllocatedBy:    userID,
	}
	if key != "" {
		allocation.IdempotencyKey = &key
	}

	if err := s.seriesRepo.AdvanceSeries(ctx, domain.SeriesAdvance{
		SeriesID:        series.SeriesID,
		ExpectedCurrent: number,
		NewStatus:       series.NextStatus(number),
		Allocation:      allocation,
	}); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// activeSeries returns the single ACTIVE series of a document type, or the error that
// explains why there is none.
func (s *fiscalSequenceService) activeSeries(ctx context.Context, docType domain.DocumentType) (*domain.FiscalSeries, error) {
	active, err := s.seriesRepo.ListSeries(ctx, docType, domain.SeriesActive)
	if err != nil {
		s.LogError(ctx, err, "Failed to load active fiscal series", slog.String("document_type", string(docType)))
		return nil, err
	}
	switch len(active) {
	case 1:
		return &active[0], nil
	case 0:
		return nil, s.noActiveSeriesError(ctx, docType)
	default:
		return nil, fmt.Errorf("%w: %d active series for document type %s", apperrors.ErrConflict, len(active), docType)
	}
}

// noActiveSeriesError lets the most recently expired series of the type decide which
// error the caller sees.
func (s *fiscalSequenceService) noActiveSeriesError(ctx context.Context, docType domain.DocumentType) error {
	expired, err := s.seriesRepo.ListSeries(ctx, docType, domain.SeriesExpired)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrNoActiveSeries, docType)
	}
	latest := expired[0]
	for _, series := range expired[1:] {
		if series.LastUpdatedAt.After(latest.LastUpdatedAt) {
			latest = series
		}
	}
	if latest.IsExhausted() {
		return fmt.Errorf("%w: series %s for %s has no numbers left", apperrors.ErrRangeExhausted, latest.SeriesID, docType)
	}
	return fmt.Errorf("%w: series %s for %s", apperrors.ErrSeriesExpired, latest.SeriesID, docType)
}

// expire moves a series to EXPIRED if it is still in from. Losing that race is fine:
// whoever won has already taken the series out of circulation.
func (s *fiscalSequenceService) expire(ctx context.Context, series *domain.FiscalSeries, from domain.SeriesStatus, userID string) {
	err := s.seriesRepo.TransitionSeriesStatus(ctx, series.SeriesID, from, domain.SeriesExpired, userID, s.Now())
	if err != nil && !errors.Is(err, apperrors.ErrConflict) {
		s.LogError(ctx, err, "Failed to mark fiscal series expired", slog.String("series_id", series.SeriesID))
		return
	}
	s.LogInfo(ctx, "Fiscal series expired", slog.String("series_id", series.SeriesID))
}

func (s *fiscalSequenceService) existingAllocation(ctx context.Context, key string, docType domain.DocumentType) (*domain.FiscalAllocation, error) {
	existing, err := s.seriesRepo.FindAllocationByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing.DocumentType != docType {
		return nil, fmt.Errorf("%w: idempotency key already used for document type %s", apperrors.ErrConflict, existing.DocumentType)
	}
	s.LogInfo(ctx, "Returning existing fiscal allocation for idempotency key", slog.String("fiscal_number", existing.FiscalNumber))
	return existing, nil
}

func (s *fiscalSequenceService) GetAllocationByKey(ctx context.Context, idempotencyKey string) (*domain.FiscalAllocation, error) {
	return s.seriesRepo.FindAllocationByIdempotencyKey(ctx, idempotencyKey)
}

func (s *fiscalSequenceService) GetAllocationByNumber(ctx context.Context, fiscalNumber string) (*domain.FiscalAllocation, error) {
	return s.seriesRepo.FindAllocationByFiscalNumber(ctx, fiscalNumber)
}

// RegisterSeries records a new range authorised by DGII.
func (s *fiscalSequenceService) RegisterSeries(ctx context.Context, req dto.RegisterSeriesRequest, userID string) (*domain.FiscalSeries, error) {
	expiration, err := dto.ParseOptionalDate(derefString(req.ExpirationDate))
	if err != nil {
		return nil, err
	}

	now := s.Now()
	series := domain.FiscalSeries{
		SeriesID:         uuid.NewString(),
		DocumentType:     req.DocumentType,
		Prefix:           req.Prefix,
		StartNumber:      req.StartNumber,
		EndNumber:        req.EndNumber,
		CurrentNumber:    req.StartNumber,
		NumberWidth:      domain.DefaultNumberWidth(req.DocumentType),
		Status:           domain.SeriesActive,
		ExpirationDate:   expiration,
		AuthorizationRef: derefString(req.AuthorizationRef),
		AuditFields:      domain.NewAuditFields(userID, now),
	}
	if series.Prefix == "" {
		series.Prefix = string(req.DocumentType)
	}
	if req.NumberWidth != nil {
		series.NumberWidth = *req.NumberWidth
	}

	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if series.IsExpiredAt(now) {
		return nil, fmt.Errorf("%w: expiration date %s is in the past", apperrors.ErrValidation, dto.FormatOptionalDate(expiration))
	}

	saved, err := s.seriesRepo.SaveSeries(ctx, series)
	if err != nil {
		if !errors.Is(err, apperrors.ErrConflict) {
			s.LogError(ctx, err, "Failed to save fiscal series", slog.String("document_type", string(series.DocumentType)))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Fiscal series registered",
		slog.String("series_id", saved.SeriesID),
		slog.String("document_type", string(saved.DocumentType)),
		slog.String("status", string(saved.Status)),
		slog.Int64("start", saved.StartNumber),
		slog.Int64("end", saved.EndNumber))
	return saved, nil
}

// RetireSeries takes an ACTIVE series out of circulation. Numbers already issued stay valid.
func (s *fiscalSequenceService) RetireSeries(ctx context.Context, seriesID string, userID string) (*domain.FiscalSeries, error) {
	series, err := s.seriesRepo.FindSeriesByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if series.Status != domain.SeriesActive {
		return nil, fmt.Errorf("%w: series %s is %s, only ACTIVE series can be retired", apperrors.ErrConflict, seriesID, series.Status)
	}
	if err := s.seriesRepo.TransitionSeriesStatus(ctx, seriesID, domain.SeriesActive, domain.SeriesInactive, userID, s.Now()); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Fiscal series retired", slog.String("series_id", seriesID))
	return s.seriesRepo.FindSeriesByID(ctx, seriesID)
}

// ActivateSeries puts an INACTIVE series back into circulation.
func (s *fiscalSequenceService) ActivateSeries(ctx context.Context, seriesID string, userID string) (*domain.FiscalSeries, error) {
	series, err := s.seriesRepo.FindSeriesByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	switch series.Status {
	case domain.SeriesActive:
		return series, nil
	case domain.SeriesExpired:
		return nil, fmt.Errorf("%w: series %s", apperrors.ErrSeriesExpired, seriesID)
	}

	if series.IsExpiredAt(s.Now()) {
		s.expire(ctx, series, domain.SeriesInactive, userID)
		return nil, fmt.Errorf("%w: series %s expired on %s", apperrors.ErrSeriesExpired, seriesID, dto.FormatOptionalDate(series.ExpirationDate))
	}
	if series.IsExhausted() {
		s.expire(ctx, series, domain.SeriesInactive, userID)
		return nil, fmt.Errorf("%w: series %s", apperrors.ErrRangeExhausted, seriesID)
	}

	active, err := s.seriesRepo.ListSeries(ctx, series.DocumentType, domain.SeriesActive)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, fmt.Errorf("%w: series %s is already active for %s", apperrors.ErrConflict, active[0].SeriesID, series.DocumentType)
	}

	if err := s.seriesRepo.TransitionSeriesStatus(ctx, seriesID, domain.SeriesInactive, domain.SeriesActive, userID, s.Now()); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Fiscal series activated", slog.String("series_id", seriesID))
	return s.seriesRepo.FindSeriesByID(ctx, seriesID)
}

func (s *fiscalSequenceService) GetSeries(ctx context.Context, seriesID string) (*domain.FiscalSeries, error) {
	return s.seriesRepo.FindSeriesByID(ctx, seriesID)
}

func (s *fiscalSequenceService) ListSeries(ctx context.Context, params dto.ListSeriesParams) ([]domain.FiscalSeries, error) {
	docType := domain.DocumentType(params.DocumentType)
	if docType != "" && !docType.IsValid() {
		return nil, fmt.Errorf("%w: unknown document type %q", apperrors.ErrValidation, params.DocumentType)
	}
	status := domain.SeriesStatus(params.Status)
	switch status {
	case "", domain.SeriesActive, domain.SeriesInactive, domain.SeriesExpired:
	default:
		return nil, fmt.Errorf("%w: unknown series status %q", apperrors.ErrValidation, params.Status)
	}

	series, err := s.seriesRepo.ListSeries(ctx, docType, status)
	if err != nil {
		s.LogError(ctx, err, "Failed to list fiscal series")
		return nil, err
	}
	return series, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
