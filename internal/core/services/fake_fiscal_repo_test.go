package services_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fiscal_ledger/internal/core/ports/repositories"
)

// fakeSeriesRepo keeps fiscal series in memory with the same conditional-update
// semantics as the Postgres repository.
type fakeSeriesRepo struct {
	mu          sync.Mutex
	series      map[string]*domain.FiscalSeries
	byKey       map[string]domain.FiscalAllocation
	byNumber    map[string]domain.FiscalAllocation
	forceStale  int // AdvanceSeries calls that report a moved counter
	advanceCall int
}

var _ portsrepo.FiscalSeriesRepositoryFacade = (*fakeSeriesRepo)(nil)

func newFakeSeriesRepo() *fakeSeriesRepo {
	return &fakeSeriesRepo{
		series:   map[string]*domain.FiscalSeries{},
		byKey:    map[string]domain.FiscalAllocation{},
		byNumber: map[string]domain.FiscalAllocation{},
	}
}

func (r *fakeSeriesRepo) put(s domain.FiscalSeries) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series[s.SeriesID] = &s
}

func (r *fakeSeriesRepo) FindSeriesByID(_ context.Context, seriesID string) (*domain.FiscalSeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.series[seriesID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (r *fakeSeriesRepo) ListSeries(_ context.Context, documentType domain.DocumentType, status domain.SeriesStatus) ([]domain.FiscalSeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.FiscalSeries{}
	for _, s := range r.series {
		if documentType != "" && s.DocumentType != documentType {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentType != out[j].DocumentType {
			return out[i].DocumentType < out[j].DocumentType
		}
		return out[i].StartNumber < out[j].StartNumber
	})
	return out, nil
}

func (r *fakeSeriesRepo) FindAllocationByIdempotencyKey(_ context.Context, key string) (*domain.FiscalAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byKey[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &a, nil
}

func (r *fakeSeriesRepo) FindAllocationByFiscalNumber(_ context.Context, fiscalNumber string) (*domain.FiscalAllocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byNumber[fiscalNumber]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &a, nil
}

func (r *fakeSeriesRepo) SaveSeries(_ context.Context, series domain.FiscalSeries) (*domain.FiscalSeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.series {
		if s.DocumentType != series.DocumentType {
			continue
		}
		if s.Overlaps(series) {
			return nil, apperrors.ErrConflict
		}
		if s.Status == domain.SeriesActive {
			series.Status = domain.SeriesInactive
		}
	}
	r.series[series.SeriesID] = &series
	out := series
	return &out, nil
}

func (r *fakeSeriesRepo) AdvanceSeries(_ context.Context, adv domain.SeriesAdvance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advanceCall++
	if r.forceStale > 0 {
		r.forceStale--
		return apperrors.ErrTransactionConflict
	}
	s, ok := r.series[adv.SeriesID]
	if !ok || s.Status != domain.SeriesActive || s.CurrentNumber != adv.ExpectedCurrent {
		return apperrors.ErrTransactionConflict
	}
	key := adv.Allocation.IdempotencyKey
	if key != nil {
		if _, used := r.byKey[*key]; used {
			return apperrors.ErrDuplicate
		}
	}
	if _, used := r.byNumber[adv.Allocation.FiscalNumber]; used {
		return apperrors.ErrDuplicate
	}
	if key != nil {
		r.byKey[*key] = adv.Allocation
	}
	r.byNumber[adv.Allocation.FiscalNumber] = adv.Allocation
	s.CurrentNumber = adv.ExpectedCurrent + 1
	s.Status = adv.NewStatus
	return nil
}

func (r *fakeSeriesRepo) TransitionSeriesStatus(_ context.Context, seriesID string, from, to domain.SeriesStatus, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.series[seriesID]
	if !ok {
		return apperrors.ErrNotFound
	}
	if s.Status != from {
		return apperrors.ErrConflict
	}
	s.Status = to
	s.LastUpdatedAt = now
	s.LastUpdatedBy = userID
	return nil
}
