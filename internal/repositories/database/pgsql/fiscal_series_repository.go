package pgsql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fiscal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fiscal_ledger/internal/models"
	"github.com/SscSPs/fiscal_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const seriesColumns = `series_id, document_type, prefix, start_number, end_number, current_number, number_width,
	status, expiration_date, authorization_ref, created_at, created_by, last_updated_at, last_updated_by`

const allocationColumns = `allocation_id, series_id, document_type, sequence_number, fiscal_number, idempotency_key,
	allocated_at, allocated_by`

// Partial unique index allowing a single ACTIVE series per document type.
const activeSeriesIndex = "uq_fiscal_series_active"

type PgxFiscalSeriesRepository struct {
	BaseRepository
}

// newPgxFiscalSeriesRepository creates a new repository for fiscal series and allocations.
func newPgxFiscalSeriesRepository(pool *pgxpool.Pool) *PgxFiscalSeriesRepository {
	return &PgxFiscalSeriesRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxFiscalSeriesRepository implements portsrepo.FiscalSeriesRepositoryWithTx
var _ portsrepo.FiscalSeriesRepositoryWithTx = (*PgxFiscalSeriesRepository)(nil)

func scanSeries(row pgx.Row) (models.FiscalSeries, error) {
	var m models.FiscalSeries
	err := row.Scan(
		&m.SeriesID,
		&m.DocumentType,
		&m.Prefix,
		&m.StartNumber,
		&m.EndNumber,
		&m.CurrentNumber,
		&m.NumberWidth,
		&m.Status,
		&m.ExpirationDate,
		&m.AuthorizationRef,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

func scanAllocation(row pgx.Row) (models.FiscalAllocation, error) {
	var m models.FiscalAllocation
	err := row.Scan(
		&m.AllocationID,
		&m.SeriesID,
		&m.DocumentType,
		&m.SequenceNumber,
		&m.FiscalNumber,
		&m.IdempotencyKey,
		&m.AllocatedAt,
		&m.AllocatedBy,
	)
	return m, err
}

// SaveSeries inserts a new series. Registrations of the same document type are
// serialised with a transaction-scoped advisory lock so that the overlap check and the
// ACTIVE/INACTIVE decision see every committed series of the type.
func (r *PgxFiscalSeriesRepository) SaveSeries(ctx context.Context, series domain.FiscalSeries) (*domain.FiscalSeries, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('fiscal_series:' || $1::text));`, string(series.DocumentType)); err != nil {
		return nil, wrapDBError("failed to lock document type "+string(series.DocumentType), err)
	}

	var overlapping string
	err = tx.QueryRow(ctx, `
		SELECT series_id FROM fiscal_series
		WHERE document_type = $1 AND start_number <= $3 AND $2 <= end_number
		ORDER BY start_number
		LIMIT 1;
	`, string(series.DocumentType), series.StartNumber, series.EndNumber).Scan(&overlapping)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: range %d-%d overlaps series %s", apperrors.ErrConflict, series.StartNumber, series.EndNumber, overlapping)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, wrapDBError("failed to check overlapping series", err)
	}

	var hasActive bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM fiscal_series WHERE document_type = $1 AND status = 'ACTIVE');`,
		string(series.DocumentType)).Scan(&hasActive); err != nil {
		return nil, wrapDBError("failed to check active series", err)
	}
	series.Status = domain.SeriesActive
	if hasActive {
		series.Status = domain.SeriesInactive
	}

	m := mapping.ToModelFiscalSeries(series)
	_, err = tx.Exec(ctx, `
		INSERT INTO fiscal_series (`+seriesColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`,
		m.SeriesID,
		m.DocumentType,
		m.Prefix,
		m.StartNumber,
		m.EndNumber,
		m.CurrentNumber,
		m.NumberWidth,
		m.Status,
		m.ExpirationDate,
		m.AuthorizationRef,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolationOn(err, activeSeriesIndex) {
			return nil, fmt.Errorf("%w: another series of type %s became active", apperrors.ErrConflict, series.DocumentType)
		}
		return nil, wrapDBError("failed to insert fiscal series", err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return &series, nil
}

// AdvanceSeries moves the counter by exactly one and records the allocation. The UPDATE
// only matches while the counter still holds the value the caller read and the series is
// still ACTIVE; a concurrent allocator that got there first makes it match nothing.
func (r *PgxFiscalSeriesRepository) AdvanceSeries(ctx context.Context, adv domain.SeriesAdvance) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	cmdTag, err := tx.Exec(ctx, `
		UPDATE fiscal_series
		SET current_number = current_number + 1, status = $3, last_updated_at = $4, last_updated_by = $5
		WHERE series_id = $1 AND current_number = $2 AND status = 'ACTIVE';
	`, adv.SeriesID, adv.ExpectedCurrent, string(adv.NewStatus), adv.Allocation.AllocatedAt, adv.Allocation.AllocatedBy)
	if err != nil {
		return wrapDBError("failed to advance fiscal series "+adv.SeriesID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: series %s moved past %d", apperrors.ErrTransactionConflict, adv.SeriesID, adv.ExpectedCurrent)
	}

	m := mapping.ToModelFiscalAllocation(adv.Allocation)
	_, err = tx.Exec(ctx, `
		INSERT INTO fiscal_allocations (`+allocationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`,
		m.AllocationID,
		m.SeriesID,
		m.DocumentType,
		m.SequenceNumber,
		m.FiscalNumber,
		m.IdempotencyKey,
		m.AllocatedAt,
		m.AllocatedBy,
	)
	if err != nil {
		return wrapDBError("failed to record allocation of "+m.FiscalNumber, err)
	}

	return r.Commit(ctx, tx)
}

// TransitionSeriesStatus changes the status only when the series is currently in `from`.
func (r *PgxFiscalSeriesRepository) TransitionSeriesStatus(ctx context.Context, seriesID string, from, to domain.SeriesStatus, userID string, now time.Time) error {
	cmdTag, err := r.Pool.Exec(ctx, `
		UPDATE fiscal_series
		SET status = $3, last_updated_at = $4, last_updated_by = $5
		WHERE series_id = $1 AND status = $2;
	`, seriesID, string(from), string(to), now, userID)
	if err != nil {
		if isUniqueViolationOn(err, activeSeriesIndex) {
			return fmt.Errorf("%w: another series of the same document type is active", apperrors.ErrConflict)
		}
		return wrapDBError("failed to update status of fiscal series "+seriesID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		if _, err := r.FindSeriesByID(ctx, seriesID); err != nil {
			return err
		}
		return fmt.Errorf("%w: series %s is not %s", apperrors.ErrConflict, seriesID, from)
	}
	return nil
}

// FindSeriesByID retrieves a series by its ID.
func (r *PgxFiscalSeriesRepository) FindSeriesByID(ctx context.Context, seriesID string) (*domain.FiscalSeries, error) {
	m, err := scanSeries(r.Pool.QueryRow(ctx, `SELECT `+seriesColumns+` FROM fiscal_series WHERE series_id = $1;`, seriesID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to find fiscal series "+seriesID, err)
	}
	series := mapping.ToDomainFiscalSeries(m)
	return &series, nil
}

// ListSeries retrieves series filtered by document type and status.
func (r *PgxFiscalSeriesRepository) ListSeries(ctx context.Context, documentType domain.DocumentType, status domain.SeriesStatus) ([]domain.FiscalSeries, error) {
	query := `
		SELECT ` + seriesColumns + `
		FROM fiscal_series
		WHERE ($1::text = '' OR document_type = $1) AND ($2::text = '' OR status = $2)
		ORDER BY document_type, start_number;
	`
	rows, err := r.Pool.Query(ctx, query, string(documentType), string(status))
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to list fiscal series", err)
	}
	defer rows.Close()

	series := []domain.FiscalSeries{}
	for rows.Next() {
		m, err := scanSeries(rows)
		if err != nil {
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan fiscal series row", err)
		}
		series = append(series, mapping.ToDomainFiscalSeries(m))
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "error iterating fiscal series rows", err)
	}
	return series, nil
}

// FindAllocationByIdempotencyKey retrieves the allocation made under key.
func (r *PgxFiscalSeriesRepository) FindAllocationByIdempotencyKey(ctx context.Context, key string) (*domain.FiscalAllocation, error) {
	return r.findAllocation(ctx, "idempotency_key", key)
}

// FindAllocationByFiscalNumber retrieves the allocation of an issued number.
func (r *PgxFiscalSeriesRepository) FindAllocationByFiscalNumber(ctx context.Context, fiscalNumber string) (*domain.FiscalAllocation, error) {
	return r.findAllocation(ctx, "fiscal_number", fiscalNumber)
}

// findAllocation looks up by one of the unique columns; column is never user input.
func (r *PgxFiscalSeriesRepository) findAllocation(ctx context.Context, column, value string) (*domain.FiscalAllocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM fiscal_allocations WHERE ` + column + ` = $1;`
	m, err := scanAllocation(r.Pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to find fiscal allocation by "+column, err)
	}
	alloc := mapping.ToDomainFiscalAllocation(m)
	return &alloc, nil
}
