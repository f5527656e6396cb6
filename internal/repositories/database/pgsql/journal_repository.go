package pgsql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fiscal_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/fiscal_ledger/internal/models"
	"github.com/SscSPs/fiscal_ledger/internal/utils/mapping"
	"github.com/SscSPs/fiscal_ledger/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const entryColumns = `entry_id, entry_date, description, status, amount, fiscal_number, reference, idempotency_key,
	reversal_of_entry_id, reversed_by_entry_id, created_at, created_by, last_updated_at, last_updated_by`

const lineColumns = `line_id, entry_id, line_number, account_id, debit_amount, credit_amount, memo, created_at, created_by`

type PgxJournalRepository struct {
	BaseRepository
	accountRepo portsrepo.AccountTransactionSupport
}

// newPgxJournalRepository creates a new repository for journal entries and lines.
func newPgxJournalRepository(pool *pgxpool.Pool, accountRepo portsrepo.AccountTransactionSupport) *PgxJournalRepository {
	return &PgxJournalRepository{
		BaseRepository: BaseRepository{Pool: pool},
		accountRepo:    accountRepo,
	}
}

// Ensure PgxJournalRepository implements portsrepo.JournalRepositoryWithTx
var _ portsrepo.JournalRepositoryWithTx = (*PgxJournalRepository)(nil)

func scanEntry(row pgx.Row) (models.JournalEntry, error) {
	var m models.JournalEntry
	err := row.Scan(
		&m.EntryID,
		&m.EntryDate,
		&m.Description,
		&m.Status,
		&m.Amount,
		&m.FiscalNumber,
		&m.Reference,
		&m.IdempotencyKey,
		&m.ReversalOfEntryID,
		&m.ReversedByEntryID,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// SaveEntry saves a posted entry, updates account balances and saves its lines within one DB transaction.
func (r *PgxJournalRepository) SaveEntry(ctx context.Context, entry domain.JournalEntry, balanceChanges map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx) // no-op once committed

	if err := r.insertEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	balances, err := r.applyBalances(ctx, tx, balanceChanges, entry.CreatedBy, entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := r.insertLines(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return balances, nil
}

// SaveReversal flips the original entry to REVERSED, saves the reversing entry with its
// lines and applies its balance changes within one DB transaction.
func (r *PgxJournalRepository) SaveReversal(ctx context.Context, originalEntryID string, reversal domain.JournalEntry, balanceChanges map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	// The reversed_by_entry_id foreign key is deferred, so the link can be set before
	// the reversing row exists. The row lock taken here serialises concurrent reversals.
	markQuery := `
		UPDATE journal_entries
		SET status = $3, reversed_by_entry_id = $2, last_updated_at = $4, last_updated_by = $5
		WHERE entry_id = $1 AND status = $6;
	`
	cmdTag, err := tx.Exec(ctx, markQuery,
		originalEntryID,
		reversal.EntryID,
		string(domain.Reversed),
		reversal.CreatedAt,
		reversal.CreatedBy,
		string(domain.Posted),
	)
	if err != nil {
		return nil, wrapDBError("failed to mark entry "+originalEntryID+" as reversed", err)
	}
	if cmdTag.RowsAffected() == 0 {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM journal_entries WHERE entry_id = $1;`, originalEntryID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEntryNotFound
		}
		if err != nil {
			return nil, wrapDBError("failed to read status of entry "+originalEntryID, err)
		}
		return nil, fmt.Errorf("%w: entry %s is %s", apperrors.ErrAlreadyReversed, originalEntryID, status)
	}

	if err := r.insertEntry(ctx, tx, reversal); err != nil {
		return nil, err
	}
	balances, err := r.applyBalances(ctx, tx, balanceChanges, reversal.CreatedBy, reversal.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := r.insertLines(ctx, tx, reversal); err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *PgxJournalRepository) insertEntry(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry) error {
	m := mapping.ToModelJournalEntry(entry)
	query := `
		INSERT INTO journal_entries (
			entry_id, entry_date, description, status, amount, fiscal_number, reference, idempotency_key,
			reversal_of_entry_id, reversed_by_entry_id, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
	`
	_, err := tx.Exec(ctx, query,
		m.EntryID,
		m.EntryDate,
		m.Description,
		m.Status,
		m.Amount,
		m.FiscalNumber,
		m.Reference,
		m.IdempotencyKey,
		m.ReversalOfEntryID,
		m.ReversedByEntryID,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		return wrapDBError("failed to insert journal entry "+m.EntryID, err)
	}
	return nil
}

// applyBalances locks the affected accounts, re-checks that they still accept postings
// and applies the deltas.
func (r *PgxJournalRepository) applyBalances(ctx context.Context, tx pgx.Tx, balanceChanges map[string]decimal.Decimal, userID string, now time.Time) (map[string]decimal.Decimal, error) {
	accountIDs := make([]string, 0, len(balanceChanges))
	for accID := range balanceChanges {
		accountIDs = append(accountIDs, accID)
	}

	locked, err := r.accountRepo.FindAccountsByIDsForUpdate(ctx, tx, accountIDs)
	if err != nil {
		return nil, err
	}
	for _, acc := range locked {
		if !acc.CanReceivePostings() {
			return nil, fmt.Errorf("%w: account %s no longer accepts postings", apperrors.ErrInvalidAccount, acc.AccountID)
		}
	}

	return r.accountRepo.UpdateAccountBalancesInTx(ctx, tx, balanceChanges, userID, now)
}

func (r *PgxJournalRepository) insertLines(ctx context.Context, tx pgx.Tx, entry domain.JournalEntry) error {
	query := `
		INSERT INTO journal_lines (` + lineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	batch := &pgx.Batch{}
	for _, line := range entry.Lines {
		m := mapping.ToModelJournalLine(line, entry.AuditFields)
		batch.Queue(query,
			m.LineID,
			m.EntryID,
			m.LineNumber,
			m.AccountID,
			m.DebitAmount,
			m.CreditAmount,
			m.Memo,
			m.CreatedAt,
			m.CreatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return wrapDBError("failed to insert lines for journal entry "+entry.EntryID, err)
	}
	return nil
}

// FindEntryByID retrieves an entry header by its ID.
func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE entry_id = $1;`
	m, err := scanEntry(r.Pool.QueryRow(ctx, query, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to find journal entry "+entryID, err)
	}
	entry := mapping.ToDomainJournalEntry(m)
	return &entry, nil
}

// FindEntryByIdempotencyKey retrieves the entry created with the given key.
func (r *PgxJournalRepository) FindEntryByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE idempotency_key = $1;`
	m, err := scanEntry(r.Pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to find journal entry by idempotency key", err)
	}
	entry := mapping.ToDomainJournalEntry(m)
	return &entry, nil
}

// FindLinesByEntryID retrieves the lines of an entry in line-number order.
func (r *PgxJournalRepository) FindLinesByEntryID(ctx context.Context, entryID string) ([]domain.JournalEntryLine, error) {
	query := `SELECT ` + lineColumns + ` FROM journal_lines WHERE entry_id = $1 ORDER BY line_number;`
	rows, err := r.Pool.Query(ctx, query, entryID)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to query lines for journal entry "+entryID, err)
	}
	defer rows.Close()

	lines := []models.JournalLine{}
	for rows.Next() {
		var l models.JournalLine
		if err := rows.Scan(
			&l.LineID,
			&l.EntryID,
			&l.LineNumber,
			&l.AccountID,
			&l.DebitAmount,
			&l.CreditAmount,
			&l.Memo,
			&l.CreatedAt,
			&l.CreatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan line row for journal entry "+entryID, err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "error iterating line rows for journal entry "+entryID, err)
	}
	return mapping.ToDomainJournalLineSlice(lines), nil
}

// ListEntriesByPeriod retrieves entries dated within [from, to], oldest first, using
// token-based pagination on (entry_date, created_at, entry_id).
func (r *PgxJournalRepository) ListEntriesByPeriod(ctx context.Context, from, to *time.Time, limit int, nextToken *string) ([]domain.JournalEntry, *string, error) {
	if limit <= 0 {
		limit = 20
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	query := `SELECT ` + entryColumns + ` FROM journal_entries
		WHERE ($1::date IS NULL OR entry_date >= $1) AND ($2::date IS NULL OR entry_date <= $2)`
	args := []any{from, to}

	if nextToken != nil && *nextToken != "" {
		cursor, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.NewAppError(http.StatusBadRequest, "invalid nextToken", fmt.Errorf("%w: %w", apperrors.ErrValidation, err))
		}
		query += ` AND (entry_date, created_at, entry_id) > ($3, $4, $5)`
		args = append(args, cursor.EntryDate, cursor.CreatedAt, cursor.EntryID)
	}
	query += ` ORDER BY entry_date, created_at, entry_id LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to query journal entries", err)
	}
	defer rows.Close()

	modelEntries := make([]models.JournalEntry, 0, fetchLimit)
	for rows.Next() {
		m, err := scanEntry(rows)
		if err != nil {
			return nil, nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan journal entry row", err)
		}
		modelEntries = append(modelEntries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, apperrors.NewAppError(http.StatusInternalServerError, "error iterating journal entry rows", err)
	}

	var nextTokenVal *string
	results := modelEntries
	if len(modelEntries) > limit {
		last := modelEntries[limit-1]
		token := pagination.EncodeToken(pagination.Cursor{EntryDate: last.EntryDate, CreatedAt: last.CreatedAt, EntryID: last.EntryID})
		nextTokenVal = &token
		results = modelEntries[:limit]
	}

	entries := make([]domain.JournalEntry, len(results))
	for i, m := range results {
		entries[i] = mapping.ToDomainJournalEntry(m)
	}
	return entries, nextTokenVal, nil
}

// activityFilter selects the lines that count towards balances: every line of a POSTED
// or REVERSED entry. A reversed entry and its reversal both count and cancel out.
const activityFilter = `e.status IN ('POSTED', 'REVERSED') AND ($1::date IS NULL OR e.entry_date <= $1)`

// SumAccountActivity totals the debits and credits of one account.
func (r *PgxJournalRepository) SumAccountActivity(ctx context.Context, accountID string, asOf *time.Time) (domain.AccountActivity, error) {
	query := `
		SELECT COALESCE(SUM(l.debit_amount), 0), COALESCE(SUM(l.credit_amount), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE ` + activityFilter + ` AND l.account_id = $2;
	`
	activity := domain.AccountActivity{AccountID: accountID}
	if err := r.Pool.QueryRow(ctx, query, asOf, accountID).Scan(&activity.TotalDebits, &activity.TotalCredits); err != nil {
		return domain.AccountActivity{}, apperrors.NewAppError(http.StatusInternalServerError, "failed to sum activity for account "+accountID, err)
	}
	return activity, nil
}

// ListAccountActivity returns the debit and credit totals of every account with activity.
func (r *PgxJournalRepository) ListAccountActivity(ctx context.Context, asOf *time.Time) (map[string]domain.AccountActivity, error) {
	query := `
		SELECT l.account_id, COALESCE(SUM(l.debit_amount), 0), COALESCE(SUM(l.credit_amount), 0)
		FROM journal_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE ` + activityFilter + `
		GROUP BY l.account_id;
	`
	rows, err := r.Pool.Query(ctx, query, asOf)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to query account activity", err)
	}
	defer rows.Close()

	activity := make(map[string]domain.AccountActivity)
	for rows.Next() {
		var a domain.AccountActivity
		if err := rows.Scan(&a.AccountID, &a.TotalDebits, &a.TotalCredits); err != nil {
			return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to scan account activity row", err)
		}
		activity[a.AccountID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "error iterating account activity rows", err)
	}
	return activity, nil
}
