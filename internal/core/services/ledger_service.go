package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fiscal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fiscal_ledger/internal/core/ports/services"
	"github.com/SscSPs/fiscal_ledger/internal/dto"
	"github.com/SscSPs/fiscal_ledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// trialBalancePageSize is how many accounts are read per query when building a trial balance.
const trialBalancePageSize = 500

// ledgerService posts balanced journal entries and answers balance questions.
type ledgerService struct {
	BaseService
	journalRepo          portsrepo.JournalRepositoryFacade
	accountRepo          portsrepo.AccountReader
	postingMaxRetries    int
	idempotencyKeyMaxLen int
}

// NewLedgerService creates the posting engine.
func NewLedgerService(journalRepo portsrepo.JournalRepositoryFacade, accountRepo portsrepo.AccountReader, options ...Option) portssvc.LedgerSvcFacade {
	o := applyOptions(options)
	return &ledgerService{
		BaseService:          newBaseService(o),
		journalRepo:          journalRepo,
		accountRepo:          accountRepo,
		postingMaxRetries:    o.postingMaxRetries,
		idempotencyKeyMaxLen: o.idempotencyKeyMaxLen,
	}
}

// PostEntry validates the request completely before anything is written, then persists
// the entry, its lines and the balance deltas in one repository transaction.
func (s *ledgerService) PostEntry(ctx context.Context, req dto.PostEntryRequest, userID string) (*domain.PostingResult, error) {
	entryDate, err := dto.ParseDate(req.EntryDate)
	if err != nil {
		return nil, err
	}
	if err := checkIdempotencyKey(req.IdempotencyKey, s.idempotencyKeyMaxLen); err != nil {
		return nil, err
	}

	now := s.Now()
	entry := domain.JournalEntry{
		EntryID:      uuid.NewString(),
		EntryDate:    entryDate,
		Description:  req.Description,
		Status:       domain.Posted,
		FiscalNumber: req.FiscalNumber,
		Reference:    req.Reference,
		AuditFields:  domain.NewAuditFields(userID, now),
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		entry.IdempotencyKey = &key
	}
	entry.Lines = make([]domain.JournalEntryLine, len(req.Lines))
	for i, l := range req.Lines {
		entry.Lines[i] = domain.JournalEntryLine{
			LineID:       uuid.NewString(),
			EntryID:      entry.EntryID,
			LineNumber:   i + 1,
			AccountID:    l.AccountID,
			DebitAmount:  l.DebitAmount,
			CreditAmount: l.CreditAmount,
			Memo:         l.Memo,
		}
	}
	if _, err := accounting.ValidateEntryLines(entry.Lines); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		replay, err := s.replayPosting(ctx, req.IdempotencyKey, entry)
		if err == nil {
			return replay, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	result, err := s.commit(ctx, entry, func(e domain.JournalEntry, changes map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
		return s.journalRepo.SaveEntry(ctx, e, changes)
	})
	if err != nil {
		if req.IdempotencyKey != "" && errors.Is(err, apperrors.ErrDuplicate) {
			// A concurrent request with the same key won the insert.
			return s.replayPosting(ctx, req.IdempotencyKey, entry)
		}
		return nil, err
	}

	s.LogInfo(ctx, "Journal entry posted",
		slog.String("entry_id", entry.EntryID),
		slog.String("amount", result.Entry.Amount.StringFixed(accounting.AmountScale)),
		slog.Int("lines", len(entry.Lines)))
	return result, nil
}

// ReverseEntry posts the mirror image of a posted entry.
func (s *ledgerService) ReverseEntry(ctx context.Context, entryID string, req dto.ReverseEntryRequest, userID string) (*domain.PostingResult, error) {
	original, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if original.IsReversal() {
		return nil, fmt.Errorf("%w: entry %s is itself a reversal", apperrors.ErrValidation, entryID)
	}
	switch original.Status {
	case domain.Posted:
	case domain.Reversed:
		return nil, fmt.Errorf("%w: entry %s", apperrors.ErrAlreadyReversed, entryID)
	default:
		return nil, fmt.Errorf("%w: entry %s is %s and cannot be reversed", apperrors.ErrValidation, entryID, original.Status)
	}

	lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	entryDate := original.EntryDate
	if req.EntryDate != nil {
		if entryDate, err = dto.ParseDate(*req.EntryDate); err != nil {
			return nil, err
		}
	}
	description := "Reversal of: " + original.Description
	if req.Description != nil && *req.Description != "" {
		description = *req.Description
	}

	now := s.Now()
	reversal := domain.JournalEntry{
		EntryID:           uuid.NewString(),
		EntryDate:         entryDate,
		Description:       description,
		Status:            domain.Posted,
		Reference:         original.Reference,
		ReversalOfEntryID: &original.EntryID,
		AuditFields:       domain.NewAuditFields(userID, now),
	}
	reversal.Lines = make([]domain.JournalEntryLine, len(lines))
	for i, l := range lines {
		swapped := l.Swapped()
		swapped.LineID = uuid.NewString()
		swapped.EntryID = reversal.EntryID
		reversal.Lines[i] = swapped
	}

	result, err := s.commit(ctx, reversal, func(e domain.JournalEntry, changes map[string]decimal.Decimal) (map[string]decimal.Decimal, error) {
		return s.journalRepo.SaveReversal(ctx, original.EntryID, e, changes)
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Journal entry reversed",
		slog.String("entry_id", original.EntryID),
		slog.String("reversal_entry_id", reversal.EntryID))
	return result, nil
}

// commit validates entry, computes balance deltas and runs save, retrying the save on
// transaction conflicts. The validation and delta computation happen once; the
// repository re-checks account postability under row locks on every attempt.
func (s *ledgerService) commit(ctx context.Context, entry domain.JournalEntry, save func(domain.JournalEntry, map[string]decimal.Decimal) (map[string]decimal.Decimal, error)) (*domain.PostingResult, error) {
	total, err := accounting.ValidateEntryLines(entry.Lines)
	if err != nil {
		return nil, err
	}
	entry.Amount = total

	accounts, err := s.postableAccounts(ctx, entry.Lines)
	if err != nil {
		return nil, err
	}
	changes, err := accounting.BalanceChanges(entry.Lines, accounts)
	if err != nil {
		return nil, err
	}

	var balances map[string]decimal.Decimal
	attempt := 0
	err = retryOnConflict(ctx, s.postingMaxRetries, func() error {
		attempt++
		var saveErr error
		balances, saveErr = save(entry, changes)
		if saveErr != nil && apperrors.IsRetryable(saveErr) {
			s.LogWarn(ctx, "Posting hit a transaction conflict",
				slog.String("entry_id", entry.EntryID),
				slog.Int("attempt", attempt))
		}
		return saveErr
	})
	if err != nil {
		if !errors.Is(err, apperrors.ErrInvalidAccount) && !errors.Is(err, apperrors.ErrAlreadyReversed) &&
			!errors.Is(err, apperrors.ErrDuplicate) && !errors.Is(err, apperrors.ErrEntryNotFound) &&
			!errors.Is(err, apperrors.ErrValidation) {
			s.LogError(ctx, err, "Failed to persist journal entry", slog.String("entry_id", entry.EntryID))
		}
		return nil, err
	}

	return &domain.PostingResult{Entry: entry, UpdatedBalances: sortedBalances(balances)}, nil
}

// postableAccounts loads every account referenced by lines and checks that each one
// exists, is active and allows posting.
func (s *ledgerService) postableAccounts(ctx context.Context, lines []domain.JournalEntryLine) (map[string]domain.Account, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; !ok {
			seen[l.AccountID] = struct{}{}
			ids = append(ids, l.AccountID)
		}
	}

	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, ids)
	if err != nil {
		s.LogError(ctx, err, "Failed to load accounts for posting")
		return nil, err
	}
	for _, id := range ids {
		acc, ok := accounts[id]
		switch {
		case !ok:
			return nil, fmt.Errorf("%w: account %s does not exist", apperrors.ErrInvalidAccount, id)
		case !acc.IsActive:
			return nil, fmt.Errorf("%w: account %s is inactive", apperrors.ErrInvalidAccount, acc.Code)
		case !acc.AllowPosting:
			return nil, fmt.Errorf("%w: account %s is a header account", apperrors.ErrInvalidAccount, acc.Code)
		}
	}
	return accounts, nil
}

// replayPosting rebuilds the result of an earlier posting made with key. Balances are
// the current ones of the affected accounts. A stored entry that differs from requested
// is reported as ErrConflict.
func (s *ledgerService) replayPosting(ctx context.Context, key string, requested domain.JournalEntry) (*domain.PostingResult, error) {
	existing, err := s.journalRepo.FindEntryByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, err
	}
	lines, err := s.journalRepo.FindLinesByEntryID(ctx, existing.EntryID)
	if err != nil {
		return nil, err
	}
	existing.Lines = lines
	if !samePosting(*existing, requested) {
		return nil, fmt.Errorf("%w: idempotency key already used for a different journal entry (%s)", apperrors.ErrConflict, existing.EntryID)
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.AccountID)
	}
	accounts, err := s.accountRepo.FindAccountsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	balances := make(map[string]decimal.Decimal, len(accounts))
	for id, acc := range accounts {
		balances[id] = acc.Balance
	}

	s.LogInfo(ctx, "Returning existing journal entry for idempotency key", slog.String("entry_id", existing.EntryID))
	return &domain.PostingResult{Entry: *existing, UpdatedBalances: sortedBalances(balances)}, nil
}

// samePosting compares the date, description and lines of two entries. Lines are matched
// by line number.
func samePosting(stored, requested domain.JournalEntry) bool {
	sy, sm, sd := stored.EntryDate.Date()
	ry, rm, rd := requested.EntryDate.Date()
	if sy != ry || sm != rm || sd != rd || stored.Description != requested.Description {
		return false
	}
	if len(stored.Lines) != len(requested.Lines) {
		return false
	}
	byNumber := make(map[int]domain.JournalEntryLine, len(stored.Lines))
	for _, l := range stored.Lines {
		byNumber[l.LineNumber] = l
	}
	for _, r := range requested.Lines {
		l, ok := byNumber[r.LineNumber]
		if !ok || l.AccountID != r.AccountID ||
			!l.DebitAmount.Equal(r.DebitAmount) || !l.CreditAmount.Equal(r.CreditAmount) {
			return false
		}
	}
	return true
}

func (s *ledgerService) GetEntry(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	lines, err := s.journalRepo.FindLinesByEntryID(ctx, entryID)
	if err != nil {
		s.LogError(ctx, err, "Failed to load journal lines", slog.String("entry_id", entryID))
		return nil, err
	}
	entry.Lines = lines
	return entry, nil
}

func (s *ledgerService) ListEntries(ctx context.Context, params dto.ListEntriesParams) ([]domain.JournalEntry, *string, error) {
	from, err := dto.ParseOptionalDate(params.From)
	if err != nil {
		return nil, nil, err
	}
	to, err := dto.ParseOptionalDate(params.To)
	if err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("%w: from date is after to date", apperrors.ErrValidation)
	}

	entries, next, err := s.journalRepo.ListEntriesByPeriod(ctx, from, to, params.Limit, params.NextToken)
	if err != nil {
		if !errors.Is(err, apperrors.ErrValidation) {
			s.LogError(ctx, err, "Failed to list journal entries")
		}
		return nil, nil, err
	}
	return entries, next, nil
}

func (s *ledgerService) GetAccountBalance(ctx context.Context, accountID string, asOf *time.Time) (decimal.Decimal, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if asOf == nil {
		return account.Balance, nil
	}

	activity, err := s.journalRepo.SumAccountActivity(ctx, accountID, asOf)
	if err != nil {
		s.LogError(ctx, err, "Failed to replay account balance", slog.String("account_id", accountID))
		return decimal.Zero, err
	}
	return accounting.SignedBalance(activity.TotalDebits, activity.TotalCredits, account.NormalBalance), nil
}

// TrialBalance lists every account with activity, its net presented on the debit or the
// credit side, ordered by account code.
func (s *ledgerService) TrialBalance(ctx context.Context, asOf *time.Time) (*domain.TrialBalance, error) {
	activity, err := s.journalRepo.ListAccountActivity(ctx, asOf)
	if err != nil {
		s.LogError(ctx, err, "Failed to load account activity")
		return nil, err
	}

	tb := &domain.TrialBalance{
		AsOf:        asOf,
		Rows:        []domain.TrialBalanceRow{},
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for offset := 0; ; offset += trialBalancePageSize {
		accounts, err := s.accountRepo.ListAccounts(ctx, true, trialBalancePageSize, offset)
		if err != nil {
			s.LogError(ctx, err, "Failed to list accounts for trial balance")
			return nil, err
		}
		for _, acc := range accounts {
			a, ok := activity[acc.AccountID]
			if !ok {
				continue
			}
			row := domain.TrialBalanceRow{
				AccountID:     acc.AccountID,
				Code:          acc.Code,
				AccountName:   acc.Name,
				AccountType:   acc.AccountType,
				NormalBalance: acc.NormalBalance,
				Debit:         decimal.Zero,
				Credit:        decimal.Zero,
				Balance:       accounting.SignedBalance(a.TotalDebits, a.TotalCredits, acc.NormalBalance),
			}
			if net := a.TotalDebits.Sub(a.TotalCredits); net.IsPositive() {
				row.Debit = net
			} else {
				row.Credit = net.Neg()
			}
			tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
			tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
			tb.Rows = append(tb.Rows, row)
		}
		if len(accounts) < trialBalancePageSize {
			break
		}
	}
	return tb, nil
}

func sortedBalances(balances map[string]decimal.Decimal) []domain.AccountBalance {
	out := make([]domain.AccountBalance, 0, len(balances))
	for id, b := range balances {
		out = append(out, domain.AccountBalance{AccountID: id, Balance: b})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}
