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

// accountService maintains the chart of accounts.
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
}

// NewAccountService creates a new account service with the provided options
func NewAccountService(repo portsrepo.AccountRepositoryFacade, options ...Option) portssvc.AccountSvcFacade {
	return &accountService{
		BaseService: newBaseService(applyOptions(options)),
		accountRepo: repo,
	}
}

func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, userID string) (*domain.Account, error) {
	if !req.AccountType.IsValid() {
		return nil, fmt.Errorf("%w: unknown account type %q", apperrors.ErrValidation, req.AccountType)
	}
	normal := domain.DefaultNormalBalance(req.AccountType)
	if req.NormalBalance != nil {
		if !req.NormalBalance.IsValid() {
			return nil, fmt.Errorf("%w: unknown normal balance %q", apperrors.ErrValidation, *req.NormalBalance)
		}
		normal = *req.NormalBalance
	}

	existing, err := s.accountRepo.FindAccountByCode(ctx, req.Code)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: account code %s is already used by %q", apperrors.ErrDuplicate, req.Code, existing.Name)
	case !errors.Is(err, apperrors.ErrNotFound):
		s.LogError(ctx, err, "Failed to look up account code", slog.String("code", req.Code))
		return nil, err
	}

	parentID := ""
	if req.ParentAccountID != nil && *req.ParentAccountID != "" {
		parentID = *req.ParentAccountID
		parent, err := s.accountRepo.FindAccountByID(ctx, parentID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: parent account %s not found", apperrors.ErrValidation, parentID)
			}
			s.LogError(ctx, err, "Failed to find parent account", slog.String("parent_id", parentID))
			return nil, fmt.Errorf("failed to load parent account: %w", err)
		}
		if parent.AllowPosting {
			return nil, fmt.Errorf("%w: parent account %s accepts postings and cannot be a header account", apperrors.ErrValidation, parent.Code)
		}
	}

	allowPosting := true
	if req.AllowPosting != nil {
		allowPosting = *req.AllowPosting
	}

	account := domain.Account{
		AccountID:       uuid.NewString(),
		Code:            req.Code,
		Name:            req.Name,
		AccountType:     req.AccountType,
		NormalBalance:   normal,
		ParentAccountID: parentID,
		Description:     req.Description,
		IsActive:        true,
		AllowPosting:    allowPosting,
		AuditFields:     domain.NewAuditFields(userID, s.Now()),
	}

	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: account code %s is already in use", apperrors.ErrDuplicate, req.Code)
		}
		s.LogError(ctx, err, "Failed to save account", slog.String("code", account.Code))
		return nil, err
	}

	s.LogInfo(ctx, "Account created",
		slog.String("account_id", account.AccountID),
		slog.String("code", account.Code))
	return &account, nil
}

func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find account by ID", slog.String("account_id", accountID))
		}
		return nil, err
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context, params dto.ListAccountsParams) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx, params.IncludeInactive, params.Limit, params.Offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts",
			slog.Int("limit", params.Limit),
			slog.Int("offset", params.Offset))
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

func (s *accountService) DeactivateAccount(ctx context.Context, accountID string, userID string) error {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.IsActive {
		return fmt.Errorf("%w: account %s is already inactive", apperrors.ErrConflict, account.Code)
	}
	if !account.Balance.IsZero() {
		return fmt.Errorf("%w: account %s has a non-zero balance of %s", apperrors.ErrValidation, account.Code, account.Balance.StringFixed(2))
	}

	if err := s.accountRepo.DeactivateAccount(ctx, accountID, userID, s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to deactivate account", slog.String("account_id", accountID))
		return err
	}

	s.LogInfo(ctx, "Account deactivated", slog.String("account_id", accountID))
	return nil
}
