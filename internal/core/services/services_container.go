package services

import (
	portsrepo "github.com/SscSPs/fiscal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fiscal_ledger/internal/core/ports/services"
	"github.com/SscSPs/fiscal_ledger/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	options := []Option{
		WithAllocationMaxRetries(cfg.FiscalAllocationMaxRetries),
		WithPostingMaxRetries(cfg.LedgerPostMaxRetries),
		WithIdempotencyKeyMaxLength(cfg.IdempotencyKeyMaxLength),
	}

	return &portssvc.ServiceContainer{
		Account: NewAccountService(repos.AccountRepo, options...),
		Ledger:  NewLedgerService(repos.JournalRepo, repos.AccountRepo, options...),
		Fiscal:  NewFiscalSequenceService(repos.FiscalSeriesRepo, options...),
	}
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.AccountSvcFacade        = (*accountService)(nil)
	_ portssvc.LedgerSvcFacade         = (*ledgerService)(nil)
	_ portssvc.FiscalSequenceSvcFacade = (*fiscalSequenceService)(nil)
)
