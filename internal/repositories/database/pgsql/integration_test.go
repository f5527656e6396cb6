//go:build integration

package pgsql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/fiscal_ledger/internal/apperrors"
	"github.com/SscSPs/fiscal_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/fiscal_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/fiscal_ledger/internal/core/ports/services"
	"github.com/SscSPs/fiscal_ledger/internal/core/services"
	"github.com/SscSPs/fiscal_ledger/internal/dto"
	"github.com/SscSPs/fiscal_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/fiscal_ledger/pkg/database"
	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresIntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
	repos     portsrepo.RepositoryProvider
	fiscal    portssvc.FiscalSequenceSvcFacade
	accounts  portssvc.AccountSvcFacade
	ledger    portssvc.LedgerSvcFacade
}

func (s *PostgresIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := tcpostgres.Run(s.ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("fiscal_ledger_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	s.Require().NoError(err, "failed to start PostgreSQL container")
	s.container = container

	dsn, err := container.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)
	s.runMigrations(dsn)

	s.pool, err = database.NewPgxPool(s.ctx, dsn, true)
	s.Require().NoError(err)

	s.repos = pgsql.NewRepositoryProvider(s.pool)
	s.fiscal = services.NewFiscalSequenceService(s.repos.FiscalSeriesRepo, services.WithAllocationMaxRetries(500))
	s.accounts = services.NewAccountService(s.repos.AccountRepo)
	s.ledger = services.NewLedgerService(s.repos.JournalRepo, s.repos.AccountRepo, services.WithPostingMaxRetries(20))
}

func (s *PostgresIntegrationTestSuite) TearDownSuite() {
	if s.pool != nil {
		database.ClosePgxPool(s.pool)
	}
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.T().Logf("failed to terminate container: %v", err)
		}
	}
}

func (s *PostgresIntegrationTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, `TRUNCATE fiscal_allocations, fiscal_series, journal_lines, journal_entries, accounts CASCADE;`)
	s.Require().NoError(err)
}

func (s *PostgresIntegrationTestSuite) runMigrations(dsn string) {
	path, err := filepath.Abs("../../../../migrations")
	s.Require().NoError(err)

	db, err := sql.Open("pgx", dsn)
	s.Require().NoError(err)
	defer db.Close()

	driver, err := mpg.WithInstance(db, &mpg.Config{})
	s.Require().NoError(err)
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	s.Require().NoError(err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		s.Require().NoError(err)
	}
}

func (s *PostgresIntegrationTestSuite) createAccount(code string, accountType domain.AccountType) *domain.Account {
	acc, err := s.accounts.CreateAccount(s.ctx, dto.CreateAccountRequest{
		Code:        code,
		Name:        "Account " + code,
		AccountType: accountType,
	}, "setup")
	s.Require().NoError(err)
	return acc
}

func (s *PostgresIntegrationTestSuite) balanceOf(accountID string) decimal.Decimal {
	acc, err := s.repos.AccountRepo.FindAccountByID(s.ctx, accountID)
	s.Require().NoError(err)
	return acc.Balance
}

func (s *PostgresIntegrationTestSuite) TestConcurrentAllocationIsGapFree() {
	_, err := s.fiscal.RegisterSeries(s.ctx, dto.RegisterSeriesRequest{
		DocumentType: domain.FinalConsumer,
		StartNumber:  1,
		EndNumber:    10000,
	}, "admin")
	s.Require().NoError(err)

	const workers = 40
	numbers := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := s.fiscal.Allocate(s.ctx, dto.AllocateRequest{DocumentType: domain.FinalConsumer}, "pos")
			if err != nil {
				s.T().Errorf("allocation failed: %v", err)
				return
			}
			numbers <- a.FiscalNumber
		}()
	}
	wg.Wait()
	close(numbers)

	seen := map[string]bool{}
	for n := range numbers {
		s.False(seen[n], "number %s issued twice", n)
		seen[n] = true
	}
	s.Len(seen, workers)
	for i := 1; i <= workers; i++ {
		s.True(seen[fmt.Sprintf("B02%08d", i)], "gap at %d", i)
	}

	var stored int
	s.Require().NoError(s.pool.QueryRow(s.ctx, `SELECT count(*) FROM fiscal_allocations;`).Scan(&stored))
	s.Equal(workers, stored)
}

func (s *PostgresIntegrationTestSuite) TestExhaustionThenNewRange() {
	_, err := s.fiscal.RegisterSeries(s.ctx, dto.RegisterSeriesRequest{DocumentType: domain.CreditFiscal, StartNumber: 1, EndNumber: 2}, "admin")
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		_, err := s.fiscal.Allocate(s.ctx, dto.AllocateRequest{DocumentType: domain.CreditFiscal}, "pos")
		s.Require().NoError(err)
	}
	_, err = s.fiscal.Allocate(s.ctx, dto.AllocateRequest{DocumentType: domain.CreditFiscal}, "pos")
	s.ErrorIs(err, apperrors.ErrRangeExhausted)

	next, err := s.fiscal.RegisterSeries(s.ctx, dto.RegisterSeriesRequest{DocumentType: domain.CreditFiscal, StartNumber: 3, EndNumber: 10}, "admin")
	s.Require().NoError(err)
	s.Equal(domain.SeriesActive, next.Status)

	a, err := s.fiscal.Allocate(s.ctx, dto.AllocateRequest{DocumentType: domain.CreditFiscal, IdempotencyKey: "inv-3"}, "pos")
	s.Require().NoError(err)
	s.Equal("B0100000003", a.FiscalNumber)

	again, err := s.fiscal.Allocate(s.ctx, dto.AllocateRequest{DocumentType: domain.CreditFiscal, IdempotencyKey: "inv-3"}, "pos")
	s.Require().NoError(err)
	s.Equal(a.AllocationID, again.AllocationID)
}

func (s *PostgresIntegrationTestSuite) TestPostingAndReversal() {
	cash := s.createAccount("1.1.01", domain.Asset)
	sales := s.createAccount("4.1.01", domain.Income)
	itbis := s.createAccount("2.1.05", domain.Liability)

	req := dto.PostEntryRequest{
		EntryDate:   "2024-03-15",
		Description: "Venta al contado",
		Lines: []dto.JournalLineRequest{
			{AccountID: cash.AccountID, DebitAmount: decimal.RequireFromString("118.00")},
			{AccountID: sales.AccountID, CreditAmount: decimal.RequireFromString("100.00")},
			{AccountID: itbis.AccountID, CreditAmount: decimal.RequireFromString("18.00")},
		},
		IdempotencyKey: "sale-1",
	}
	result, err := s.ledger.PostEntry(s.ctx, req, "cashier")
	s.Require().NoError(err)
	s.True(s.balanceOf(cash.AccountID).Equal(decimal.NewFromInt(118)))
	s.True(s.balanceOf(sales.AccountID).Equal(decimal.NewFromInt(100)))
	s.True(s.balanceOf(itbis.AccountID).Equal(decimal.NewFromInt(18)))

	replay, err := s.ledger.PostEntry(s.ctx, req, "cashier")
	s.Require().NoError(err)
	s.Equal(result.Entry.EntryID, replay.Entry.EntryID)
	s.True(s.balanceOf(cash.AccountID).Equal(decimal.NewFromInt(118)))

	req.Description = "Otra venta"
	_, err = s.ledger.PostEntry(s.ctx, req, "cashier")
	s.ErrorIs(err, apperrors.ErrConflict)

	asOf := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	before, err := s.ledger.GetAccountBalance(s.ctx, cash.AccountID, &asOf)
	s.Require().NoError(err)
	s.True(before.IsZero())

	_, err = s.ledger.ReverseEntry(s.ctx, result.Entry.EntryID, dto.ReverseEntryRequest{}, "cashier")
	s.Require().NoError(err)
	s.True(s.balanceOf(cash.AccountID).IsZero())
	s.True(s.balanceOf(sales.AccountID).IsZero())

	_, err = s.ledger.ReverseEntry(s.ctx, result.Entry.EntryID, dto.ReverseEntryRequest{}, "cashier")
	s.ErrorIs(err, apperrors.ErrAlreadyReversed)

	tb, err := s.ledger.TrialBalance(s.ctx, nil)
	s.Require().NoError(err)
	s.True(tb.TotalDebit.Equal(tb.TotalCredit))
}

func (s *PostgresIntegrationTestSuite) TestFailedPostingLeavesNoTrace() {
	cash := s.createAccount("1.1.01", domain.Asset)
	sales := s.createAccount("4.1.01", domain.Income)

	entryID := uuid.NewString()
	now := time.Now().UTC()
	entry := domain.JournalEntry{
		EntryID:     entryID,
		EntryDate:   time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Description: "duplicate line numbers",
		Status:      domain.Posted,
		Amount:      decimal.NewFromInt(50),
		AuditFields: domain.NewAuditFields("cashier", now),
		Lines: []domain.JournalEntryLine{
			{LineID: uuid.NewString(), EntryID: entryID, LineNumber: 1, AccountID: cash.AccountID, DebitAmount: decimal.NewFromInt(50), CreditAmount: decimal.Zero},
			{LineID: uuid.NewString(), EntryID: entryID, LineNumber: 1, AccountID: sales.AccountID, DebitAmount: decimal.Zero, CreditAmount: decimal.NewFromInt(50)},
		},
	}
	changes := map[string]decimal.Decimal{cash.AccountID: decimal.NewFromInt(50), sales.AccountID: decimal.NewFromInt(50)}

	_, err := s.repos.JournalRepo.SaveEntry(s.ctx, entry, changes)
	s.Require().Error(err)

	_, err = s.repos.JournalRepo.FindEntryByID(s.ctx, entryID)
	s.ErrorIs(err, apperrors.ErrEntryNotFound)
	s.True(s.balanceOf(cash.AccountID).IsZero())
	s.True(s.balanceOf(sales.AccountID).IsZero())
}

func (s *PostgresIntegrationTestSuite) TestListEntriesPagesThroughTiedSortKeys() {
	cash := s.createAccount("1.1.01", domain.Asset)
	sales := s.createAccount("4.1.01", domain.Income)

	entryDate := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	createdAt := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	want := map[string]bool{}
	for i := 0; i < 5; i++ {
		entryID := uuid.NewString()
		entry := domain.JournalEntry{
			EntryID:     entryID,
			EntryDate:   entryDate,
			Description: fmt.Sprintf("venta %d", i),
			Status:      domain.Posted,
			Amount:      decimal.NewFromInt(10),
			AuditFields: domain.NewAuditFields("cashier", createdAt),
			Lines: []domain.JournalEntryLine{
				{LineID: uuid.NewString(), EntryID: entryID, LineNumber: 1, AccountID: cash.AccountID, DebitAmount: decimal.NewFromInt(10), CreditAmount: decimal.Zero},
				{LineID: uuid.NewString(), EntryID: entryID, LineNumber: 2, AccountID: sales.AccountID, DebitAmount: decimal.Zero, CreditAmount: decimal.NewFromInt(10)},
			},
		}
		changes := map[string]decimal.Decimal{cash.AccountID: decimal.NewFromInt(10), sales.AccountID: decimal.NewFromInt(10)}
		_, err := s.repos.JournalRepo.SaveEntry(s.ctx, entry, changes)
		s.Require().NoError(err)
		want[entryID] = true
	}

	got := map[string]bool{}
	var token *string
	for pages := 0; pages < 10; pages++ {
		entries, next, err := s.repos.JournalRepo.ListEntriesByPeriod(s.ctx, nil, nil, 2, token)
		s.Require().NoError(err)
		for _, e := range entries {
			s.False(got[e.EntryID], "entry %s listed twice", e.EntryID)
			got[e.EntryID] = true
		}
		if next == nil {
			break
		}
		token = next
	}
	s.Equal(want, got)
}

func (s *PostgresIntegrationTestSuite) TestConcurrentPostingsKeepBalancesConsistent() {
	cash := s.createAccount("1.1.01", domain.Asset)
	sales := s.createAccount("4.1.01", domain.Income)

	const postings = 20
	var wg sync.WaitGroup
	for i := 0; i < postings; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ledger.PostEntry(s.ctx, dto.PostEntryRequest{
				EntryDate:   "2024-03-15",
				Description: "Venta",
				Lines: []dto.JournalLineRequest{
					{AccountID: cash.AccountID, DebitAmount: decimal.RequireFromString("10.25")},
					{AccountID: sales.AccountID, CreditAmount: decimal.RequireFromString("10.25")},
				},
			}, "pos")
			if err != nil {
				s.T().Errorf("posting failed: %v", err)
			}
		}()
	}
	wg.Wait()

	want := decimal.RequireFromString("205.00")
	s.True(s.balanceOf(cash.AccountID).Equal(want))
	s.True(s.balanceOf(sales.AccountID).Equal(want))

	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	replayed, err := s.ledger.GetAccountBalance(s.ctx, cash.AccountID, &asOf)
	s.Require().NoError(err)
	s.True(replayed.Equal(want))
}

func TestPostgresIntegration(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationTestSuite))
}
