package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/adapter/repository/postgres"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/idgen"
	pginfra "github.com/iho/loanledger/internal/infrastructure/postgres"
	"github.com/iho/loanledger/internal/usecase"
)

// Runs against a real database when TEST_DATABASE_URL is set.
func TestLedgerAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	require.NoError(t, pginfra.NewMigrator(dsn, "", zerolog.Nop()).Up())

	pool, err := pginfra.NewPool(ctx, dsn, 10, 1)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE outbox_events, transactions, micro_deposits, customers, bank_fund`)
	require.NoError(t, err)

	txm := postgres.NewTxManager(pool)
	customers := postgres.NewCustomerRepository(pool)
	fund := postgres.NewFundRepository(pool)
	deposits := postgres.NewMicroDepositRepository(pool)
	txns := postgres.NewTransactionRepository(pool)
	outbox := postgres.NewOutboxRepository(pool)
	idGen := idgen.NewULIDGenerator()
	retrier := postgres.NewRetrier(zerolog.Nop(), nil)

	ledger := usecase.NewLedgerUseCase(txm, customers, fund, deposits, txns, outbox, idGen, retrier, nil, zerolog.Nop())
	customerUC := usecase.NewCustomerUseCase(txm, customers, txns, outbox, idGen, nil)
	fundUC := usecase.NewFundUseCase(txm, fund, outbox, idGen)
	recon := usecase.NewReconciliationUseCase(txm, customers, txns, fund)

	_, err = fundUC.Initialize(ctx, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = fundUC.Initialize(ctx, decimal.NewFromInt(100))
	require.ErrorIs(t, err, domain.ErrFundExists)

	_, err = customerUC.OpenAccount(ctx, "PG-001")
	require.NoError(t, err)

	_, err = ledger.SendMicroDeposit(ctx, "PG-001")
	require.NoError(t, err)
	_, err = ledger.ConfirmMicroDeposit(ctx, "PG-001", decimal.RequireFromString("0.50"))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.DisburseLoan(ctx, "PG-001", decimal.NewFromInt(60))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, rejected)

	_, err = ledger.RepayLoan(ctx, "PG-001", decimal.NewFromInt(15))
	require.NoError(t, err)

	f, err := fund.Get(ctx)
	require.NoError(t, err)
	require.True(t, f.FundForLoan.Equal(decimal.RequireFromString("54.50")), "fund=%s", f.FundForLoan)

	report, err := recon.GenerateReconciliationReport(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.ReconciledCustomers)

	events, err := outbox.GetUnpublished(ctx, 100)
	require.NoError(t, err)
	require.NotEmpty(t, events)
}
