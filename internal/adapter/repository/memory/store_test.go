package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/domain"
)

func seedFund(t *testing.T, s *Store, amount string) {
	t.Helper()
	ctx := context.Background()

	tx, err := NewTxManager(s).Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, NewFundRepository(s).Create(ctx, tx, &domain.BankFund{
		ID:          domain.PrimaryFundID,
		FundForLoan: decimal.RequireFromString(amount),
	}))
	require.NoError(t, tx.Commit(ctx))
}

func TestRollbackDiscardsStagedWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedFund(t, s, "10.00")

	txm := NewTxManager(s)
	funds := NewFundRepository(s)
	customers := NewCustomerRepository(s)

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, customers.Create(ctx, tx, &domain.Customer{ID: "c1", AccountNumber: "A1"}))
	fund, err := funds.GetForUpdate(ctx, tx)
	require.NoError(t, err)
	fund.FundForLoan = fund.ApplyDebit(decimal.NewFromInt(5))
	require.NoError(t, funds.Update(ctx, tx, fund))

	// Staged writes are visible inside the transaction only.
	_, err = customers.GetByAccountNumberForUpdate(ctx, tx, "A1")
	require.NoError(t, err)
	_, err = customers.GetByAccountNumber(ctx, "A1")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	require.NoError(t, tx.Rollback(ctx))

	committed, err := funds.Get(ctx)
	require.NoError(t, err)
	require.True(t, committed.FundForLoan.Equal(decimal.RequireFromString("10.00")))
	_, err = customers.GetByAccountNumber(ctx, "A1")
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestCommitAppliesWritesAndRollbackAfterCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	txm := NewTxManager(s)
	customers := NewCustomerRepository(s)

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, customers.Create(ctx, tx, &domain.Customer{ID: "c1", AccountNumber: "A1"}))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx))

	c, err := customers.GetByAccountNumber(ctx, "A1")
	require.NoError(t, err)
	require.Equal(t, "c1", c.ID)

	// The writer lock was released.
	tx2, err := txm.Begin(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, customers.Create(ctx, tx2, &domain.Customer{ID: "c2", AccountNumber: "A1"}), domain.ErrCustomerExists)
	require.NoError(t, tx2.Rollback(ctx))
}

func TestBeginHonoursContextWhileLocked(t *testing.T) {
	s := NewStore()
	txm := NewTxManager(s)

	tx, err := txm.Begin(context.Background())
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(context.Background()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = txm.Begin(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVersionConflict(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedFund(t, s, "1.00")
	funds := NewFundRepository(s)

	tx, err := NewTxManager(s).Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	fund, err := funds.GetForUpdate(ctx, tx)
	require.NoError(t, err)

	stale := fund.Clone()
	require.NoError(t, funds.Update(ctx, tx, fund))
	require.Equal(t, int64(1), fund.Version)
	require.ErrorIs(t, funds.Update(ctx, tx, stale), domain.ErrVersionConflict)
}

func TestLatestDepositUsesSequence(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	txm := NewTxManager(s)
	deposits := NewMicroDepositRepository(s)
	now := time.Now().UTC()

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, deposits.Create(ctx, tx, &domain.MicroDeposit{ID: "z-first", CustomerID: "c1", Status: domain.DepositStatusVerified, CreatedAt: now}))
	require.NoError(t, tx.Commit(ctx))

	tx, err = txm.Begin(ctx)
	require.NoError(t, err)
	// Lower ID, same timestamp: sequence still decides.
	require.NoError(t, deposits.Create(ctx, tx, &domain.MicroDeposit{ID: "a-second", CustomerID: "c1", Status: domain.DepositStatusPendingVerification, CreatedAt: now}))
	latest, err := deposits.GetLatestByCustomerForUpdate(ctx, tx, "c1")
	require.NoError(t, err)
	require.Equal(t, "a-second", latest.ID)
	require.NoError(t, tx.Commit(ctx))

	tx, err = txm.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	require.NoError(t, deposits.UpdateStatus(ctx, tx, "a-second", domain.DepositStatusVerified, now))
	latest, err = deposits.GetLatestByCustomerForUpdate(ctx, tx, "c1")
	require.NoError(t, err)
	require.True(t, latest.Verified())

	_, err = deposits.GetLatestByCustomerForUpdate(ctx, tx, "nobody")
	require.ErrorIs(t, err, domain.ErrNoDepositFound)
}

func TestTransactionsNewestFirstAndTotals(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	txm := NewTxManager(s)
	txns := NewTransactionRepository(s)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	for i, typ := range []domain.TransactionType{
		domain.TransactionTypeMicroDeposit,
		domain.TransactionTypeLoanDisburse,
		domain.TransactionTypeLoanRepayment,
	} {
		require.NoError(t, txns.Create(ctx, tx, &domain.Transaction{
			ID:         string(rune('a' + i)),
			CustomerID: "c1",
			Type:       typ,
			Amount:     decimal.NewFromInt(int64(i + 1)),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.ErrorIs(t, txns.Create(ctx, tx, &domain.Transaction{ID: "x", Type: "BOGUS"}), domain.ErrInvalidTransactionType)
	require.NoError(t, tx.Commit(ctx))

	list, err := txns.ListByCustomer(ctx, "c1", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, domain.TransactionTypeLoanRepayment, list[0].Type)

	page, err := txns.ListByCustomer(ctx, "c1", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, domain.TransactionTypeLoanDisburse, page[0].Type)

	read, err := txm.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = read.Rollback(ctx) }()

	totals, err := txns.TotalsByCustomer(ctx, read, "c1")
	require.NoError(t, err)
	require.True(t, totals.MicroDeposits.Equal(decimal.NewFromInt(1)))
	require.True(t, totals.Disbursed.Equal(decimal.NewFromInt(2)))
	require.True(t, totals.Repaid.Equal(decimal.NewFromInt(3)))

	// Staged records count for the transaction that wrote them.
	require.NoError(t, txns.Create(ctx, read, &domain.Transaction{
		ID:         "d",
		CustomerID: "c1",
		Type:       domain.TransactionTypeLoanRepayment,
		Amount:     decimal.NewFromInt(4),
		CreatedAt:  base.Add(time.Hour),
	}))
	totals, err = txns.TotalsByCustomer(ctx, read, "c1")
	require.NoError(t, err)
	require.True(t, totals.Repaid.Equal(decimal.NewFromInt(7)))

	_, err = txns.TotalsByCustomer(ctx, &Tx{store: NewStore()}, "c1")
	require.ErrorIs(t, err, ErrForeignTransaction)
}

func TestOutboxLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	outbox := NewOutboxRepository(s)

	tx, err := NewTxManager(s).Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, outbox.Create(ctx, tx, &domain.OutboxEvent{ID: "e1", EventType: domain.EventTypeLoanDisbursed}))
	require.NoError(t, outbox.Create(ctx, tx, &domain.OutboxEvent{ID: "e2", EventType: domain.EventTypeLoanRepaid}))
	require.NoError(t, tx.Commit(ctx))

	pending, err := outbox.GetUnpublished(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "e1", pending[0].ID)

	publishedAt := time.Now().Add(-time.Hour)
	require.NoError(t, outbox.MarkPublished(ctx, "e1", publishedAt))

	pending, err = outbox.GetUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "e2", pending[0].ID)

	require.NoError(t, outbox.DeletePublished(ctx, time.Now()))
	require.Len(t, s.outbox, 1)
}

func TestCustomerListPagination(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	customers := NewCustomerRepository(s)

	tx, err := NewTxManager(s).Begin(ctx)
	require.NoError(t, err)
	for _, acct := range []string{"A1", "A2", "A3"} {
		require.NoError(t, customers.Create(ctx, tx, &domain.Customer{ID: "id-" + acct, AccountNumber: acct}))
	}
	require.NoError(t, tx.Commit(ctx))

	list, err := customers.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "A2", list[0].AccountNumber)

	empty, err := customers.List(ctx, 2, 10)
	require.NoError(t, err)
	require.Empty(t, empty)
}
