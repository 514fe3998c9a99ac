package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
)

// CustomerRepository defines data access for customers.
type CustomerRepository interface {
	Create(ctx context.Context, tx Transaction, customer *domain.Customer) error
	GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Customer, error)
	GetByAccountNumberForUpdate(ctx context.Context, tx Transaction, accountNumber string) (*domain.Customer, error)
	// Update persists balances when the stored version equals customer.Version
	// and increments it. Returns domain.ErrVersionConflict otherwise.
	Update(ctx context.Context, tx Transaction, customer *domain.Customer) error
	List(ctx context.Context, limit, offset int) ([]*domain.Customer, error)
}

// FundRepository defines data access for the singleton bank fund.
type FundRepository interface {
	Create(ctx context.Context, tx Transaction, fund *domain.BankFund) error
	// Get returns domain.ErrFundMissing when the fund was never initialized.
	Get(ctx context.Context) (*domain.BankFund, error)
	GetForUpdate(ctx context.Context, tx Transaction) (*domain.BankFund, error)
	// Update stores the new balance with the same version check as
	// CustomerRepository.Update.
	Update(ctx context.Context, tx Transaction, fund *domain.BankFund) error
}

// MicroDepositRepository defines data access for micro-deposits.
type MicroDepositRepository interface {
	Create(ctx context.Context, tx Transaction, deposit *domain.MicroDeposit) error
	// GetLatestByCustomerForUpdate returns the deposit with the highest
	// sequence for the customer, or domain.ErrNoDepositFound.
	GetLatestByCustomerForUpdate(ctx context.Context, tx Transaction, customerID string) (*domain.MicroDeposit, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.DepositStatus, updatedAt time.Time) error
}

// TransactionTotals are the per-type sums of a customer's transactions.
type TransactionTotals struct {
	MicroDeposits decimal.Decimal
	Disbursed     decimal.Decimal
	Repaid        decimal.Decimal
}

// TransactionRepository defines data access for the append-only transaction log.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]*domain.Transaction, error)
	// TotalsByCustomer sums inside tx so the figures can be compared with a
	// customer row read in the same transaction.
	TotalsByCustomer(ctx context.Context, tx Transaction, customerID string) (TransactionTotals, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs fn on transient store conflicts.
type Retrier interface {
	Do(ctx context.Context, fn func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release removes a key so the request can be retried.
	Release(ctx context.Context, key string) error
}
