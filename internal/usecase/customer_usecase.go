package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// CustomerUseCase handles customer account business logic.
type CustomerUseCase struct {
	txManager  TransactionManager
	customers  CustomerRepository
	txns       TransactionRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	metrics    *metrics.Metrics
}

// NewCustomerUseCase creates a new CustomerUseCase.
func NewCustomerUseCase(
	txManager TransactionManager,
	customers CustomerRepository,
	txns TransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	m *metrics.Metrics,
) *CustomerUseCase {
	return &CustomerUseCase{
		txManager:  txManager,
		customers:  customers,
		txns:       txns,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		metrics:    m,
	}
}

// OpenAccount creates a customer with zero balances.
func (uc *CustomerUseCase) OpenAccount(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	if err := domain.ValidateAccountNumber(accountNumber); err != nil {
		return nil, err
	}
	accountNumber = domain.NormalizeAccountNumber(accountNumber)

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()
	customer := &domain.Customer{
		ID:            uc.idGen.Generate(),
		AccountNumber: accountNumber,
		Amount:        decimal.Zero,
		TotalLoan:     decimal.Zero,
		LoanPaid:      decimal.Zero,
		LoanRemaining: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.customers.Create(txCtx, tx, customer); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   customer.ID,
		AggregateType: domain.AggregateTypeCustomer,
		EventType:     domain.EventTypeCustomerOpened,
		Payload: map[string]any{
			"customer_id":    customer.ID,
			"account_number": customer.AccountNumber,
		},
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.CustomersOpened.Inc()
	}

	return customer, nil
}

// GetCustomer retrieves a customer by account number.
func (uc *CustomerUseCase) GetCustomer(ctx context.Context, accountNumber string) (*domain.Customer, error) {
	return uc.customers.GetByAccountNumber(ctx, domain.NormalizeAccountNumber(accountNumber))
}

// ListCustomersInput represents input for listing customers.
type ListCustomersInput struct {
	Limit  int
	Offset int
}

// ListCustomers lists customers with pagination.
func (uc *CustomerUseCase) ListCustomers(ctx context.Context, input ListCustomersInput) ([]*domain.Customer, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.customers.List(ctx, limit, offset)
}

// ListTransactionsInput represents input for listing a customer's transactions.
type ListTransactionsInput struct {
	AccountNumber string
	Limit         int
	Offset        int
}

// ListTransactions returns the customer's transaction history, newest first.
func (uc *CustomerUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	customer, err := uc.customers.GetByAccountNumber(ctx, domain.NormalizeAccountNumber(input.AccountNumber))
	if err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.txns.ListByCustomer(ctx, customer.ID, limit, offset)
}
