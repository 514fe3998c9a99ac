package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// CustomerRepository implements usecase.CustomerRepository.
type CustomerRepository struct {
	store *Store
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(store *Store) *CustomerRepository {
	return &CustomerRepository{store: store}
}

// Create stages a new customer.
func (r *CustomerRepository) Create(_ context.Context, tx usecase.Transaction, customer *domain.Customer) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	if _, exists := t.customerIDByAccount(customer.AccountNumber); exists {
		return domain.ErrCustomerExists
	}

	t.customers[customer.ID] = customer.Clone()
	t.newCustomer = append(t.newCustomer, customer.ID)

	return nil
}

// GetByAccountNumber retrieves a committed customer.
func (r *CustomerRepository) GetByAccountNumber(_ context.Context, accountNumber string) (*domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.byAccount[accountNumber]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return r.store.customers[id].Clone(), nil
}

// GetByAccountNumberForUpdate retrieves a customer inside tx. The writer lock
// already excludes other transactions.
func (r *CustomerRepository) GetByAccountNumberForUpdate(_ context.Context, tx usecase.Transaction, accountNumber string) (*domain.Customer, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}

	id, ok := t.customerIDByAccount(accountNumber)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return t.customer(id).Clone(), nil
}

// Update stages new balances if the version still matches.
func (r *CustomerRepository) Update(_ context.Context, tx usecase.Transaction, customer *domain.Customer) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	current := t.customer(customer.ID)
	if current == nil {
		return domain.ErrAccountNotFound
	}
	if current.Version != customer.Version {
		return domain.ErrVersionConflict
	}

	customer.Version++
	t.customers[customer.ID] = customer.Clone()

	return nil
}

// List returns committed customers in creation order.
func (r *CustomerRepository) List(_ context.Context, limit, offset int) ([]*domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if offset >= len(r.store.customerOrder) {
		return []*domain.Customer{}, nil
	}

	end := min(offset+limit, len(r.store.customerOrder))
	result := make([]*domain.Customer, 0, end-offset)
	for _, id := range r.store.customerOrder[offset:end] {
		result = append(result, r.store.customers[id].Clone())
	}

	return result, nil
}

// FundRepository implements usecase.FundRepository.
type FundRepository struct {
	store *Store
}

// NewFundRepository creates a new FundRepository.
func NewFundRepository(store *Store) *FundRepository {
	return &FundRepository{store: store}
}

// Create stages the singleton fund.
func (r *FundRepository) Create(_ context.Context, tx usecase.Transaction, fund *domain.BankFund) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	if t.currentFund() != nil {
		return domain.ErrFundExists
	}

	t.fund = fund.Clone()

	return nil
}

// Get returns the committed fund.
func (r *FundRepository) Get(context.Context) (*domain.BankFund, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if r.store.fund == nil {
		return nil, domain.ErrFundMissing
	}

	return r.store.fund.Clone(), nil
}

// GetForUpdate returns the transaction's view of the fund.
func (r *FundRepository) GetForUpdate(_ context.Context, tx usecase.Transaction) (*domain.BankFund, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}

	fund := t.currentFund()
	if fund == nil {
		return nil, domain.ErrFundMissing
	}

	return fund.Clone(), nil
}

// Update stages the new fund balance if the version still matches.
func (r *FundRepository) Update(_ context.Context, tx usecase.Transaction, fund *domain.BankFund) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	current := t.currentFund()
	if current == nil {
		return domain.ErrFundMissing
	}
	if current.Version != fund.Version {
		return domain.ErrVersionConflict
	}

	fund.Version++
	t.fund = fund.Clone()

	return nil
}

// MicroDepositRepository implements usecase.MicroDepositRepository.
type MicroDepositRepository struct {
	store *Store
}

// NewMicroDepositRepository creates a new MicroDepositRepository.
func NewMicroDepositRepository(store *Store) *MicroDepositRepository {
	return &MicroDepositRepository{store: store}
}

// Create stages a deposit and assigns its sequence.
func (r *MicroDepositRepository) Create(_ context.Context, tx usecase.Transaction, deposit *domain.MicroDeposit) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	deposit.Sequence = r.store.nextSeq()
	t.deposits[deposit.ID] = cloneDeposit(deposit)
	t.newDeposits = append(t.newDeposits, deposit.ID)

	return nil
}

// GetLatestByCustomerForUpdate returns the customer's highest-sequence deposit.
func (r *MicroDepositRepository) GetLatestByCustomerForUpdate(_ context.Context, tx usecase.Transaction, customerID string) (*domain.MicroDeposit, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return nil, err
	}

	latest := t.latestDeposit(customerID)
	if latest == nil {
		return nil, domain.ErrNoDepositFound
	}

	return cloneDeposit(latest), nil
}

// UpdateStatus stages a status change.
func (r *MicroDepositRepository) UpdateStatus(_ context.Context, tx usecase.Transaction, id string, status domain.DepositStatus, updatedAt time.Time) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	current := t.deposit(id)
	if current == nil {
		return domain.ErrNoDepositFound
	}

	updated := cloneDeposit(current)
	updated.Status = status
	updated.UpdatedAt = updatedAt
	t.deposits[id] = updated

	return nil
}

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create stages an append to the transaction log.
func (r *TransactionRepository) Create(_ context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	if !txn.Type.IsValid() {
		return domain.ErrInvalidTransactionType
	}

	t.txns = append(t.txns, cloneTransaction(txn))

	return nil
}

// ListByCustomer returns the customer's committed transactions, newest first.
func (r *TransactionRepository) ListByCustomer(_ context.Context, customerID string, limit, offset int) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var matched []*domain.Transaction
	for i := len(r.store.transactions) - 1; i >= 0; i-- {
		if txn := r.store.transactions[i]; txn.CustomerID == customerID {
			matched = append(matched, txn)
		}
	}

	// Stable sort keeps log order for equal timestamps.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []*domain.Transaction{}, nil
	}

	end := min(offset+limit, len(matched))
	result := make([]*domain.Transaction, 0, end-offset)
	for _, txn := range matched[offset:end] {
		result = append(result, cloneTransaction(txn))
	}

	return result, nil
}

// TotalsByCustomer sums the customer's transactions by type as tx sees them:
// committed records plus the ones tx has staged.
func (r *TransactionRepository) TotalsByCustomer(_ context.Context, tx usecase.Transaction, customerID string) (usecase.TransactionTotals, error) {
	t, err := asTx(r.store, tx)
	if err != nil {
		return usecase.TransactionTotals{}, err
	}

	totals := usecase.TransactionTotals{
		MicroDeposits: decimal.Zero,
		Disbursed:     decimal.Zero,
		Repaid:        decimal.Zero,
	}

	r.store.mu.RLock()
	visible := make([]*domain.Transaction, 0, len(r.store.transactions)+len(t.txns))
	visible = append(visible, r.store.transactions...)
	r.store.mu.RUnlock()
	visible = append(visible, t.txns...)

	for _, txn := range visible {
		if txn.CustomerID != customerID {
			continue
		}
		switch txn.Type {
		case domain.TransactionTypeMicroDeposit:
			totals.MicroDeposits = totals.MicroDeposits.Add(txn.Amount)
		case domain.TransactionTypeLoanDisburse:
			totals.Disbursed = totals.Disbursed.Add(txn.Amount)
		case domain.TransactionTypeLoanRepayment:
			totals.Repaid = totals.Repaid.Add(txn.Amount)
		}
	}

	return totals, nil
}

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// Create stages an outbox event.
func (r *OutboxRepository) Create(_ context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	t, err := asTx(r.store, tx)
	if err != nil {
		return err
	}

	t.events = append(t.events, cloneEvent(event))

	return nil
}

// GetUnpublished returns the oldest unpublished events.
func (r *OutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := make([]*domain.OutboxEvent, 0, limit)
	for _, e := range r.store.outbox {
		if len(result) == limit {
			break
		}
		if !e.Published {
			result = append(result, cloneEvent(e))
		}
	}

	return result, nil
}

// MarkPublished flags an event as published.
func (r *OutboxRepository) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, e := range r.store.outbox {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
			return nil
		}
	}

	return nil
}

// DeletePublished removes events published before the given time.
func (r *OutboxRepository) DeletePublished(_ context.Context, before time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.outbox[:0]
	for _, e := range r.store.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	r.store.outbox = kept

	return nil
}
