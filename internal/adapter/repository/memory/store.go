// Package memory is a single-process storage driver. Transactions are
// serialised behind one writer lock and their writes are staged until Commit.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// ErrForeignTransaction is returned when a repository receives a transaction
// that was not started by the same Store.
var ErrForeignTransaction = errors.New("transaction does not belong to this store")

// Store holds every record of the ledger in memory.
type Store struct {
	// writer admits one transaction at a time.
	writer chan struct{}

	mu                 sync.RWMutex
	customers          map[string]*domain.Customer
	customerOrder      []string
	byAccount          map[string]string
	fund               *domain.BankFund
	deposits           map[string]*domain.MicroDeposit
	depositsByCustomer map[string][]string
	transactions       []*domain.Transaction
	outbox             []*domain.OutboxEvent
	seq                int64
}

// NewStore creates an empty store. The fund must be initialized before money
// can move.
func NewStore() *Store {
	return &Store{
		writer:             make(chan struct{}, 1),
		customers:          make(map[string]*domain.Customer),
		byAccount:          make(map[string]string),
		deposits:           make(map[string]*domain.MicroDeposit),
		depositsByCustomer: make(map[string][]string),
	}
}

// TxManager starts transactions on a Store.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin waits for the writer lock and starts a transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	select {
	case m.store.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &Tx{
		store:     m.store,
		customers: make(map[string]*domain.Customer),
		deposits:  make(map[string]*domain.MicroDeposit),
	}, nil
}

// Tx is a transaction on a Store.
type Tx struct {
	store *Store
	done  bool

	customers   map[string]*domain.Customer
	newCustomer []string
	fund        *domain.BankFund
	deposits    map[string]*domain.MicroDeposit
	newDeposits []string
	txns        []*domain.Transaction
	events      []*domain.OutboxEvent
}

// Commit applies staged writes and releases the writer lock.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return errors.New("transaction already closed")
	}
	if err := ctx.Err(); err != nil {
		t.release()
		return err
	}

	s := t.store
	s.mu.Lock()
	for id, c := range t.customers {
		s.customers[id] = c
		s.byAccount[c.AccountNumber] = id
	}
	s.customerOrder = append(s.customerOrder, t.newCustomer...)
	if t.fund != nil {
		s.fund = t.fund
	}
	for id, d := range t.deposits {
		s.deposits[id] = d
	}
	for _, id := range t.newDeposits {
		d := t.deposits[id]
		s.depositsByCustomer[d.CustomerID] = append(s.depositsByCustomer[d.CustomerID], id)
	}
	s.transactions = append(s.transactions, t.txns...)
	s.outbox = append(s.outbox, t.events...)
	s.mu.Unlock()

	t.release()

	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *Tx) release() {
	t.done = true
	<-t.store.writer
}

func asTx(s *Store, tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, ErrForeignTransaction
	}
	if t.done {
		return nil, errors.New("transaction already closed")
	}
	return t, nil
}

// customer returns the transaction's view of a customer.
func (t *Tx) customer(id string) *domain.Customer {
	if c, ok := t.customers[id]; ok {
		return c
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.customers[id]
}

func (t *Tx) customerIDByAccount(accountNumber string) (string, bool) {
	for id, c := range t.customers {
		if c.AccountNumber == accountNumber {
			return id, true
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	id, ok := t.store.byAccount[accountNumber]
	return id, ok
}

func (t *Tx) currentFund() *domain.BankFund {
	if t.fund != nil {
		return t.fund
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.fund
}

func (t *Tx) deposit(id string) *domain.MicroDeposit {
	if d, ok := t.deposits[id]; ok {
		return d
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	return t.store.deposits[id]
}

func (t *Tx) latestDeposit(customerID string) *domain.MicroDeposit {
	var latest *domain.MicroDeposit

	t.store.mu.RLock()
	for _, id := range t.store.depositsByCustomer[customerID] {
		d := t.store.deposits[id]
		if latest == nil || d.Sequence > latest.Sequence {
			latest = d
		}
	}
	t.store.mu.RUnlock()

	for _, d := range t.deposits {
		if d.CustomerID != customerID {
			continue
		}
		if latest == nil || d.Sequence >= latest.Sequence {
			latest = d
		}
	}

	return latest
}

func (s *Store) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func cloneDeposit(d *domain.MicroDeposit) *domain.MicroDeposit {
	cp := *d
	return &cp
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	cp := *t
	return &cp
}

func cloneEvent(e *domain.OutboxEvent) *domain.OutboxEvent {
	cp := *e
	if e.Payload != nil {
		cp.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			cp.Payload[k] = v
		}
	}
	if e.PublishedAt != nil {
		at := *e.PublishedAt
		cp.PublishedAt = &at
	}
	return &cp
}
