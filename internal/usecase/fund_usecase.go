package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
)

// FundUseCase manages the singleton bank fund.
type FundUseCase struct {
	txManager  TransactionManager
	fund       FundRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
}

// NewFundUseCase creates a new FundUseCase.
func NewFundUseCase(txManager TransactionManager, fund FundRepository, outboxRepo OutboxRepository, idGen IDGenerator) *FundUseCase {
	return &FundUseCase{
		txManager:  txManager,
		fund:       fund,
		outboxRepo: outboxRepo,
		idGen:      idGen,
	}
}

// Initialize creates the bank fund with the given opening balance. It fails
// with domain.ErrFundExists if the fund was already created.
func (uc *FundUseCase) Initialize(ctx context.Context, amount decimal.Decimal) (*domain.BankFund, error) {
	if err := domain.ValidateFundAmount(amount); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()
	fund := &domain.BankFund{
		ID:          domain.PrimaryFundID,
		FundForLoan: amount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.fund.Create(txCtx, tx, fund); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   fund.ID,
		AggregateType: domain.AggregateTypeFund,
		EventType:     domain.EventTypeFundInitialized,
		Payload: map[string]any{
			"fund_for_loan": amount.StringFixed(2),
		},
		CreatedAt: now,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return fund, nil
}

// GetFund returns the bank fund or domain.ErrFundMissing.
func (uc *FundUseCase) GetFund(ctx context.Context) (*domain.BankFund, error) {
	return uc.fund.Get(ctx)
}
