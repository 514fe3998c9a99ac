package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/infrastructure/metrics"
)

// Operation names used for metrics and logs.
const (
	OpSendMicroDeposit    = "send_micro_deposit"
	OpConfirmMicroDeposit = "confirm_micro_deposit"
	OpDisburseLoan        = "disburse_loan"
	OpRepayLoan           = "repay_loan"
)

// OperationResult is the success payload of a ledger operation.
type OperationResult struct {
	AccountNumber string
	Amount        decimal.Decimal
	Message       string
	TransactionID string
	DepositID     string
}

// LedgerUseCase moves money between the bank fund and customer balances.
//
// Every operation runs in one store transaction. Rows are locked in a fixed
// order (customer, latest micro-deposit, fund) so concurrent operations on the
// same customer or on the fund serialise instead of losing updates.
type LedgerUseCase struct {
	txManager  TransactionManager
	customers  CustomerRepository
	fund       FundRepository
	deposits   MicroDepositRepository
	txns       TransactionRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	retrier    Retrier
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	clock      func() time.Time
}

// NewLedgerUseCase creates a new LedgerUseCase. retrier and m may be nil.
func NewLedgerUseCase(
	txManager TransactionManager,
	customers CustomerRepository,
	fund FundRepository,
	deposits MicroDepositRepository,
	txns TransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:  txManager,
		customers:  customers,
		fund:       fund,
		deposits:   deposits,
		txns:       txns,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		retrier:    retrier,
		metrics:    m,
		logger:     logger,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// SendMicroDeposit debits the fixed micro-deposit amount from the fund and
// records a pending deposit for the customer.
func (uc *LedgerUseCase) SendMicroDeposit(ctx context.Context, accountNumber string) (*OperationResult, error) {
	accountNumber = domain.NormalizeAccountNumber(accountNumber)
	amount := MicroDepositAmount

	var (
		result      *OperationResult
		fundBalance decimal.Decimal
	)
	err := uc.execute(ctx, OpSendMicroDeposit, func(txCtx context.Context, tx Transaction) error {
		customer, err := uc.customers.GetByAccountNumberForUpdate(txCtx, tx, accountNumber)
		if err != nil {
			return err
		}

		fund, err := uc.lockFund(txCtx, tx)
		if err != nil {
			return err
		}

		if err := fund.ValidateDebit(amount); err != nil {
			return err
		}

		now := uc.clock()

		fund.FundForLoan = fund.ApplyDebit(amount)
		fund.UpdatedAt = now
		if err := uc.fund.Update(txCtx, tx, fund); err != nil {
			return err
		}

		deposit := &domain.MicroDeposit{
			ID:         uc.idGen.Generate(),
			CustomerID: customer.ID,
			Amount:     amount,
			Status:     domain.DepositStatusPendingVerification,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := uc.deposits.Create(txCtx, tx, deposit); err != nil {
			return err
		}

		txn, err := uc.recordTransaction(txCtx, tx, customer, domain.TransactionTypeMicroDeposit, amount, now)
		if err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, customer, domain.EventTypeMicroDepositSent, domain.LedgerEvent{
			AccountNumber: customer.AccountNumber,
			TransactionID: txn.ID,
			DepositID:     deposit.ID,
			Amount:        amount.StringFixed(2),
			FundBalance:   fund.FundForLoan.StringFixed(2),
		}, now); err != nil {
			return err
		}

		result = &OperationResult{
			AccountNumber: customer.AccountNumber,
			Amount:        amount,
			Message:       fmt.Sprintf("Micro deposit of $%s sent to account: %s", amount.StringFixed(2), customer.AccountNumber),
			TransactionID: txn.ID,
			DepositID:     deposit.ID,
		}
		fundBalance = fund.FundForLoan

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observeMoney(domain.TransactionTypeMicroDeposit, result.Amount, fundBalance)

	return result, nil
}

// ConfirmMicroDeposit verifies the customer's latest micro-deposit when the
// claimed amount matches it exactly. Confirming an already verified deposit
// succeeds again. No money moves.
func (uc *LedgerUseCase) ConfirmMicroDeposit(ctx context.Context, accountNumber string, claimed decimal.Decimal) (*OperationResult, error) {
	accountNumber = domain.NormalizeAccountNumber(accountNumber)

	var result *OperationResult
	err := uc.execute(ctx, OpConfirmMicroDeposit, func(txCtx context.Context, tx Transaction) error {
		customer, err := uc.customers.GetByAccountNumberForUpdate(txCtx, tx, accountNumber)
		if err != nil {
			return err
		}

		deposit, err := uc.deposits.GetLatestByCustomerForUpdate(txCtx, tx, customer.ID)
		if err != nil {
			return err
		}

		if !deposit.Matches(claimed) {
			return domain.ErrAmountMismatch
		}

		wasVerified := deposit.Verified()
		now := uc.clock()

		if err := uc.deposits.UpdateStatus(txCtx, tx, deposit.ID, domain.DepositStatusVerified, now); err != nil {
			return err
		}

		if !wasVerified {
			if err := uc.emit(txCtx, tx, customer, domain.EventTypeMicroDepositVerified, domain.LedgerEvent{
				AccountNumber: customer.AccountNumber,
				DepositID:     deposit.ID,
				Amount:        deposit.Amount.StringFixed(2),
			}, now); err != nil {
				return err
			}
		}

		result = &OperationResult{
			AccountNumber: customer.AccountNumber,
			Amount:        deposit.Amount,
			Message:       "Account verified successfully.",
			DepositID:     deposit.ID,
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DisburseLoan moves amount from the fund to a verified customer. A verified
// customer may receive any number of loans.
func (uc *LedgerUseCase) DisburseLoan(ctx context.Context, accountNumber string, amount decimal.Decimal) (*OperationResult, error) {
	accountNumber = domain.NormalizeAccountNumber(accountNumber)

	var (
		result      *OperationResult
		fundBalance decimal.Decimal
	)
	err := uc.execute(ctx, OpDisburseLoan, func(txCtx context.Context, tx Transaction) error {
		customer, err := uc.customers.GetByAccountNumberForUpdate(txCtx, tx, accountNumber)
		if err != nil {
			return err
		}

		if err := domain.ValidateAmount(amount); err != nil {
			return err
		}

		deposit, err := uc.deposits.GetLatestByCustomerForUpdate(txCtx, tx, customer.ID)
		if errors.Is(err, domain.ErrNoDepositFound) {
			return domain.ErrNotVerified
		}
		if err != nil {
			return err
		}
		if !deposit.Verified() {
			return domain.ErrNotVerified
		}

		fund, err := uc.lockFund(txCtx, tx)
		if err != nil {
			return err
		}

		if err := fund.ValidateDebit(amount); err != nil {
			return err
		}

		now := uc.clock()

		fund.FundForLoan = fund.ApplyDebit(amount)
		fund.UpdatedAt = now
		if err := uc.fund.Update(txCtx, tx, fund); err != nil {
			return err
		}

		customer.ApplyDisbursement(amount)
		customer.UpdatedAt = now
		if err := uc.customers.Update(txCtx, tx, customer); err != nil {
			return err
		}

		txn, err := uc.recordTransaction(txCtx, tx, customer, domain.TransactionTypeLoanDisburse, amount, now)
		if err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, customer, domain.EventTypeLoanDisbursed, domain.LedgerEvent{
			AccountNumber: customer.AccountNumber,
			TransactionID: txn.ID,
			Amount:        amount.StringFixed(2),
			FundBalance:   fund.FundForLoan.StringFixed(2),
		}, now); err != nil {
			return err
		}

		result = &OperationResult{
			AccountNumber: customer.AccountNumber,
			Amount:        amount,
			Message:       fmt.Sprintf("Loan of $%s disbursed to account: %s", amount.StringFixed(2), customer.AccountNumber),
			TransactionID: txn.ID,
		}
		fundBalance = fund.FundForLoan

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observeMoney(domain.TransactionTypeLoanDisburse, result.Amount, fundBalance)

	return result, nil
}

// RepayLoan moves amount from the customer back into the fund. Repayments are
// not capped by the remaining loan balance and do not require verification.
func (uc *LedgerUseCase) RepayLoan(ctx context.Context, accountNumber string, amount decimal.Decimal) (*OperationResult, error) {
	accountNumber = domain.NormalizeAccountNumber(accountNumber)

	var (
		result      *OperationResult
		fundBalance decimal.Decimal
	)
	err := uc.execute(ctx, OpRepayLoan, func(txCtx context.Context, tx Transaction) error {
		customer, err := uc.customers.GetByAccountNumberForUpdate(txCtx, tx, accountNumber)
		if err != nil {
			return err
		}

		if err := domain.ValidateAmount(amount); err != nil {
			return err
		}

		fund, err := uc.lockFund(txCtx, tx)
		if err != nil {
			return err
		}

		now := uc.clock()

		fund.FundForLoan = fund.ApplyCredit(amount)
		fund.UpdatedAt = now
		if err := uc.fund.Update(txCtx, tx, fund); err != nil {
			return err
		}

		customer.ApplyRepayment(amount)
		customer.UpdatedAt = now
		if err := uc.customers.Update(txCtx, tx, customer); err != nil {
			return err
		}

		if customer.LoanRemaining.IsNegative() {
			uc.logger.Warn().
				Str("account_number", customer.AccountNumber).
				Str("loan_remaining", customer.LoanRemaining.String()).
				Msg("repayment exceeds outstanding loan")
		}

		txn, err := uc.recordTransaction(txCtx, tx, customer, domain.TransactionTypeLoanRepayment, amount, now)
		if err != nil {
			return err
		}

		if err := uc.emit(txCtx, tx, customer, domain.EventTypeLoanRepaid, domain.LedgerEvent{
			AccountNumber: customer.AccountNumber,
			TransactionID: txn.ID,
			Amount:        amount.StringFixed(2),
			FundBalance:   fund.FundForLoan.StringFixed(2),
		}, now); err != nil {
			return err
		}

		result = &OperationResult{
			AccountNumber: customer.AccountNumber,
			Amount:        amount,
			Message:       fmt.Sprintf("Repayment of $%s received from account: %s", amount.StringFixed(2), customer.AccountNumber),
			TransactionID: txn.ID,
		}
		fundBalance = fund.FundForLoan

		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observeMoney(domain.TransactionTypeLoanRepayment, result.Amount, fundBalance)

	return result, nil
}

// execute runs fn inside a transaction, retrying the whole unit on transient
// store conflicts.
func (uc *LedgerUseCase) execute(ctx context.Context, op string, fn func(context.Context, Transaction) error) error {
	start := time.Now()

	attempt := func() error {
		txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
		defer cancel()

		tx, err := uc.txManager.Begin(txCtx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(txCtx) }()

		if err := fn(txCtx, tx); err != nil {
			return err
		}

		return tx.Commit(txCtx)
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Do(ctx, attempt)
	} else {
		err = attempt()
	}

	uc.observe(op, start, err)

	return err
}

func (uc *LedgerUseCase) lockFund(ctx context.Context, tx Transaction) (*domain.BankFund, error) {
	fund, err := uc.fund.GetForUpdate(ctx, tx)
	if errors.Is(err, domain.ErrFundMissing) {
		uc.logger.Error().Msg("bank fund is not initialized")
	}
	return fund, err
}

func (uc *LedgerUseCase) recordTransaction(
	ctx context.Context,
	tx Transaction,
	customer *domain.Customer,
	typ domain.TransactionType,
	amount decimal.Decimal,
	now time.Time,
) (*domain.Transaction, error) {
	txn := &domain.Transaction{
		ID:         uc.idGen.Generate(),
		CustomerID: customer.ID,
		Type:       typ,
		Amount:     amount,
		CreatedAt:  now,
	}
	if err := uc.txns.Create(ctx, tx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

func (uc *LedgerUseCase) emit(
	ctx context.Context,
	tx Transaction,
	customer *domain.Customer,
	eventType string,
	payload domain.LedgerEvent,
	now time.Time,
) error {
	payload.EventAt = now.Format(time.RFC3339Nano)

	return uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   customer.ID,
		AggregateType: domain.AggregateTypeCustomer,
		EventType:     eventType,
		Payload:       payload.ToPayload(),
		CreatedAt:     now,
	})
}

func (uc *LedgerUseCase) observe(op string, start time.Time, err error) {
	outcome := "success"

	switch {
	case err == nil:
	case domain.IsBusinessError(err):
		outcome = "rejected"
		uc.logger.Warn().Str("operation", op).Err(err).Msg("ledger operation rejected")
	default:
		outcome = "error"
		uc.logger.Error().Str("operation", op).Err(err).Msg("ledger operation failed")
	}

	if uc.metrics == nil {
		return
	}

	uc.metrics.Operations.WithLabelValues(op, outcome).Inc()
	uc.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		uc.metrics.OperationErrors.WithLabelValues(op, errorType(err)).Inc()
	}
}

func (uc *LedgerUseCase) observeMoney(typ domain.TransactionType, amount, fundBalance decimal.Decimal) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.MoneyMoved.WithLabelValues(string(typ)).Add(amount.InexactFloat64())
	uc.metrics.FundBalance.Set(fundBalance.InexactFloat64())
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return "account_not_found"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrNoDepositFound):
		return "no_deposit_found"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, domain.ErrNotVerified):
		return "not_verified"
	case errors.Is(err, domain.ErrFundMissing):
		return "fund_missing"
	case errors.Is(err, domain.ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case domain.IsBusinessError(err):
		return "invalid_input"
	default:
		return "internal"
	}
}
