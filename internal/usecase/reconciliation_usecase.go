package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
)

// ReconciliationUseCase checks customer balances against the transaction log.
type ReconciliationUseCase struct {
	txManager TransactionManager
	customers CustomerRepository
	txns      TransactionRepository
	fund      FundRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	txManager TransactionManager,
	customers CustomerRepository,
	txns TransactionRepository,
	fund FundRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		txManager: txManager,
		customers: customers,
		txns:      txns,
		fund:      fund,
	}
}

// ReconciliationResult is the outcome of checking a single customer.
type ReconciliationResult struct {
	AccountNumber      string
	RecordedAmount     decimal.Decimal
	CalculatedAmount   decimal.Decimal
	RecordedTotalLoan  decimal.Decimal
	CalculatedTotal    decimal.Decimal
	RecordedLoanPaid   decimal.Decimal
	CalculatedLoanPaid decimal.Decimal
	LoanBalanced       bool
	IsReconciled       bool
	Problems           []string
	LastChecked        time.Time
}

// ReconcileCustomer recomputes a customer's loan figures from its transactions.
func (uc *ReconciliationUseCase) ReconcileCustomer(ctx context.Context, accountNumber string) (*ReconciliationResult, error) {
	return uc.reconcile(ctx, domain.NormalizeAccountNumber(accountNumber))
}

// reconcile reads the customer row and its transaction totals in one store
// transaction. Every writer locks the customer first, so no ledger operation
// can land between the two reads.
func (uc *ReconciliationUseCase) reconcile(ctx context.Context, accountNumber string) (*ReconciliationResult, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	customer, err := uc.customers.GetByAccountNumberForUpdate(ctx, tx, accountNumber)
	if err != nil {
		return nil, err
	}

	totals, err := uc.txns.TotalsByCustomer(ctx, tx, customer.ID)
	if err != nil {
		return nil, err
	}

	result := &ReconciliationResult{
		AccountNumber:      customer.AccountNumber,
		RecordedAmount:     customer.Amount,
		CalculatedAmount:   totals.Disbursed.Sub(totals.Repaid),
		RecordedTotalLoan:  customer.TotalLoan,
		CalculatedTotal:    totals.Disbursed,
		RecordedLoanPaid:   customer.LoanPaid,
		CalculatedLoanPaid: totals.Repaid,
		LoanBalanced:       customer.LoanBalanced(),
		LastChecked:        time.Now().UTC(),
	}

	if !result.LoanBalanced {
		result.Problems = append(result.Problems, fmt.Sprintf(
			"loan_remaining %s != total_loan %s - loan_paid %s",
			customer.LoanRemaining, customer.TotalLoan, customer.LoanPaid,
		))
	}
	if !result.RecordedAmount.Equal(result.CalculatedAmount) {
		result.Problems = append(result.Problems, fmt.Sprintf(
			"amount %s != disbursed - repaid %s", result.RecordedAmount, result.CalculatedAmount,
		))
	}
	if !result.RecordedTotalLoan.Equal(result.CalculatedTotal) {
		result.Problems = append(result.Problems, fmt.Sprintf(
			"total_loan %s != disbursed %s", result.RecordedTotalLoan, result.CalculatedTotal,
		))
	}
	if !result.RecordedLoanPaid.Equal(result.CalculatedLoanPaid) {
		result.Problems = append(result.Problems, fmt.Sprintf(
			"loan_paid %s != repaid %s", result.RecordedLoanPaid, result.CalculatedLoanPaid,
		))
	}

	result.IsReconciled = len(result.Problems) == 0

	return result, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalCustomers      int
	ReconciledCustomers int
	Discrepancies       []*ReconciliationResult
	FundInitialized     bool
	FundForLoan         decimal.Decimal
	CheckedAt           time.Time
}

// GenerateReconciliationReport reconciles every customer page by page.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	fund, err := uc.fund.Get(ctx)
	switch {
	case err == nil:
		report.FundInitialized = true
		report.FundForLoan = fund.FundForLoan
	case errors.Is(err, domain.ErrFundMissing):
	default:
		return nil, err
	}

	for offset := 0; ; offset += ReconciliationPageSize {
		customers, err := uc.customers.List(ctx, ReconciliationPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, customer := range customers {
			result, err := uc.reconcile(ctx, customer.AccountNumber)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile customer %s: %w", customer.AccountNumber, err)
			}

			report.TotalCustomers++
			if result.IsReconciled {
				report.ReconciledCustomers++
			} else {
				report.Discrepancies = append(report.Discrepancies, result)
			}
		}

		if len(customers) < ReconciliationPageSize {
			break
		}
	}

	return report, nil
}
