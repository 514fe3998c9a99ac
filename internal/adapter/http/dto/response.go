package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// OperationResponse is returned by every money-moving endpoint.
type OperationResponse struct {
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Message       string          `json:"message"`
	TransactionID string          `json:"transaction_id,omitempty"`
	DepositID     string          `json:"deposit_id,omitempty"`
}

// OperationFromResult converts a ledger result to a response.
func OperationFromResult(r *usecase.OperationResult) *OperationResponse {
	return &OperationResponse{
		AccountNumber: r.AccountNumber,
		Amount:        r.Amount,
		Message:       r.Message,
		TransactionID: r.TransactionID,
		DepositID:     r.DepositID,
	}
}

// CustomerResponse represents a customer in API responses.
type CustomerResponse struct {
	ID            string          `json:"id"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	TotalLoan     decimal.Decimal `json:"total_loan"`
	LoanPaid      decimal.Decimal `json:"loan_paid"`
	LoanRemaining decimal.Decimal `json:"loan_remaining"`
	Version       int64           `json:"version"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CustomerFromDomain converts a domain customer to a response.
func CustomerFromDomain(c *domain.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:            c.ID,
		AccountNumber: c.AccountNumber,
		Amount:        c.Amount,
		TotalLoan:     c.TotalLoan,
		LoanPaid:      c.LoanPaid,
		LoanRemaining: c.LoanRemaining,
		Version:       c.Version,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// CustomersFromDomain converts domain customers to responses.
func CustomersFromDomain(customers []*domain.Customer) []*CustomerResponse {
	result := make([]*CustomerResponse, len(customers))
	for i, c := range customers {
		result[i] = CustomerFromDomain(c)
	}
	return result
}

// ListCustomersResponse represents a page of customers.
type ListCustomersResponse struct {
	Customers []*CustomerResponse `json:"customers"`
	Total     int64               `json:"total"`
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = &TransactionResponse{
			ID:        t.ID,
			Type:      string(t.Type),
			Amount:    t.Amount,
			CreatedAt: t.CreatedAt,
		}
	}
	return result
}

// ListTransactionsResponse represents a page of a customer's transactions.
type ListTransactionsResponse struct {
	AccountNumber string                 `json:"account_number"`
	Transactions  []*TransactionResponse `json:"transactions"`
	Total         int64                  `json:"total"`
}

// FundResponse represents the bank fund.
type FundResponse struct {
	FundForLoan decimal.Decimal `json:"fund_for_loan"`
	Version     int64           `json:"version"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FundFromDomain converts the domain fund to a response.
func FundFromDomain(f *domain.BankFund) *FundResponse {
	return &FundResponse{
		FundForLoan: f.FundForLoan,
		Version:     f.Version,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ReconciliationResultResponse describes one customer that failed reconciliation.
type ReconciliationResultResponse struct {
	AccountNumber      string          `json:"account_number"`
	RecordedAmount     decimal.Decimal `json:"recorded_amount"`
	CalculatedAmount   decimal.Decimal `json:"calculated_amount"`
	RecordedTotalLoan  decimal.Decimal `json:"recorded_total_loan"`
	CalculatedTotal    decimal.Decimal `json:"calculated_total_loan"`
	RecordedLoanPaid   decimal.Decimal `json:"recorded_loan_paid"`
	CalculatedLoanPaid decimal.Decimal `json:"calculated_loan_paid"`
	LoanBalanced       bool            `json:"loan_balanced"`
	IsReconciled       bool            `json:"is_reconciled"`
	Problems           []string        `json:"problems,omitempty"`
}

// ReconciliationResultFromUseCase converts a per-customer result.
func ReconciliationResultFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResultResponse {
	return &ReconciliationResultResponse{
		AccountNumber:      r.AccountNumber,
		RecordedAmount:     r.RecordedAmount,
		CalculatedAmount:   r.CalculatedAmount,
		RecordedTotalLoan:  r.RecordedTotalLoan,
		CalculatedTotal:    r.CalculatedTotal,
		RecordedLoanPaid:   r.RecordedLoanPaid,
		CalculatedLoanPaid: r.CalculatedLoanPaid,
		LoanBalanced:       r.LoanBalanced,
		IsReconciled:       r.IsReconciled,
		Problems:           r.Problems,
	}
}

// ReconciliationReportResponse represents the full reconciliation report.
type ReconciliationReportResponse struct {
	TotalCustomers      int                             `json:"total_customers"`
	ReconciledCustomers int                             `json:"reconciled_customers"`
	Discrepancies       []*ReconciliationResultResponse `json:"discrepancies"`
	FundInitialized     bool                            `json:"fund_initialized"`
	FundForLoan         decimal.Decimal                 `json:"fund_for_loan"`
	CheckedAt           time.Time                       `json:"checked_at"`
}

// ReconciliationReportFromUseCase converts a report to its response.
func ReconciliationReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResultResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationResultFromUseCase(d)
	}

	return &ReconciliationReportResponse{
		TotalCustomers:      r.TotalCustomers,
		ReconciledCustomers: r.ReconciledCustomers,
		Discrepancies:       discrepancies,
		FundInitialized:     r.FundInitialized,
		FundForLoan:         r.FundForLoan,
		CheckedAt:           r.CheckedAt,
	}
}
