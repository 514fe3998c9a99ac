package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/usecase"
)

// OpenCustomerRequest represents a request to open a customer account.
type OpenCustomerRequest struct {
	AccountNumber string `json:"account_number"`
}

// AmountRequest carries the amount for confirm, disburse and repay calls.
// Both JSON numbers and strings are accepted.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// InitializeFundRequest represents a request to seed the bank fund.
type InitializeFundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ListTransactionsInput builds the use case input for a customer's history.
func ListTransactionsInput(accountNumber string, limit, offset int) usecase.ListTransactionsInput {
	return usecase.ListTransactionsInput{
		AccountNumber: accountNumber,
		Limit:         limit,
		Offset:        offset,
	}
}
