package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger transaction.
type TransactionType string

const (
	TransactionTypeMicroDeposit  TransactionType = "MICRO_DEPOSIT"
	TransactionTypeLoanDisburse  TransactionType = "LOAN_DISBURSE"
	TransactionTypeLoanRepayment TransactionType = "LOAN_REPAYMENT"
)

var validTransactionTypes = map[TransactionType]bool{
	TransactionTypeMicroDeposit:  true,
	TransactionTypeLoanDisburse:  true,
	TransactionTypeLoanRepayment: true,
}

// IsValid checks if the type is a known transaction type.
func (t TransactionType) IsValid() bool {
	return validTransactionTypes[t]
}

// Transaction is an immutable audit record of money moving between the fund
// and a customer.
type Transaction struct {
	ID         string
	CustomerID string
	Type       TransactionType
	Amount     decimal.Decimal
	CreatedAt  time.Time
}
