package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PrimaryFundID is the fixed key of the singleton bank fund.
const PrimaryFundID = "primary"

// BankFund is the shared pool used for micro-deposits and loan disbursement.
type BankFund struct {
	ID          string
	FundForLoan decimal.Decimal
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidateDebit checks that the fund can cover amount.
func (f *BankFund) ValidateDebit(amount decimal.Decimal) error {
	if f.FundForLoan.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns the fund balance after debit.
func (f *BankFund) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return f.FundForLoan.Sub(amount)
}

// ApplyCredit returns the fund balance after credit.
func (f *BankFund) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return f.FundForLoan.Add(amount)
}

// Clone returns a copy that shares no mutable state with f.
func (f *BankFund) Clone() *BankFund {
	cp := *f
	return &cp
}
