package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a borrower identified by its account number.
type Customer struct {
	ID            string
	AccountNumber string
	Amount        decimal.Decimal // current outstanding balance
	TotalLoan     decimal.Decimal
	LoanPaid      decimal.Decimal
	LoanRemaining decimal.Decimal
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ApplyDisbursement credits a disbursed loan to the customer.
func (c *Customer) ApplyDisbursement(amount decimal.Decimal) {
	c.Amount = c.Amount.Add(amount)
	c.LoanRemaining = c.LoanRemaining.Add(amount)
	c.TotalLoan = c.TotalLoan.Add(amount)
}

// ApplyRepayment records a repayment. The remaining balance is allowed to go
// negative when the customer overpays.
func (c *Customer) ApplyRepayment(amount decimal.Decimal) {
	c.LoanPaid = c.LoanPaid.Add(amount)
	c.LoanRemaining = c.LoanRemaining.Sub(amount)
	c.Amount = c.Amount.Sub(amount)
}

// LoanBalanced reports whether LoanRemaining == TotalLoan - LoanPaid.
func (c *Customer) LoanBalanced() bool {
	return c.LoanRemaining.Equal(c.TotalLoan.Sub(c.LoanPaid))
}

// Clone returns a copy that shares no mutable state with c.
func (c *Customer) Clone() *Customer {
	cp := *c
	return &cp
}
