package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DepositStatus is the verification state of a micro-deposit.
type DepositStatus string

const (
	DepositStatusPendingVerification DepositStatus = "PENDING_VERIFICATION"
	DepositStatusVerified            DepositStatus = "VERIFIED"
)

// IsValid checks if the status is a known deposit status.
func (s DepositStatus) IsValid() bool {
	return s == DepositStatusPendingVerification || s == DepositStatusVerified
}

// ParseDepositStatus parses a stored status value, ignoring case.
func ParseDepositStatus(s string) (DepositStatus, error) {
	status := DepositStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrInvalidDepositStatus
	}
	return status, nil
}

// MicroDeposit is a small token payment used to confirm a customer controls
// an account. Sequence orders deposits of a customer by creation.
type MicroDeposit struct {
	ID         string
	CustomerID string
	Amount     decimal.Decimal
	Status     DepositStatus
	Sequence   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Verified reports whether the deposit has been confirmed.
func (d *MicroDeposit) Verified() bool {
	return strings.EqualFold(string(d.Status), string(DepositStatusVerified))
}

// Matches reports whether claimed equals the deposited amount exactly.
func (d *MicroDeposit) Matches(claimed decimal.Decimal) bool {
	return d.Amount.Equal(claimed)
}
