package domain

import "errors"

var (
	// Customer errors
	ErrAccountNotFound      = errors.New("account not found")
	ErrCustomerExists       = errors.New("customer with this account number already exists")
	ErrInvalidAccountNumber = errors.New("invalid account number")

	// Fund errors
	ErrInsufficientFunds = errors.New("insufficient bank funds")
	ErrFundMissing       = errors.New("bank fund record missing")
	ErrFundExists        = errors.New("bank fund already initialized")

	// Micro-deposit errors
	ErrNoDepositFound       = errors.New("no micro deposit found")
	ErrAmountMismatch       = errors.New("micro deposit amount does not match")
	ErrNotVerified          = errors.New("account is not verified for loan disbursement")
	ErrInvalidDepositStatus = errors.New("invalid micro deposit status")

	// Amount errors
	ErrInvalidAmount = errors.New("amount must be positive")

	// Transaction errors
	ErrInvalidTransactionType = errors.New("invalid transaction type")

	// Store errors
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// IsBusinessError reports whether err is an expected, caller-recoverable
// outcome rather than an operational failure.
func IsBusinessError(err error) bool {
	switch {
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrNoDepositFound),
		errors.Is(err, ErrAmountMismatch),
		errors.Is(err, ErrNotVerified),
		errors.Is(err, ErrCustomerExists),
		errors.Is(err, ErrFundExists),
		errors.Is(err, ErrInvalidAccountNumber),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAmountTooSmall),
		errors.Is(err, ErrAmountTooLarge),
		errors.Is(err, ErrAmountPrecision):
		return true
	}
	return false
}
