package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrAmountTooLarge  = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall  = errors.New("amount below minimum allowed")
	ErrAmountPrecision = errors.New("amount has more than two decimal places")
)

// Validation constants
const (
	MaxAccountNumberLength = 34
	MaxAmountDecimals      = 2
	MaxLedgerAmount        = "1000000000000" // 1 trillion
	MinLedgerAmount        = "0.01"
)

var (
	accountNumberRegex = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	minAmount          = decimal.RequireFromString(MinLedgerAmount)
	maxAmount          = decimal.RequireFromString(MaxLedgerAmount)
)

// NormalizeAccountNumber trims surrounding whitespace.
func NormalizeAccountNumber(accountNumber string) string {
	return strings.TrimSpace(accountNumber)
}

// ValidateAccountNumber validates an account number
func ValidateAccountNumber(accountNumber string) error {
	accountNumber = NormalizeAccountNumber(accountNumber)

	if accountNumber == "" {
		return fmt.Errorf("%w: account number cannot be empty", ErrInvalidAccountNumber)
	}

	if len(accountNumber) > MaxAccountNumberLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidAccountNumber, MaxAccountNumberLength)
	}

	if !accountNumberRegex.MatchString(accountNumber) {
		return fmt.Errorf("%w: only letters, digits and '-' are allowed", ErrInvalidAccountNumber)
	}

	return nil
}

// ValidateAmount validates a loan, repayment or confirmation amount
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.Equal(amount.Truncate(MaxAmountDecimals)) {
		return ErrAmountPrecision
	}

	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinLedgerAmount)
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxLedgerAmount)
	}

	return nil
}

// ValidateFundAmount validates the opening balance of the bank fund. Zero is
// allowed.
func ValidateFundAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !amount.Equal(amount.Truncate(MaxAmountDecimals)) {
		return ErrAmountPrecision
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
