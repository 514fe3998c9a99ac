package usecase

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// ReconciliationPageSize is how many customers are loaded per page during reconciliation
	ReconciliationPageSize = 500
)

// MicroDepositAmount is the fixed amount sent to verify an account.
var MicroDepositAmount = decimal.RequireFromString("0.50")
