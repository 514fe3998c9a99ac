package domain

import "time"

// Event types
const (
	EventTypeMicroDepositSent     = "micro_deposit.sent"
	EventTypeMicroDepositVerified = "micro_deposit.verified"
	EventTypeLoanDisbursed        = "loan.disbursed"
	EventTypeLoanRepaid           = "loan.repaid"
	EventTypeCustomerOpened       = "customer.opened"
	EventTypeFundInitialized      = "fund.initialized"
)

// Aggregate types
const (
	AggregateTypeCustomer = "customer"
	AggregateTypeFund     = "fund"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// LedgerEvent is the payload of every money-moving or verification event.
type LedgerEvent struct {
	AccountNumber string `json:"account_number"`
	TransactionID string `json:"transaction_id,omitempty"`
	DepositID     string `json:"deposit_id,omitempty"`
	Amount        string `json:"amount"`
	FundBalance   string `json:"fund_balance,omitempty"`
	EventAt       string `json:"event_at"`
}

// ToPayload flattens the event for storage in the outbox.
func (e LedgerEvent) ToPayload() map[string]any {
	p := map[string]any{
		"account_number": e.AccountNumber,
		"amount":         e.Amount,
		"event_at":       e.EventAt,
	}
	if e.TransactionID != "" {
		p["transaction_id"] = e.TransactionID
	}
	if e.DepositID != "" {
		p["deposit_id"] = e.DepositID
	}
	if e.FundBalance != "" {
		p["fund_balance"] = e.FundBalance
	}
	return p
}
