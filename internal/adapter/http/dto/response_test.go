package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

func TestCustomerFromDomain(t *testing.T) {
	now := time.Now()
	c := &domain.Customer{
		ID:            "c1",
		AccountNumber: "ACC-1",
		Amount:        decimal.RequireFromString("40"),
		TotalLoan:     decimal.RequireFromString("40"),
		LoanPaid:      decimal.Zero,
		LoanRemaining: decimal.RequireFromString("40"),
		Version:       2,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	resp := CustomerFromDomain(c)
	require.Equal(t, "ACC-1", resp.AccountNumber)
	require.True(t, resp.LoanRemaining.Equal(c.LoanRemaining))
	require.Equal(t, int64(2), resp.Version)

	list := CustomersFromDomain([]*domain.Customer{c, c})
	require.Len(t, list, 2)
}

func TestOperationResponseOmitsEmptyIDs(t *testing.T) {
	resp := OperationFromResult(&usecase.OperationResult{
		AccountNumber: "ACC-1",
		Amount:        decimal.RequireFromString("0.50"),
		Message:       "Account verified successfully.",
	})

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	require.NotContains(t, string(body), "transaction_id")
	require.NotContains(t, string(body), "deposit_id")
}

func TestReconciliationReportFromUseCase(t *testing.T) {
	report := &usecase.ReconciliationReport{
		TotalCustomers:      2,
		ReconciledCustomers: 1,
		Discrepancies: []*usecase.ReconciliationResult{{
			AccountNumber: "ACC-2",
			Problems:      []string{"loan remaining does not equal total loan minus loan paid"},
		}},
		FundInitialized: true,
		FundForLoan:     decimal.NewFromInt(10),
	}

	resp := ReconciliationReportFromUseCase(report)
	require.Equal(t, 2, resp.TotalCustomers)
	require.Len(t, resp.Discrepancies, 1)
	require.Equal(t, "ACC-2", resp.Discrepancies[0].AccountNumber)
}

func TestTransactionsFromDomain(t *testing.T) {
	txns := TransactionsFromDomain([]*domain.Transaction{{
		ID:     "t1",
		Type:   domain.TransactionTypeLoanRepayment,
		Amount: decimal.NewFromInt(15),
	}})
	require.Len(t, txns, 1)
	require.Equal(t, "LOAN_REPAYMENT", txns[0].Type)
}
