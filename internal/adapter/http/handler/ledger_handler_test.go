package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
	"github.com/iho/loanledger/internal/usecase"
)

type ledgerServiceStub struct {
	sendFn     func(ctx context.Context, acct string) (*usecase.OperationResult, error)
	confirmFn  func(ctx context.Context, acct string, amount decimal.Decimal) (*usecase.OperationResult, error)
	disburseFn func(ctx context.Context, acct string, amount decimal.Decimal) (*usecase.OperationResult, error)
	repayFn    func(ctx context.Context, acct string, amount decimal.Decimal) (*usecase.OperationResult, error)
}

func (s *ledgerServiceStub) SendMicroDeposit(ctx context.Context, acct string) (*usecase.OperationResult, error) {
	return s.sendFn(ctx, acct)
}

func (s *ledgerServiceStub) ConfirmMicroDeposit(ctx context.Context, acct string, amount decimal.Decimal) (*usecase.OperationResult, error) {
	return s.confirmFn(ctx, acct, amount)
}

func (s *ledgerServiceStub) DisburseLoan(ctx context.Context, acct string, amount decimal.Decimal) (*usecase.OperationResult, error) {
	return s.disburseFn(ctx, acct, amount)
}

func (s *ledgerServiceStub) RepayLoan(ctx context.Context, acct string, amount decimal.Decimal) (*usecase.OperationResult, error) {
	return s.repayFn(ctx, acct, amount)
}

func ledgerRouter(h *LedgerHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/customers/{accountNumber}/micro-deposits", h.SendMicroDeposit)
	r.Post("/customers/{accountNumber}/micro-deposits/confirm", h.ConfirmMicroDeposit)
	r.Post("/customers/{accountNumber}/loans/disburse", h.DisburseLoan)
	r.Post("/customers/{accountNumber}/loans/repay", h.RepayLoan)
	return r
}

func TestLedgerHandler_SendMicroDeposit(t *testing.T) {
	var gotAccount string
	h := NewLedgerHandler(&ledgerServiceStub{
		sendFn: func(ctx context.Context, acct string) (*usecase.OperationResult, error) {
			gotAccount = acct
			return &usecase.OperationResult{
				AccountNumber: acct,
				Amount:        decimal.RequireFromString("0.50"),
				Message:       "Micro deposit of $0.50 sent to account: " + acct,
				DepositID:     "dep-1",
			}, nil
		},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/customers/ACC-1/micro-deposits", nil)
	ledgerRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotAccount != "ACC-1" {
		t.Fatalf("expected account from path, got %q", gotAccount)
	}

	var resp dto.OperationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Message != "Micro deposit of $0.50 sent to account: ACC-1" || resp.DepositID != "dep-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLedgerHandler_DisburseLoanPassesAmount(t *testing.T) {
	var gotAmount decimal.Decimal
	h := NewLedgerHandler(&ledgerServiceStub{
		disburseFn: func(ctx context.Context, acct string, amount decimal.Decimal) (*usecase.OperationResult, error) {
			gotAmount = amount
			return &usecase.OperationResult{AccountNumber: acct, Amount: amount, Message: "ok"}, nil
		},
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/customers/ACC-1/loans/disburse", strings.NewReader(`{"amount":"40.00"}`))
	ledgerRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !gotAmount.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected amount 40, got %s", gotAmount)
	}
}

func TestLedgerHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		err    error
		status int
	}{
		{"confirm mismatch", "/customers/ACC-1/micro-deposits/confirm", domain.ErrAmountMismatch, http.StatusUnprocessableEntity},
		{"confirm no deposit", "/customers/ACC-1/micro-deposits/confirm", domain.ErrNoDepositFound, http.StatusNotFound},
		{"disburse insufficient", "/customers/ACC-1/loans/disburse", domain.ErrInsufficientFunds, http.StatusConflict},
		{"disburse unverified", "/customers/ACC-1/loans/disburse", domain.ErrNotVerified, http.StatusUnprocessableEntity},
		{"repay unknown account", "/customers/ACC-1/loans/repay", domain.ErrAccountNotFound, http.StatusNotFound},
		{"repay fund missing", "/customers/ACC-1/loans/repay", domain.ErrFundMissing, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fail := func(ctx context.Context, acct string, amount decimal.Decimal) (*usecase.OperationResult, error) {
				return nil, tt.err
			}
			h := NewLedgerHandler(&ledgerServiceStub{confirmFn: fail, disburseFn: fail, repayFn: fail})

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{"amount":1}`))
			ledgerRouter(h).ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLedgerHandler_InvalidJSON(t *testing.T) {
	h := NewLedgerHandler(&ledgerServiceStub{
		repayFn: func(ctx context.Context, acct string, amount decimal.Decimal) (*usecase.OperationResult, error) {
			t.Fatal("RepayLoan should not be called for invalid payload")
			return nil, nil
		},
	})

	for _, body := range []string{"{invalid json", `{"amount":1,"extra":true}`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/customers/ACC-1/loans/repay", strings.NewReader(body))
		ledgerRouter(h).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, rec.Code)
		}
	}
}
