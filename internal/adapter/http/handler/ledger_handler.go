package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	SendMicroDeposit(ctx context.Context, accountNumber string) (*usecase.OperationResult, error)
	ConfirmMicroDeposit(ctx context.Context, accountNumber string, claimed decimal.Decimal) (*usecase.OperationResult, error)
	DisburseLoan(ctx context.Context, accountNumber string, amount decimal.Decimal) (*usecase.OperationResult, error)
	RepayLoan(ctx context.Context, accountNumber string, amount decimal.Decimal) (*usecase.OperationResult, error)
}

// LedgerHandler exposes the money-moving operations.
type LedgerHandler struct {
	ledgerUC LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC}
}

// SendMicroDeposit sends the fixed verification deposit.
func (h *LedgerHandler) SendMicroDeposit(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerUC.SendMicroDeposit(r.Context(), chi.URLParam(r, "accountNumber"))
	if err != nil {
		writeDomainError(w, "failed to send micro deposit", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.OperationFromResult(result))
}

// ConfirmMicroDeposit verifies the amount the customer reports.
func (h *LedgerHandler) ConfirmMicroDeposit(w http.ResponseWriter, r *http.Request) {
	h.withAmount(w, r, http.StatusOK, "failed to confirm micro deposit", h.ledgerUC.ConfirmMicroDeposit)
}

// DisburseLoan pays a loan out of the fund.
func (h *LedgerHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	h.withAmount(w, r, http.StatusCreated, "failed to disburse loan", h.ledgerUC.DisburseLoan)
}

// RepayLoan returns money to the fund.
func (h *LedgerHandler) RepayLoan(w http.ResponseWriter, r *http.Request) {
	h.withAmount(w, r, http.StatusCreated, "failed to repay loan", h.ledgerUC.RepayLoan)
}

func (h *LedgerHandler) withAmount(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	failure string,
	op func(context.Context, string, decimal.Decimal) (*usecase.OperationResult, error),
) {
	var req dto.AmountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := op(r.Context(), chi.URLParam(r, "accountNumber"), req.Amount)
	if err != nil {
		writeDomainError(w, failure, err)
		return
	}

	writeJSON(w, status, dto.OperationFromResult(result))
}
