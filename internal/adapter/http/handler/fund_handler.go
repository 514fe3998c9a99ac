package handler

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/domain"
)

// FundService defines the behavior needed by FundHandler.
type FundService interface {
	Initialize(ctx context.Context, amount decimal.Decimal) (*domain.BankFund, error)
	GetFund(ctx context.Context) (*domain.BankFund, error)
}

// FundHandler handles bank fund requests.
type FundHandler struct {
	fundUC FundService
}

// NewFundHandler creates a new FundHandler.
func NewFundHandler(fundUC FundService) *FundHandler {
	return &FundHandler{fundUC: fundUC}
}

// Get returns the fund balance.
func (h *FundHandler) Get(w http.ResponseWriter, r *http.Request) {
	fund, err := h.fundUC.GetFund(r.Context())
	if err != nil {
		writeDomainError(w, "failed to get fund", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FundFromDomain(fund))
}

// Initialize seeds the fund once.
func (h *FundHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req dto.InitializeFundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	fund, err := h.fundUC.Initialize(r.Context(), req.Amount)
	if err != nil {
		writeDomainError(w, "failed to initialize fund", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.FundFromDomain(fund))
}
