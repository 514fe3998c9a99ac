package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/loanledger/internal/adapter/http/dto"
	"github.com/iho/loanledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	ReconcileCustomer(ctx context.Context, accountNumber string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// ReconciliationHandler exposes ledger consistency checks.
type ReconciliationHandler struct {
	reconUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconUC: reconUC}
}

// Report reconciles every customer. Responds 409 when discrepancies exist.
func (h *ReconciliationHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconUC.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeDomainError(w, "failed to reconcile ledger", err)
		return
	}

	status := http.StatusOK
	if len(report.Discrepancies) > 0 {
		status = http.StatusConflict
	}

	writeJSON(w, status, dto.ReconciliationReportFromUseCase(report))
}

// Customer reconciles a single customer.
func (h *ReconciliationHandler) Customer(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconUC.ReconcileCustomer(r.Context(), chi.URLParam(r, "accountNumber"))
	if err != nil {
		writeDomainError(w, "failed to reconcile customer", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationResultFromUseCase(result))
}
