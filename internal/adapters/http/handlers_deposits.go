package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
)

func (h *Handler) depositRevenue(w http.ResponseWriter, r *http.Request) {
	var req contracts.DepositRevenueRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "deposit_revenue", err)
		return
	}
	deposit, err := h.service.DepositRevenue(r.Context(), actorFromContext(r.Context()), application.DepositRevenueInput{
		OfferingID:   req.OfferingID,
		Amount:       req.Amount,
		RevenueMonth: req.RevenueMonth,
		Source:       domain.DepositSource(req.Source),
		ExternalRef:  req.ExternalRef,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "deposit_revenue", err)
		return
	}
	writeSuccess(w, http.StatusCreated, deposit)
}

func (h *Handler) verifyDeposit(w http.ResponseWriter, r *http.Request) {
	depositID := chi.URLParam(r, "deposit_id")
	deposit, err := h.service.VerifyDeposit(r.Context(), actorFromContext(r.Context()), depositID)
	if err != nil {
		writeMappedError(r.Context(), w, "verify_deposit", err)
		return
	}
	writeSuccess(w, http.StatusOK, deposit)
}

func (h *Handler) listDeposits(w http.ResponseWriter, r *http.Request) {
	offeringID := chi.URLParam(r, "offering_id")
	limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	deposits, total, err := h.service.ListDeposits(r.Context(), actorFromContext(r.Context()), offeringID, limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_deposits", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"deposits":   deposits,
		"pagination": contracts.Pagination{Limit: limit, Offset: offset, Total: total},
	})
}
