package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
)

func (h *Handler) distribute(w http.ResponseWriter, r *http.Request) {
	var req contracts.DistributeRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "distribute", err)
		return
	}
	dist, err := h.service.Distribute(r.Context(), actorFromContext(r.Context()), application.DistributeInput{
		OfferingID: req.OfferingID,
		DepositID:  req.DepositID,
	})
	if err != nil {
		writeMappedError(r.Context(), w, "distribute", err)
		return
	}
	writeSuccess(w, http.StatusCreated, dist)
}

func (h *Handler) getDistribution(w http.ResponseWriter, r *http.Request) {
	distributionID := chi.URLParam(r, "distribution_id")
	dist, err := h.service.GetDistribution(r.Context(), actorFromContext(r.Context()), distributionID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_distribution", err)
		return
	}
	writeSuccess(w, http.StatusOK, dist)
}

func (h *Handler) listDistributions(w http.ResponseWriter, r *http.Request) {
	offeringID := chi.URLParam(r, "offering_id")
	limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	distributions, total, err := h.service.ListDistributions(r.Context(), actorFromContext(r.Context()), offeringID, limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "list_distributions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"distributions": distributions,
		"pagination":    contracts.Pagination{Limit: limit, Offset: offset, Total: total},
	})
}
