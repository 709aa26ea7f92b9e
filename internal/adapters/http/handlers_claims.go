package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
)

func (h *Handler) listClaims(w http.ResponseWriter, r *http.Request) {
	offeringID := r.URL.Query().Get("offering_id")
	claims, err := h.service.ListAvailableClaims(r.Context(), actorFromContext(r.Context()), offeringID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_claims", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"claims": claims})
}

func (h *Handler) processClaim(w http.ResponseWriter, r *http.Request) {
	claimID := chi.URLParam(r, "claim_id")
	claim, err := h.service.ProcessClaim(r.Context(), actorFromContext(r.Context()), claimID)
	if err != nil {
		writeMappedError(r.Context(), w, "process_claim", err)
		return
	}
	writeSuccess(w, http.StatusOK, claim)
}

func (h *Handler) expireSweep(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.RunExpireSweep(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		writeMappedError(r.Context(), w, "expire_sweep", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]int{"expired": count})
}

func (h *Handler) claimAll(w http.ResponseWriter, r *http.Request) {
	var req contracts.ClaimAllRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeValidationError(r.Context(), w, "claim_all", err)
			return
		}
	}
	resp, err := h.service.ClaimAll(r.Context(), actorFromContext(r.Context()), req.OfferingID)
	if err != nil {
		writeMappedError(r.Context(), w, "claim_all", err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}
