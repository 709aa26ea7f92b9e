package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
)

func (h *Handler) createVault(w http.ResponseWriter, r *http.Request) {
	var req contracts.CreateVaultRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_vault", err)
		return
	}
	vault, err := h.service.CreateVault(r.Context(), actorFromContext(r.Context()), req.OfferingID)
	if err != nil {
		writeMappedError(r.Context(), w, "create_vault", err)
		return
	}
	writeSuccess(w, http.StatusCreated, vault)
}

func (h *Handler) getVault(w http.ResponseWriter, r *http.Request) {
	offeringID := chi.URLParam(r, "offering_id")
	vault, err := h.service.GetVault(r.Context(), actorFromContext(r.Context()), offeringID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_vault", err)
		return
	}
	writeSuccess(w, http.StatusOK, vault)
}

func (h *Handler) setVaultStatus(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vault_id")
	var req contracts.UpdateVaultStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "set_vault_status", err)
		return
	}
	vault, err := h.service.SetVaultStatus(r.Context(), actorFromContext(r.Context()), vaultID, domain.VaultStatus(req.Status))
	if err != nil {
		writeMappedError(r.Context(), w, "set_vault_status", err)
		return
	}
	writeSuccess(w, http.StatusOK, vault)
}

func (h *Handler) getLedgerBalances(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vault_id")
	vault, accounts, balanced, err := h.service.GetLedgerBalances(r.Context(), actorFromContext(r.Context()), vaultID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_ledger_balances", err)
		return
	}
	writeSuccess(w, http.StatusOK, contracts.LedgerBalancesResponse{
		VaultID:  vault.VaultID,
		Accounts: accounts,
		Balanced: balanced,
	})
}

func (h *Handler) queryAuditLog(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vault_id")
	action := domain.AuditAction(r.URL.Query().Get("action"))
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)
	offset := parseIntDefault(r.URL.Query().Get("offset"), 0)

	entries, total, err := h.service.QueryAuditLog(r.Context(), actorFromContext(r.Context()), vaultID, action, limit, offset)
	if err != nil {
		writeMappedError(r.Context(), w, "query_audit_log", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"entries":    entries,
		"pagination": contracts.Pagination{Limit: limit, Offset: offset, Total: total},
	})
}
