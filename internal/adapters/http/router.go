package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

// Handler is the HTTP adapter entrypoint for escrow use-cases.
// Keeping only application dependencies here preserves clean adapter boundaries.
type Handler struct {
	service *application.Service
	tokens  ports.TokenVerifier
	ready   func() error
}

// NewHandler constructs an HTTP handler bound to the application service.
// ready reports readiness of downstream dependencies for /readyz.
func NewHandler(service *application.Service, tokens ports.TokenVerifier, ready func() error) *Handler {
	if ready == nil {
		ready = func() error { return nil }
	}
	return &Handler{service: service, tokens: tokens, ready: ready}
}

// NewRouter registers escrow HTTP routes and the middleware stack.
// Centralizing routes here ensures consistent auth and error behavior across endpoints.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/escrow/v1", func(r chi.Router) {
		r.Use(handler.authMiddleware)

		r.Post("/vaults", handler.createVault)
		r.Get("/vaults/{offering_id}", handler.getVault)
		r.Patch("/vaults/{vault_id}/status", handler.setVaultStatus)
		r.Get("/vaults/{vault_id}/ledger", handler.getLedgerBalances)
		r.Get("/vaults/{vault_id}/audit", handler.queryAuditLog)

		r.Post("/deposits", handler.depositRevenue)
		r.Post("/deposits/{deposit_id}/verify", handler.verifyDeposit)
		r.Get("/offerings/{offering_id}/deposits", handler.listDeposits)

		r.Post("/distributions", handler.distribute)
		r.Get("/distributions/{distribution_id}", handler.getDistribution)
		r.Get("/offerings/{offering_id}/distributions", handler.listDistributions)

		r.Get("/claims", handler.listClaims)
		r.Post("/claims/{claim_id}/process", handler.processClaim)
		r.Post("/claims/claim-all", handler.claimAll)
		r.Post("/claims/expire-sweep", handler.expireSweep)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", err.Error())
		return
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}
