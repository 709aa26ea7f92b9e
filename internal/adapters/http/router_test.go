package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
)

const testJWTSecret = "test-jwt-secret"

type httpFixture struct {
	router http.Handler
	wallet *memory.WalletClient
}

func newHTTPFixture(t *testing.T) *httpFixture {
	t.Helper()

	store := memory.NewStore()
	offerings := memory.NewOfferingReader()
	investments := memory.NewInvestmentReader()
	wallet := memory.NewWalletClient()
	events := memory.NewPublisher()

	offerings.Put(domain.Offering{
		OfferingID:      "off-1",
		CreatorUserID:   "creator-1",
		TotalShares:     1000,
		AvailableShares: 0,
		SharePercentage: 20,
	})
	investments.Put("off-1", domain.Investment{InvestorID: "inv-1", Shares: 1000})

	signer, err := security.NewHMACSigner("test-signing-key")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	svc, err := application.NewService(application.Dependencies{
		Vaults:        store.Vaults(),
		Deposits:      store.Deposits(),
		Distributions: store.Distributions(),
		Claims:        store.Claims(),
		Audit:         store.AuditLog(),
		Ledger:        store.Ledger(),
		Outbox:        store.Outbox(),
		Offerings:     offerings,
		Investments:   investments,
		Wallet:        wallet,
		Signer:        signer,
		DomainEvents:  events,
		Analytics:     events,
		DLQ:           events,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	verifier, err := security.NewJWTVerifier(testJWTSecret)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	return &httpFixture{
		router: NewRouter(NewHandler(svc, verifier, nil)),
		wallet: wallet,
	}
}

func mintToken(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"sub":     userID,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (f *httpFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(raw)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, payload)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	if envelope.Status != "success" {
		t.Fatalf("status = %q, body %s", envelope.Status, rec.Body.String())
	}
	if dst != nil {
		if err := json.Unmarshal(envelope.Data, dst); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture(t)
	if rec := f.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz = %d, want 200", rec.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture(t)
	if rec := f.do(t, http.MethodGet, "/escrow/v1/claims", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token = %d, want 401", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/escrow/v1/claims", "not-a-jwt", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token = %d, want 401", rec.Code)
	}
}

func TestEscrowFlowOverHTTP(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture(t)
	admin := mintToken(t, "admin-1", "admin")
	creator := mintToken(t, "creator-1", "creator")
	investor := mintToken(t, "inv-1", "investor")

	rec := f.do(t, http.MethodPost, "/escrow/v1/vaults", admin, map[string]string{"offering_id": "off-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create vault = %d: %s", rec.Code, rec.Body.String())
	}
	var vault domain.Vault
	decodeData(t, rec, &vault)

	rec = f.do(t, http.MethodPost, "/escrow/v1/deposits", creator, map[string]any{
		"offering_id":   "off-1",
		"amount":        100000,
		"revenue_month": "2026-02",
		"source":        "AD_REVENUE",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("deposit = %d: %s", rec.Code, rec.Body.String())
	}
	var deposit domain.Deposit
	decodeData(t, rec, &deposit)

	rec = f.do(t, http.MethodPost, "/escrow/v1/deposits/"+deposit.DepositID+"/verify", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify deposit = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/escrow/v1/distributions", admin, map[string]string{
		"offering_id": "off-1",
		"deposit_id":  deposit.DepositID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("distribute = %d: %s", rec.Code, rec.Body.String())
	}
	var dist domain.Distribution
	decodeData(t, rec, &dist)
	if dist.CreatorAmount != 76000 || dist.InvestorAmount != 19000 || dist.PlatformFee != 5000 {
		t.Fatalf("unexpected split over http: %+v", dist)
	}

	rec = f.do(t, http.MethodGet, "/escrow/v1/claims?offering_id=off-1", investor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list claims = %d: %s", rec.Code, rec.Body.String())
	}
	var claimsPayload struct {
		Claims []domain.Claim `json:"claims"`
	}
	decodeData(t, rec, &claimsPayload)
	if len(claimsPayload.Claims) != 1 || claimsPayload.Claims[0].Amount != 19000 {
		t.Fatalf("unexpected investor claims: %+v", claimsPayload.Claims)
	}

	rec = f.do(t, http.MethodPost, "/escrow/v1/claims/"+claimsPayload.Claims[0].ClaimID+"/process", investor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("process claim = %d: %s", rec.Code, rec.Body.String())
	}
	if got := f.wallet.Balance("inv-1"); got != 19000 {
		t.Fatalf("wallet balance = %v, want 19000", got)
	}

	rec = f.do(t, http.MethodGet, "/escrow/v1/vaults/"+vault.VaultID+"/ledger", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ledger = %d: %s", rec.Code, rec.Body.String())
	}
	var ledger struct {
		Balanced bool `json:"balanced"`
	}
	decodeData(t, rec, &ledger)
	if !ledger.Balanced {
		t.Fatalf("ledger not balanced: %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/escrow/v1/vaults/"+vault.VaultID+"/audit", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit = %d: %s", rec.Code, rec.Body.String())
	}
	var audit struct {
		Entries []struct {
			Action         string `json:"action"`
			SignatureValid bool   `json:"signature_valid"`
		} `json:"entries"`
	}
	decodeData(t, rec, &audit)
	if len(audit.Entries) != 5 {
		t.Fatalf("audit entries = %d, want 5", len(audit.Entries))
	}
	for _, entry := range audit.Entries {
		if !entry.SignatureValid {
			t.Fatalf("audit entry %s failed verification", entry.Action)
		}
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture(t)
	admin := mintToken(t, "admin-1", "admin")
	investor := mintToken(t, "inv-1", "investor")

	// Unknown vault.
	rec := f.do(t, http.MethodGet, "/escrow/v1/vaults/nope", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing vault = %d, want 404", rec.Code)
	}

	// Investors cannot create vaults.
	rec = f.do(t, http.MethodPost, "/escrow/v1/vaults", investor, map[string]string{"offering_id": "off-1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forbidden create = %d, want 403", rec.Code)
	}

	// Malformed body.
	req := httptest.NewRequest(http.MethodPost, "/escrow/v1/vaults", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+admin)
	raw := httptest.NewRecorder()
	f.router.ServeHTTP(raw, req)
	if raw.Code != http.StatusBadRequest {
		t.Fatalf("malformed body = %d, want 400", raw.Code)
	}

	// Distribution without funds.
	if rec := f.do(t, http.MethodPost, "/escrow/v1/vaults", admin, map[string]string{"offering_id": "off-1"}); rec.Code != http.StatusCreated {
		t.Fatalf("create vault = %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/escrow/v1/distributions", admin, map[string]string{"offering_id": "off-1"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty distribution = %d, want 422: %s", rec.Code, rec.Body.String())
	}
	var apiErr struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Code != "NO_FUNDS_AVAILABLE" {
		t.Fatalf("error code = %q, want NO_FUNDS_AVAILABLE", apiErr.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	t.Parallel()

	f := newHTTPFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("request id = %q, want req-42", got)
	}

	rec2 := f.do(t, http.MethodGet, "/healthz", "", nil)
	if rec2.Header().Get("X-Request-Id") == "" {
		t.Fatalf("missing generated request id")
	}
}
