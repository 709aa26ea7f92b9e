package domain

import (
	"strings"
	"testing"
	"time"
)

func TestCanonicalPayloadFieldOrder(t *testing.T) {
	t.Parallel()

	amount := 100000.0
	at := time.Date(2026, 3, 1, 12, 0, 0, 42, time.UTC)
	entry := AuditEntry{
		VaultID:   "vault-1",
		Action:    AuditDepositReceived,
		ActorType: ActorTypeSystem,
		Amount:    &amount,
		NewState:  SnapshotState(map[string]string{"status": "PENDING"}),
		CreatedAt: at,
	}

	payload := string(entry.CanonicalPayload())
	parts := strings.Split(payload, "|")
	if len(parts) != 5 {
		t.Fatalf("canonical payload has %d segments, want 5: %q", len(parts), payload)
	}
	if parts[0] != "DEPOSIT_RECEIVED" {
		t.Fatalf("first segment = %q, want action", parts[0])
	}
	if parts[1] != "100000.00" {
		t.Fatalf("amount segment = %q, want 100000.00", parts[1])
	}
	if parts[3] != "vault-1" {
		t.Fatalf("vault segment = %q", parts[3])
	}
}

func TestCanonicalPayloadSurvivesStateReformatting(t *testing.T) {
	t.Parallel()

	amount := 95000.0
	at := time.Date(2026, 3, 1, 12, 0, 0, 42, time.UTC)
	entry := AuditEntry{
		VaultID:   "vault-1",
		Action:    AuditDistributionCompleted,
		ActorType: ActorTypeSystem,
		Amount:    &amount,
		NewState:  []byte(`{"status":"ACTIVE","total_balance":95000}`),
		CreatedAt: at,
	}
	signed := string(entry.CanonicalPayload())

	// A jsonb column hands back the same value with different bytes:
	// reordered keys, added whitespace, numeric scale rewritten.
	stored := entry
	stored.NewState = []byte(`{"total_balance": 95000.00, "status": "ACTIVE"}`)
	if got := string(stored.CanonicalPayload()); got != signed {
		t.Fatalf("payload changed after formatting-only round-trip:\n  signed %q\n  stored %q", signed, got)
	}

	tampered := entry
	tampered.NewState = []byte(`{"status":"ACTIVE","total_balance":95001}`)
	if string(tampered.CanonicalPayload()) == signed {
		t.Fatalf("payload must change when the state value changes")
	}
}

func TestCanonicalPayloadDistinguishesEntries(t *testing.T) {
	t.Parallel()

	base := AuditEntry{
		VaultID:   "vault-1",
		Action:    AuditClaimProcessed,
		CreatedAt: time.Now().UTC(),
	}
	other := base
	other.CreatedAt = base.CreatedAt.Add(time.Nanosecond)
	if string(base.CanonicalPayload()) == string(other.CanonicalPayload()) {
		t.Fatalf("payloads for different timestamps must differ")
	}

	var tampered = base
	amount := 5.0
	tampered.Amount = &amount
	if string(base.CanonicalPayload()) == string(tampered.CanonicalPayload()) {
		t.Fatalf("payloads for different amounts must differ")
	}
}
