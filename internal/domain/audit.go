package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type AuditAction string

const (
	AuditVaultCreated          AuditAction = "VAULT_CREATED"
	AuditVaultStatusChanged    AuditAction = "VAULT_STATUS_CHANGED"
	AuditDepositReceived       AuditAction = "DEPOSIT_RECEIVED"
	AuditDepositVerified       AuditAction = "DEPOSIT_VERIFIED"
	AuditDistributionCompleted AuditAction = "DISTRIBUTION_COMPLETED"
	AuditClaimProcessed        AuditAction = "CLAIM_PROCESSED"
	AuditClaimExpired          AuditAction = "CLAIM_EXPIRED"
	AuditClaimsExpired         AuditAction = "CLAIMS_EXPIRED"
)

type ActorType string

const (
	ActorTypeSystem   ActorType = "SYSTEM"
	ActorTypeCreator  ActorType = "CREATOR"
	ActorTypeInvestor ActorType = "INVESTOR"
	ActorTypeAdmin    ActorType = "ADMIN"
)

// AuditEntry is one append-only record of a state-changing operation.
// The signature is a keyed hash over CanonicalPayload, so the trail stays
// verifiable without the log itself being trusted.
type AuditEntry struct {
	EntryID       string          `json:"entry_id"`
	VaultID       string          `json:"vault_id"`
	Action        AuditAction     `json:"action"`
	ActorType     ActorType       `json:"actor_type"`
	ActorID       string          `json:"actor_id,omitempty"`
	Amount        *float64        `json:"amount,omitempty"`
	PreviousState json.RawMessage `json:"previous_state,omitempty"`
	NewState      json.RawMessage `json:"new_state,omitempty"`
	Signature     string          `json:"signature"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CanonicalPayload serializes the identifying fields in a fixed order for
// signing. The state snapshot is reduced to canonical JSON first, so the
// signature survives stores that rewrite JSON formatting (a jsonb column
// preserves neither whitespace nor key order). The timestamp is included at
// nanosecond precision so two entries for the same action never share a
// payload.
func (e AuditEntry) CanonicalPayload() []byte {
	amount := ""
	if e.Amount != nil {
		amount = strconv.FormatFloat(*e.Amount, 'f', currencyPlaces, 64)
	}
	parts := []string{
		string(e.Action),
		amount,
		canonicalJSON(e.NewState),
		e.VaultID,
		strconv.FormatInt(e.CreatedAt.UTC().UnixNano(), 10),
	}
	return []byte(strings.Join(parts, "|"))
}

// canonicalJSON re-marshals raw JSON into one stable byte form: keys sorted
// and insignificant whitespace dropped. Input that does not parse as JSON is
// returned verbatim.
func canonicalJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// SnapshotState marshals an opaque previous/new state snapshot, falling back
// to an error placeholder rather than dropping the field.
func SnapshotState(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(fmt.Sprintf(`{"marshal_error":%q}`, err.Error()))
	}
	return raw
}
