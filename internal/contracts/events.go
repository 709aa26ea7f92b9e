package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type VaultCreatedPayload struct {
	VaultID    string `json:"vault_id"`
	OfferingID string `json:"offering_id"`
	CreatedAt  string `json:"created_at"`
}

type VaultStatusChangedPayload struct {
	VaultID        string `json:"vault_id"`
	OfferingID     string `json:"offering_id"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	ChangedAt      string `json:"changed_at"`
}

type RevenueDepositedPayload struct {
	VaultID      string  `json:"vault_id"`
	DepositID    string  `json:"deposit_id"`
	Amount       float64 `json:"amount"`
	Source       string  `json:"source"`
	RevenueMonth string  `json:"revenue_month"`
	DepositedAt  string  `json:"deposited_at"`
}

type DepositVerifiedPayload struct {
	VaultID    string  `json:"vault_id"`
	DepositID  string  `json:"deposit_id"`
	Amount     float64 `json:"amount"`
	VerifiedAt string  `json:"verified_at"`
}

type DistributionClaimPayload struct {
	ClaimID          string  `json:"claim_id"`
	UserID           string  `json:"user_id"`
	ClaimantType     string  `json:"claimant_type"`
	Amount           float64 `json:"amount"`
	OwnershipPercent float64 `json:"ownership_percent"`
}

type DistributionCompletedPayload struct {
	VaultID        string                     `json:"vault_id"`
	DistributionID string                     `json:"distribution_id"`
	DepositID      string                     `json:"deposit_id,omitempty"`
	TotalAmount    float64                    `json:"total_amount"`
	PlatformFee    float64                    `json:"platform_fee"`
	CreatorAmount  float64                    `json:"creator_amount"`
	InvestorAmount float64                    `json:"investor_amount"`
	Claims         []DistributionClaimPayload `json:"claims"`
	ExecutedAt     string                     `json:"executed_at"`
}

type ClaimProcessedPayload struct {
	VaultID      string  `json:"vault_id"`
	ClaimID      string  `json:"claim_id"`
	UserID       string  `json:"user_id"`
	ClaimantType string  `json:"claimant_type"`
	Amount       float64 `json:"amount"`
	ClaimedAt    string  `json:"claimed_at"`
}

type ClaimsExpiredPayload struct {
	VaultID      string   `json:"vault_id"`
	ClaimIDs     []string `json:"claim_ids"`
	TotalAmount  float64  `json:"total_amount"`
	ExpiredAt    string   `json:"expired_at"`
}

type DLQRecord struct {
	OriginalEvent EventEnvelope `json:"original_event"`
	ErrorSummary  string        `json:"error_summary"`
	RetryCount    int           `json:"retry_count"`
	FirstSeenAt   time.Time     `json:"first_seen_at"`
	LastErrorAt   time.Time     `json:"last_error_at"`
	SourceTopic   string        `json:"source_topic,omitempty"`
	TraceID       string        `json:"trace_id,omitempty"`
}
