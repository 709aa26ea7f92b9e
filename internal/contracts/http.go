package contracts

import "time"

type CreateVaultRequest struct {
	OfferingID string `json:"offering_id"`
}

type UpdateVaultStatusRequest struct {
	Status string `json:"status"`
}

type DepositRevenueRequest struct {
	OfferingID   string  `json:"offering_id"`
	Amount       float64 `json:"amount"`
	RevenueMonth string  `json:"revenue_month"`
	Source       string  `json:"source"`
	ExternalRef  string  `json:"external_ref,omitempty"`
}

type DistributeRequest struct {
	OfferingID string `json:"offering_id"`
	DepositID  string `json:"deposit_id,omitempty"`
}

type ClaimAllRequest struct {
	OfferingID string `json:"offering_id,omitempty"`
}

type ClaimOutcome struct {
	ClaimID string  `json:"claim_id"`
	Amount  float64 `json:"amount,omitempty"`
	Claimed bool    `json:"claimed"`
	Error   string  `json:"error,omitempty"`
}

type ClaimAllResponse struct {
	Results      []ClaimOutcome `json:"results"`
	TotalClaimed float64        `json:"total_claimed"`
}

type AuditEntryView struct {
	EntryID        string     `json:"entry_id"`
	VaultID        string     `json:"vault_id"`
	Action         string     `json:"action"`
	ActorType      string     `json:"actor_type"`
	ActorID        string     `json:"actor_id,omitempty"`
	Amount         *float64   `json:"amount,omitempty"`
	Signature      string     `json:"signature"`
	SignatureValid bool       `json:"signature_valid"`
	CreatedAt      time.Time  `json:"created_at"`
}

type LedgerBalancesResponse struct {
	VaultID  string             `json:"vault_id"`
	Accounts map[string]float64 `json:"accounts"`
	Balanced bool               `json:"balanced"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}
