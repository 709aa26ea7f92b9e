package domain

import "time"

type ClaimStatus string

const (
	ClaimStatusAvailable ClaimStatus = "AVAILABLE"
	ClaimStatusClaimed   ClaimStatus = "CLAIMED"
	ClaimStatusExpired   ClaimStatus = "EXPIRED"
)

type ClaimantType string

const (
	ClaimantTypeCreator  ClaimantType = "CREATOR"
	ClaimantTypeInvestor ClaimantType = "INVESTOR"
)

// Claim is one party's share of a completed distribution. Amount never
// changes once set; status moves AVAILABLE -> CLAIMED or AVAILABLE -> EXPIRED,
// both irreversible.
type Claim struct {
	ClaimID          string       `json:"claim_id"`
	VaultID          string       `json:"vault_id"`
	DistributionID   string       `json:"distribution_id"`
	UserID           string       `json:"user_id"`
	ClaimantType     ClaimantType `json:"claimant_type"`
	Amount           float64      `json:"amount"`
	Shares           *int64       `json:"shares,omitempty"`
	OwnershipPercent float64      `json:"ownership_percent"`
	Status           ClaimStatus  `json:"status"`
	CreatedAt        time.Time    `json:"created_at"`
	ExpiresAt        *time.Time   `json:"expires_at,omitempty"`
	ClaimedAt        *time.Time   `json:"claimed_at,omitempty"`
}

// Expired is the single expiry predicate shared by the lazy on-access path
// and the periodic sweep.
func (c Claim) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Claimable reports whether the claim can still be processed at the given
// instant.
func (c Claim) Claimable(now time.Time) bool {
	return c.Status == ClaimStatusAvailable && !c.Expired(now)
}
