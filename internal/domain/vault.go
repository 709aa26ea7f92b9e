package domain

import (
	"fmt"
	"math"
	"time"
)

type VaultStatus string

const (
	VaultStatusActive   VaultStatus = "ACTIVE"
	VaultStatusPaused   VaultStatus = "PAUSED"
	VaultStatusClosed   VaultStatus = "CLOSED"
	VaultStatusDisputed VaultStatus = "DISPUTED"
)

// ConservationTolerance bounds the float drift allowed between the vault
// aggregate and the sum of its unclaimed pools after 2dp rounding.
const ConservationTolerance = 0.005

// Vault is the per-offering escrow aggregate. All amounts are in the
// platform's single currency unit, rounded to 2 decimal places.
type Vault struct {
	VaultID            string      `json:"vault_id"`
	OfferingID         string      `json:"offering_id"`
	TotalBalance       float64     `json:"total_balance"`
	PendingRelease     float64     `json:"pending_release"`
	TotalDistributed   float64     `json:"total_distributed"`
	CreatorUnclaimed   float64     `json:"creator_unclaimed"`
	InvestorUnclaimed  float64     `json:"investor_unclaimed"`
	Status             VaultStatus `json:"status"`
	LastRevenueAt      *time.Time  `json:"last_revenue_at,omitempty"`
	LastDistributionAt *time.Time  `json:"last_distribution_at,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// vaultTransitions is the admin-controlled lifecycle table. CLOSED is terminal.
var vaultTransitions = map[VaultStatus][]VaultStatus{
	VaultStatusActive:   {VaultStatusPaused, VaultStatusClosed, VaultStatusDisputed},
	VaultStatusPaused:   {VaultStatusActive, VaultStatusClosed, VaultStatusDisputed},
	VaultStatusDisputed: {VaultStatusActive, VaultStatusClosed},
	VaultStatusClosed:   {},
}

func (v Vault) CanTransitionTo(target VaultStatus) bool {
	for _, allowed := range vaultTransitions[v.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CheckConservation verifies totalBalance == pendingRelease + creatorUnclaimed
// + investorUnclaimed within tolerance.
func (v Vault) CheckConservation() error {
	sum := v.PendingRelease + v.CreatorUnclaimed + v.InvestorUnclaimed
	if math.Abs(v.TotalBalance-sum) > ConservationTolerance {
		return fmt.Errorf("%w: total_balance %.2f != pending %.2f + creator %.2f + investor %.2f",
			ErrConflict, v.TotalBalance, v.PendingRelease, v.CreatorUnclaimed, v.InvestorUnclaimed)
	}
	return nil
}

// VaultMutation describes a balance delta applied to one vault under lock.
// Adapters apply it via ApplyVaultMutation inside the same transaction as the
// records that justify it, so the aggregate can never drift from child rows.
type VaultMutation struct {
	VaultID                string
	RequireStatus          []VaultStatus
	TotalBalanceDelta      float64
	PendingReleaseDelta    float64
	TotalDistributedDelta  float64
	CreatorUnclaimedDelta  float64
	InvestorUnclaimedDelta float64
	TouchRevenueAt         bool
	TouchDistributionAt    bool
}

// ApplyVaultMutation mutates the vault in place. It rejects mutations that
// require a status the vault is not in, or that would drive any balance
// negative, and re-checks conservation before returning.
func ApplyVaultMutation(v *Vault, m VaultMutation, now time.Time) error {
	if len(m.RequireStatus) > 0 {
		ok := false
		for _, st := range m.RequireStatus {
			if v.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: vault %s is %s", ErrVaultNotActive, v.VaultID, v.Status)
		}
	}

	v.TotalBalance = RoundCurrency(v.TotalBalance + m.TotalBalanceDelta)
	v.PendingRelease = RoundCurrency(v.PendingRelease + m.PendingReleaseDelta)
	v.TotalDistributed = RoundCurrency(v.TotalDistributed + m.TotalDistributedDelta)
	v.CreatorUnclaimed = RoundCurrency(v.CreatorUnclaimed + m.CreatorUnclaimedDelta)
	v.InvestorUnclaimed = RoundCurrency(v.InvestorUnclaimed + m.InvestorUnclaimedDelta)

	for name, bal := range map[string]float64{
		"total_balance":      v.TotalBalance,
		"pending_release":    v.PendingRelease,
		"total_distributed":  v.TotalDistributed,
		"creator_unclaimed":  v.CreatorUnclaimed,
		"investor_unclaimed": v.InvestorUnclaimed,
	} {
		if bal < -ConservationTolerance {
			return fmt.Errorf("%w: %s would become %.2f", ErrInsufficientBalance, name, bal)
		}
	}

	if m.TouchRevenueAt {
		at := now
		v.LastRevenueAt = &at
	}
	if m.TouchDistributionAt {
		at := now
		v.LastDistributionAt = &at
	}
	v.UpdatedAt = now

	return v.CheckConservation()
}
