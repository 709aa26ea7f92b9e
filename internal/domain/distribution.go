package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

type DistributionStatus string

const (
	DistributionStatusProcessing DistributionStatus = "PROCESSING"
	DistributionStatusCompleted  DistributionStatus = "COMPLETED"
	DistributionStatusFailed     DistributionStatus = "FAILED"
)

// Distribution records one fee-deducted split of revenue into per-party
// claims. Immutable once COMPLETED.
type Distribution struct {
	DistributionID    string             `json:"distribution_id"`
	VaultID           string             `json:"vault_id"`
	DepositID         string             `json:"deposit_id,omitempty"`
	TotalAmount       float64            `json:"total_amount"`
	CreatorAmount     float64            `json:"creator_amount"`
	InvestorAmount    float64            `json:"investor_amount"`
	PlatformFee       float64            `json:"platform_fee"`
	DistributionRatio OwnershipSnapshot  `json:"distribution_ratio"`
	Status            DistributionStatus `json:"status"`
	ExecutedAt        time.Time          `json:"executed_at"`
}

// DistributionPlan is the pure output of the split computation: the
// distribution record plus the claims it funds, before anything is persisted.
type DistributionPlan struct {
	Distribution Distribution
	Claims       []Claim
}

// splitTolerance bounds fee + creator + investors vs total after each party's
// amount is independently rounded to 2dp.
func splitTolerance(parties int) float64 {
	return 0.01 * float64(parties+2)
}

// BuildDistributionPlan computes the platform fee, splits the remainder by
// ownership percentage, and emits one claim per party with a positive share.
//
// Each party's amount is rounded independently (half away from zero) and the
// recorded investor total is the sum of the rounded per-investor shares, so it
// always matches the claims exactly. Any rounding slack versus the raw
// distributable amount is accounted to the platform fee leg rather than being
// silently absorbed by the last party.
func BuildDistributionPlan(vaultID, depositID string, amount, feeRate float64, snapshot OwnershipSnapshot, now time.Time, claimTTL time.Duration) (DistributionPlan, error) {
	if amount <= 0 {
		return DistributionPlan{}, fmt.Errorf("%w: distribution amount %.2f must be positive", ErrInvalidInput, amount)
	}
	if feeRate < 0 || feeRate >= 1 {
		return DistributionPlan{}, fmt.Errorf("%w: fee rate %.4f out of range", ErrInvalidInput, feeRate)
	}

	fee := FeeOf(amount, feeRate)
	distributable := RoundCurrency(amount - fee)

	expiresAt := now.Add(claimTTL)
	distributionID := uuid.NewString()

	claims := make([]Claim, 0, len(snapshot.Investors)+1)
	creatorAmount := ShareOf(distributable, snapshot.Creator.OwnershipPercent)
	if creatorAmount > 0 {
		claims = append(claims, Claim{
			ClaimID:          uuid.NewString(),
			VaultID:          vaultID,
			DistributionID:   distributionID,
			UserID:           snapshot.Creator.UserID,
			ClaimantType:     ClaimantTypeCreator,
			Amount:           creatorAmount,
			OwnershipPercent: snapshot.Creator.OwnershipPercent,
			Status:           ClaimStatusAvailable,
			CreatedAt:        now,
			ExpiresAt:        &expiresAt,
		})
	}

	investorTotal := 0.0
	for _, stake := range snapshot.Investors {
		if stake.OwnershipPercent <= 0 {
			continue
		}
		share := ShareOf(distributable, stake.OwnershipPercent)
		if share <= 0 {
			continue
		}
		investorTotal = RoundCurrency(investorTotal + share)
		shares := stake.Shares
		claims = append(claims, Claim{
			ClaimID:          uuid.NewString(),
			VaultID:          vaultID,
			DistributionID:   distributionID,
			UserID:           stake.UserID,
			ClaimantType:     ClaimantTypeInvestor,
			Amount:           share,
			Shares:           &shares,
			OwnershipPercent: stake.OwnershipPercent,
			Status:           ClaimStatusAvailable,
			CreatedAt:        now,
			ExpiresAt:        &expiresAt,
		})
	}

	dist := Distribution{
		DistributionID:    distributionID,
		VaultID:           vaultID,
		DepositID:         depositID,
		TotalAmount:       amount,
		CreatorAmount:     creatorAmount,
		InvestorAmount:    investorTotal,
		PlatformFee:       fee,
		DistributionRatio: snapshot,
		Status:            DistributionStatusProcessing,
		ExecutedAt:        now,
	}
	if err := dist.CheckSplit(); err != nil {
		return DistributionPlan{}, err
	}

	return DistributionPlan{Distribution: dist, Claims: claims}, nil
}

// CheckSplit verifies platformFee + creatorAmount + investorAmount equals the
// total within rounding tolerance.
func (d Distribution) CheckSplit() error {
	parties := len(d.DistributionRatio.Investors) + 1
	diff := math.Abs(d.TotalAmount - (d.PlatformFee + d.CreatorAmount + d.InvestorAmount))
	if diff > splitTolerance(parties) {
		return fmt.Errorf("%w: split %.2f + %.2f + %.2f drifts %.4f from total %.2f",
			ErrConflict, d.PlatformFee, d.CreatorAmount, d.InvestorAmount, diff, d.TotalAmount)
	}
	return nil
}
