package domain

import (
	"errors"
	"math"
	"testing"
	"time"
)

func planSnapshot(creatorPct float64, investors ...OwnershipStake) OwnershipSnapshot {
	return OwnershipSnapshot{
		OfferingID: "off-1",
		SoldShares: 1000,
		Creator:    OwnershipStake{UserID: "creator-1", OwnershipPercent: creatorPct},
		Investors:  investors,
	}
}

func TestBuildDistributionPlanStandardSplit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshot := planSnapshot(80, OwnershipStake{UserID: "inv-1", Shares: 1000, OwnershipPercent: 20})

	plan, err := BuildDistributionPlan("vault-1", "dep-1", 100000, 0.05, snapshot, now, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("build plan failed: %v", err)
	}
	dist := plan.Distribution
	if dist.PlatformFee != 5000 {
		t.Fatalf("platform fee = %v, want 5000", dist.PlatformFee)
	}
	if dist.CreatorAmount != 76000 {
		t.Fatalf("creator amount = %v, want 76000", dist.CreatorAmount)
	}
	if dist.InvestorAmount != 19000 {
		t.Fatalf("investor amount = %v, want 19000", dist.InvestorAmount)
	}
	if len(plan.Claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(plan.Claims))
	}
	for _, claim := range plan.Claims {
		if claim.Status != ClaimStatusAvailable {
			t.Fatalf("claim status = %s, want AVAILABLE", claim.Status)
		}
		if claim.ExpiresAt == nil || !claim.ExpiresAt.Equal(now.Add(90*24*time.Hour)) {
			t.Fatalf("claim expiry not 90 days out: %v", claim.ExpiresAt)
		}
	}
}

func TestBuildDistributionPlanMultipleInvestors(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	snapshot := planSnapshot(80,
		OwnershipStake{UserID: "inv-a", Shares: 625, OwnershipPercent: 12.5},
		OwnershipStake{UserID: "inv-b", Shares: 375, OwnershipPercent: 7.5},
	)

	plan, err := BuildDistributionPlan("vault-1", "", 100000, 0.05, snapshot, now, 90*24*time.Hour)
	if err != nil {
		t.Fatalf("build plan failed: %v", err)
	}
	byUser := map[string]float64{}
	for _, claim := range plan.Claims {
		byUser[claim.UserID] = claim.Amount
	}
	if byUser["inv-a"] != 11875 {
		t.Fatalf("inv-a amount = %v, want 11875", byUser["inv-a"])
	}
	if byUser["inv-b"] != 7125 {
		t.Fatalf("inv-b amount = %v, want 7125", byUser["inv-b"])
	}
	if byUser["creator-1"] != 76000 {
		t.Fatalf("creator amount = %v, want 76000", byUser["creator-1"])
	}
	if plan.Distribution.InvestorAmount != 19000 {
		t.Fatalf("investor total = %v, want 19000", plan.Distribution.InvestorAmount)
	}
}

func TestBuildDistributionPlanRoundingStaysConsistent(t *testing.T) {
	t.Parallel()

	// Thirds do not round cleanly; the recorded investor total must still be
	// the exact sum of the rounded claims, and the overall split must hold
	// within tolerance.
	now := time.Now().UTC()
	snapshot := planSnapshot(66.67,
		OwnershipStake{UserID: "inv-a", Shares: 333, OwnershipPercent: 11.11},
		OwnershipStake{UserID: "inv-b", Shares: 333, OwnershipPercent: 11.11},
		OwnershipStake{UserID: "inv-c", Shares: 333, OwnershipPercent: 11.11},
	)

	plan, err := BuildDistributionPlan("vault-1", "", 100.01, 0.05, snapshot, now, time.Hour)
	if err != nil {
		t.Fatalf("build plan failed: %v", err)
	}
	investorSum := 0.0
	for _, claim := range plan.Claims {
		if claim.ClaimantType == ClaimantTypeInvestor {
			investorSum = RoundCurrency(investorSum + claim.Amount)
		}
	}
	if investorSum != plan.Distribution.InvestorAmount {
		t.Fatalf("investor total %v != claim sum %v", plan.Distribution.InvestorAmount, investorSum)
	}
	if err := plan.Distribution.CheckSplit(); err != nil {
		t.Fatalf("split check failed: %v", err)
	}
}

func TestBuildDistributionPlanRejectsBadInputs(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	snapshot := planSnapshot(100)

	if _, err := BuildDistributionPlan("vault-1", "", 0, 0.05, snapshot, now, time.Hour); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero amount, got %v", err)
	}
	if _, err := BuildDistributionPlan("vault-1", "", 100, 1.0, snapshot, now, time.Hour); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for fee rate 1.0, got %v", err)
	}
	if _, err := BuildDistributionPlan("vault-1", "", 100, -0.01, snapshot, now, time.Hour); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for negative fee rate, got %v", err)
	}
}

func TestRoundCurrencyHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{1.004, 1.00},
		{-1.005, -1.01},
		{2.675, 2.68},
		{0, 0},
	}
	for _, tc := range cases {
		if got := RoundCurrency(tc.in); got != tc.want {
			t.Fatalf("RoundCurrency(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if got := ShareOf(95000, 12.5); got != 11875 {
		t.Fatalf("ShareOf(95000, 12.5) = %v, want 11875", got)
	}
	if got := FeeOf(100000, 0.05); got != 5000 {
		t.Fatalf("FeeOf(100000, 0.05) = %v, want 5000", got)
	}
	// 0.1 + 0.2 style drift must not survive rounding.
	if got := RoundCurrency(0.1 + 0.2); math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("RoundCurrency(0.1+0.2) = %v, want 0.3", got)
	}
}
