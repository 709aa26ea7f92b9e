package domain

import (
	"errors"
	"math"
	"testing"
)

func TestComputeOwnershipSingleInvestor(t *testing.T) {
	t.Parallel()

	offering := Offering{
		OfferingID:      "off-1",
		CreatorUserID:   "creator-1",
		TotalShares:     1000,
		AvailableShares: 0,
		SharePercentage: 20,
	}
	snapshot, err := ComputeOwnership(offering, []Investment{
		{InvestorID: "inv-1", Shares: 1000},
	})
	if err != nil {
		t.Fatalf("compute ownership failed: %v", err)
	}
	if snapshot.Creator.OwnershipPercent != 80 {
		t.Fatalf("creator percent = %v, want 80", snapshot.Creator.OwnershipPercent)
	}
	if len(snapshot.Investors) != 1 || snapshot.Investors[0].OwnershipPercent != 20 {
		t.Fatalf("unexpected investor stakes: %+v", snapshot.Investors)
	}
	if snapshot.SoldShares != 1000 {
		t.Fatalf("sold shares = %d, want 1000", snapshot.SoldShares)
	}
}

func TestComputeOwnershipPartialSale(t *testing.T) {
	t.Parallel()

	// Two investors bought 625 and 375 of the 1000 sold shares backing a 20%
	// revenue share: 12.5% and 7.5%, creator keeps the complement.
	offering := Offering{
		OfferingID:      "off-2",
		CreatorUserID:   "creator-1",
		TotalShares:     1200,
		AvailableShares: 200,
		SharePercentage: 20,
	}
	snapshot, err := ComputeOwnership(offering, []Investment{
		{InvestorID: "inv-a", Shares: 625},
		{InvestorID: "inv-b", Shares: 375},
	})
	if err != nil {
		t.Fatalf("compute ownership failed: %v", err)
	}
	if snapshot.Investors[0].OwnershipPercent != 12.5 {
		t.Fatalf("inv-a percent = %v, want 12.5", snapshot.Investors[0].OwnershipPercent)
	}
	if snapshot.Investors[1].OwnershipPercent != 7.5 {
		t.Fatalf("inv-b percent = %v, want 7.5", snapshot.Investors[1].OwnershipPercent)
	}
	if snapshot.Creator.OwnershipPercent != 80 {
		t.Fatalf("creator percent = %v, want 80", snapshot.Creator.OwnershipPercent)
	}
}

func TestComputeOwnershipAlwaysSumsTo100(t *testing.T) {
	t.Parallel()

	// Uneven share counts that do not divide cleanly still sum to exactly 100
	// because the creator takes the complement of the investor total.
	offering := Offering{
		OfferingID:      "off-3",
		CreatorUserID:   "creator-1",
		TotalShares:     1000,
		AvailableShares: 1,
		SharePercentage: 33.33,
	}
	snapshot, err := ComputeOwnership(offering, []Investment{
		{InvestorID: "inv-a", Shares: 333},
		{InvestorID: "inv-b", Shares: 333},
		{InvestorID: "inv-c", Shares: 333},
	})
	if err != nil {
		t.Fatalf("compute ownership failed: %v", err)
	}
	if total := snapshot.TotalPercent(); math.Abs(total-100) > 1e-9 {
		t.Fatalf("ownership total = %v, want 100", total)
	}
}

func TestComputeOwnershipNoSharesSold(t *testing.T) {
	t.Parallel()

	offering := Offering{
		OfferingID:      "off-4",
		CreatorUserID:   "creator-1",
		TotalShares:     1000,
		AvailableShares: 1000,
		SharePercentage: 20,
	}
	_, err := ComputeOwnership(offering, nil)
	if !errors.Is(err, ErrNoSharesSold) {
		t.Fatalf("expected ErrNoSharesSold, got %v", err)
	}
}

func TestComputeOwnershipIgnoresNonPositiveShares(t *testing.T) {
	t.Parallel()

	offering := Offering{
		OfferingID:      "off-5",
		CreatorUserID:   "creator-1",
		TotalShares:     100,
		AvailableShares: 0,
		SharePercentage: 10,
	}
	snapshot, err := ComputeOwnership(offering, []Investment{
		{InvestorID: "inv-a", Shares: 100},
		{InvestorID: "inv-zero", Shares: 0},
	})
	if err != nil {
		t.Fatalf("compute ownership failed: %v", err)
	}
	if len(snapshot.Investors) != 1 {
		t.Fatalf("expected zero-share investment to be dropped, got %+v", snapshot.Investors)
	}
}
