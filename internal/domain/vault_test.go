package domain

import (
	"errors"
	"testing"
	"time"
)

func activeVault() Vault {
	now := time.Now().UTC()
	return Vault{
		VaultID:    "vault-1",
		OfferingID: "off-1",
		Status:     VaultStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestVaultTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from    VaultStatus
		to      VaultStatus
		allowed bool
	}{
		{VaultStatusActive, VaultStatusPaused, true},
		{VaultStatusActive, VaultStatusClosed, true},
		{VaultStatusActive, VaultStatusDisputed, true},
		{VaultStatusPaused, VaultStatusActive, true},
		{VaultStatusDisputed, VaultStatusActive, true},
		{VaultStatusDisputed, VaultStatusPaused, false},
		{VaultStatusClosed, VaultStatusActive, false},
		{VaultStatusClosed, VaultStatusPaused, false},
		{VaultStatusActive, VaultStatusActive, false},
	}
	for _, tc := range cases {
		v := Vault{Status: tc.from}
		if got := v.CanTransitionTo(tc.to); got != tc.allowed {
			t.Fatalf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestApplyVaultMutationDeposit(t *testing.T) {
	t.Parallel()

	v := activeVault()
	now := time.Now().UTC()
	err := ApplyVaultMutation(&v, VaultMutation{
		VaultID:             v.VaultID,
		RequireStatus:       []VaultStatus{VaultStatusActive},
		TotalBalanceDelta:   100000,
		PendingReleaseDelta: 100000,
		TouchRevenueAt:      true,
	}, now)
	if err != nil {
		t.Fatalf("apply mutation failed: %v", err)
	}
	if v.TotalBalance != 100000 || v.PendingRelease != 100000 {
		t.Fatalf("unexpected balances after deposit: %+v", v)
	}
	if v.LastRevenueAt == nil || !v.LastRevenueAt.Equal(now) {
		t.Fatalf("last revenue timestamp not touched")
	}
	if err := v.CheckConservation(); err != nil {
		t.Fatalf("conservation violated: %v", err)
	}
}

func TestApplyVaultMutationRequiresStatus(t *testing.T) {
	t.Parallel()

	v := activeVault()
	v.Status = VaultStatusPaused
	err := ApplyVaultMutation(&v, VaultMutation{
		VaultID:             v.VaultID,
		RequireStatus:       []VaultStatus{VaultStatusActive},
		TotalBalanceDelta:   50,
		PendingReleaseDelta: 50,
	}, time.Now().UTC())
	if !errors.Is(err, ErrVaultNotActive) {
		t.Fatalf("expected ErrVaultNotActive, got %v", err)
	}
}

func TestApplyVaultMutationRejectsNegativeBalance(t *testing.T) {
	t.Parallel()

	v := activeVault()
	v.TotalBalance = 10
	v.PendingRelease = 10
	err := ApplyVaultMutation(&v, VaultMutation{
		VaultID:             v.VaultID,
		TotalBalanceDelta:   -20,
		PendingReleaseDelta: -20,
	}, time.Now().UTC())
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestCheckConservationDetectsDrift(t *testing.T) {
	t.Parallel()

	v := activeVault()
	v.TotalBalance = 100
	v.PendingRelease = 50
	v.CreatorUnclaimed = 30
	v.InvestorUnclaimed = 19
	if err := v.CheckConservation(); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conservation failure, got %v", err)
	}
	v.InvestorUnclaimed = 20
	if err := v.CheckConservation(); err != nil {
		t.Fatalf("balanced vault flagged: %v", err)
	}
}

func TestClaimExpiryPredicate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	expiry := now.Add(90 * 24 * time.Hour)
	claim := Claim{Status: ClaimStatusAvailable, ExpiresAt: &expiry}

	if claim.Expired(now) {
		t.Fatalf("claim should not be expired before its deadline")
	}
	if !claim.Claimable(now) {
		t.Fatalf("claim should be claimable before its deadline")
	}
	after := expiry.Add(time.Second)
	if !claim.Expired(after) {
		t.Fatalf("claim should be expired after its deadline")
	}
	if claim.Claimable(after) {
		t.Fatalf("expired claim should not be claimable")
	}
	claim.Status = ClaimStatusClaimed
	if claim.Claimable(now) {
		t.Fatalf("claimed claim should not be claimable again")
	}
}

func TestValidateRevenueMonth(t *testing.T) {
	t.Parallel()

	if err := ValidateRevenueMonth("2026-02"); err != nil {
		t.Fatalf("valid month rejected: %v", err)
	}
	for _, bad := range []string{"2026-13", "2026-2", "02-2026", "202602", ""} {
		if err := ValidateRevenueMonth(bad); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %q, got %v", bad, err)
		}
	}
}
