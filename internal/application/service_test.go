package application

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
)

var (
	adminActor    = Actor{SubjectID: "admin-1", Role: "admin"}
	creatorActor  = Actor{SubjectID: "creator-1", Role: "creator"}
	investorActor = Actor{SubjectID: "inv-1", Role: "investor"}
)

type fixture struct {
	svc         *Service
	store       *memory.Store
	offerings   *memory.OfferingReader
	investments *memory.InvestmentReader
	wallet      *memory.WalletClient
	events      *memory.Publisher
	signer      *security.HMACSigner
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:       memory.NewStore(),
		offerings:   memory.NewOfferingReader(),
		investments: memory.NewInvestmentReader(),
		wallet:      memory.NewWalletClient(),
		events:      memory.NewPublisher(),
		now:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	signer, err := security.NewHMACSigner("test-signing-key")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	f.signer = signer
	svc, err := NewService(Dependencies{
		Config: Config{
			FeeRate:     0.05,
			ClaimWindow: 90 * 24 * time.Hour,
		},
		Vaults:        f.store.Vaults(),
		Deposits:      f.store.Deposits(),
		Distributions: f.store.Distributions(),
		Claims:        f.store.Claims(),
		Audit:         f.store.AuditLog(),
		Ledger:        f.store.Ledger(),
		Outbox:        f.store.Outbox(),
		Offerings:     f.offerings,
		Investments:   f.investments,
		Wallet:        f.wallet,
		Signer:        signer,
		DomainEvents:  f.events,
		Analytics:     f.events,
		DLQ:           f.events,
		NowFn:         func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// seedFullySold registers an offering whose sold shares are wholly held by
// inv-1, backing a 20% revenue share: creator 80, investor 20.
func (f *fixture) seedFullySold(offeringID string) {
	f.offerings.Put(domain.Offering{
		OfferingID:      offeringID,
		CreatorUserID:   creatorActor.SubjectID,
		TotalShares:     1000,
		AvailableShares: 0,
		SharePercentage: 20,
	})
	f.investments.Put(offeringID, domain.Investment{InvestorID: investorActor.SubjectID, Shares: 1000})
}

func (f *fixture) mustVault(t *testing.T, offeringID string) domain.Vault {
	t.Helper()
	vault, err := f.svc.CreateVault(context.Background(), adminActor, offeringID)
	if err != nil {
		t.Fatalf("create vault: %v", err)
	}
	return vault
}

func (f *fixture) mustVerifiedDeposit(t *testing.T, offeringID string, amount float64, month string) domain.Deposit {
	t.Helper()
	ctx := context.Background()
	deposit, err := f.svc.DepositRevenue(ctx, creatorActor, DepositRevenueInput{
		OfferingID:   offeringID,
		Amount:       amount,
		RevenueMonth: month,
		Source:       domain.DepositSourceAdRevenue,
	})
	if err != nil {
		t.Fatalf("deposit revenue: %v", err)
	}
	verified, err := f.svc.VerifyDeposit(ctx, adminActor, deposit.DepositID)
	if err != nil {
		t.Fatalf("verify deposit: %v", err)
	}
	return verified
}

func (f *fixture) vaultState(t *testing.T, offeringID string) domain.Vault {
	t.Helper()
	vault, err := f.svc.GetVault(context.Background(), adminActor, offeringID)
	if err != nil {
		t.Fatalf("get vault: %v", err)
	}
	return vault
}

func TestDepositDistributeClaimFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-1")
	f.mustVault(t, "off-1")
	deposit := f.mustVerifiedDeposit(t, "off-1", 100000, "2026-02")

	vault := f.vaultState(t, "off-1")
	if vault.TotalBalance != 100000 || vault.PendingRelease != 100000 {
		t.Fatalf("unexpected vault after deposit: %+v", vault)
	}

	dist, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-1", DepositID: deposit.DepositID})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if dist.PlatformFee != 5000 || dist.CreatorAmount != 76000 || dist.InvestorAmount != 19000 {
		t.Fatalf("unexpected split: fee %v creator %v investor %v", dist.PlatformFee, dist.CreatorAmount, dist.InvestorAmount)
	}
	if dist.Status != domain.DistributionStatusCompleted {
		t.Fatalf("distribution status = %s, want COMPLETED", dist.Status)
	}

	vault = f.vaultState(t, "off-1")
	if vault.TotalBalance != 95000 || vault.PendingRelease != 0 ||
		vault.CreatorUnclaimed != 76000 || vault.InvestorUnclaimed != 19000 ||
		vault.TotalDistributed != 100000 {
		t.Fatalf("unexpected vault after distribution: %+v", vault)
	}
	if err := vault.CheckConservation(); err != nil {
		t.Fatalf("conservation after distribution: %v", err)
	}

	distributed, err := f.store.Deposits().GetByID(ctx, deposit.DepositID)
	if err != nil {
		t.Fatalf("get deposit: %v", err)
	}
	if distributed.Status != domain.DepositStatusDistributed {
		t.Fatalf("deposit status = %s, want DISTRIBUTED", distributed.Status)
	}

	claims, err := f.svc.ListAvailableClaims(ctx, creatorActor, "off-1")
	if err != nil {
		t.Fatalf("list claims: %v", err)
	}
	if len(claims) != 1 || claims[0].Amount != 76000 {
		t.Fatalf("unexpected creator claims: %+v", claims)
	}

	settled, err := f.svc.ProcessClaim(ctx, creatorActor, claims[0].ClaimID)
	if err != nil {
		t.Fatalf("process claim: %v", err)
	}
	if settled.Status != domain.ClaimStatusClaimed || settled.ClaimedAt == nil {
		t.Fatalf("claim not settled: %+v", settled)
	}
	if got := f.wallet.Balance(creatorActor.SubjectID); got != 76000 {
		t.Fatalf("wallet balance = %v, want 76000", got)
	}
	if got := f.wallet.CreditCount("escrow-claim:" + claims[0].ClaimID); got != 1 {
		t.Fatalf("wallet credited %d times, want exactly once", got)
	}

	vault = f.vaultState(t, "off-1")
	if vault.TotalBalance != 19000 || vault.CreatorUnclaimed != 0 || vault.InvestorUnclaimed != 19000 {
		t.Fatalf("unexpected vault after claim: %+v", vault)
	}

	_, accounts, balanced, err := f.svc.GetLedgerBalances(ctx, adminActor, vault.VaultID)
	if err != nil {
		t.Fatalf("ledger balances: %v", err)
	}
	if !balanced {
		t.Fatalf("ledger does not reconcile with vault: %+v vs %+v", accounts, vault)
	}
}

func TestDistributePartialOwnership(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.offerings.Put(domain.Offering{
		OfferingID:      "off-2",
		CreatorUserID:   creatorActor.SubjectID,
		TotalShares:     1200,
		AvailableShares: 200,
		SharePercentage: 20,
	})
	f.investments.Put("off-2",
		domain.Investment{InvestorID: "inv-a", Shares: 625},
		domain.Investment{InvestorID: "inv-b", Shares: 375},
	)
	f.mustVault(t, "off-2")
	deposit := f.mustVerifiedDeposit(t, "off-2", 100000, "2026-02")

	dist, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-2", DepositID: deposit.DepositID})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	byUser := map[string]float64{}
	for _, stake := range dist.DistributionRatio.Investors {
		byUser[stake.UserID] = stake.OwnershipPercent
	}
	if byUser["inv-a"] != 12.5 || byUser["inv-b"] != 7.5 {
		t.Fatalf("unexpected ownership: %+v", byUser)
	}
	if dist.CreatorAmount != 76000 || dist.InvestorAmount != 19000 {
		t.Fatalf("unexpected amounts: creator %v investors %v", dist.CreatorAmount, dist.InvestorAmount)
	}

	claimsA, err := f.svc.ListAvailableClaims(ctx, Actor{SubjectID: "inv-a", Role: "investor"}, "off-2")
	if err != nil {
		t.Fatalf("list inv-a claims: %v", err)
	}
	if len(claimsA) != 1 || claimsA[0].Amount != 11875 {
		t.Fatalf("inv-a claim = %+v, want 11875", claimsA)
	}
	claimsB, err := f.svc.ListAvailableClaims(ctx, Actor{SubjectID: "inv-b", Role: "investor"}, "off-2")
	if err != nil {
		t.Fatalf("list inv-b claims: %v", err)
	}
	if len(claimsB) != 1 || claimsB[0].Amount != 7125 {
		t.Fatalf("inv-b claim = %+v, want 7125", claimsB)
	}
}

func TestDistributeNoSharesSold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.offerings.Put(domain.Offering{
		OfferingID:      "off-3",
		CreatorUserID:   creatorActor.SubjectID,
		TotalShares:     1000,
		AvailableShares: 1000,
		SharePercentage: 20,
	})
	f.mustVault(t, "off-3")
	deposit := f.mustVerifiedDeposit(t, "off-3", 5000, "2026-02")
	before := f.vaultState(t, "off-3")

	_, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-3", DepositID: deposit.DepositID})
	if !errors.Is(err, domain.ErrNoSharesSold) {
		t.Fatalf("expected ErrNoSharesSold, got %v", err)
	}

	after := f.vaultState(t, "off-3")
	if after.TotalBalance != before.TotalBalance || after.PendingRelease != before.PendingRelease {
		t.Fatalf("vault changed despite failed distribution: %+v -> %+v", before, after)
	}
	current, err := f.store.Deposits().GetByID(ctx, deposit.DepositID)
	if err != nil {
		t.Fatalf("get deposit: %v", err)
	}
	if current.Status != domain.DepositStatusVerified {
		t.Fatalf("deposit status = %s, want still VERIFIED", current.Status)
	}
}

func TestDoubleDistributionConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-4")
	f.mustVault(t, "off-4")
	deposit := f.mustVerifiedDeposit(t, "off-4", 1000, "2026-02")

	if _, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-4", DepositID: deposit.DepositID}); err != nil {
		t.Fatalf("first distribute: %v", err)
	}
	before := f.vaultState(t, "off-4")

	_, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-4", DepositID: deposit.DepositID})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on second distribution, got %v", err)
	}
	after := f.vaultState(t, "off-4")
	if after != before {
		t.Fatalf("vault changed on rejected distribution: %+v -> %+v", before, after)
	}
}

func TestDistributeRequiresVerifiedDeposit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-5")
	f.mustVault(t, "off-5")
	deposit, err := f.svc.DepositRevenue(ctx, creatorActor, DepositRevenueInput{
		OfferingID:   "off-5",
		Amount:       1000,
		RevenueMonth: "2026-02",
		Source:       domain.DepositSourceSubscription,
	})
	if err != nil {
		t.Fatalf("deposit revenue: %v", err)
	}

	_, err = f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-5", DepositID: deposit.DepositID})
	if !errors.Is(err, domain.ErrDepositNotVerified) {
		t.Fatalf("expected ErrDepositNotVerified, got %v", err)
	}
}

func TestDistributeEmptyPendingPool(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.seedFullySold("off-6")
	f.mustVault(t, "off-6")

	_, err := f.svc.Distribute(context.Background(), adminActor, DistributeInput{OfferingID: "off-6"})
	if !errors.Is(err, domain.ErrNoFundsAvailable) {
		t.Fatalf("expected ErrNoFundsAvailable, got %v", err)
	}
}

func TestClaimExpiresAfterWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-7")
	f.mustVault(t, "off-7")
	deposit := f.mustVerifiedDeposit(t, "off-7", 1000, "2026-02")
	if _, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-7", DepositID: deposit.DepositID}); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	claims, err := f.svc.ListAvailableClaims(ctx, investorActor, "off-7")
	if err != nil || len(claims) != 1 {
		t.Fatalf("list claims: %v %+v", err, claims)
	}
	before := f.vaultState(t, "off-7")

	f.advance(91 * 24 * time.Hour)

	if got, err := f.svc.ListAvailableClaims(ctx, investorActor, "off-7"); err != nil || len(got) != 0 {
		t.Fatalf("expired claim still listed: %v %+v", err, got)
	}

	_, err = f.svc.ProcessClaim(ctx, investorActor, claims[0].ClaimID)
	if !errors.Is(err, domain.ErrClaimExpired) {
		t.Fatalf("expected ErrClaimExpired, got %v", err)
	}
	expired, err := f.store.Claims().GetByID(ctx, claims[0].ClaimID)
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if expired.Status != domain.ClaimStatusExpired {
		t.Fatalf("claim status = %s, want EXPIRED", expired.Status)
	}
	if got := f.wallet.Balance(investorActor.SubjectID); got != 0 {
		t.Fatalf("wallet credited %v for expired claim", got)
	}

	// Expiry leaves the funds in the unclaimed pools; balances do not move.
	after := f.vaultState(t, "off-7")
	if after.TotalBalance != before.TotalBalance || after.InvestorUnclaimed != before.InvestorUnclaimed {
		t.Fatalf("vault changed on expiry: %+v -> %+v", before, after)
	}
}

func TestExpireSweep(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-8")
	vault := f.mustVault(t, "off-8")
	deposit := f.mustVerifiedDeposit(t, "off-8", 1000, "2026-02")
	if _, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-8", DepositID: deposit.DepositID}); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	f.advance(91 * 24 * time.Hour)

	count, err := f.svc.ExpireSweep(ctx)
	if err != nil {
		t.Fatalf("expire sweep: %v", err)
	}
	if count != 2 {
		t.Fatalf("sweep expired %d claims, want 2 (creator + investor)", count)
	}

	again, err := f.svc.ExpireSweep(ctx)
	if err != nil || again != 0 {
		t.Fatalf("second sweep = %d, %v; want 0, nil", again, err)
	}

	views, _, err := f.svc.QueryAuditLog(ctx, adminActor, vault.VaultID, domain.AuditClaimsExpired, 10, 0)
	if err != nil {
		t.Fatalf("query audit: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one CLAIMS_EXPIRED entry, got %d", len(views))
	}
	if !views[0].SignatureValid {
		t.Fatalf("sweep audit entry failed signature verification")
	}
}

func TestAuditSignatureSurvivesStoredStateRewrite(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-16")
	vault := f.mustVault(t, "off-16")
	deposit := f.mustVerifiedDeposit(t, "off-16", 100000, "2026-02")
	if _, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-16", DepositID: deposit.DepositID}); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	entries, _, err := f.store.AuditLog().Query(ctx, vault.VaultID, "", 50, 0)
	if err != nil {
		t.Fatalf("query audit: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected audit entries after distribution")
	}
	for _, entry := range entries {
		if len(entry.NewState) == 0 {
			continue
		}
		// A jsonb column stores the value, not the bytes; what comes back is
		// re-serialized JSON with its own whitespace and key order.
		var state map[string]any
		if err := json.Unmarshal(entry.NewState, &state); err != nil {
			t.Fatalf("entry %s new_state is not an object: %v", entry.EntryID, err)
		}
		rewritten, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			t.Fatalf("rewrite entry %s state: %v", entry.EntryID, err)
		}
		entry.NewState = rewritten
		if !f.signer.Verify(entry.CanonicalPayload(), entry.Signature) {
			t.Fatalf("action %s: signature no longer verifies after stored state rewrite", entry.Action)
		}
	}
}

func TestClaimAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-9")
	f.mustVault(t, "off-9")
	for i, month := range []string{"2026-01", "2026-02", "2026-03"} {
		deposit := f.mustVerifiedDeposit(t, "off-9", float64(1000*(i+1)), month)
		if _, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-9", DepositID: deposit.DepositID}); err != nil {
			t.Fatalf("distribute %s: %v", month, err)
		}
	}

	// First wallet credit fails; the other claims must still settle.
	f.wallet.CreditErr = errors.New("wallet unavailable")

	resp, err := f.svc.ClaimAll(ctx, investorActor, "off-9")
	if err != nil {
		t.Fatalf("claim all: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(resp.Results))
	}
	var succeeded, failed int
	var claimedSum float64
	for _, outcome := range resp.Results {
		if outcome.Claimed {
			succeeded++
			claimedSum += outcome.Amount
			continue
		}
		failed++
		if outcome.Error == "" {
			t.Fatalf("failed outcome missing error: %+v", outcome)
		}
		claim, getErr := f.store.Claims().GetByID(ctx, outcome.ClaimID)
		if getErr != nil {
			t.Fatalf("get failed claim: %v", getErr)
		}
		if claim.Status != domain.ClaimStatusAvailable {
			t.Fatalf("failed claim status = %s, want still AVAILABLE", claim.Status)
		}
	}
	if succeeded != 2 || failed != 1 {
		t.Fatalf("succeeded=%d failed=%d, want 2/1", succeeded, failed)
	}
	if resp.TotalClaimed != domain.RoundCurrency(claimedSum) {
		t.Fatalf("total claimed %v != sum of successes %v", resp.TotalClaimed, claimedSum)
	}
	if got := f.wallet.Balance(investorActor.SubjectID); got != resp.TotalClaimed {
		t.Fatalf("wallet balance %v != total claimed %v", got, resp.TotalClaimed)
	}

	vault := f.vaultState(t, "off-9")
	if err := vault.CheckConservation(); err != nil {
		t.Fatalf("conservation after partial claim-all: %v", err)
	}
}

func TestDepositIdempotentByExternalRef(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-10")
	f.mustVault(t, "off-10")

	input := DepositRevenueInput{
		OfferingID:   "off-10",
		Amount:       2500,
		RevenueMonth: "2026-02",
		Source:       domain.DepositSourceLicensing,
		ExternalRef:  "stmt-2026-02-001",
	}
	first, err := f.svc.DepositRevenue(ctx, creatorActor, input)
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	second, err := f.svc.DepositRevenue(ctx, creatorActor, input)
	if err != nil {
		t.Fatalf("replayed deposit: %v", err)
	}
	if first.DepositID != second.DepositID {
		t.Fatalf("replay created a new deposit: %s vs %s", first.DepositID, second.DepositID)
	}
	vault := f.vaultState(t, "off-10")
	if vault.TotalBalance != 2500 {
		t.Fatalf("replayed deposit double-counted: balance %v", vault.TotalBalance)
	}
}

func TestVaultLifecycleGatesOperations(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-11")
	vault := f.mustVault(t, "off-11")

	if _, err := f.svc.SetVaultStatus(ctx, creatorActor, vault.VaultID, domain.VaultStatusPaused); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("non-admin status change should be forbidden, got %v", err)
	}
	if _, err := f.svc.SetVaultStatus(ctx, adminActor, vault.VaultID, domain.VaultStatusPaused); err != nil {
		t.Fatalf("pause vault: %v", err)
	}

	_, err := f.svc.DepositRevenue(ctx, creatorActor, DepositRevenueInput{
		OfferingID: "off-11", Amount: 100, RevenueMonth: "2026-02",
	})
	if !errors.Is(err, domain.ErrVaultNotActive) {
		t.Fatalf("deposit into paused vault should fail, got %v", err)
	}
	if _, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-11"}); !errors.Is(err, domain.ErrVaultNotActive) {
		t.Fatalf("distribute on paused vault should fail, got %v", err)
	}

	if _, err := f.svc.SetVaultStatus(ctx, adminActor, vault.VaultID, domain.VaultStatusClosed); err != nil {
		t.Fatalf("close vault: %v", err)
	}
	if _, err := f.svc.SetVaultStatus(ctx, adminActor, vault.VaultID, domain.VaultStatusActive); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("reopening a closed vault should fail, got %v", err)
	}
}

func TestCreateVaultIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := f.mustVault(t, "off-12")
	second := f.mustVault(t, "off-12")
	if first.VaultID != second.VaultID {
		t.Fatalf("second create returned a different vault: %s vs %s", first.VaultID, second.VaultID)
	}

	if _, err := f.svc.CreateVault(context.Background(), investorActor, "off-x"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("investor vault creation should be forbidden, got %v", err)
	}
	if _, err := f.svc.CreateVault(context.Background(), Actor{}, "off-x"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("anonymous vault creation should be unauthorized, got %v", err)
	}
}

func TestAuditTrailSignedAndTamperEvident(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-13")
	vault := f.mustVault(t, "off-13")
	deposit := f.mustVerifiedDeposit(t, "off-13", 1000, "2026-02")
	if _, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-13", DepositID: deposit.DepositID}); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	views, total, err := f.svc.QueryAuditLog(ctx, adminActor, vault.VaultID, "", 50, 0)
	if err != nil {
		t.Fatalf("query audit: %v", err)
	}
	// VAULT_CREATED, DEPOSIT_RECEIVED, DEPOSIT_VERIFIED, DISTRIBUTION_COMPLETED.
	if total != 4 || len(views) != 4 {
		t.Fatalf("audit entries = %d/%d, want 4", len(views), total)
	}
	if views[0].Action != string(domain.AuditDistributionCompleted) {
		t.Fatalf("entries not newest-first: first is %s", views[0].Action)
	}
	for _, view := range views {
		if !view.SignatureValid {
			t.Fatalf("entry %s failed signature verification", view.Action)
		}
	}

	filtered, _, err := f.svc.QueryAuditLog(ctx, adminActor, vault.VaultID, domain.AuditDepositReceived, 50, 0)
	if err != nil {
		t.Fatalf("filtered query: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Action != string(domain.AuditDepositReceived) {
		t.Fatalf("action filter broken: %+v", filtered)
	}
}

func TestFlushOutboxRoutesAndDrains(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-14")
	f.mustVault(t, "off-14")
	deposit := f.mustVerifiedDeposit(t, "off-14", 1000, "2026-02")
	if _, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-14", DepositID: deposit.DepositID}); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	claims, err := f.svc.ListAvailableClaims(ctx, creatorActor, "off-14")
	if err != nil || len(claims) != 1 {
		t.Fatalf("list claims: %v %+v", err, claims)
	}
	if _, err := f.svc.ProcessClaim(ctx, creatorActor, claims[0].ClaimID); err != nil {
		t.Fatalf("process claim: %v", err)
	}

	sent, err := f.svc.FlushOutbox(ctx)
	if err != nil {
		t.Fatalf("flush outbox: %v", err)
	}
	// vault_created + deposit_verified are analytics-only; revenue_deposited,
	// distribution_completed and claim_processed ride the domain stream.
	if sent != 5 {
		t.Fatalf("flushed %d records, want 5", sent)
	}
	if len(f.events.Domain) != 3 {
		t.Fatalf("domain events = %d, want 3", len(f.events.Domain))
	}
	if len(f.events.Analytics) != 2 {
		t.Fatalf("analytics events = %d, want 2", len(f.events.Analytics))
	}
	if len(f.events.DLQ) != 0 {
		t.Fatalf("unexpected DLQ records: %+v", f.events.DLQ)
	}

	again, err := f.svc.FlushOutbox(ctx)
	if err != nil || again != 0 {
		t.Fatalf("second flush = %d, %v; want 0, nil", again, err)
	}
}

func TestProcessClaimOwnershipEnforced(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.seedFullySold("off-15")
	f.mustVault(t, "off-15")
	deposit := f.mustVerifiedDeposit(t, "off-15", 1000, "2026-02")
	if _, err := f.svc.Distribute(ctx, adminActor, DistributeInput{OfferingID: "off-15", DepositID: deposit.DepositID}); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	claims, err := f.svc.ListAvailableClaims(ctx, investorActor, "off-15")
	if err != nil || len(claims) != 1 {
		t.Fatalf("list claims: %v %+v", err, claims)
	}

	stranger := Actor{SubjectID: "someone-else", Role: "investor"}
	if _, err := f.svc.ProcessClaim(ctx, stranger, claims[0].ClaimID); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("foreign claim should be unauthorized, got %v", err)
	}

	if _, err := f.svc.ProcessClaim(ctx, investorActor, claims[0].ClaimID); err != nil {
		t.Fatalf("own claim failed: %v", err)
	}
	if _, err := f.svc.ProcessClaim(ctx, investorActor, claims[0].ClaimID); !errors.Is(err, domain.ErrClaimNotAvailable) {
		t.Fatalf("double redemption should fail, got %v", err)
	}
	if got := f.wallet.CreditCount("escrow-claim:" + claims[0].ClaimID); got != 1 {
		t.Fatalf("wallet credited %d times, want exactly once", got)
	}
}
