package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

// Distribute splits revenue between the platform fee, the creator and the
// offering's investors and emits one claim per party.
//
// With a deposit id the deposit must be VERIFIED and its amount is used; the
// deposit is flipped to DISTRIBUTED in the same transaction, so a deposit can
// fund exactly one distribution. Without one, the vault's whole pending pool
// is swept.
//
// Ownership is recomputed fresh from the current confirmed investments on
// every call; it is never cached, so share trades between distributions are
// picked up automatically.
func (s *Service) Distribute(ctx context.Context, actor Actor, input DistributeInput) (domain.Distribution, error) {
	if !actor.authenticated() {
		return domain.Distribution{}, domain.ErrUnauthorized
	}
	if !actor.privileged() {
		return domain.Distribution{}, fmt.Errorf("%w: distributions require a platform role", domain.ErrForbidden)
	}
	input.OfferingID = strings.TrimSpace(input.OfferingID)
	input.DepositID = strings.TrimSpace(input.DepositID)
	if input.OfferingID == "" {
		return domain.Distribution{}, fmt.Errorf("%w: offering id is required", domain.ErrInvalidInput)
	}

	vault, err := s.vaults.GetByOfferingID(ctx, input.OfferingID)
	if err != nil {
		return domain.Distribution{}, fmt.Errorf("vault for offering %s: %w", input.OfferingID, err)
	}
	if vault.Status != domain.VaultStatusActive {
		return domain.Distribution{}, fmt.Errorf("%w: vault %s is %s", domain.ErrVaultNotActive, vault.VaultID, vault.Status)
	}

	release, err := s.lockVault(ctx, vault.VaultID)
	if err != nil {
		return domain.Distribution{}, fmt.Errorf("lock vault %s: %w", vault.VaultID, err)
	}
	defer release()

	var amount float64
	if input.DepositID != "" {
		deposit, depErr := s.deposits.GetByID(ctx, input.DepositID)
		if depErr != nil {
			return domain.Distribution{}, fmt.Errorf("deposit %s: %w", input.DepositID, depErr)
		}
		if deposit.VaultID != vault.VaultID {
			return domain.Distribution{}, fmt.Errorf("%w: deposit %s does not belong to offering %s",
				domain.ErrInvalidInput, input.DepositID, input.OfferingID)
		}
		switch deposit.Status {
		case domain.DepositStatusVerified:
			amount = deposit.Amount
		case domain.DepositStatusDistributed:
			return domain.Distribution{}, fmt.Errorf("%w: deposit %s was already distributed", domain.ErrConflict, input.DepositID)
		default:
			return domain.Distribution{}, fmt.Errorf("%w: deposit %s is %s", domain.ErrDepositNotVerified, input.DepositID, deposit.Status)
		}
	} else {
		amount = vault.PendingRelease
		if amount <= 0 {
			return domain.Distribution{}, fmt.Errorf("%w: vault %s has no pending revenue", domain.ErrNoFundsAvailable, vault.VaultID)
		}
	}

	offering, err := s.offerings.GetOffering(ctx, input.OfferingID)
	if err != nil {
		return domain.Distribution{}, fmt.Errorf("offering %s: %w", input.OfferingID, err)
	}
	investments, err := s.investments.ListConfirmedInvestments(ctx, input.OfferingID)
	if err != nil {
		return domain.Distribution{}, fmt.Errorf("investments for offering %s: %w", input.OfferingID, err)
	}
	snapshot, err := domain.ComputeOwnership(offering, investments)
	if err != nil {
		return domain.Distribution{}, err
	}

	now := s.nowFn()
	plan, err := domain.BuildDistributionPlan(vault.VaultID, input.DepositID, amount, s.cfg.FeeRate, snapshot, now, s.cfg.ClaimWindow)
	if err != nil {
		return domain.Distribution{}, err
	}
	dist := plan.Distribution

	// The fee plus any sub-paisa rounding slack leaves escrow entirely.
	feeLeg := domain.RoundCurrency(amount - dist.CreatorAmount - dist.InvestorAmount)
	mutation := domain.VaultMutation{
		VaultID:                vault.VaultID,
		RequireStatus:          []domain.VaultStatus{domain.VaultStatusActive},
		TotalBalanceDelta:      -feeLeg,
		PendingReleaseDelta:    -amount,
		TotalDistributedDelta:  amount,
		CreatorUnclaimedDelta:  dist.CreatorAmount,
		InvestorUnclaimedDelta: dist.InvestorAmount,
		TouchDistributionAt:    true,
	}

	after := vault
	if err := domain.ApplyVaultMutation(&after, mutation, now); err != nil {
		return domain.Distribution{}, err
	}

	ledger := []domain.LedgerEntry{
		{EntryID: uuid.NewString(), VaultID: vault.VaultID, RefType: "distribution", RefID: dist.DistributionID,
			Account: domain.AccountPendingRelease, Debit: amount, OccurredAt: now},
		{EntryID: uuid.NewString(), VaultID: vault.VaultID, RefType: "distribution", RefID: dist.DistributionID,
			Account: domain.AccountCreatorUnclaimed, Credit: dist.CreatorAmount, OccurredAt: now},
		{EntryID: uuid.NewString(), VaultID: vault.VaultID, RefType: "distribution", RefID: dist.DistributionID,
			Account: domain.AccountInvestorUnclaimed, Credit: dist.InvestorAmount, OccurredAt: now},
		{EntryID: uuid.NewString(), VaultID: vault.VaultID, RefType: "distribution", RefID: dist.DistributionID,
			Account: domain.AccountPlatformFees, Credit: feeLeg, OccurredAt: now},
	}

	entry := s.signedAudit(domain.AuditEntry{
		VaultID:       vault.VaultID,
		Action:        domain.AuditDistributionCompleted,
		ActorType:     actor.auditActorType(),
		ActorID:       actor.SubjectID,
		Amount:        &amount,
		PreviousState: domain.SnapshotState(vault),
		NewState: domain.SnapshotState(map[string]any{
			"vault":        after,
			"distribution": dist,
			"claims":       plan.Claims,
		}),
		CreatedAt: now,
	})

	committed, err := s.distributions.Commit(ctx, plan, input.DepositID, mutation, now, ports.TxRecords{
		Audit:  entry,
		Ledger: ledger,
		Outbox: s.distributionCompletedOutbox(dist, plan.Claims, now),
	})
	if err != nil {
		return domain.Distribution{}, fmt.Errorf("commit distribution for vault %s: %w", vault.VaultID, err)
	}
	return committed, nil
}

// GetDistribution returns one distribution with its recorded ownership
// snapshot.
func (s *Service) GetDistribution(ctx context.Context, actor Actor, distributionID string) (domain.Distribution, error) {
	if !actor.authenticated() {
		return domain.Distribution{}, domain.ErrUnauthorized
	}
	dist, err := s.distributions.GetByID(ctx, strings.TrimSpace(distributionID))
	if err != nil {
		return domain.Distribution{}, fmt.Errorf("distribution %s: %w", distributionID, err)
	}
	return dist, nil
}

// ListDistributions pages a vault's distribution history, newest first.
func (s *Service) ListDistributions(ctx context.Context, actor Actor, offeringID string, limit, offset int) ([]domain.Distribution, int, error) {
	if !actor.authenticated() {
		return nil, 0, domain.ErrUnauthorized
	}
	vault, err := s.vaults.GetByOfferingID(ctx, strings.TrimSpace(offeringID))
	if err != nil {
		return nil, 0, fmt.Errorf("vault for offering %s: %w", offeringID, err)
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.distributions.ListByVault(ctx, vault.VaultID, limit, offset)
}
