package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

// ListAvailableClaims returns the caller's redeemable claims, optionally
// scoped to one offering's vault. Claims past their window are filtered out
// here but only flipped to EXPIRED on redemption or by the sweep.
func (s *Service) ListAvailableClaims(ctx context.Context, actor Actor, offeringID string) ([]domain.Claim, error) {
	if !actor.authenticated() {
		return nil, domain.ErrUnauthorized
	}
	vaultID := ""
	if offeringID = strings.TrimSpace(offeringID); offeringID != "" {
		vault, err := s.vaults.GetByOfferingID(ctx, offeringID)
		if err != nil {
			return nil, fmt.Errorf("vault for offering %s: %w", offeringID, err)
		}
		vaultID = vault.VaultID
	}
	claims, err := s.claims.ListAvailableByUser(ctx, actor.SubjectID, vaultID, s.nowFn())
	if err != nil {
		return nil, fmt.Errorf("list claims for user %s: %w", actor.SubjectID, err)
	}
	return claims, nil
}

// ProcessClaim redeems one claim: the vault's unclaimed pool is debited, the
// user's wallet is credited, and the claim flips to CLAIMED, all in one
// transaction. A claim past its window is flipped to EXPIRED as a side effect
// and the call fails.
func (s *Service) ProcessClaim(ctx context.Context, actor Actor, claimID string) (domain.Claim, error) {
	if !actor.authenticated() {
		return domain.Claim{}, domain.ErrUnauthorized
	}
	claimID = strings.TrimSpace(claimID)
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return domain.Claim{}, fmt.Errorf("claim %s: %w", claimID, err)
	}
	if claim.UserID != actor.SubjectID && !actor.privileged() {
		return domain.Claim{}, fmt.Errorf("%w: claim %s belongs to another user", domain.ErrUnauthorized, claimID)
	}

	release, err := s.lockVault(ctx, claim.VaultID)
	if err != nil {
		return domain.Claim{}, fmt.Errorf("lock vault %s: %w", claim.VaultID, err)
	}
	defer release()

	now := s.nowFn()
	if claim.Status != domain.ClaimStatusAvailable {
		return domain.Claim{}, fmt.Errorf("%w: claim %s is %s", domain.ErrClaimNotAvailable, claimID, claim.Status)
	}
	if claim.Expired(now) {
		expired, expErr := s.expireLazily(ctx, claim, now)
		if expErr != nil {
			return domain.Claim{}, expErr
		}
		return expired, fmt.Errorf("%w: claim %s expired at %s", domain.ErrClaimExpired, claimID, claim.ExpiresAt.Format("2006-01-02"))
	}

	mutation := domain.VaultMutation{
		VaultID:           claim.VaultID,
		TotalBalanceDelta: -claim.Amount,
	}
	poolAccount := domain.AccountInvestorUnclaimed
	if claim.ClaimantType == domain.ClaimantTypeCreator {
		poolAccount = domain.AccountCreatorUnclaimed
		mutation.CreatorUnclaimedDelta = -claim.Amount
	} else {
		mutation.InvestorUnclaimedDelta = -claim.Amount
	}

	ledger := []domain.LedgerEntry{
		{EntryID: uuid.NewString(), VaultID: claim.VaultID, RefType: "claim", RefID: claim.ClaimID,
			Account: poolAccount, Debit: claim.Amount, OccurredAt: now},
		{EntryID: uuid.NewString(), VaultID: claim.VaultID, RefType: "claim", RefID: claim.ClaimID,
			Account: domain.AccountExternalWallet, Credit: claim.Amount, OccurredAt: now},
	}

	settled := claim
	settled.Status = domain.ClaimStatusClaimed
	settled.ClaimedAt = &now

	amount := claim.Amount
	entry := s.signedAudit(domain.AuditEntry{
		VaultID:       claim.VaultID,
		Action:        domain.AuditClaimProcessed,
		ActorType:     actor.auditActorType(),
		ActorID:       actor.SubjectID,
		Amount:        &amount,
		PreviousState: domain.SnapshotState(claim),
		NewState:      domain.SnapshotState(settled),
		CreatedAt:     now,
	})

	result, err := s.claims.Settle(ctx, claim.ClaimID, now, mutation, ports.TxRecords{
		Audit:  entry,
		Ledger: ledger,
		Outbox: s.claimProcessedOutbox(settled, now),
	}, func(ctx context.Context, c domain.Claim) error {
		_, creditErr := s.wallet.Credit(ctx, c.UserID, c.Amount, "escrow-claim:"+c.ClaimID)
		return creditErr
	})
	if err != nil {
		return domain.Claim{}, fmt.Errorf("settle claim %s: %w", claim.ClaimID, err)
	}
	return result, nil
}

// ClaimAll redeems every available claim the caller has, isolating failures:
// one bad claim never blocks the rest.
func (s *Service) ClaimAll(ctx context.Context, actor Actor, offeringID string) (contracts.ClaimAllResponse, error) {
	claims, err := s.ListAvailableClaims(ctx, actor, offeringID)
	if err != nil {
		return contracts.ClaimAllResponse{}, err
	}

	resp := contracts.ClaimAllResponse{Results: make([]contracts.ClaimOutcome, 0, len(claims))}
	for _, claim := range claims {
		outcome := contracts.ClaimOutcome{ClaimID: claim.ClaimID}
		if _, claimErr := s.ProcessClaim(ctx, actor, claim.ClaimID); claimErr != nil {
			outcome.Error = claimErr.Error()
		} else {
			outcome.Claimed = true
			outcome.Amount = claim.Amount
			resp.TotalClaimed += claim.Amount
		}
		resp.Results = append(resp.Results, outcome)
	}
	resp.TotalClaimed = domain.RoundCurrency(resp.TotalClaimed)
	return resp, nil
}

// ExpireSweep batch-expires every claim past its window, writing one audit
// entry and event per affected vault. Re-running finds nothing to expire.
func (s *Service) ExpireSweep(ctx context.Context) (int, error) {
	now := s.nowFn()
	count, err := s.claims.ExpireBatch(ctx, now, func(vaultID string, claims []domain.Claim) ports.TxRecords {
		var total float64
		ids := make([]string, 0, len(claims))
		for _, c := range claims {
			total += c.Amount
			ids = append(ids, c.ClaimID)
		}
		total = domain.RoundCurrency(total)
		entry := s.signedAudit(domain.AuditEntry{
			VaultID:   vaultID,
			Action:    domain.AuditClaimsExpired,
			ActorType: domain.ActorTypeSystem,
			Amount:    &total,
			NewState:  domain.SnapshotState(map[string]any{"claim_ids": ids, "total_amount": total}),
			CreatedAt: now,
		})
		return ports.TxRecords{
			Audit:  entry,
			Outbox: s.claimsExpiredOutbox(vaultID, ids, total, now),
		}
	})
	if err != nil {
		return 0, fmt.Errorf("expire sweep: %w", err)
	}
	return count, nil
}

// RunExpireSweep is the API entrypoint for the same sweep the worker runs on
// a timer, so operators can force a pass without waiting for the interval.
func (s *Service) RunExpireSweep(ctx context.Context, actor Actor) (int, error) {
	if !actor.authenticated() {
		return 0, domain.ErrUnauthorized
	}
	if !actor.privileged() {
		return 0, fmt.Errorf("%w: the expiry sweep requires a platform role", domain.ErrForbidden)
	}
	return s.ExpireSweep(ctx)
}

// expireLazily flips a single overdue claim on access, writing the same kind
// of record the sweep would.
func (s *Service) expireLazily(ctx context.Context, claim domain.Claim, now time.Time) (domain.Claim, error) {
	amount := claim.Amount
	expiredClaim := claim
	expiredClaim.Status = domain.ClaimStatusExpired
	entry := s.signedAudit(domain.AuditEntry{
		VaultID:       claim.VaultID,
		Action:        domain.AuditClaimExpired,
		ActorType:     domain.ActorTypeSystem,
		Amount:        &amount,
		PreviousState: domain.SnapshotState(claim),
		NewState:      domain.SnapshotState(expiredClaim),
		CreatedAt:     now,
	})
	expired, err := s.claims.MarkExpired(ctx, claim.ClaimID, now, ports.TxRecords{
		Audit:  entry,
		Outbox: s.claimsExpiredOutbox(claim.VaultID, []string{claim.ClaimID}, amount, now),
	})
	if err != nil {
		return domain.Claim{}, fmt.Errorf("expire claim %s: %w", claim.ClaimID, err)
	}
	return expired, nil
}
