package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

type VaultRepository struct{ store *Store }

func (r *VaultRepository) CreateIfAbsent(ctx context.Context, vault domain.Vault, records ports.TxRecords) (domain.Vault, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if existingID, ok := r.store.vaultByOffering[vault.OfferingID]; ok {
		return r.store.vaults[existingID], false, nil
	}
	r.store.vaults[vault.VaultID] = vault
	r.store.vaultByOffering[vault.OfferingID] = vault.VaultID
	r.store.appendRecords(records)
	return vault, true, nil
}

func (r *VaultRepository) GetByID(ctx context.Context, vaultID string) (domain.Vault, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	vault, ok := r.store.vaults[vaultID]
	if !ok {
		return domain.Vault{}, domain.ErrNotFound
	}
	return vault, nil
}

func (r *VaultRepository) GetByOfferingID(ctx context.Context, offeringID string) (domain.Vault, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	vaultID, ok := r.store.vaultByOffering[offeringID]
	if !ok {
		return domain.Vault{}, domain.ErrNotFound
	}
	return r.store.vaults[vaultID], nil
}

func (r *VaultRepository) UpdateStatus(ctx context.Context, vaultID string, target domain.VaultStatus, now time.Time, records ports.TxRecords) (domain.Vault, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	vault, ok := r.store.vaults[vaultID]
	if !ok {
		return domain.Vault{}, domain.ErrNotFound
	}
	if vault.Status != target && !vault.CanTransitionTo(target) {
		return domain.Vault{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, vault.Status, target)
	}
	vault.Status = target
	vault.UpdatedAt = now
	r.store.vaults[vaultID] = vault
	r.store.appendRecords(records)
	return vault, nil
}

type DepositRepository struct{ store *Store }

func (r *DepositRepository) Create(ctx context.Context, deposit domain.Deposit, mutation domain.VaultMutation, now time.Time, records ports.TxRecords) (domain.Deposit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, err := r.store.applyMutation(mutation, now); err != nil {
		return domain.Deposit{}, err
	}
	r.store.deposits[deposit.DepositID] = deposit
	r.store.appendRecords(records)
	return deposit, nil
}

func (r *DepositRepository) Verify(ctx context.Context, depositID string, now time.Time, records ports.TxRecords) (domain.Deposit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	deposit, ok := r.store.deposits[depositID]
	if !ok {
		return domain.Deposit{}, domain.ErrNotFound
	}
	if deposit.Status != domain.DepositStatusPending {
		return domain.Deposit{}, fmt.Errorf("%w: deposit %s is %s", domain.ErrDepositNotPending, depositID, deposit.Status)
	}
	deposit.Status = domain.DepositStatusVerified
	deposit.VerifiedAt = &now
	r.store.deposits[depositID] = deposit
	r.store.appendRecords(records)
	return deposit, nil
}

func (r *DepositRepository) GetByID(ctx context.Context, depositID string) (domain.Deposit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	deposit, ok := r.store.deposits[depositID]
	if !ok {
		return domain.Deposit{}, domain.ErrNotFound
	}
	return deposit, nil
}

func (r *DepositRepository) FindByExternalRef(ctx context.Context, vaultID, externalRef string) (domain.Deposit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, d := range r.store.deposits {
		if d.VaultID == vaultID && d.ExternalRef == externalRef {
			return d, nil
		}
	}
	return domain.Deposit{}, domain.ErrNotFound
}

func (r *DepositRepository) ListByVault(ctx context.Context, vaultID string, limit, offset int) ([]domain.Deposit, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := make([]domain.Deposit, 0)
	for _, d := range r.store.deposits {
		if d.VaultID == vaultID {
			matched = append(matched, d)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, limit, offset), len(matched), nil
}

type DistributionRepository struct{ store *Store }

func (r *DistributionRepository) Commit(ctx context.Context, plan domain.DistributionPlan, depositID string, mutation domain.VaultMutation, now time.Time, records ports.TxRecords) (domain.Distribution, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var deposit domain.Deposit
	if depositID != "" {
		var ok bool
		deposit, ok = r.store.deposits[depositID]
		if !ok {
			return domain.Distribution{}, domain.ErrNotFound
		}
		if deposit.Status != domain.DepositStatusVerified {
			return domain.Distribution{}, fmt.Errorf("%w: deposit %s is %s", domain.ErrDepositNotVerified, depositID, deposit.Status)
		}
	}
	if _, err := r.store.applyMutation(mutation, now); err != nil {
		return domain.Distribution{}, err
	}

	dist := plan.Distribution
	dist.Status = domain.DistributionStatusCompleted
	r.store.distributions[dist.DistributionID] = dist
	for _, claim := range plan.Claims {
		r.store.claims[claim.ClaimID] = claim
	}
	if depositID != "" {
		deposit.Status = domain.DepositStatusDistributed
		deposit.DistributedAt = &now
		r.store.deposits[depositID] = deposit
	}
	r.store.appendRecords(records)
	return dist, nil
}

func (r *DistributionRepository) GetByID(ctx context.Context, distributionID string) (domain.Distribution, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	dist, ok := r.store.distributions[distributionID]
	if !ok {
		return domain.Distribution{}, domain.ErrNotFound
	}
	return dist, nil
}

func (r *DistributionRepository) ListByVault(ctx context.Context, vaultID string, limit, offset int) ([]domain.Distribution, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := make([]domain.Distribution, 0)
	for _, d := range r.store.distributions {
		if d.VaultID == vaultID {
			matched = append(matched, d)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ExecutedAt.After(matched[j].ExecutedAt) })
	return page(matched, limit, offset), len(matched), nil
}

type ClaimRepository struct{ store *Store }

func (r *ClaimRepository) GetByID(ctx context.Context, claimID string) (domain.Claim, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	claim, ok := r.store.claims[claimID]
	if !ok {
		return domain.Claim{}, domain.ErrNotFound
	}
	return claim, nil
}

func (r *ClaimRepository) ListAvailableByUser(ctx context.Context, userID, vaultID string, now time.Time) ([]domain.Claim, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := make([]domain.Claim, 0)
	for _, c := range r.store.claims {
		if c.UserID != userID {
			continue
		}
		if vaultID != "" && c.VaultID != vaultID {
			continue
		}
		if c.Claimable(now) {
			matched = append(matched, c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	return matched, nil
}

func (r *ClaimRepository) Settle(ctx context.Context, claimID string, now time.Time, mutation domain.VaultMutation, records ports.TxRecords, credit func(ctx context.Context, claim domain.Claim) error) (domain.Claim, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	claim, ok := r.store.claims[claimID]
	if !ok {
		return domain.Claim{}, domain.ErrNotFound
	}
	if !claim.Claimable(now) {
		return domain.Claim{}, fmt.Errorf("%w: claim %s is %s", domain.ErrClaimNotAvailable, claimID, claim.Status)
	}
	if _, err := r.store.applyMutation(mutation, now); err != nil {
		return domain.Claim{}, err
	}
	claim.Status = domain.ClaimStatusClaimed
	claim.ClaimedAt = &now
	if err := credit(ctx, claim); err != nil {
		// Roll the vault debit back; nothing else was touched yet.
		reverse := mutation
		reverse.TotalBalanceDelta = -mutation.TotalBalanceDelta
		reverse.PendingReleaseDelta = -mutation.PendingReleaseDelta
		reverse.TotalDistributedDelta = -mutation.TotalDistributedDelta
		reverse.CreatorUnclaimedDelta = -mutation.CreatorUnclaimedDelta
		reverse.InvestorUnclaimedDelta = -mutation.InvestorUnclaimedDelta
		if _, rbErr := r.store.applyMutation(reverse, now); rbErr != nil {
			return domain.Claim{}, fmt.Errorf("rollback after credit failure: %w", rbErr)
		}
		return domain.Claim{}, err
	}
	r.store.claims[claimID] = claim
	r.store.appendRecords(records)
	return claim, nil
}

func (r *ClaimRepository) MarkExpired(ctx context.Context, claimID string, now time.Time, records ports.TxRecords) (domain.Claim, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	claim, ok := r.store.claims[claimID]
	if !ok {
		return domain.Claim{}, domain.ErrNotFound
	}
	if claim.Status != domain.ClaimStatusAvailable {
		return domain.Claim{}, fmt.Errorf("%w: claim %s is %s", domain.ErrClaimNotAvailable, claimID, claim.Status)
	}
	claim.Status = domain.ClaimStatusExpired
	r.store.claims[claimID] = claim
	r.store.appendRecords(records)
	return claim, nil
}

func (r *ClaimRepository) ExpireBatch(ctx context.Context, now time.Time, makeRecords func(vaultID string, claims []domain.Claim) ports.TxRecords) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	byVault := make(map[string][]domain.Claim)
	for _, c := range r.store.claims {
		if c.Status == domain.ClaimStatusAvailable && c.Expired(now) {
			byVault[c.VaultID] = append(byVault[c.VaultID], c)
		}
	}

	count := 0
	for vaultID, claims := range byVault {
		for _, c := range claims {
			c.Status = domain.ClaimStatusExpired
			r.store.claims[c.ClaimID] = c
			count++
		}
		r.store.appendRecords(makeRecords(vaultID, claims))
	}
	return count, nil
}

type AuditLogRepository struct{ store *Store }

func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.auditLog = append(r.store.auditLog, entry)
	return nil
}

func (r *AuditLogRepository) Query(ctx context.Context, vaultID string, action domain.AuditAction, limit, offset int) ([]domain.AuditEntry, int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := make([]domain.AuditEntry, 0)
	for _, e := range r.store.auditLog {
		if e.VaultID != vaultID {
			continue
		}
		if action != "" && e.Action != action {
			continue
		}
		matched = append(matched, e)
	}
	// Entries land in commit order; reverse gives newest-first with a
	// deterministic order for equal timestamps.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	return page(matched, limit, offset), len(matched), nil
}

type LedgerEntryRepository struct{ store *Store }

func (r *LedgerEntryRepository) ListByVault(ctx context.Context, vaultID string) ([]domain.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	matched := make([]domain.LedgerEntry, 0)
	for _, e := range r.store.ledger {
		if e.VaultID == vaultID {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

type OutboxRepository struct{ store *Store }

func (r *OutboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.outbox = append(r.store.outbox, record)
	return nil
}

func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pending := make([]ports.OutboxRecord, 0)
	for _, rec := range r.store.outbox {
		if rec.SentAt == nil {
			pending = append(pending, rec)
			if len(pending) == limit {
				break
			}
		}
	}
	return pending, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.outbox {
		if r.store.outbox[i].RecordID == recordID {
			r.store.outbox[i].SentAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}
