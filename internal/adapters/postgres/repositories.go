package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

// Repositories bundles every escrow repository over one GORM handle.
type Repositories struct {
	Vaults        *VaultRepository
	Deposits      *DepositRepository
	Distributions *DistributionRepository
	Claims        *ClaimRepository
	AuditLog      *AuditLogRepository
	Ledger        *LedgerEntryRepository
	Outbox        *OutboxRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Vaults:        &VaultRepository{db: db},
		Deposits:      &DepositRepository{db: db},
		Distributions: &DistributionRepository{db: db},
		Claims:        &ClaimRepository{db: db},
		AuditLog:      &AuditLogRepository{db: db},
		Ledger:        &LedgerEntryRepository{db: db},
		Outbox:        &OutboxRepository{db: db},
	}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrConflict
	}
	return err
}

// lockVaultTx loads the vault row FOR UPDATE so every balance change within
// the transaction sees a consistent aggregate.
func lockVaultTx(tx *gorm.DB, vaultID string) (vaultModel, error) {
	var row vaultModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vault_id = ?", vaultID).
		First(&row).Error
	if err != nil {
		return vaultModel{}, translate(err)
	}
	return row, nil
}

// applyMutationTx locks the vault row, applies the balance mutation through
// the domain rules, and saves the result.
func applyMutationTx(tx *gorm.DB, mutation domain.VaultMutation, now time.Time) (domain.Vault, error) {
	row, err := lockVaultTx(tx, mutation.VaultID)
	if err != nil {
		return domain.Vault{}, err
	}
	vault := toDomainVault(row)
	if err := domain.ApplyVaultMutation(&vault, mutation, now); err != nil {
		return domain.Vault{}, err
	}
	if err := tx.Save(toVaultModel(vault)).Error; err != nil {
		return domain.Vault{}, translate(err)
	}
	return vault, nil
}

// appendRecordsTx writes the audit entry, ledger legs, and outbox record
// inside the caller's transaction.
func appendRecordsTx(tx *gorm.DB, records ports.TxRecords) error {
	if records.Audit.EntryID != "" {
		if err := tx.Create(toAuditModel(records.Audit)).Error; err != nil {
			return fmt.Errorf("append audit entry: %w", translate(err))
		}
	}
	for _, leg := range records.Ledger {
		if err := tx.Create(toLedgerModel(leg)).Error; err != nil {
			return fmt.Errorf("append ledger entry: %w", translate(err))
		}
	}
	if records.Outbox != nil {
		if err := tx.Create(toOutboxModel(*records.Outbox)).Error; err != nil {
			return fmt.Errorf("enqueue outbox record: %w", translate(err))
		}
	}
	return nil
}

type VaultRepository struct {
	db *gorm.DB
}

func (r *VaultRepository) CreateIfAbsent(ctx context.Context, vault domain.Vault, records ports.TxRecords) (domain.Vault, bool, error) {
	created := false
	out := vault
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing vaultModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("offering_id = ?", vault.OfferingID).
			First(&existing).Error
		if err == nil {
			out = toDomainVault(existing)
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return translate(err)
		}
		if err := tx.Create(toVaultModel(vault)).Error; err != nil {
			return translate(err)
		}
		created = true
		return appendRecordsTx(tx, records)
	})
	if err != nil {
		return domain.Vault{}, false, err
	}
	return out, created, nil
}

func (r *VaultRepository) GetByID(ctx context.Context, vaultID string) (domain.Vault, error) {
	var row vaultModel
	err := r.db.WithContext(ctx).Where("vault_id = ?", vaultID).First(&row).Error
	if err != nil {
		return domain.Vault{}, translate(err)
	}
	return toDomainVault(row), nil
}

func (r *VaultRepository) GetByOfferingID(ctx context.Context, offeringID string) (domain.Vault, error) {
	var row vaultModel
	err := r.db.WithContext(ctx).Where("offering_id = ?", offeringID).First(&row).Error
	if err != nil {
		return domain.Vault{}, translate(err)
	}
	return toDomainVault(row), nil
}

func (r *VaultRepository) UpdateStatus(ctx context.Context, vaultID string, target domain.VaultStatus, now time.Time, records ports.TxRecords) (domain.Vault, error) {
	var out domain.Vault
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row, err := lockVaultTx(tx, vaultID)
		if err != nil {
			return err
		}
		vault := toDomainVault(row)
		if vault.Status != target && !vault.CanTransitionTo(target) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, vault.Status, target)
		}
		vault.Status = target
		vault.UpdatedAt = now
		if err := tx.Save(toVaultModel(vault)).Error; err != nil {
			return translate(err)
		}
		out = vault
		return appendRecordsTx(tx, records)
	})
	if err != nil {
		return domain.Vault{}, err
	}
	return out, nil
}

type DepositRepository struct {
	db *gorm.DB
}

func (r *DepositRepository) Create(ctx context.Context, deposit domain.Deposit, mutation domain.VaultMutation, now time.Time, records ports.TxRecords) (domain.Deposit, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := applyMutationTx(tx, mutation, now); err != nil {
			return err
		}
		if err := tx.Create(toDepositModel(deposit)).Error; err != nil {
			return translate(err)
		}
		return appendRecordsTx(tx, records)
	})
	if err != nil {
		return domain.Deposit{}, err
	}
	return deposit, nil
}

func (r *DepositRepository) Verify(ctx context.Context, depositID string, now time.Time, records ports.TxRecords) (domain.Deposit, error) {
	var out domain.Deposit
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row depositModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("deposit_id = ?", depositID).
			First(&row).Error
		if err != nil {
			return translate(err)
		}
		if row.Status != string(domain.DepositStatusPending) {
			return fmt.Errorf("%w: deposit %s is %s", domain.ErrDepositNotPending, depositID, row.Status)
		}
		row.Status = string(domain.DepositStatusVerified)
		row.VerifiedAt = &now
		if err := tx.Save(row).Error; err != nil {
			return translate(err)
		}
		out = toDomainDeposit(row)
		return appendRecordsTx(tx, records)
	})
	if err != nil {
		return domain.Deposit{}, err
	}
	return out, nil
}

func (r *DepositRepository) GetByID(ctx context.Context, depositID string) (domain.Deposit, error) {
	var row depositModel
	err := r.db.WithContext(ctx).Where("deposit_id = ?", depositID).First(&row).Error
	if err != nil {
		return domain.Deposit{}, translate(err)
	}
	return toDomainDeposit(row), nil
}

func (r *DepositRepository) FindByExternalRef(ctx context.Context, vaultID, externalRef string) (domain.Deposit, error) {
	var row depositModel
	err := r.db.WithContext(ctx).
		Where("vault_id = ? AND external_ref = ?", vaultID, externalRef).
		First(&row).Error
	if err != nil {
		return domain.Deposit{}, translate(err)
	}
	return toDomainDeposit(row), nil
}

func (r *DepositRepository) ListByVault(ctx context.Context, vaultID string, limit, offset int) ([]domain.Deposit, int, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&depositModel{}).Where("vault_id = ?", vaultID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var rows []depositModel
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	out := make([]domain.Deposit, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainDeposit(row))
	}
	return out, int(total), nil
}

type DistributionRepository struct {
	db *gorm.DB
}

func (r *DistributionRepository) Commit(ctx context.Context, plan domain.DistributionPlan, depositID string, mutation domain.VaultMutation, now time.Time, records ports.TxRecords) (domain.Distribution, error) {
	dist := plan.Distribution
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if depositID != "" {
			var row depositModel
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("deposit_id = ?", depositID).
				First(&row).Error
			if err != nil {
				return translate(err)
			}
			if row.Status != string(domain.DepositStatusVerified) {
				return fmt.Errorf("%w: deposit %s is %s", domain.ErrDepositNotVerified, depositID, row.Status)
			}
			row.Status = string(domain.DepositStatusDistributed)
			row.DistributedAt = &now
			if err := tx.Save(row).Error; err != nil {
				return translate(err)
			}
		}
		if _, err := applyMutationTx(tx, mutation, now); err != nil {
			return err
		}
		dist.Status = domain.DistributionStatusCompleted
		if err := tx.Create(toDistributionModel(dist)).Error; err != nil {
			return translate(err)
		}
		for _, claim := range plan.Claims {
			if err := tx.Create(toClaimModel(claim)).Error; err != nil {
				return translate(err)
			}
		}
		return appendRecordsTx(tx, records)
	})
	if err != nil {
		return domain.Distribution{}, err
	}
	return dist, nil
}

func (r *DistributionRepository) GetByID(ctx context.Context, distributionID string) (domain.Distribution, error) {
	var row distributionModel
	err := r.db.WithContext(ctx).Where("distribution_id = ?", distributionID).First(&row).Error
	if err != nil {
		return domain.Distribution{}, translate(err)
	}
	return toDomainDistribution(row), nil
}

func (r *DistributionRepository) ListByVault(ctx context.Context, vaultID string, limit, offset int) ([]domain.Distribution, int, error) {
	var total int64
	query := r.db.WithContext(ctx).Model(&distributionModel{}).Where("vault_id = ?", vaultID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var rows []distributionModel
	err := query.Order("executed_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	out := make([]domain.Distribution, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainDistribution(row))
	}
	return out, int(total), nil
}

type ClaimRepository struct {
	db *gorm.DB
}

func (r *ClaimRepository) GetByID(ctx context.Context, claimID string) (domain.Claim, error) {
	var row claimModel
	err := r.db.WithContext(ctx).Where("claim_id = ?", claimID).First(&row).Error
	if err != nil {
		return domain.Claim{}, translate(err)
	}
	return toDomainClaim(row), nil
}

func (r *ClaimRepository) ListAvailableByUser(ctx context.Context, userID, vaultID string, now time.Time) ([]domain.Claim, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("status = ?", string(domain.ClaimStatusAvailable)).
		Where("expires_at IS NULL OR expires_at > ?", now)
	if vaultID != "" {
		query = query.Where("vault_id = ?", vaultID)
	}
	var rows []claimModel
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make([]domain.Claim, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainClaim(row))
	}
	return out, nil
}

func (r *ClaimRepository) Settle(ctx context.Context, claimID string, now time.Time, mutation domain.VaultMutation, records ports.TxRecords, credit func(ctx context.Context, claim domain.Claim) error) (domain.Claim, error) {
	var out domain.Claim
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row claimModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("claim_id = ?", claimID).
			First(&row).Error
		if err != nil {
			return translate(err)
		}
		claim := toDomainClaim(row)
		if !claim.Claimable(now) {
			return fmt.Errorf("%w: claim %s is %s", domain.ErrClaimNotAvailable, claimID, claim.Status)
		}
		if _, err := applyMutationTx(tx, mutation, now); err != nil {
			return err
		}
		claim.Status = domain.ClaimStatusClaimed
		claim.ClaimedAt = &now
		if err := tx.Save(toClaimModel(claim)).Error; err != nil {
			return translate(err)
		}
		if err := appendRecordsTx(tx, records); err != nil {
			return err
		}
		// Wallet credit happens inside the transaction: if it fails, the
		// status flip and vault debit roll back with it, so a retried claim
		// cannot double-credit.
		if err := credit(ctx, claim); err != nil {
			return err
		}
		out = claim
		return nil
	})
	if err != nil {
		return domain.Claim{}, err
	}
	return out, nil
}

func (r *ClaimRepository) MarkExpired(ctx context.Context, claimID string, now time.Time, records ports.TxRecords) (domain.Claim, error) {
	var out domain.Claim
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row claimModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("claim_id = ?", claimID).
			First(&row).Error
		if err != nil {
			return translate(err)
		}
		if row.Status != string(domain.ClaimStatusAvailable) {
			return fmt.Errorf("%w: claim %s is %s", domain.ErrClaimNotAvailable, claimID, row.Status)
		}
		row.Status = string(domain.ClaimStatusExpired)
		if err := tx.Save(row).Error; err != nil {
			return translate(err)
		}
		out = toDomainClaim(row)
		return appendRecordsTx(tx, records)
	})
	if err != nil {
		return domain.Claim{}, err
	}
	return out, nil
}

func (r *ClaimRepository) ExpireBatch(ctx context.Context, now time.Time, makeRecords func(vaultID string, claims []domain.Claim) ports.TxRecords) (int, error) {
	count := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []claimModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", string(domain.ClaimStatusAvailable)).
			Where("expires_at IS NOT NULL AND expires_at < ?", now).
			Order("vault_id, created_at").
			Find(&rows).Error
		if err != nil {
			return translate(err)
		}
		byVault := make(map[string][]domain.Claim)
		for _, row := range rows {
			byVault[row.VaultID] = append(byVault[row.VaultID], toDomainClaim(row))
		}
		for vaultID, claims := range byVault {
			ids := make([]string, 0, len(claims))
			for _, c := range claims {
				ids = append(ids, c.ClaimID)
			}
			res := tx.Model(&claimModel{}).
				Where("claim_id IN ?", ids).
				Update("status", string(domain.ClaimStatusExpired))
			if res.Error != nil {
				return translate(res.Error)
			}
			count += int(res.RowsAffected)
			if err := appendRecordsTx(tx, makeRecords(vaultID, claims)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

type AuditLogRepository struct {
	db *gorm.DB
}

func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	return translate(r.db.WithContext(ctx).Create(toAuditModel(entry)).Error)
}

func (r *AuditLogRepository) Query(ctx context.Context, vaultID string, action domain.AuditAction, limit, offset int) ([]domain.AuditEntry, int, error) {
	query := r.db.WithContext(ctx).Model(&auditEntryModel{}).Where("vault_id = ?", vaultID)
	if action != "" {
		query = query.Where("action = ?", string(action))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	var rows []auditEntryModel
	err := query.Order("seq DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	out := make([]domain.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainAudit(row))
	}
	return out, int(total), nil
}

type LedgerEntryRepository struct {
	db *gorm.DB
}

func (r *LedgerEntryRepository) ListByVault(ctx context.Context, vaultID string) ([]domain.LedgerEntry, error) {
	var rows []ledgerEntryModel
	err := r.db.WithContext(ctx).
		Where("vault_id = ?", vaultID).
		Order("occurred_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainLedger(row))
	}
	return out, nil
}

type OutboxRepository struct {
	db *gorm.DB
}

func (r *OutboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	return translate(r.db.WithContext(ctx).Create(toOutboxModel(record)).Error)
}

func (r *OutboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	out := make([]ports.OutboxRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toPortOutbox(row))
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("record_id = ?", recordID).
		Update("sent_at", at)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
