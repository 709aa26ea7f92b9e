package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
)

// TxRecords bundles the side records every mutating operation persists in the
// same atomic unit as its own state change: the signed audit entry, the
// balanced ledger legs, and the outbox event. Adapters commit all of it or
// none of it.
type TxRecords struct {
	Audit  domain.AuditEntry
	Ledger []domain.LedgerEntry
	Outbox *OutboxRecord
}

type VaultRepository interface {
	// CreateIfAbsent returns the existing vault for the offering when one
	// exists; records are only written when a vault is actually created.
	CreateIfAbsent(ctx context.Context, vault domain.Vault, records TxRecords) (domain.Vault, bool, error)
	GetByID(ctx context.Context, vaultID string) (domain.Vault, error)
	GetByOfferingID(ctx context.Context, offeringID string) (domain.Vault, error)
	// UpdateStatus applies the transition under a row lock, re-validating it
	// against the current status.
	UpdateStatus(ctx context.Context, vaultID string, target domain.VaultStatus, now time.Time, records TxRecords) (domain.Vault, error)
}

type DepositRepository interface {
	// Create inserts the deposit and applies the vault mutation under lock.
	Create(ctx context.Context, deposit domain.Deposit, mutation domain.VaultMutation, now time.Time, records TxRecords) (domain.Deposit, error)
	// Verify transitions PENDING -> VERIFIED under lock.
	Verify(ctx context.Context, depositID string, now time.Time, records TxRecords) (domain.Deposit, error)
	GetByID(ctx context.Context, depositID string) (domain.Deposit, error)
	FindByExternalRef(ctx context.Context, vaultID, externalRef string) (domain.Deposit, error)
	ListByVault(ctx context.Context, vaultID string, limit, offset int) ([]domain.Deposit, int, error)
}

type DistributionRepository interface {
	// Commit persists the distribution and its claims, applies the vault
	// mutation, and, when depositID is set, flips that deposit
	// VERIFIED -> DISTRIBUTED, all in one transaction. Any failure rolls the
	// whole operation back.
	Commit(ctx context.Context, plan domain.DistributionPlan, depositID string, mutation domain.VaultMutation, now time.Time, records TxRecords) (domain.Distribution, error)
	GetByID(ctx context.Context, distributionID string) (domain.Distribution, error)
	ListByVault(ctx context.Context, vaultID string, limit, offset int) ([]domain.Distribution, int, error)
}

type ClaimRepository interface {
	GetByID(ctx context.Context, claimID string) (domain.Claim, error)
	ListAvailableByUser(ctx context.Context, userID, vaultID string, now time.Time) ([]domain.Claim, error)
	// Settle flips the claim to CLAIMED and applies the vault debit in one
	// transaction. credit is invoked inside that transaction so the wallet is
	// credited at most once per claim; its error aborts the whole settle.
	Settle(ctx context.Context, claimID string, now time.Time, mutation domain.VaultMutation, records TxRecords, credit func(ctx context.Context, claim domain.Claim) error) (domain.Claim, error)
	// MarkExpired flips a single AVAILABLE claim to EXPIRED (lazy path).
	MarkExpired(ctx context.Context, claimID string, now time.Time, records TxRecords) (domain.Claim, error)
	// ExpireBatch flips every AVAILABLE claim past its window, grouping by
	// vault; makeRecords builds the per-vault audit/outbox records inside the
	// transaction. Idempotent: a second run finds nothing.
	ExpireBatch(ctx context.Context, now time.Time, makeRecords func(vaultID string, claims []domain.Claim) TxRecords) (int, error)
}

type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	// Query returns entries newest-first with the total match count.
	Query(ctx context.Context, vaultID string, action domain.AuditAction, limit, offset int) ([]domain.AuditEntry, int, error)
}

type LedgerEntryRepository interface {
	ListByVault(ctx context.Context, vaultID string) ([]domain.LedgerEntry, error)
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
