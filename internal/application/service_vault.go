package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

// CreateVault provisions the escrow vault for an offering. Idempotent: when a
// vault already exists for the offering its record is returned unchanged and
// nothing is written.
func (s *Service) CreateVault(ctx context.Context, actor Actor, offeringID string) (domain.Vault, error) {
	if !actor.authenticated() {
		return domain.Vault{}, domain.ErrUnauthorized
	}
	if !actor.privileged() {
		return domain.Vault{}, fmt.Errorf("%w: vault creation requires a platform role", domain.ErrForbidden)
	}
	offeringID = strings.TrimSpace(offeringID)
	if offeringID == "" {
		return domain.Vault{}, fmt.Errorf("%w: offering id is required", domain.ErrInvalidInput)
	}

	if existing, err := s.vaults.GetByOfferingID(ctx, offeringID); err == nil {
		return existing, nil
	}

	now := s.nowFn()
	vault := domain.Vault{
		VaultID:    uuid.NewString(),
		OfferingID: offeringID,
		Status:     domain.VaultStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	entry := s.signedAudit(domain.AuditEntry{
		VaultID:   vault.VaultID,
		Action:    domain.AuditVaultCreated,
		ActorType: actor.auditActorType(),
		ActorID:   actor.SubjectID,
		NewState:  domain.SnapshotState(vault),
		CreatedAt: now,
	})

	created, _, err := s.vaults.CreateIfAbsent(ctx, vault, ports.TxRecords{
		Audit:  entry,
		Outbox: s.vaultCreatedOutbox(vault, now),
	})
	if err != nil {
		return domain.Vault{}, fmt.Errorf("create vault for offering %s: %w", offeringID, err)
	}
	return created, nil
}

// GetVault returns the vault for an offering.
func (s *Service) GetVault(ctx context.Context, actor Actor, offeringID string) (domain.Vault, error) {
	if !actor.authenticated() {
		return domain.Vault{}, domain.ErrUnauthorized
	}
	offeringID = strings.TrimSpace(offeringID)
	if offeringID == "" {
		return domain.Vault{}, fmt.Errorf("%w: offering id is required", domain.ErrInvalidInput)
	}
	vault, err := s.vaults.GetByOfferingID(ctx, offeringID)
	if err != nil {
		return domain.Vault{}, fmt.Errorf("vault for offering %s: %w", offeringID, err)
	}
	return vault, nil
}

// SetVaultStatus applies an admin lifecycle transition
// (ACTIVE<->PAUSED, ->DISPUTED, ->CLOSED per the transition table).
func (s *Service) SetVaultStatus(ctx context.Context, actor Actor, vaultID string, target domain.VaultStatus) (domain.Vault, error) {
	if !actor.authenticated() {
		return domain.Vault{}, domain.ErrUnauthorized
	}
	if actor.Role != "admin" {
		return domain.Vault{}, fmt.Errorf("%w: vault status changes are admin-only", domain.ErrForbidden)
	}
	vaultID = strings.TrimSpace(vaultID)
	switch target {
	case domain.VaultStatusActive, domain.VaultStatusPaused, domain.VaultStatusClosed, domain.VaultStatusDisputed:
	default:
		return domain.Vault{}, fmt.Errorf("%w: unknown vault status %q", domain.ErrInvalidInput, target)
	}

	vault, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return domain.Vault{}, fmt.Errorf("vault %s: %w", vaultID, err)
	}
	if vault.Status == target {
		return vault, nil
	}
	if !vault.CanTransitionTo(target) {
		return domain.Vault{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, vault.Status, target)
	}

	release, err := s.lockVault(ctx, vault.VaultID)
	if err != nil {
		return domain.Vault{}, fmt.Errorf("lock vault %s: %w", vault.VaultID, err)
	}
	defer release()

	now := s.nowFn()
	entry := s.signedAudit(domain.AuditEntry{
		VaultID:       vault.VaultID,
		Action:        domain.AuditVaultStatusChanged,
		ActorType:     actor.auditActorType(),
		ActorID:       actor.SubjectID,
		PreviousState: domain.SnapshotState(map[string]string{"status": string(vault.Status)}),
		NewState:      domain.SnapshotState(map[string]string{"status": string(target)}),
		CreatedAt:     now,
	})

	updated, err := s.vaults.UpdateStatus(ctx, vault.VaultID, target, now, ports.TxRecords{
		Audit:  entry,
		Outbox: s.vaultStatusChangedOutbox(vault, target, now),
	})
	if err != nil {
		return domain.Vault{}, fmt.Errorf("update vault %s status to %s: %w", vault.VaultID, target, err)
	}
	return updated, nil
}

// GetLedgerBalances recomputes per-account balances from the double-entry log
// and reports whether they still reconcile with the vault aggregate.
func (s *Service) GetLedgerBalances(ctx context.Context, actor Actor, vaultID string) (domain.Vault, map[string]float64, bool, error) {
	if !actor.authenticated() {
		return domain.Vault{}, nil, false, domain.ErrUnauthorized
	}
	vault, err := s.vaults.GetByID(ctx, strings.TrimSpace(vaultID))
	if err != nil {
		return domain.Vault{}, nil, false, fmt.Errorf("vault %s: %w", vaultID, err)
	}
	entries, err := s.ledger.ListByVault(ctx, vault.VaultID)
	if err != nil {
		return domain.Vault{}, nil, false, fmt.Errorf("ledger for vault %s: %w", vault.VaultID, err)
	}
	accounts := domain.SumAccounts(entries)
	balanced := reconciles(accounts[domain.AccountPendingRelease], vault.PendingRelease) &&
		reconciles(accounts[domain.AccountCreatorUnclaimed], vault.CreatorUnclaimed) &&
		reconciles(accounts[domain.AccountInvestorUnclaimed], vault.InvestorUnclaimed)
	return vault, accounts, balanced, nil
}

func reconciles(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= domain.ConservationTolerance
}
