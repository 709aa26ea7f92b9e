package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

// DepositRevenue records reported revenue against the offering's vault and
// moves it into the pending pool. Deposit row, vault balances, ledger legs and
// the signed audit entry are committed in one transaction.
func (s *Service) DepositRevenue(ctx context.Context, actor Actor, input DepositRevenueInput) (domain.Deposit, error) {
	if !actor.authenticated() {
		return domain.Deposit{}, domain.ErrUnauthorized
	}
	if !actor.privileged() && actor.Role != "creator" {
		return domain.Deposit{}, fmt.Errorf("%w: revenue deposits require a creator or platform role", domain.ErrForbidden)
	}
	input.OfferingID = strings.TrimSpace(input.OfferingID)
	input.ExternalRef = strings.TrimSpace(input.ExternalRef)
	input.RevenueMonth = strings.TrimSpace(input.RevenueMonth)
	if input.OfferingID == "" {
		return domain.Deposit{}, fmt.Errorf("%w: offering id is required", domain.ErrInvalidInput)
	}
	if input.Amount <= 0 {
		return domain.Deposit{}, fmt.Errorf("%w: deposit amount %.2f must be positive", domain.ErrInvalidInput, input.Amount)
	}
	if input.Source == "" {
		input.Source = domain.DepositSourceOther
	}
	if !domain.ValidDepositSource(input.Source) {
		return domain.Deposit{}, fmt.Errorf("%w: unknown revenue source %q", domain.ErrInvalidInput, input.Source)
	}
	if err := domain.ValidateRevenueMonth(input.RevenueMonth); err != nil {
		return domain.Deposit{}, err
	}

	vault, err := s.vaults.GetByOfferingID(ctx, input.OfferingID)
	if err != nil {
		return domain.Deposit{}, fmt.Errorf("vault for offering %s: %w", input.OfferingID, err)
	}
	if vault.Status != domain.VaultStatusActive {
		return domain.Deposit{}, fmt.Errorf("%w: vault %s is %s", domain.ErrVaultNotActive, vault.VaultID, vault.Status)
	}

	// externalRef doubles as a reconciliation/idempotency key: re-reporting
	// the same revenue returns the original deposit instead of double-counting.
	if input.ExternalRef != "" {
		if existing, refErr := s.deposits.FindByExternalRef(ctx, vault.VaultID, input.ExternalRef); refErr == nil {
			return existing, nil
		} else if !errors.Is(refErr, domain.ErrNotFound) {
			return domain.Deposit{}, refErr
		}
	}

	release, err := s.lockVault(ctx, vault.VaultID)
	if err != nil {
		return domain.Deposit{}, fmt.Errorf("lock vault %s: %w", vault.VaultID, err)
	}
	defer release()

	now := s.nowFn()
	amount := domain.RoundCurrency(input.Amount)
	deposit := domain.Deposit{
		DepositID:    uuid.NewString(),
		VaultID:      vault.VaultID,
		Amount:       amount,
		Source:       input.Source,
		ExternalRef:  input.ExternalRef,
		RevenueMonth: input.RevenueMonth,
		Status:       domain.DepositStatusPending,
		CreatedAt:    now,
	}

	mutation := domain.VaultMutation{
		VaultID:             vault.VaultID,
		RequireStatus:       []domain.VaultStatus{domain.VaultStatusActive},
		TotalBalanceDelta:   amount,
		PendingReleaseDelta: amount,
		TouchRevenueAt:      true,
	}

	after := vault
	if err := domain.ApplyVaultMutation(&after, mutation, now); err != nil {
		return domain.Deposit{}, err
	}

	ledger := []domain.LedgerEntry{
		{EntryID: uuid.NewString(), VaultID: vault.VaultID, RefType: "deposit", RefID: deposit.DepositID,
			Account: domain.AccountExternalRevenue, Debit: amount, OccurredAt: now},
		{EntryID: uuid.NewString(), VaultID: vault.VaultID, RefType: "deposit", RefID: deposit.DepositID,
			Account: domain.AccountPendingRelease, Credit: amount, OccurredAt: now},
	}

	entry := s.signedAudit(domain.AuditEntry{
		VaultID:       vault.VaultID,
		Action:        domain.AuditDepositReceived,
		ActorType:     actor.auditActorType(),
		ActorID:       actor.SubjectID,
		Amount:        &amount,
		PreviousState: domain.SnapshotState(vault),
		NewState:      domain.SnapshotState(after),
		CreatedAt:     now,
	})

	created, err := s.deposits.Create(ctx, deposit, mutation, now, ports.TxRecords{
		Audit:  entry,
		Ledger: ledger,
		Outbox: s.revenueDepositedOutbox(deposit, now),
	})
	if err != nil {
		return domain.Deposit{}, fmt.Errorf("record deposit for vault %s: %w", vault.VaultID, err)
	}
	return created, nil
}

// VerifyDeposit marks a pending deposit as externally confirmed. Distribution
// of a specific deposit is blocked until this step completes.
func (s *Service) VerifyDeposit(ctx context.Context, actor Actor, depositID string) (domain.Deposit, error) {
	if !actor.authenticated() {
		return domain.Deposit{}, domain.ErrUnauthorized
	}
	if !actor.privileged() {
		return domain.Deposit{}, fmt.Errorf("%w: deposit verification requires a platform role", domain.ErrForbidden)
	}
	depositID = strings.TrimSpace(depositID)

	deposit, err := s.deposits.GetByID(ctx, depositID)
	if err != nil {
		return domain.Deposit{}, fmt.Errorf("deposit %s: %w", depositID, err)
	}
	if deposit.Status != domain.DepositStatusPending {
		return domain.Deposit{}, fmt.Errorf("%w: deposit %s is %s", domain.ErrDepositNotPending, depositID, deposit.Status)
	}

	now := s.nowFn()
	amount := deposit.Amount
	entry := s.signedAudit(domain.AuditEntry{
		VaultID:       deposit.VaultID,
		Action:        domain.AuditDepositVerified,
		ActorType:     actor.auditActorType(),
		ActorID:       actor.SubjectID,
		Amount:        &amount,
		PreviousState: domain.SnapshotState(map[string]string{"status": string(domain.DepositStatusPending)}),
		NewState:      domain.SnapshotState(map[string]string{"status": string(domain.DepositStatusVerified)}),
		CreatedAt:     now,
	})

	verified, err := s.deposits.Verify(ctx, depositID, now, ports.TxRecords{
		Audit:  entry,
		Outbox: s.depositVerifiedOutbox(deposit, now),
	})
	if err != nil {
		return domain.Deposit{}, fmt.Errorf("verify deposit %s: %w", depositID, err)
	}
	return verified, nil
}

// ListDeposits pages through a vault's deposit history, newest first.
func (s *Service) ListDeposits(ctx context.Context, actor Actor, offeringID string, limit, offset int) ([]domain.Deposit, int, error) {
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
	return s.deposits.ListByVault(ctx, vault.VaultID, limit, offset)
}
