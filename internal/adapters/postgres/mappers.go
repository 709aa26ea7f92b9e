package postgres

import (
	"encoding/json"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

func toVaultModel(v domain.Vault) vaultModel {
	return vaultModel{
		VaultID:            v.VaultID,
		OfferingID:         v.OfferingID,
		TotalBalance:       v.TotalBalance,
		PendingRelease:     v.PendingRelease,
		TotalDistributed:   v.TotalDistributed,
		CreatorUnclaimed:   v.CreatorUnclaimed,
		InvestorUnclaimed:  v.InvestorUnclaimed,
		Status:             string(v.Status),
		LastRevenueAt:      v.LastRevenueAt,
		LastDistributionAt: v.LastDistributionAt,
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
}

func toDomainVault(m vaultModel) domain.Vault {
	return domain.Vault{
		VaultID:            m.VaultID,
		OfferingID:         m.OfferingID,
		TotalBalance:       m.TotalBalance,
		PendingRelease:     m.PendingRelease,
		TotalDistributed:   m.TotalDistributed,
		CreatorUnclaimed:   m.CreatorUnclaimed,
		InvestorUnclaimed:  m.InvestorUnclaimed,
		Status:             domain.VaultStatus(m.Status),
		LastRevenueAt:      m.LastRevenueAt,
		LastDistributionAt: m.LastDistributionAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toDepositModel(d domain.Deposit) depositModel {
	var ref *string
	if d.ExternalRef != "" {
		ref = &d.ExternalRef
	}
	return depositModel{
		DepositID:     d.DepositID,
		VaultID:       d.VaultID,
		Amount:        d.Amount,
		Source:        string(d.Source),
		ExternalRef:   ref,
		RevenueMonth:  d.RevenueMonth,
		Status:        string(d.Status),
		CreatedAt:     d.CreatedAt,
		VerifiedAt:    d.VerifiedAt,
		DistributedAt: d.DistributedAt,
	}
}

func toDomainDeposit(m depositModel) domain.Deposit {
	ref := ""
	if m.ExternalRef != nil {
		ref = *m.ExternalRef
	}
	return domain.Deposit{
		DepositID:     m.DepositID,
		VaultID:       m.VaultID,
		Amount:        m.Amount,
		Source:        domain.DepositSource(m.Source),
		ExternalRef:   ref,
		RevenueMonth:  m.RevenueMonth,
		Status:        domain.DepositStatus(m.Status),
		CreatedAt:     m.CreatedAt,
		VerifiedAt:    m.VerifiedAt,
		DistributedAt: m.DistributedAt,
	}
}

func toDistributionModel(d domain.Distribution) distributionModel {
	var depositID *string
	if d.DepositID != "" {
		depositID = &d.DepositID
	}
	ratio, _ := json.Marshal(d.DistributionRatio)
	return distributionModel{
		DistributionID:    d.DistributionID,
		VaultID:           d.VaultID,
		DepositID:         depositID,
		TotalAmount:       d.TotalAmount,
		CreatorAmount:     d.CreatorAmount,
		InvestorAmount:    d.InvestorAmount,
		PlatformFee:       d.PlatformFee,
		DistributionRatio: string(ratio),
		Status:            string(d.Status),
		ExecutedAt:        d.ExecutedAt,
	}
}

func toDomainDistribution(m distributionModel) domain.Distribution {
	depositID := ""
	if m.DepositID != nil {
		depositID = *m.DepositID
	}
	var ratio domain.OwnershipSnapshot
	_ = json.Unmarshal([]byte(m.DistributionRatio), &ratio)
	return domain.Distribution{
		DistributionID:    m.DistributionID,
		VaultID:           m.VaultID,
		DepositID:         depositID,
		TotalAmount:       m.TotalAmount,
		CreatorAmount:     m.CreatorAmount,
		InvestorAmount:    m.InvestorAmount,
		PlatformFee:       m.PlatformFee,
		DistributionRatio: ratio,
		Status:            domain.DistributionStatus(m.Status),
		ExecutedAt:        m.ExecutedAt,
	}
}

func toClaimModel(c domain.Claim) claimModel {
	return claimModel{
		ClaimID:          c.ClaimID,
		VaultID:          c.VaultID,
		DistributionID:   c.DistributionID,
		UserID:           c.UserID,
		ClaimantType:     string(c.ClaimantType),
		Amount:           c.Amount,
		Shares:           c.Shares,
		OwnershipPercent: c.OwnershipPercent,
		Status:           string(c.Status),
		CreatedAt:        c.CreatedAt,
		ExpiresAt:        c.ExpiresAt,
		ClaimedAt:        c.ClaimedAt,
	}
}

func toDomainClaim(m claimModel) domain.Claim {
	return domain.Claim{
		ClaimID:          m.ClaimID,
		VaultID:          m.VaultID,
		DistributionID:   m.DistributionID,
		UserID:           m.UserID,
		ClaimantType:     domain.ClaimantType(m.ClaimantType),
		Amount:           m.Amount,
		Shares:           m.Shares,
		OwnershipPercent: m.OwnershipPercent,
		Status:           domain.ClaimStatus(m.Status),
		CreatedAt:        m.CreatedAt,
		ExpiresAt:        m.ExpiresAt,
		ClaimedAt:        m.ClaimedAt,
	}
}

func toAuditModel(e domain.AuditEntry) auditEntryModel {
	var actorID *string
	if e.ActorID != "" {
		actorID = &e.ActorID
	}
	var prev, next *string
	if len(e.PreviousState) > 0 {
		s := string(e.PreviousState)
		prev = &s
	}
	if len(e.NewState) > 0 {
		s := string(e.NewState)
		next = &s
	}
	return auditEntryModel{
		EntryID:       e.EntryID,
		VaultID:       e.VaultID,
		Action:        string(e.Action),
		ActorType:     string(e.ActorType),
		ActorID:       actorID,
		Amount:        e.Amount,
		PreviousState: prev,
		NewState:      next,
		Signature:     e.Signature,
		CreatedAt:     e.CreatedAt,
	}
}

func toDomainAudit(m auditEntryModel) domain.AuditEntry {
	entry := domain.AuditEntry{
		EntryID:   m.EntryID,
		VaultID:   m.VaultID,
		Action:    domain.AuditAction(m.Action),
		ActorType: domain.ActorType(m.ActorType),
		Amount:    m.Amount,
		Signature: m.Signature,
		CreatedAt: m.CreatedAt,
	}
	if m.ActorID != nil {
		entry.ActorID = *m.ActorID
	}
	if m.PreviousState != nil {
		entry.PreviousState = json.RawMessage(*m.PreviousState)
	}
	if m.NewState != nil {
		entry.NewState = json.RawMessage(*m.NewState)
	}
	return entry
}

func toLedgerModel(e domain.LedgerEntry) ledgerEntryModel {
	return ledgerEntryModel{
		EntryID:    e.EntryID,
		VaultID:    e.VaultID,
		RefType:    e.RefType,
		RefID:      e.RefID,
		Account:    e.Account,
		Debit:      e.Debit,
		Credit:     e.Credit,
		OccurredAt: e.OccurredAt,
	}
}

func toDomainLedger(m ledgerEntryModel) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:    m.EntryID,
		VaultID:    m.VaultID,
		RefType:    m.RefType,
		RefID:      m.RefID,
		Account:    m.Account,
		Debit:      m.Debit,
		Credit:     m.Credit,
		OccurredAt: m.OccurredAt,
	}
}

func toOutboxModel(r ports.OutboxRecord) outboxModel {
	envelope, _ := json.Marshal(r.Envelope)
	return outboxModel{
		RecordID:   r.RecordID,
		EventClass: r.EventClass,
		Envelope:   string(envelope),
		CreatedAt:  r.CreatedAt,
		SentAt:     r.SentAt,
	}
}

func toPortOutbox(m outboxModel) ports.OutboxRecord {
	var envelope contracts.EventEnvelope
	_ = json.Unmarshal([]byte(m.Envelope), &envelope)
	return ports.OutboxRecord{
		RecordID:   m.RecordID,
		EventClass: m.EventClass,
		Envelope:   envelope,
		CreatedAt:  m.CreatedAt,
		SentAt:     m.SentAt,
	}
}
