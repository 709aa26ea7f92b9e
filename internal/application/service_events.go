package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

// outboxRecord wraps a payload in the canonical envelope and stages it for
// the transactional outbox. Events never go to the broker directly from a
// use-case: they are committed with the state change and flushed afterwards.
func (s *Service) outboxRecord(eventType, vaultID, traceID string, payload any, now time.Time) *ports.OutboxRecord {
	envelope := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     vaultID,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             domain.SnapshotState(payload),
	}
	return &ports.OutboxRecord{
		RecordID:   uuid.NewString(),
		EventClass: envelope.EventClass,
		Envelope:   envelope,
		CreatedAt:  now,
	}
}

func (s *Service) vaultCreatedOutbox(vault domain.Vault, now time.Time) *ports.OutboxRecord {
	return s.outboxRecord(domain.EventVaultCreated, vault.VaultID, "", contracts.VaultCreatedPayload{
		VaultID:    vault.VaultID,
		OfferingID: vault.OfferingID,
		CreatedAt:  now.Format(time.RFC3339),
	}, now)
}

func (s *Service) vaultStatusChangedOutbox(vault domain.Vault, target domain.VaultStatus, now time.Time) *ports.OutboxRecord {
	return s.outboxRecord(domain.EventVaultStatusChanged, vault.VaultID, "", contracts.VaultStatusChangedPayload{
		VaultID:        vault.VaultID,
		OfferingID:     vault.OfferingID,
		PreviousStatus: string(vault.Status),
		NewStatus:      string(target),
		ChangedAt:      now.Format(time.RFC3339),
	}, now)
}

func (s *Service) revenueDepositedOutbox(deposit domain.Deposit, now time.Time) *ports.OutboxRecord {
	return s.outboxRecord(domain.EventRevenueDeposited, deposit.VaultID, "", contracts.RevenueDepositedPayload{
		VaultID:      deposit.VaultID,
		DepositID:    deposit.DepositID,
		Amount:       deposit.Amount,
		Source:       string(deposit.Source),
		RevenueMonth: deposit.RevenueMonth,
		DepositedAt:  now.Format(time.RFC3339),
	}, now)
}

func (s *Service) depositVerifiedOutbox(deposit domain.Deposit, now time.Time) *ports.OutboxRecord {
	return s.outboxRecord(domain.EventDepositVerified, deposit.VaultID, "", contracts.DepositVerifiedPayload{
		VaultID:    deposit.VaultID,
		DepositID:  deposit.DepositID,
		Amount:     deposit.Amount,
		VerifiedAt: now.Format(time.RFC3339),
	}, now)
}

func (s *Service) distributionCompletedOutbox(dist domain.Distribution, claims []domain.Claim, now time.Time) *ports.OutboxRecord {
	claimPayloads := make([]contracts.DistributionClaimPayload, 0, len(claims))
	for _, c := range claims {
		claimPayloads = append(claimPayloads, contracts.DistributionClaimPayload{
			ClaimID:          c.ClaimID,
			UserID:           c.UserID,
			ClaimantType:     string(c.ClaimantType),
			Amount:           c.Amount,
			OwnershipPercent: c.OwnershipPercent,
		})
	}
	return s.outboxRecord(domain.EventDistributionCompleted, dist.VaultID, "", contracts.DistributionCompletedPayload{
		VaultID:        dist.VaultID,
		DistributionID: dist.DistributionID,
		DepositID:      dist.DepositID,
		TotalAmount:    dist.TotalAmount,
		PlatformFee:    dist.PlatformFee,
		CreatorAmount:  dist.CreatorAmount,
		InvestorAmount: dist.InvestorAmount,
		Claims:         claimPayloads,
		ExecutedAt:     now.Format(time.RFC3339),
	}, now)
}

func (s *Service) claimProcessedOutbox(claim domain.Claim, now time.Time) *ports.OutboxRecord {
	return s.outboxRecord(domain.EventClaimProcessed, claim.VaultID, "", contracts.ClaimProcessedPayload{
		VaultID:      claim.VaultID,
		ClaimID:      claim.ClaimID,
		UserID:       claim.UserID,
		ClaimantType: string(claim.ClaimantType),
		Amount:       claim.Amount,
		ClaimedAt:    now.Format(time.RFC3339),
	}, now)
}

func (s *Service) claimsExpiredOutbox(vaultID string, claimIDs []string, total float64, now time.Time) *ports.OutboxRecord {
	return s.outboxRecord(domain.EventClaimsExpired, vaultID, "", contracts.ClaimsExpiredPayload{
		VaultID:     vaultID,
		ClaimIDs:    claimIDs,
		TotalAmount: total,
		ExpiredAt:   now.Format(time.RFC3339),
	}, now)
}

// FlushOutbox publishes pending outbox records to the broker and marks them
// sent. Domain-class events go to the domain stream, everything else to
// analytics. A record that fails to publish is routed to the DLQ and left
// pending so the next flush retries it.
func (s *Service) FlushOutbox(ctx context.Context) (int, error) {
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, record := range pending {
		var pubErr error
		switch record.EventClass {
		case domain.CanonicalEventClassDomain:
			pubErr = s.domainEvents.PublishDomain(ctx, record.Envelope)
		default:
			pubErr = s.analytics.PublishAnalytics(ctx, record.Envelope)
		}
		if pubErr != nil {
			if s.dlq != nil {
				_ = s.dlq.PublishDLQ(ctx, contracts.DLQRecord{
					OriginalEvent: record.Envelope,
					ErrorSummary:  pubErr.Error(),
					RetryCount:    1,
					FirstSeenAt:   record.CreatedAt,
					LastErrorAt:   s.nowFn(),
					TraceID:       record.Envelope.TraceID,
				})
			}
			continue
		}
		if err := s.outbox.MarkSent(ctx, record.RecordID, s.nowFn()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
