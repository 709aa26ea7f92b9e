package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
)

// QueryAuditLog pages a vault's audit trail newest-first, re-verifying each
// entry's HMAC signature so tampering shows up as signature_valid=false
// instead of being silently served.
func (s *Service) QueryAuditLog(ctx context.Context, actor Actor, vaultID string, action domain.AuditAction, limit, offset int) ([]contracts.AuditEntryView, int, error) {
	if !actor.authenticated() {
		return nil, 0, domain.ErrUnauthorized
	}
	vaultID = strings.TrimSpace(vaultID)
	if vaultID == "" {
		return nil, 0, fmt.Errorf("%w: vault id is required", domain.ErrInvalidInput)
	}
	if _, err := s.vaults.GetByID(ctx, vaultID); err != nil {
		return nil, 0, fmt.Errorf("vault %s: %w", vaultID, err)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, total, err := s.audit.Query(ctx, vaultID, action, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit log for vault %s: %w", vaultID, err)
	}

	views := make([]contracts.AuditEntryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, contracts.AuditEntryView{
			EntryID:        entry.EntryID,
			VaultID:        entry.VaultID,
			Action:         string(entry.Action),
			ActorType:      string(entry.ActorType),
			ActorID:        entry.ActorID,
			Amount:         entry.Amount,
			Signature:      entry.Signature,
			SignatureValid: s.signer.Verify(entry.CanonicalPayload(), entry.Signature),
			CreatedAt:      entry.CreatedAt,
		})
	}
	return views, total, nil
}

// signedAudit stamps an entry with an id and its HMAC signature. Every
// mutating operation routes its audit record through here so no unsigned
// entry can reach the log.
func (s *Service) signedAudit(entry domain.AuditEntry) domain.AuditEntry {
	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	entry.Signature = s.signer.Sign(entry.CanonicalPayload())
	return entry
}
