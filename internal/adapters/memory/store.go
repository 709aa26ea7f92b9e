package memory

import (
	"sync"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

// Store is the in-memory backing state shared by every repository in this
// package. One mutex guards all maps so a multi-entity commit is atomic the
// same way a database transaction is: under the lock everything is validated
// against copies first, then swapped in together.
type Store struct {
	mu sync.Mutex

	vaults          map[string]domain.Vault
	vaultByOffering map[string]string
	deposits        map[string]domain.Deposit
	distributions   map[string]domain.Distribution
	claims          map[string]domain.Claim
	auditLog        []domain.AuditEntry
	ledger          []domain.LedgerEntry
	outbox          []ports.OutboxRecord
}

func NewStore() *Store {
	return &Store{
		vaults:          make(map[string]domain.Vault),
		vaultByOffering: make(map[string]string),
		deposits:        make(map[string]domain.Deposit),
		distributions:   make(map[string]domain.Distribution),
		claims:          make(map[string]domain.Claim),
	}
}

func (s *Store) Vaults() *VaultRepository               { return &VaultRepository{store: s} }
func (s *Store) Deposits() *DepositRepository           { return &DepositRepository{store: s} }
func (s *Store) Distributions() *DistributionRepository { return &DistributionRepository{store: s} }
func (s *Store) Claims() *ClaimRepository               { return &ClaimRepository{store: s} }
func (s *Store) AuditLog() *AuditLogRepository          { return &AuditLogRepository{store: s} }
func (s *Store) Ledger() *LedgerEntryRepository         { return &LedgerEntryRepository{store: s} }
func (s *Store) Outbox() *OutboxRepository              { return &OutboxRepository{store: s} }

// applyMutation validates and applies a vault mutation against the stored
// row. Called with the store lock held; the caller commits side records only
// after this succeeds.
func (s *Store) applyMutation(mutation domain.VaultMutation, now time.Time) (domain.Vault, error) {
	vault, ok := s.vaults[mutation.VaultID]
	if !ok {
		return domain.Vault{}, domain.ErrNotFound
	}
	if err := domain.ApplyVaultMutation(&vault, mutation, now); err != nil {
		return domain.Vault{}, err
	}
	s.vaults[vault.VaultID] = vault
	return vault, nil
}

// appendRecords commits the audit entry, ledger legs, and outbox record.
// Called with the store lock held, after every validation has passed.
func (s *Store) appendRecords(records ports.TxRecords) {
	if records.Audit.EntryID != "" {
		s.auditLog = append(s.auditLog, records.Audit)
	}
	s.ledger = append(s.ledger, records.Ledger...)
	if records.Outbox != nil {
		s.outbox = append(s.outbox, *records.Outbox)
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
