package ports

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
)

// OfferingReader supplies the funding-offering read model from the offering
// service.
type OfferingReader interface {
	GetOffering(ctx context.Context, offeringID string) (domain.Offering, error)
}

// InvestmentReader lists CONFIRMED investments for an offering from the
// investment service.
type InvestmentReader interface {
	ListConfirmedInvestments(ctx context.Context, offeringID string) ([]domain.Investment, error)
}

// WalletClient credits a user's platform wallet when a claim is redeemed.
type WalletClient interface {
	Credit(ctx context.Context, userID string, amount float64, reference string) (float64, error)
}

// AuditSigner signs and verifies audit-entry canonical payloads.
type AuditSigner interface {
	Sign(payload []byte) string
	Verify(payload []byte, signature string) bool
}

// TokenVerifier validates platform bearer tokens at the HTTP boundary.
type TokenVerifier interface {
	Verify(token string) (subjectID, role string, err error)
}

// VaultLocker serializes mutating operations on one vault across replicas.
// The database row lock remains the correctness backstop; this only narrows
// the window for lock-wait pileups.
type VaultLocker interface {
	Acquire(ctx context.Context, vaultID string, ttl time.Duration) (release func(), err error)
}
