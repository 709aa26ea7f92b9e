package application

import (
	"context"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/ports"
)

type Config struct {
	ServiceName          string
	FeeRate              float64
	ClaimWindow          time.Duration
	VaultLockTTL         time.Duration
	OutboxFlushBatchSize int
}

type Actor struct {
	SubjectID string
	Role      string
	RequestID string
}

type DepositRevenueInput struct {
	OfferingID   string
	Amount       float64
	RevenueMonth string
	Source       domain.DepositSource
	ExternalRef  string
}

type DistributeInput struct {
	OfferingID string
	DepositID  string
}

type Service struct {
	cfg Config

	vaults        ports.VaultRepository
	deposits      ports.DepositRepository
	distributions ports.DistributionRepository
	claims        ports.ClaimRepository
	audit         ports.AuditLogRepository
	ledger        ports.LedgerEntryRepository
	outbox        ports.OutboxRepository

	offerings   ports.OfferingReader
	investments ports.InvestmentReader
	wallet      ports.WalletClient
	signer      ports.AuditSigner
	locks       ports.VaultLocker

	domainEvents ports.DomainPublisher
	analytics    ports.AnalyticsPublisher
	dlq          ports.DLQPublisher

	nowFn func() time.Time
}

type Dependencies struct {
	Config Config

	Vaults        ports.VaultRepository
	Deposits      ports.DepositRepository
	Distributions ports.DistributionRepository
	Claims        ports.ClaimRepository
	Audit         ports.AuditLogRepository
	Ledger        ports.LedgerEntryRepository
	Outbox        ports.OutboxRepository

	Offerings   ports.OfferingReader
	Investments ports.InvestmentReader
	Wallet      ports.WalletClient
	Signer      ports.AuditSigner
	Locks       ports.VaultLocker

	DomainEvents ports.DomainPublisher
	Analytics    ports.AnalyticsPublisher
	DLQ          ports.DLQPublisher

	NowFn func() time.Time
}

// NewService wires the escrow use-cases. The audit signer is mandatory: an
// unsigned audit trail is a forgeable one, so a missing signer is a
// configuration error rather than a silent downgrade.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Signer == nil {
		return nil, domain.ErrSigningKeyMissing
	}
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "M15-Revenue-Escrow-Service"
	}
	if cfg.FeeRate <= 0 {
		cfg.FeeRate = 0.05
	}
	if cfg.ClaimWindow <= 0 {
		cfg.ClaimWindow = 90 * 24 * time.Hour
	}
	if cfg.VaultLockTTL <= 0 {
		cfg.VaultLockTTL = 10 * time.Second
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	nowFn := deps.NowFn
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		cfg:           cfg,
		vaults:        deps.Vaults,
		deposits:      deps.Deposits,
		distributions: deps.Distributions,
		claims:        deps.Claims,
		audit:         deps.Audit,
		ledger:        deps.Ledger,
		outbox:        deps.Outbox,
		offerings:     deps.Offerings,
		investments:   deps.Investments,
		wallet:        deps.Wallet,
		signer:        deps.Signer,
		locks:         deps.Locks,
		domainEvents:  deps.DomainEvents,
		analytics:     deps.Analytics,
		dlq:           deps.DLQ,
		nowFn:         nowFn,
	}, nil
}

func (a Actor) authenticated() bool {
	return a.SubjectID != ""
}

func (a Actor) privileged() bool {
	switch a.Role {
	case "admin", "system", "finance":
		return true
	default:
		return false
	}
}

func (a Actor) auditActorType() domain.ActorType {
	switch a.Role {
	case "admin":
		return domain.ActorTypeAdmin
	case "creator":
		return domain.ActorTypeCreator
	case "investor":
		return domain.ActorTypeInvestor
	default:
		return domain.ActorTypeSystem
	}
}

// lockVault serializes mutating operations on one vault when a distributed
// locker is configured; row locks in the store remain the backstop.
func (s *Service) lockVault(ctx context.Context, vaultID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	return s.locks.Acquire(ctx, vaultID, s.cfg.VaultLockTTL)
}
