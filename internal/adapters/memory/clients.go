package memory

import (
	"context"
	"sync"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
)

// OfferingReader serves offerings from a fixed map; the dev runtime and the
// tests seed it directly.
type OfferingReader struct {
	mu        sync.Mutex
	offerings map[string]domain.Offering
}

func NewOfferingReader() *OfferingReader {
	return &OfferingReader{offerings: make(map[string]domain.Offering)}
}

func (r *OfferingReader) Put(offering domain.Offering) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offerings[offering.OfferingID] = offering
}

func (r *OfferingReader) GetOffering(ctx context.Context, offeringID string) (domain.Offering, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	offering, ok := r.offerings[offeringID]
	if !ok {
		return domain.Offering{}, domain.ErrNotFound
	}
	return offering, nil
}

type InvestmentReader struct {
	mu          sync.Mutex
	investments map[string][]domain.Investment
}

func NewInvestmentReader() *InvestmentReader {
	return &InvestmentReader{investments: make(map[string][]domain.Investment)}
}

func (r *InvestmentReader) Put(offeringID string, investments ...domain.Investment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.investments[offeringID] = append(r.investments[offeringID], investments...)
}

func (r *InvestmentReader) ListConfirmedInvestments(ctx context.Context, offeringID string) ([]domain.Investment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Investment, len(r.investments[offeringID]))
	copy(out, r.investments[offeringID])
	return out, nil
}

// WalletClient tracks balances in memory. CreditErr, when set, makes the next
// Credit call fail; tests use it to simulate a wallet outage mid-claim.
type WalletClient struct {
	mu        sync.Mutex
	balances  map[string]float64
	credits   map[string]int
	CreditErr error
}

func NewWalletClient() *WalletClient {
	return &WalletClient{balances: make(map[string]float64), credits: make(map[string]int)}
}

func (w *WalletClient) Credit(ctx context.Context, userID string, amount float64, reference string) (float64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.CreditErr != nil {
		err := w.CreditErr
		w.CreditErr = nil
		return 0, err
	}
	w.balances[userID] += amount
	w.credits[reference]++
	return w.balances[userID], nil
}

func (w *WalletClient) Balance(userID string) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}

// CreditCount reports how many times a reference was credited; claim
// idempotence tests assert it never exceeds one.
func (w *WalletClient) CreditCount(reference string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.credits[reference]
}

// Publisher collects envelopes in memory and serves as the domain, analytics,
// and DLQ sink for tests and the broker-less dev runtime.
type Publisher struct {
	mu        sync.Mutex
	Domain    []contracts.EventEnvelope
	Analytics []contracts.EventEnvelope
	DLQ       []contracts.DLQRecord
}

func NewPublisher() *Publisher { return &Publisher{} }

func (p *Publisher) PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Domain = append(p.Domain, envelope)
	return nil
}

func (p *Publisher) PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Analytics = append(p.Analytics, envelope)
	return nil
}

func (p *Publisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DLQ = append(p.DLQ, record)
	return nil
}
