package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-escrow-service/internal/domain"
)

// The offering, investment, and wallet services expose structpb-based
// internal RPCs, so these clients invoke them directly without generated
// stubs. Calls are unary and carry the caller's context deadline.

func dial(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	return conn, nil
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, args map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(args)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func stringField(s *structpb.Struct, key string) string {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func numberField(s *structpb.Struct, key string) float64 {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetNumberValue()
	}
	return 0
}

type OfferingClient struct {
	conn *grpc.ClientConn
}

func NewOfferingClient(endpoint string) (*OfferingClient, error) {
	conn, err := dial(endpoint)
	if err != nil {
		return nil, err
	}
	return &OfferingClient{conn: conn}, nil
}

func (c *OfferingClient) Close() error { return c.conn.Close() }

func (c *OfferingClient) GetOffering(ctx context.Context, offeringID string) (domain.Offering, error) {
	resp, err := invoke(ctx, c.conn, "/viralforge.offering.v1.OfferingInternalService/GetOffering",
		map[string]any{"offering_id": offeringID})
	if err != nil {
		return domain.Offering{}, fmt.Errorf("get offering %s: %w", offeringID, err)
	}
	return domain.Offering{
		OfferingID:      offeringID,
		CreatorUserID:   stringField(resp, "creator_user_id"),
		TotalShares:     int64(numberField(resp, "total_shares")),
		AvailableShares: int64(numberField(resp, "available_shares")),
		SharePercentage: numberField(resp, "share_percentage"),
		Status:          stringField(resp, "status"),
	}, nil
}

type InvestmentClient struct {
	conn *grpc.ClientConn
}

func NewInvestmentClient(endpoint string) (*InvestmentClient, error) {
	conn, err := dial(endpoint)
	if err != nil {
		return nil, err
	}
	return &InvestmentClient{conn: conn}, nil
}

func (c *InvestmentClient) Close() error { return c.conn.Close() }

func (c *InvestmentClient) ListConfirmedInvestments(ctx context.Context, offeringID string) ([]domain.Investment, error) {
	resp, err := invoke(ctx, c.conn, "/viralforge.investment.v1.InvestmentInternalService/ListConfirmedInvestments",
		map[string]any{"offering_id": offeringID})
	if err != nil {
		return nil, fmt.Errorf("list investments for offering %s: %w", offeringID, err)
	}
	listVal, ok := resp.GetFields()["investments"]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Investment, 0)
	for _, item := range listVal.GetListValue().GetValues() {
		entry := item.GetStructValue()
		if entry == nil {
			continue
		}
		out = append(out, domain.Investment{
			InvestorID: stringField(entry, "investor_id"),
			Shares:     int64(numberField(entry, "shares")),
		})
	}
	return out, nil
}

type WalletClient struct {
	conn *grpc.ClientConn
}

func NewWalletClient(endpoint string) (*WalletClient, error) {
	conn, err := dial(endpoint)
	if err != nil {
		return nil, err
	}
	return &WalletClient{conn: conn}, nil
}

func (c *WalletClient) Close() error { return c.conn.Close() }

// Credit adds funds to a user's platform wallet. The reference is the claim
// id, which the wallet service uses for its own idempotency check.
func (c *WalletClient) Credit(ctx context.Context, userID string, amount float64, reference string) (float64, error) {
	resp, err := invoke(ctx, c.conn, "/viralforge.finance.v1.WalletInternalService/Credit",
		map[string]any{"user_id": userID, "amount": amount, "reference": reference})
	if err != nil {
		return 0, fmt.Errorf("credit wallet for user %s: %w", userID, err)
	}
	return numberField(resp, "new_balance"), nil
}
