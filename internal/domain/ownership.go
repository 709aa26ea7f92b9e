package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Offering is the read model supplied by the offering provider.
type Offering struct {
	OfferingID      string
	CreatorUserID   string
	TotalShares     int64
	AvailableShares int64
	SharePercentage float64
	Status          string
}

// Investment is one CONFIRMED purchase supplied by the investment provider.
type Investment struct {
	InvestorID string
	Shares     int64
}

type OwnershipStake struct {
	UserID           string  `json:"user_id"`
	Shares           int64   `json:"shares,omitempty"`
	OwnershipPercent float64 `json:"ownership_percent"`
}

// OwnershipSnapshot captures who owns what fraction of future revenue at one
// instant. It is recomputed fresh for every distribution so share trades
// between distributions are reflected automatically.
type OwnershipSnapshot struct {
	OfferingID string           `json:"offering_id"`
	SoldShares int64            `json:"sold_shares"`
	Creator    OwnershipStake   `json:"creator"`
	Investors  []OwnershipStake `json:"investors"`
}

// ComputeOwnership derives the revenue split from the offering's share counts
// and its confirmed investments. Each investor receives
// (shares / soldShares) * sharePercentage; the creator takes the exact
// complement to 100 so the total always sums to 100 regardless of rounding or
// unsold-share slack.
func ComputeOwnership(offering Offering, investments []Investment) (OwnershipSnapshot, error) {
	sold := offering.TotalShares - offering.AvailableShares
	if sold <= 0 {
		return OwnershipSnapshot{}, fmt.Errorf("%w: offering %s has sold 0 of %d shares",
			ErrNoSharesSold, offering.OfferingID, offering.TotalShares)
	}
	if offering.SharePercentage < 0 || offering.SharePercentage > 100 {
		return OwnershipSnapshot{}, fmt.Errorf("%w: share percentage %.2f out of range",
			ErrInvalidInput, offering.SharePercentage)
	}

	soldDec := decimal.NewFromInt(sold)
	shareDec := decimal.NewFromFloat(offering.SharePercentage)

	investors := make([]OwnershipStake, 0, len(investments))
	investorTotal := decimal.Zero
	for _, inv := range investments {
		if inv.Shares <= 0 {
			continue
		}
		pct := decimal.NewFromInt(inv.Shares).Div(soldDec).Mul(shareDec)
		investorTotal = investorTotal.Add(pct)
		pctF, _ := pct.Float64()
		investors = append(investors, OwnershipStake{
			UserID:           inv.InvestorID,
			Shares:           inv.Shares,
			OwnershipPercent: pctF,
		})
	}

	creatorPct, _ := decimal.NewFromInt(100).Sub(investorTotal).Float64()
	if creatorPct < 0 {
		return OwnershipSnapshot{}, fmt.Errorf("%w: confirmed investments exceed sold shares for offering %s",
			ErrConflict, offering.OfferingID)
	}

	return OwnershipSnapshot{
		OfferingID: offering.OfferingID,
		SoldShares: sold,
		Creator: OwnershipStake{
			UserID:           offering.CreatorUserID,
			OwnershipPercent: creatorPct,
		},
		Investors: investors,
	}, nil
}

// TotalPercent returns the snapshot sum; it should always be 100 within
// floating tolerance.
func (s OwnershipSnapshot) TotalPercent() float64 {
	total := s.Creator.OwnershipPercent
	for _, inv := range s.Investors {
		total += inv.OwnershipPercent
	}
	return total
}
