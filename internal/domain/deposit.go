package domain

import (
	"fmt"
	"strings"
	"time"
)

type DepositStatus string

const (
	DepositStatusPending     DepositStatus = "PENDING"
	DepositStatusVerified    DepositStatus = "VERIFIED"
	DepositStatusDistributed DepositStatus = "DISTRIBUTED"
)

type DepositSource string

const (
	DepositSourceAdRevenue    DepositSource = "AD_REVENUE"
	DepositSourceSubscription DepositSource = "SUBSCRIPTION"
	DepositSourceMerchandise  DepositSource = "MERCHANDISE"
	DepositSourceLicensing    DepositSource = "LICENSING"
	DepositSourceOther        DepositSource = "OTHER"
)

// Deposit is one reported revenue amount for a vault. Amount is immutable
// after creation; status only moves forward.
type Deposit struct {
	DepositID     string        `json:"deposit_id"`
	VaultID       string        `json:"vault_id"`
	Amount        float64       `json:"amount"`
	Source        DepositSource `json:"source"`
	ExternalRef   string        `json:"external_ref,omitempty"`
	RevenueMonth  string        `json:"revenue_month"`
	Status        DepositStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	VerifiedAt    *time.Time    `json:"verified_at,omitempty"`
	DistributedAt *time.Time    `json:"distributed_at,omitempty"`
}

func ValidDepositSource(source DepositSource) bool {
	switch source {
	case DepositSourceAdRevenue, DepositSourceSubscription, DepositSourceMerchandise,
		DepositSourceLicensing, DepositSourceOther:
		return true
	default:
		return false
	}
}

// ValidateRevenueMonth enforces the YYYY-MM reporting period format.
func ValidateRevenueMonth(month string) error {
	month = strings.TrimSpace(month)
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("%w: revenue month %q must be YYYY-MM", ErrInvalidInput, month)
	}
	return nil
}
