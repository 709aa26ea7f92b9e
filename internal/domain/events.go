package domain

const (
	CanonicalEventClassDomain        = "domain"
	CanonicalEventClassAnalyticsOnly = "analytics_only"
	CanonicalEventClassOps           = "ops"
)

const (
	EventVaultCreated          = "escrow.vault_created"
	EventVaultStatusChanged    = "escrow.vault_status_changed"
	EventRevenueDeposited      = "escrow.revenue_deposited"
	EventDepositVerified       = "escrow.deposit_verified"
	EventDistributionCompleted = "escrow.distribution_completed"
	EventClaimProcessed        = "escrow.claim_processed"
	EventClaimsExpired         = "escrow.claims_expired"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventVaultCreated, EventVaultStatusChanged, EventRevenueDeposited,
		EventDepositVerified, EventDistributionCompleted, EventClaimProcessed,
		EventClaimsExpired:
		return true
	default:
		return false
	}
}

func CanonicalEventClass(eventType string) string {
	switch eventType {
	case EventRevenueDeposited, EventDistributionCompleted, EventClaimProcessed:
		return CanonicalEventClassDomain
	case EventVaultCreated, EventVaultStatusChanged, EventDepositVerified, EventClaimsExpired:
		return CanonicalEventClassAnalyticsOnly
	default:
		return ""
	}
}

func CanonicalPartitionKeyPath(eventType string) string {
	if IsCanonicalEmittedEvent(eventType) {
		return "data.vault_id"
	}
	return ""
}
