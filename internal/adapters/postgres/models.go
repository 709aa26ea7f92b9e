package postgres

import "time"

type vaultModel struct {
	VaultID            string     `gorm:"column:vault_id;type:uuid;primaryKey"`
	OfferingID         string     `gorm:"column:offering_id;type:uuid;uniqueIndex"`
	TotalBalance       float64    `gorm:"column:total_balance"`
	PendingRelease     float64    `gorm:"column:pending_release"`
	TotalDistributed   float64    `gorm:"column:total_distributed"`
	CreatorUnclaimed   float64    `gorm:"column:creator_unclaimed"`
	InvestorUnclaimed  float64    `gorm:"column:investor_unclaimed"`
	Status             string     `gorm:"column:status"`
	LastRevenueAt      *time.Time `gorm:"column:last_revenue_at"`
	LastDistributionAt *time.Time `gorm:"column:last_distribution_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (vaultModel) TableName() string { return "escrow_vaults" }

type depositModel struct {
	DepositID     string     `gorm:"column:deposit_id;type:uuid;primaryKey"`
	VaultID       string     `gorm:"column:vault_id;type:uuid;index"`
	Amount        float64    `gorm:"column:amount"`
	Source        string     `gorm:"column:source"`
	ExternalRef   *string    `gorm:"column:external_ref"`
	RevenueMonth  string     `gorm:"column:revenue_month"`
	Status        string     `gorm:"column:status"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	VerifiedAt    *time.Time `gorm:"column:verified_at"`
	DistributedAt *time.Time `gorm:"column:distributed_at"`
}

func (depositModel) TableName() string { return "revenue_deposits" }

type distributionModel struct {
	DistributionID    string    `gorm:"column:distribution_id;type:uuid;primaryKey"`
	VaultID           string    `gorm:"column:vault_id;type:uuid;index"`
	DepositID         *string   `gorm:"column:deposit_id;type:uuid"`
	TotalAmount       float64   `gorm:"column:total_amount"`
	CreatorAmount     float64   `gorm:"column:creator_amount"`
	InvestorAmount    float64   `gorm:"column:investor_amount"`
	PlatformFee       float64   `gorm:"column:platform_fee"`
	DistributionRatio string    `gorm:"column:distribution_ratio;type:jsonb"`
	Status            string    `gorm:"column:status"`
	ExecutedAt        time.Time `gorm:"column:executed_at"`
}

func (distributionModel) TableName() string { return "revenue_distributions" }

type claimModel struct {
	ClaimID          string     `gorm:"column:claim_id;type:uuid;primaryKey"`
	VaultID          string     `gorm:"column:vault_id;type:uuid;index"`
	DistributionID   string     `gorm:"column:distribution_id;type:uuid;index"`
	UserID           string     `gorm:"column:user_id;type:uuid;index"`
	ClaimantType     string     `gorm:"column:claimant_type"`
	Amount           float64    `gorm:"column:amount"`
	Shares           *int64     `gorm:"column:shares"`
	OwnershipPercent float64    `gorm:"column:ownership_percent"`
	Status           string     `gorm:"column:status"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	ExpiresAt        *time.Time `gorm:"column:expires_at"`
	ClaimedAt        *time.Time `gorm:"column:claimed_at"`
}

func (claimModel) TableName() string { return "revenue_claims" }

type auditEntryModel struct {
	EntryID       string    `gorm:"column:entry_id;type:uuid;primaryKey"`
	VaultID       string    `gorm:"column:vault_id;type:uuid;index"`
	Action        string    `gorm:"column:action;index"`
	ActorType     string    `gorm:"column:actor_type"`
	ActorID       *string   `gorm:"column:actor_id"`
	Amount        *float64  `gorm:"column:amount"`
	PreviousState *string   `gorm:"column:previous_state;type:jsonb"`
	NewState      *string   `gorm:"column:new_state;type:jsonb"`
	Signature     string    `gorm:"column:signature"`
	Seq           int64     `gorm:"column:seq;->"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (auditEntryModel) TableName() string { return "escrow_audit_log" }

type ledgerEntryModel struct {
	EntryID    string    `gorm:"column:entry_id;type:uuid;primaryKey"`
	VaultID    string    `gorm:"column:vault_id;type:uuid;index"`
	RefType    string    `gorm:"column:ref_type"`
	RefID      string    `gorm:"column:ref_id"`
	Account    string    `gorm:"column:account"`
	Debit      float64   `gorm:"column:debit"`
	Credit     float64   `gorm:"column:credit"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (ledgerEntryModel) TableName() string { return "escrow_ledger_entries" }

type outboxModel struct {
	RecordID   string     `gorm:"column:record_id;type:uuid;primaryKey"`
	EventClass string     `gorm:"column:event_class"`
	Envelope   string     `gorm:"column:envelope;type:jsonb"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	SentAt     *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string { return "escrow_outbox" }
