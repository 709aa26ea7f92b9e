package domain

import "time"

// Double-entry accounts. External accounts record money crossing the escrow
// boundary; internal accounts mirror the vault aggregate so conservation can
// be recomputed from entries alone.
const (
	AccountExternalRevenue   = "external:revenue"
	AccountExternalWallet    = "external:wallet"
	AccountPendingRelease    = "vault:pending_release"
	AccountCreatorUnclaimed  = "vault:creator_unclaimed"
	AccountInvestorUnclaimed = "vault:investor_unclaimed"
	AccountPlatformFees      = "platform:fees"
)

// LedgerEntry is one debit/credit leg. Every balance-changing operation writes
// a balanced set of legs in the same transaction as the vault update.
type LedgerEntry struct {
	EntryID    string    `json:"entry_id"`
	VaultID    string    `json:"vault_id"`
	RefType    string    `json:"ref_type"`
	RefID      string    `json:"ref_id"`
	Account    string    `json:"account"`
	Debit      float64   `json:"debit"`
	Credit     float64   `json:"credit"`
	OccurredAt time.Time `json:"occurred_at"`
}

// SumAccounts folds entries into per-account net balances (credit - debit).
func SumAccounts(entries []LedgerEntry) map[string]float64 {
	out := make(map[string]float64)
	for _, e := range entries {
		out[e.Account] = RoundCurrency(out[e.Account] + e.Credit - e.Debit)
	}
	return out
}
