package model

import "time"

// Transaction currencies. Points are the default; EUR amounts are kept in a
// separate bucket on the wallet and carried as integer cents.
const (
	CurrencyPoints = "PTS"
	CurrencyEUR    = "EUR"
)

// Wallet transaction types. The taxonomy is fixed; new kinds of movement get
// a new type, existing rows are never rewritten.
const (
	TxRetroactiveBonus = "RETROACTIVE_BONUS"
	TxProspectReward   = "PROSPECT_REWARD"
	TxReferralBonus    = "REFERRAL_BONUS"
	TxManualAdjustment = "MANUAL_ADJUSTMENT"
	TxManualPoints     = "MANUAL_POINTS"
	TxManualCash       = "MANUAL_CASH"
	TxManualAssignment = "MANUAL_ASSIGNMENT"
	TxAdjustment       = "ADJUSTMENT"
	TxPurchase         = "PURCHASE"
)

// Wallet is the per-user DiciPoints balance record. It is created implicitly
// on first credit and never deleted. Balance always equals the sum of the
// user's point transactions; EURBalanceCents the sum of the EUR ones.
type Wallet struct {
	UserID          string    `json:"user_id"`
	Balance         int64     `json:"balance"`
	TotalEarned     int64     `json:"total_earned"`
	TotalSpent      int64     `json:"total_spent"`
	EURBalanceCents int64     `json:"eur_balance_cents"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// WalletTransaction is one append-only ledger row. Corrections are new rows,
// never edits.
type WalletTransaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	AdminID     *string   `json:"admin_id,omitempty"`
	ReferralUID *string   `json:"referral_uid,omitempty"`
	MerchantID  *string   `json:"merchant_id,omitempty"`
	Meta        *string   `json:"meta,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
