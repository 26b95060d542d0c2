package ledger

import (
	"time"

	"github.com/dicilo-app/dicilo/internal/metrics"
	"github.com/dicilo-app/dicilo/internal/model"
)

// WalletData is the read model behind the user-facing wallet view.
type WalletData struct {
	UserID          string                    `json:"user_id"`
	Balance         int64                     `json:"balance"`
	TotalEarned     int64                     `json:"total_earned"`
	TotalSpent      int64                     `json:"total_spent"`
	EURBalanceCents int64                     `json:"eur_balance_cents"`
	PointValue      float64                   `json:"point_value"`
	Transactions    []model.WalletTransaction `json:"transactions"`
}

// GetWalletData returns the current balances, the configured point-to-EUR
// rate and the 20 most recent transactions, newest first. Pure read; a
// missing wallet yields zeros rather than an error.
func (s *Service) GetWalletData(userID string) (*WalletData, error) {
	data := &WalletData{
		UserID:       userID,
		PointValue:   s.settings.PointValue(),
		Transactions: []model.WalletTransaction{},
	}

	w, err := s.wallets.Get(userID)
	if err != nil {
		return nil, err
	}
	if w != nil {
		data.Balance = w.Balance
		data.TotalEarned = w.TotalEarned
		data.TotalSpent = w.TotalSpent
		data.EURBalanceCents = w.EURBalanceCents
	}

	txs, err := s.wallets.ListTransactions(userID, recentTransactionLimit)
	if err != nil {
		return nil, err
	}
	if txs != nil {
		data.Transactions = txs
	}
	return data, nil
}

// FreelancerReport is the full transaction history of one freelancer,
// shaped for external PDF rendering.
type FreelancerReport struct {
	UserID       string                    `json:"user_id"`
	Email        string                    `json:"email"`
	DisplayName  string                    `json:"display_name"`
	UniqueCode   string                    `json:"unique_code"`
	Balance      int64                     `json:"balance"`
	TotalEarned  int64                     `json:"total_earned"`
	TotalSpent   int64                     `json:"total_spent"`
	PointValue   float64                   `json:"point_value"`
	Transactions []model.WalletTransaction `json:"transactions"`
	GeneratedAt  time.Time                 `json:"generated_at"`
}

// GetFreelancerReportData resolves the freelancer exactly like the
// reassignment flow and returns their complete history sorted newest-first
// in memory.
func (s *Service) GetFreelancerReportData(code, email, masterPassword string) (*FreelancerReport, Result) {
	if !s.verifier.Verify(masterPassword) {
		metrics.ObserveOp("freelancer_report", false)
		return nil, fail(authFailureMessage)
	}

	profile, err := s.profiles.GetByEmailAndCode(email, code)
	if err != nil {
		return nil, s.txFailure("freelancer_report", err)
	}
	if profile == nil {
		metrics.ObserveOp("freelancer_report", false)
		return nil, fail("No profile matches that email and code")
	}

	report := &FreelancerReport{
		UserID:       profile.UserID,
		Email:        profile.Email,
		DisplayName:  profile.DisplayName,
		UniqueCode:   profile.UniqueCode,
		PointValue:   s.settings.PointValue(),
		Transactions: []model.WalletTransaction{},
		GeneratedAt:  time.Now().UTC(),
	}

	w, err := s.wallets.Get(profile.UserID)
	if err != nil {
		return nil, s.txFailure("freelancer_report", err)
	}
	if w != nil {
		report.Balance = w.Balance
		report.TotalEarned = w.TotalEarned
		report.TotalSpent = w.TotalSpent
	}

	txs, err := s.wallets.ListAllTransactions(profile.UserID)
	if err != nil {
		return nil, s.txFailure("freelancer_report", err)
	}
	if txs != nil {
		sortNewestFirst(txs)
		report.Transactions = txs
	}

	metrics.ObserveOp("freelancer_report", true)
	return report, ok("Report generated")
}
