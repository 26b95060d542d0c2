package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dicilo-app/dicilo/internal/model"
)

// Ledger failure sentinels. Callers branch with errors.Is; both mean the
// transaction was rolled back with no writes.
var (
	ErrNoWallet            = errors.New("wallet does not exist")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx. Ledger
// primitives take it so multi-table operations can run inside one
// transaction owned by the caller.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// WalletStore owns the wallets table and its append-only transaction log.
// No other component writes balance, total_earned or eur_balance_cents.
type WalletStore struct {
	db *sql.DB
}

func NewWalletStore(db *sql.DB) *WalletStore {
	return &WalletStore{db: db}
}

// TxOptions carries the optional annotations of a ledger movement.
type TxOptions struct {
	// At backdates the movement; zero means now.
	At          time.Time
	Currency    string
	AdminID     *string
	ReferralUID *string
	MerchantID  *string
	Meta        *string
}

func (o TxOptions) at() time.Time {
	if o.At.IsZero() {
		return time.Now().UTC()
	}
	return o.At
}

func (o TxOptions) currency() string {
	if o.Currency == "" {
		return model.CurrencyPoints
	}
	return o.Currency
}

func scanWallet(scanner interface{ Scan(...any) error }) (*model.Wallet, error) {
	var w model.Wallet
	err := scanner.Scan(
		&w.UserID, &w.Balance, &w.TotalEarned, &w.TotalSpent,
		&w.EURBalanceCents, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

const walletCols = `user_id, balance, total_earned, total_spent, eur_balance_cents, updated_at`

// Get returns the wallet for a user, or nil if none exists yet.
func (s *WalletStore) Get(userID string) (*model.Wallet, error) {
	return s.GetTx(s.db, userID)
}

// GetTx reads the wallet through q, observing uncommitted writes when q is
// an open transaction.
func (s *WalletStore) GetTx(q DBTX, userID string) (*model.Wallet, error) {
	row := q.QueryRow(`SELECT `+walletCols+` FROM wallets WHERE user_id = ?`, userID)
	w, err := scanWallet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

// Credit adds amount (> 0) points to the user's wallet, creating it if
// needed, and appends one log row. Balance and total_earned both grow.
func (s *WalletStore) Credit(q DBTX, userID string, amount int64, txType, description string, opt TxOptions) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	if err := s.AddEarned(q, userID, amount, opt.at()); err != nil {
		return err
	}
	return s.AppendTransaction(q, userID, amount, txType, description, opt)
}

// AddEarned applies the balance/total_earned increment of a credit without
// writing a log row. Callers that fan one balance increment out into several
// log rows (referral sync) use it with AppendTransaction; everything else
// goes through Credit.
func (s *WalletStore) AddEarned(q DBTX, userID string, amount int64, at time.Time) error {
	_, err := q.Exec(
		`INSERT INTO wallets (user_id, balance, total_earned, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   balance = balance + excluded.balance,
		   total_earned = total_earned + excluded.total_earned,
		   updated_at = excluded.updated_at`,
		userID, amount, amount, at,
	)
	if err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}
	return nil
}

// Debit removes amount (> 0) points and bumps total_spent, appending a
// negative log row. Returns the post-debit balance. Fails with ErrNoWallet
// or ErrInsufficientBalance without writing anything.
func (s *WalletStore) Debit(q DBTX, userID string, amount int64, txType, description string, opt TxOptions) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	w, err := s.GetTx(q, userID)
	if err != nil {
		return 0, err
	}
	if w == nil {
		return 0, ErrNoWallet
	}
	if w.Balance < amount {
		return 0, ErrInsufficientBalance
	}

	now := opt.at()
	_, err = q.Exec(
		`UPDATE wallets SET balance = balance - ?, total_spent = total_spent + ?, updated_at = ? WHERE user_id = ?`,
		amount, amount, now, userID,
	)
	if err != nil {
		return 0, fmt.Errorf("debit wallet: %w", err)
	}

	if err := s.AppendTransaction(q, userID, -amount, txType, description, opt); err != nil {
		return 0, err
	}
	return w.Balance - amount, nil
}

// Adjust applies a signed delta. Positive deltas also grow total_earned;
// negative ones never shrink it, and may drive the balance negative.
// EUR-denominated adjustments hit the eur_balance_cents bucket instead.
func (s *WalletStore) Adjust(q DBTX, userID string, amount int64, txType, description string, opt TxOptions) error {
	now := opt.at()

	var earnedDelta int64
	if amount > 0 {
		earnedDelta = amount
	}

	balanceCol := "balance"
	if opt.currency() == model.CurrencyEUR {
		balanceCol = "eur_balance_cents"
		earnedDelta = 0
	}

	_, err := q.Exec(
		`INSERT INTO wallets (user_id, `+balanceCol+`, total_earned, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   `+balanceCol+` = `+balanceCol+` + excluded.`+balanceCol+`,
		   total_earned = total_earned + excluded.total_earned,
		   updated_at = excluded.updated_at`,
		userID, amount, earnedDelta, now,
	)
	if err != nil {
		return fmt.Errorf("adjust wallet: %w", err)
	}

	return s.AppendTransaction(q, userID, amount, txType, description, opt)
}

// Touch makes sure the wallet row exists and stamps updated_at, without
// moving any balance.
func (s *WalletStore) Touch(q DBTX, userID string, at time.Time) error {
	_, err := q.Exec(
		`INSERT INTO wallets (user_id, updated_at) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET updated_at = excluded.updated_at`,
		userID, at,
	)
	if err != nil {
		return fmt.Errorf("touch wallet: %w", err)
	}
	return nil
}

// AppendTransaction writes one log row. The row is immutable once written;
// corrections are new rows.
func (s *WalletStore) AppendTransaction(q DBTX, userID string, amount int64, txType, description string, opt TxOptions) error {
	_, err := q.Exec(
		`INSERT INTO wallet_transactions
		   (id, user_id, amount, currency, type, description, admin_id, referral_uid, merchant_id, meta, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID, amount, opt.currency(), txType, description,
		opt.AdminID, opt.ReferralUID, opt.MerchantID, opt.Meta, opt.at(),
	)
	if err != nil {
		return fmt.Errorf("append wallet transaction: %w", err)
	}
	return nil
}

func scanWalletTransaction(scanner interface{ Scan(...any) error }) (*model.WalletTransaction, error) {
	var t model.WalletTransaction
	var adminID, referralUID, merchantID, meta sql.NullString

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Amount, &t.Currency, &t.Type, &t.Description,
		&adminID, &referralUID, &merchantID, &meta, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if adminID.Valid {
		t.AdminID = &adminID.String
	}
	if referralUID.Valid {
		t.ReferralUID = &referralUID.String
	}
	if merchantID.Valid {
		t.MerchantID = &merchantID.String
	}
	if meta.Valid {
		t.Meta = &meta.String
	}
	return &t, nil
}

const walletTxCols = `id, user_id, amount, currency, type, description, admin_id, referral_uid, merchant_id, meta, created_at`

// ListTransactions returns the user's most recent transactions newest-first.
// limit <= 0 means no limit.
func (s *WalletStore) ListTransactions(userID string, limit int) ([]model.WalletTransaction, error) {
	query := `SELECT ` + walletTxCols + ` FROM wallet_transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.WalletTransaction
	for rows.Next() {
		t, err := scanWalletTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// ListAllTransactions returns the user's full history in store order, for
// callers that sort in memory.
func (s *WalletStore) ListAllTransactions(userID string) ([]model.WalletTransaction, error) {
	rows, err := s.db.Query(
		`SELECT `+walletTxCols+` FROM wallet_transactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.WalletTransaction
	for rows.Next() {
		t, err := scanWalletTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

// RewardedReferralUIDs returns the set of referral uids that already have a
// REFERRAL_BONUS row for this user.
func (s *WalletStore) RewardedReferralUIDs(userID string) (map[string]bool, error) {
	rows, err := s.db.Query(
		`SELECT referral_uid FROM wallet_transactions
		 WHERE user_id = ? AND type = ? AND referral_uid IS NOT NULL`,
		userID, model.TxReferralBonus,
	)
	if err != nil {
		return nil, fmt.Errorf("list rewarded referrals: %w", err)
	}
	defer rows.Close()

	rewarded := make(map[string]bool)
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan referral uid: %w", err)
		}
		rewarded[uid] = true
	}
	return rewarded, rows.Err()
}

// CountTransactions returns the total number of log rows across all users.
func (s *WalletStore) CountTransactions() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM wallet_transactions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count wallet transactions: %w", err)
	}
	return n, nil
}
