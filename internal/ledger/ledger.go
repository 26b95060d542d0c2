// Package ledger implements the DiciPoints reward triggers and the
// privileged administrative operations over the wallet store.
//
// Every balance-moving operation runs inside a single database transaction:
// a failure anywhere rolls the whole thing back, so callers never observe a
// credited wallet without its log row or a flipped prospect without its
// credit. Privileged operations never throw past their boundary; they
// return a Result with success=false instead.
package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dicilo-app/dicilo/internal/metrics"
	"github.com/dicilo-app/dicilo/internal/model"
	"github.com/dicilo-app/dicilo/internal/security"
	"github.com/dicilo-app/dicilo/internal/store"
)

// Reward amounts. The reassignment deduction is a fixed 10 regardless of
// what the original reward actually was; the historical lookup does not
// exist, so 10 is the safe default.
const (
	ProspectRewardPoints  = 10
	ReferralBonusPoints   = 50
	ReassignmentDeduction = 10
)

// recentTransactionLimit caps the history returned with wallet data.
const recentTransactionLimit = 20

// authFailureMessage is deliberately generic: it does not distinguish an
// unconfigured secret from a wrong password.
const authFailureMessage = "Invalid master password"

// Result is the outcome contract of every privileged operation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func ok(format string, args ...any) Result {
	return Result{Success: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Service is the only component allowed to move wallet balances.
type Service struct {
	db       *sql.DB
	wallets  *store.WalletStore
	recs     *store.RecommendationStore
	profiles *store.ProfileStore
	settings *store.SettingsStore
	verifier *security.Verifier
	logger   *slog.Logger
}

func NewService(
	db *sql.DB,
	wallets *store.WalletStore,
	recs *store.RecommendationStore,
	profiles *store.ProfileStore,
	settings *store.SettingsStore,
	verifier *security.Verifier,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:       db,
		wallets:  wallets,
		recs:     recs,
		profiles: profiles,
		settings: settings,
		verifier: verifier,
		logger:   logger,
	}
}

// inTx runs fn inside one transaction, committing only if fn succeeds.
func (s *Service) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// RegisterNewProspect credits the referrer's standard prospect reward and
// flips the prospect's points_paid flag in the same transaction.
//
// There is no internal re-check of points_paid: the caller contract is
// at-most-once invocation per prospect. Calling it twice for the same id
// double-credits.
func (s *Service) RegisterNewProspect(userID, prospectID string) error {
	err := s.inTx(func(tx *sql.Tx) error {
		desc := fmt.Sprintf("Reward for new prospect %s", prospectID)
		if err := s.wallets.Credit(tx, userID, ProspectRewardPoints, model.TxProspectReward, desc, store.TxOptions{}); err != nil {
			return err
		}
		return s.recs.MarkPaid(tx, prospectID, time.Now().UTC())
	})
	metrics.ObserveOp("register_prospect", err == nil)
	if err == nil {
		metrics.AddCredited(ProspectRewardPoints)
	}
	return err
}

// SubmitRecommendation stores a new prospect and, when a referrer is known,
// pays the prospect reward. Row creation, credit and points_paid flip all
// share one transaction, so a duplicate HTTP submission creates a fresh
// prospect rather than re-crediting an old one.
func (s *Service) SubmitRecommendation(userID *string, email, businessName, note string) (string, error) {
	var id string
	err := s.inTx(func(tx *sql.Tx) error {
		var err error
		id, err = s.recs.CreateTx(tx, userID, email, businessName, note)
		if err != nil {
			return err
		}
		if userID == nil {
			return nil
		}

		desc := fmt.Sprintf("Reward for new prospect %s", id)
		if err := s.wallets.Credit(tx, *userID, ProspectRewardPoints, model.TxProspectReward, desc, store.TxOptions{}); err != nil {
			return err
		}
		return s.recs.MarkPaid(tx, id, time.Now().UTC())
	})
	metrics.ObserveOp("submit_recommendation", err == nil)
	if err == nil && userID != nil {
		metrics.AddCredited(ProspectRewardPoints)
	}
	return id, err
}

// SyncReferralRewards pays the referral bonus for every referral in the
// user's profile that has no REFERRAL_BONUS row yet. The balance moves once
// (50 * n) while the log gets one row per referral. Calling it again with
// an unchanged profile writes nothing. Returns the number of referrals
// credited.
func (s *Service) SyncReferralRewards(userID string) (int, error) {
	profile, err := s.profiles.GetByUserID(userID)
	if err != nil {
		return 0, err
	}
	if profile == nil {
		return 0, fmt.Errorf("profile %s not found", userID)
	}

	ids, err := profile.ReferralIDs()
	if err != nil {
		return 0, fmt.Errorf("parse referrals: %w", err)
	}

	rewarded, err := s.wallets.RewardedReferralUIDs(userID)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool)
	var unpaid []string
	for _, id := range ids {
		if rewarded[id] || seen[id] {
			continue
		}
		seen[id] = true
		unpaid = append(unpaid, id)
	}

	if len(unpaid) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	total := int64(ReferralBonusPoints) * int64(len(unpaid))

	err = s.inTx(func(tx *sql.Tx) error {
		if err := s.wallets.AddEarned(tx, userID, total, now); err != nil {
			return err
		}
		for _, uid := range unpaid {
			uid := uid
			desc := fmt.Sprintf("Referral bonus for %s", uid)
			opt := store.TxOptions{At: now, ReferralUID: &uid}
			if err := s.wallets.AppendTransaction(tx, userID, ReferralBonusPoints, model.TxReferralBonus, desc, opt); err != nil {
				return err
			}
		}
		return nil
	})
	metrics.ObserveOp("sync_referrals", err == nil)
	if err != nil {
		return 0, err
	}
	metrics.AddCredited(total)
	return len(unpaid), nil
}

// ProcessQrPayment debits a merchant purchase and returns the remaining
// balance for the receipt. Insufficient balance and missing wallet are pure
// rejections; nothing is written.
func (s *Service) ProcessQrPayment(userID, merchantID string, amountPoints int64) (int64, error) {
	var newBalance int64
	err := s.inTx(func(tx *sql.Tx) error {
		desc := fmt.Sprintf("Purchase at merchant %s", merchantID)
		opt := store.TxOptions{MerchantID: &merchantID}
		var err error
		newBalance, err = s.wallets.Debit(tx, userID, amountPoints, model.TxPurchase, desc, opt)
		return err
	})
	metrics.ObserveOp("qr_payment", err == nil)
	if err != nil {
		return 0, err
	}
	metrics.AddDebited(amountPoints)
	return newBalance, nil
}

// AuditRetroactivePoints resolves a freelancer by email plus unique code,
// gathers every prospect owned by them or carrying their email, and pays the
// standard reward for each one that was never credited, all in one commit.
func (s *Service) AuditRetroactivePoints(email, uniqueCode, masterPassword string) Result {
	if !s.verifier.Verify(masterPassword) {
		metrics.ObserveOp("retroactive_audit", false)
		return fail(authFailureMessage)
	}

	profile, err := s.profiles.GetByEmailAndCode(email, uniqueCode)
	if err != nil {
		return s.txFailure("retroactive_audit", err)
	}
	if profile == nil {
		metrics.ObserveOp("retroactive_audit", false)
		return fail("No profile matches that email and code")
	}

	recs, err := s.recs.ListForReferrer(profile.UserID, profile.Email)
	if err != nil {
		return s.txFailure("retroactive_audit", err)
	}

	var unpaid []model.Recommendation
	for _, r := range recs {
		if !r.PointsPaid {
			unpaid = append(unpaid, r)
		}
	}

	if len(unpaid) == 0 {
		metrics.ObserveOp("retroactive_audit", true)
		return ok("No pending prospects to credit")
	}

	now := time.Now().UTC()
	total := int64(ProspectRewardPoints) * int64(len(unpaid))

	err = s.inTx(func(tx *sql.Tx) error {
		desc := fmt.Sprintf("Retroactive reward for %d prospects", len(unpaid))
		if err := s.wallets.Credit(tx, profile.UserID, total, model.TxRetroactiveBonus, desc, store.TxOptions{At: now}); err != nil {
			return err
		}
		for _, r := range unpaid {
			originalOwner := model.OrphanedOwnerSentinel
			if r.UserID != nil && *r.UserID != "" {
				originalOwner = *r.UserID
			}
			if err := s.recs.MarkPaidWithOwner(tx, r.ID, profile.UserID, originalOwner, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.txFailure("retroactive_audit", err)
	}

	metrics.ObserveOp("retroactive_audit", true)
	metrics.AddCredited(total)
	return ok("Credited %d points for %d prospects", total, len(unpaid))
}

// ReassignInput carries a manual prospect-ownership reassignment.
type ReassignInput struct {
	ProspectID     string
	Email          string
	Code           string
	Points         int64
	MasterPassword string
	AdminID        string
}

// ReassignProspect moves a prospect to the freelancer resolved by email and
// code, crediting them the administrator-chosen amount. If the prospect had
// already been paid to a different owner, that owner loses the fixed
// 10-point deduction unconditionally, even below zero. Total points in
// circulation change by Points-10 (or Points when there was no prior paid
// owner); valuing a reassigned lead differently from the standard reward is
// the point of the flexible amount.
func (s *Service) ReassignProspect(in ReassignInput) Result {
	if !s.verifier.Verify(in.MasterPassword) {
		metrics.ObserveOp("reassign_prospect", false)
		return fail(authFailureMessage)
	}

	if in.Points <= 0 {
		metrics.ObserveOp("reassign_prospect", false)
		return fail("Points amount must be positive")
	}

	newOwner, err := s.profiles.GetByEmailAndCode(in.Email, in.Code)
	if err != nil {
		return s.txFailure("reassign_prospect", err)
	}
	if newOwner == nil {
		metrics.ObserveOp("reassign_prospect", false)
		return fail("No profile matches that email and code")
	}

	rec, err := s.recs.GetByID(in.ProspectID)
	if err != nil {
		return s.txFailure("reassign_prospect", err)
	}
	if rec == nil {
		metrics.ObserveOp("reassign_prospect", false)
		return fail("Prospect %s not found", in.ProspectID)
	}

	now := time.Now().UTC()
	deductOld := rec.PointsPaid && rec.UserID != nil && *rec.UserID != newOwner.UserID

	err = s.inTx(func(tx *sql.Tx) error {
		if err := s.recs.Reassign(tx, rec.ID, newOwner.UserID, in.AdminID, rec.UserID, now); err != nil {
			return err
		}

		if deductOld {
			desc := fmt.Sprintf("Prospect %s reassigned to another freelancer", rec.ID)
			opt := store.TxOptions{At: now, AdminID: adminRef(in.AdminID)}
			if err := s.wallets.Adjust(tx, *rec.UserID, -ReassignmentDeduction, model.TxAdjustment, desc, opt); err != nil {
				return err
			}
		}

		desc := fmt.Sprintf("Manual assignment of prospect %s", rec.ID)
		opt := store.TxOptions{At: now, AdminID: adminRef(in.AdminID)}
		return s.wallets.Credit(tx, newOwner.UserID, in.Points, model.TxManualAssignment, desc, opt)
	})
	if err != nil {
		return s.txFailure("reassign_prospect", err)
	}

	metrics.ObserveOp("reassign_prospect", true)
	metrics.AddCredited(in.Points)
	return ok("Prospect reassigned; credited %d points", in.Points)
}

// ManualPaymentInput is the cash-register payload. The points and cash legs
// are independent; either, both, or neither may be present.
type ManualPaymentInput struct {
	UserID          string
	TargetEmail     string
	TargetCode      string // optional; matches either stored code field
	PointsAmount    int64  // signed
	CashAmountCents int64  // signed, EUR cents
	Reason          string
	Note            string
	Source          string
	Date            string // optional ISO date for backdating
	MasterPassword  string
	AdminID         string
}

// AdminProcessManualPayment applies a manual cash-register operation after a
// triple identity check: the profile must exist, its stored email must equal
// the claimed one, and a supplied code must match one of the two code
// fields. Any mismatch aborts with no writes.
func (s *Service) AdminProcessManualPayment(in ManualPaymentInput) Result {
	if !s.verifier.Verify(in.MasterPassword) {
		metrics.ObserveOp("manual_payment", false)
		return fail(authFailureMessage)
	}

	profile, err := s.profiles.GetByUserID(in.UserID)
	if err != nil {
		return s.txFailure("manual_payment", err)
	}
	if profile == nil {
		metrics.ObserveOp("manual_payment", false)
		return fail("Profile %s not found", in.UserID)
	}
	if profile.Email != in.TargetEmail {
		metrics.ObserveOp("manual_payment", false)
		return fail("Email does not match the target profile")
	}
	if in.TargetCode != "" && in.TargetCode != profile.UniqueCode && in.TargetCode != profile.PromoterCode {
		metrics.ObserveOp("manual_payment", false)
		return fail("Code does not match the target profile")
	}

	at := time.Now().UTC()
	if in.Date != "" {
		parsed, err := parseISODate(in.Date)
		if err != nil {
			metrics.ObserveOp("manual_payment", false)
			return fail("Invalid date %q", in.Date)
		}
		at = parsed
	}

	meta := manualPaymentMeta(in.Reason, in.Note, in.Source)

	err = s.inTx(func(tx *sql.Tx) error {
		if err := s.wallets.Touch(tx, in.UserID, at); err != nil {
			return err
		}

		if in.PointsAmount != 0 {
			desc := fmt.Sprintf("Manual points operation (%s)", in.Reason)
			opt := store.TxOptions{At: at, AdminID: adminRef(in.AdminID), Meta: meta}
			if err := s.wallets.Adjust(tx, in.UserID, in.PointsAmount, model.TxManualPoints, desc, opt); err != nil {
				return err
			}
		}

		if in.CashAmountCents != 0 {
			desc := fmt.Sprintf("Manual cash operation (%s)", in.Reason)
			opt := store.TxOptions{At: at, AdminID: adminRef(in.AdminID), Meta: meta, Currency: model.CurrencyEUR}
			if err := s.wallets.Adjust(tx, in.UserID, in.CashAmountCents, model.TxManualCash, desc, opt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.txFailure("manual_payment", err)
	}

	metrics.ObserveOp("manual_payment", true)
	metrics.AddCredited(in.PointsAmount)
	return ok("Manual payment recorded")
}

// SetPointValue updates the EUR value of one DiciPoint.
func (s *Service) SetPointValue(value float64, masterPassword string) Result {
	if !s.verifier.Verify(masterPassword) {
		return fail(authFailureMessage)
	}
	if value <= 0 {
		return fail("Point value must be positive")
	}
	if err := s.settings.SetPointValue(value); err != nil {
		return s.txFailure("set_point_value", err)
	}
	return ok("Point value updated")
}

// SetMasterPassword rotates the master password. The current one (or the
// bootstrap environment fallback) must be presented first.
func (s *Service) SetMasterPassword(newPassword, currentPassword string) Result {
	if !s.verifier.Verify(currentPassword) {
		return fail(authFailureMessage)
	}
	if err := s.verifier.SetSecret(newPassword); err != nil {
		if errors.Is(err, security.ErrSecretTooShort) {
			return fail("Master password must be at least 6 characters")
		}
		return s.txFailure("set_master_password", err)
	}
	return ok("Master password updated")
}

// txFailure converts an unexpected store/commit error into the generic
// failure result, keeping the underlying message for diagnostics.
func (s *Service) txFailure(op string, err error) Result {
	s.logger.Error("ledger operation failed", "op", op, "error", err)
	metrics.ObserveOp(op, false)
	return fail("Operation failed: %v", err)
}

func adminRef(adminID string) *string {
	if adminID == "" {
		return nil
	}
	return &adminID
}

func manualPaymentMeta(reason, note, source string) *string {
	if reason == "" && note == "" && source == "" {
		return nil
	}
	raw, err := json.Marshal(map[string]string{
		"reason": reason,
		"note":   note,
		"source": source,
	})
	if err != nil {
		return nil
	}
	meta := string(raw)
	return &meta
}

// parseISODate accepts a full RFC 3339 timestamp or a bare date.
func parseISODate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// sortNewestFirst orders transactions by created_at descending in memory.
// The reporting paths deliberately avoid a composite index on
// (user_id, created_at); history sizes are small enough that sorting here
// is fine.
func sortNewestFirst(txs []model.WalletTransaction) {
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
