package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dicilo-app/dicilo/internal/ledger"
	"github.com/dicilo-app/dicilo/internal/store"
)

// WalletHandler serves the user-facing wallet surface: balance view,
// referral sync, prospect submission, and QR merchant payments.
type WalletHandler struct {
	ledger *ledger.Service
	logger *slog.Logger
}

func NewWalletHandler(svc *ledger.Service, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{ledger: svc, logger: logger}
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	data, err := h.ledger.GetWalletData(userID)
	if err != nil {
		h.logger.Error("get wallet data", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load wallet")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *WalletHandler) SyncReferrals(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	credited, err := h.ledger.SyncReferralRewards(userID)
	if err != nil {
		h.logger.Error("sync referrals", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sync referral rewards")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"credited_referrals":  credited,
		"points_per_referral": ledger.ReferralBonusPoints,
	})
}

type qrPaymentRequest struct {
	UserID     string `json:"user_id"`
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
}

func (h *WalletHandler) QrPayment(w http.ResponseWriter, r *http.Request) {
	var req qrPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.UserID == "" || req.MerchantID == "" {
		writeError(w, http.StatusBadRequest, "user_id and merchant_id are required")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	newBalance, err := h.ledger.ProcessQrPayment(req.UserID, req.MerchantID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNoWallet):
			writeError(w, http.StatusNotFound, "wallet not found")
		case errors.Is(err, store.ErrInsufficientBalance):
			writeError(w, http.StatusUnprocessableEntity, "insufficient balance")
		default:
			h.logger.Error("qr payment", "user", req.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "payment failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"new_balance": newBalance})
}

type recommendationRequest struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	BusinessName string `json:"business_name"`
	Note         string `json:"note"`
}

// SubmitRecommendation records a new prospect. When a referrer uid is
// present the standard prospect reward is credited in the same transaction.
func (h *WalletHandler) SubmitRecommendation(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	var userID *string
	if req.UserID != "" {
		userID = &req.UserID
	}

	id, err := h.ledger.SubmitRecommendation(userID, req.Email, req.BusinessName, req.Note)
	if err != nil {
		h.logger.Error("submit recommendation", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit recommendation")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
