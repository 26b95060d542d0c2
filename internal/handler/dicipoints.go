package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dicilo-app/dicilo/internal/auth"
	"github.com/dicilo-app/dicilo/internal/ledger"
	"github.com/dicilo-app/dicilo/internal/revalidate"
)

// DicipointsHandler exposes the privileged DiciPoints operations to the
// admin back office. Each endpoint carries the master password in its body;
// the ledger verifies it before anything else. After a successful write the
// presentation layer is told to revalidate its cached wallet views;
// delivery is fire-and-forget, never a correctness dependency.
type DicipointsHandler struct {
	ledger *ledger.Service
	hub    *revalidate.Hub
	logger *slog.Logger
}

func NewDicipointsHandler(svc *ledger.Service, hub *revalidate.Hub, logger *slog.Logger) *DicipointsHandler {
	return &DicipointsHandler{ledger: svc, hub: hub, logger: logger}
}

func (h *DicipointsHandler) revalidateWallet(userHint string) {
	if h.hub == nil {
		return
	}
	h.hub.Broadcast(revalidate.Hint{
		Entity: "wallet",
		Action: "updated",
		ID:     userHint,
		Paths:  []string{"/dicipoints", "/admin/dicipoints"},
	})
}

func writeResult(w http.ResponseWriter, res ledger.Result) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

type registerProspectRequest struct {
	UserID     string `json:"user_id"`
	ProspectID string `json:"prospect_id"`
}

// RegisterProspect backfills the prospect reward for a recommendation whose
// referrer was matched after submission. The ledger does not re-check
// points_paid here, so the back office must call this at most once per
// prospect.
func (h *DicipointsHandler) RegisterProspect(w http.ResponseWriter, r *http.Request) {
	var req registerProspectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID == "" || req.ProspectID == "" {
		writeError(w, http.StatusBadRequest, "user_id and prospect_id are required")
		return
	}

	if err := h.ledger.RegisterNewProspect(req.UserID, req.ProspectID); err != nil {
		h.logger.Error("register prospect", "prospect", req.ProspectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register prospect")
		return
	}
	h.revalidateWallet(req.UserID)
	writeJSON(w, http.StatusOK, map[string]any{
		"credited": ledger.ProspectRewardPoints,
	})
}

type auditRequest struct {
	Email          string `json:"email"`
	UniqueCode     string `json:"unique_code"`
	MasterPassword string `json:"master_password"`
}

func (h *DicipointsHandler) Audit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res := h.ledger.AuditRetroactivePoints(req.Email, req.UniqueCode, req.MasterPassword)
	if res.Success {
		h.revalidateWallet("")
	}
	writeResult(w, res)
}

type reassignRequest struct {
	ProspectID     string `json:"prospect_id"`
	Email          string `json:"email"`
	Code           string `json:"code"`
	Points         int64  `json:"points"`
	MasterPassword string `json:"master_password"`
}

func (h *DicipointsHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res := h.ledger.ReassignProspect(ledger.ReassignInput{
		ProspectID:     req.ProspectID,
		Email:          req.Email,
		Code:           req.Code,
		Points:         req.Points,
		MasterPassword: req.MasterPassword,
		AdminID:        auth.AdminEmail(r.Context()),
	})
	if res.Success {
		h.revalidateWallet("")
	}
	writeResult(w, res)
}

type manualPaymentRequest struct {
	UserID          string `json:"user_id"`
	TargetEmail     string `json:"target_email"`
	TargetCode      string `json:"target_code"`
	PointsAmount    int64  `json:"points_amount"`
	CashAmountCents int64  `json:"cash_amount_cents"`
	Reason          string `json:"reason"`
	Note            string `json:"note"`
	Source          string `json:"source"`
	Date            string `json:"date"`
	MasterPassword  string `json:"master_password"`
}

func (h *DicipointsHandler) ManualPayment(w http.ResponseWriter, r *http.Request) {
	var req manualPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res := h.ledger.AdminProcessManualPayment(ledger.ManualPaymentInput{
		UserID:          req.UserID,
		TargetEmail:     req.TargetEmail,
		TargetCode:      req.TargetCode,
		PointsAmount:    req.PointsAmount,
		CashAmountCents: req.CashAmountCents,
		Reason:          req.Reason,
		Note:            req.Note,
		Source:          req.Source,
		Date:            req.Date,
		MasterPassword:  req.MasterPassword,
		AdminID:         auth.AdminEmail(r.Context()),
	})
	if res.Success {
		h.revalidateWallet(req.UserID)
	}
	writeResult(w, res)
}

type pointValueRequest struct {
	Value          float64 `json:"value"`
	MasterPassword string  `json:"master_password"`
}

func (h *DicipointsHandler) SetPointValue(w http.ResponseWriter, r *http.Request) {
	var req pointValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res := h.ledger.SetPointValue(req.Value, req.MasterPassword)
	if res.Success {
		h.revalidateWallet("")
	}
	writeResult(w, res)
}

type masterPasswordRequest struct {
	NewPassword     string `json:"new_password"`
	CurrentPassword string `json:"current_password"`
}

func (h *DicipointsHandler) SetMasterPassword(w http.ResponseWriter, r *http.Request) {
	var req masterPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	writeResult(w, h.ledger.SetMasterPassword(req.NewPassword, req.CurrentPassword))
}

type freelancerReportRequest struct {
	Code           string `json:"code"`
	Email          string `json:"email"`
	MasterPassword string `json:"master_password"`
}

func (h *DicipointsHandler) FreelancerReport(w http.ResponseWriter, r *http.Request) {
	var req freelancerReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	report, res := h.ledger.GetFreelancerReportData(req.Code, req.Email, req.MasterPassword)
	if !res.Success {
		writeResult(w, res)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
