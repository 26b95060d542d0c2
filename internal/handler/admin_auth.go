package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dicilo-app/dicilo/internal/store"
)

const sessionCookieName = "dicilo_admin_session"

// AdminAuthHandler handles back-office login and logout.
type AdminAuthHandler struct {
	admins *store.AdminStore
	logger *slog.Logger
	secure bool
}

func NewAdminAuthHandler(admins *store.AdminStore, secure bool, logger *slog.Logger) *AdminAuthHandler {
	return &AdminAuthHandler{admins: admins, secure: secure, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	admin, err := h.admins.Authenticate(req.Email, req.Password)
	if err != nil {
		h.logger.Error("admin login", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if admin == nil {
		// Same response for unknown email and wrong password
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess, err := h.admins.CreateSession(admin.ID)
	if err != nil {
		h.logger.Error("create admin session", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, admin)
}

func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if err := h.admins.DeleteSession(cookie.Value); err != nil {
			h.logger.Error("delete admin session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}
