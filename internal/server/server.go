// Package server wires stores, the ledger service, and HTTP handlers into a
// single router.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dicilo-app/dicilo/internal/handler"
	"github.com/dicilo-app/dicilo/internal/ledger"
	"github.com/dicilo-app/dicilo/internal/middleware"
	"github.com/dicilo-app/dicilo/internal/revalidate"
	"github.com/dicilo-app/dicilo/internal/security"
	"github.com/dicilo-app/dicilo/internal/store"
)

type Server struct {
	db  *sql.DB
	hub *revalidate.Hub

	walletH     *handler.WalletHandler
	dicipointsH *handler.DicipointsHandler
	businessH   *handler.BusinessHandler
	categoryH   *handler.CategoryHandler
	recH        *handler.RecommendationHandler
	adminAuthH  *handler.AdminAuthHandler

	adminStore  *store.AdminStore
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New builds the full application graph on top of an open database handle.
// secureCookies should be true whenever the server sits behind TLS.
func New(db *sql.DB, secureCookies bool, logger *slog.Logger) *Server {
	hub := revalidate.NewHub(logger.With("component", "revalidate"))

	walletStore := store.NewWalletStore(db)
	recStore := store.NewRecommendationStore(db)
	profileStore := store.NewProfileStore(db)
	settingsStore := store.NewSettingsStore(db)
	businessStore := store.NewBusinessStore(db)
	categoryStore := store.NewCategoryStore(db)
	adminStore := store.NewAdminStore(db)

	verifier := security.NewVerifier(settingsStore, store.KeyMasterPassword)
	ledgerSvc := ledger.NewService(db, walletStore, recStore, profileStore,
		settingsStore, verifier, logger.With("component", "ledger"))

	return &Server{
		db:          db,
		hub:         hub,
		walletH:     handler.NewWalletHandler(ledgerSvc, logger.With("component", "wallet")),
		dicipointsH: handler.NewDicipointsHandler(ledgerSvc, hub, logger.With("component", "dicipoints")),
		businessH:   handler.NewBusinessHandler(businessStore, categoryStore, hub, logger.With("component", "business")),
		categoryH:   handler.NewCategoryHandler(categoryStore, logger.With("component", "category")),
		recH:        handler.NewRecommendationHandler(recStore, logger.With("component", "recommendation")),
		adminAuthH:  handler.NewAdminAuthHandler(adminStore, secureCookies, logger.With("component", "admin_auth")),
		adminStore:  adminStore,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Hub returns the revalidation hub so background components can broadcast.
func (s *Server) Hub() *revalidate.Hub {
	return s.hub
}

// AdminStore returns the admin store for session cleanup tasks.
func (s *Server) AdminStore() *store.AdminStore {
	return s.adminStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public surface
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /ws", revalidate.Handler(s.hub, s.logger.With("component", "ws")))

	mux.HandleFunc("GET /api/businesses", s.businessH.List)
	mux.HandleFunc("GET /api/businesses/{id}", s.businessH.Get)
	mux.HandleFunc("GET /api/categories", s.categoryH.List)
	mux.HandleFunc("POST /api/recommendations", s.walletH.SubmitRecommendation)

	mux.HandleFunc("GET /api/wallet/{id}", s.walletH.Get)
	mux.HandleFunc("POST /api/wallet/{id}/sync-referrals", s.walletH.SyncReferrals)
	mux.HandleFunc("POST /api/payments/qr", s.walletH.QrPayment)

	// Admin session endpoints
	mux.HandleFunc("POST /admin/login", s.rateLimited(s.adminAuthH.Login, 10))
	mux.HandleFunc("POST /admin/logout", s.adminAuthH.Logout)

	// Admin API behind session auth
	adminMux := http.NewServeMux()
	s.registerAdminRoutes(adminMux)

	requireAdmin := middleware.RequireAdmin(s.adminStore)
	mux.Handle("/api/admin/", requireAdmin(adminMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) registerAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/admin/businesses", s.businessH.Create)
	mux.HandleFunc("PUT /api/admin/businesses/{id}", s.businessH.Update)
	mux.HandleFunc("DELETE /api/admin/businesses/{id}", s.businessH.Delete)

	mux.HandleFunc("POST /api/admin/categories", s.categoryH.Create)
	mux.HandleFunc("PUT /api/admin/categories/{id}", s.categoryH.Update)
	mux.HandleFunc("DELETE /api/admin/categories/{id}", s.categoryH.Delete)

	mux.HandleFunc("GET /api/admin/recommendations", s.recH.List)
	mux.HandleFunc("GET /api/admin/recommendations/{id}", s.recH.Get)

	// DiciPoints privileged operations. Session auth is not enough here;
	// every one of these re-verifies the master password in the payload.
	mux.HandleFunc("POST /api/admin/dicipoints/register-prospect", s.rateLimited(s.dicipointsH.RegisterProspect, 20))
	mux.HandleFunc("POST /api/admin/dicipoints/audit", s.rateLimited(s.dicipointsH.Audit, 20))
	mux.HandleFunc("POST /api/admin/dicipoints/reassign", s.rateLimited(s.dicipointsH.Reassign, 20))
	mux.HandleFunc("POST /api/admin/dicipoints/manual-payment", s.rateLimited(s.dicipointsH.ManualPayment, 20))
	mux.HandleFunc("POST /api/admin/dicipoints/point-value", s.rateLimited(s.dicipointsH.SetPointValue, 20))
	mux.HandleFunc("POST /api/admin/dicipoints/master-password", s.rateLimited(s.dicipointsH.SetMasterPassword, 5))
	mux.HandleFunc("POST /api/admin/reports/freelancer", s.rateLimited(s.dicipointsH.FreelancerReport, 20))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc, limit int) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, limit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
