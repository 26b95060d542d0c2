package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dicilo-app/dicilo/internal/auth"
	"github.com/dicilo-app/dicilo/internal/database"
	"github.com/dicilo-app/dicilo/internal/store"
)

func setupAuthMiddlewareDB(t *testing.T) *store.AdminStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewAdminStore(db)
}

func TestRequireAdminNoCookie(t *testing.T) {
	as := setupAuthMiddlewareDB(t)

	handler := RequireAdmin(as)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/admin/recommendations", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdminInvalidToken(t *testing.T) {
	as := setupAuthMiddlewareDB(t)

	handler := RequireAdmin(as)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/admin/recommendations", nil)
	req.AddCookie(&http.Cookie{Name: "dicilo_admin_session", Value: "bogus"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdminValidSession(t *testing.T) {
	as := setupAuthMiddlewareDB(t)

	admin, err := as.Create("admin@dicilo.app", "Admin", "correct horse")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	sess, err := as.CreateSession(admin.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var got auth.AdminContext
	var ok bool
	handler := RequireAdmin(as)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/admin/recommendations", nil)
	req.AddCookie(&http.Cookie{Name: "dicilo_admin_session", Value: sess.Token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !ok {
		t.Fatal("admin context not populated")
	}
	if got.AdminID != admin.ID || got.Email != "admin@dicilo.app" {
		t.Errorf("context = %+v", got)
	}
}
