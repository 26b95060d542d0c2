package middleware

import (
	"net/http"

	"github.com/dicilo-app/dicilo/internal/auth"
	"github.com/dicilo-app/dicilo/internal/store"
)

const sessionCookieName = "dicilo_admin_session"

// RequireAdmin validates the admin session cookie and populates
// AdminContext. API clients get a plain 401; there is no login page to
// redirect to.
func RequireAdmin(admins *store.AdminStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := admins.GetSessionByToken(cookie.Value)
			if err != nil || sess == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			admin, err := admins.GetByID(sess.AdminID)
			if err != nil || admin == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ac := auth.AdminContext{
				AdminID:   admin.ID,
				Email:     admin.Email,
				SessionID: sess.ID,
			}

			ctx := auth.WithAdmin(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
