package auth

import "context"

type contextKey struct{}

// AdminContext identifies the authenticated back-office actor for a request.
type AdminContext struct {
	AdminID   int64
	Email     string
	SessionID int64
}

func WithAdmin(ctx context.Context, ac AdminContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AdminContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AdminContext)
	return ac, ok
}

// AdminEmail returns the acting admin's email, or "" when unauthenticated.
func AdminEmail(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.Email
}
