package auth

import (
	"context"
	"testing"
)

func TestWithAdminAndFromContext(t *testing.T) {
	ac := AdminContext{
		AdminID:   1,
		Email:     "admin@dicilo.app",
		SessionID: 3,
	}

	ctx := WithAdmin(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AdminContext in context")
	}
	if got.AdminID != 1 {
		t.Errorf("AdminID = %d, want 1", got.AdminID)
	}
	if got.Email != "admin@dicilo.app" {
		t.Errorf("Email = %q", got.Email)
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AdminContext")
	}
}

func TestAdminEmail(t *testing.T) {
	ctx := WithAdmin(context.Background(), AdminContext{Email: "ops@dicilo.app"})
	if AdminEmail(ctx) != "ops@dicilo.app" {
		t.Errorf("AdminEmail = %q", AdminEmail(ctx))
	}
	if AdminEmail(context.Background()) != "" {
		t.Error("expected empty email for missing context")
	}
}
