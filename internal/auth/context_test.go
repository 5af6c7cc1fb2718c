package auth

import (
	"context"
	"testing"

	"github.com/dukerupert/smartshop/internal/model"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		SessionID: 3,
		Role:      model.RoleCompany,
		Name:      "Ana",
		Email:     "ana@example.com",
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
	if got.Role != model.RoleCompany {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleCompany)
	}
	if got.Name != "Ana" {
		t.Errorf("Name = %q, want %q", got.Name, "Ana")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestSessionID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{SessionID: 42})
	if SessionID(ctx) != 42 {
		t.Errorf("SessionID = %d, want 42", SessionID(ctx))
	}
	if SessionID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestHasRole(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{Role: model.RoleClient})
	if !HasRole(ctx, model.RoleAdmin, model.RoleClient) {
		t.Error("expected HasRole = true for client")
	}
	if HasRole(ctx, model.RoleAdmin) {
		t.Error("expected HasRole = false for admin only")
	}
	if HasRole(context.Background(), model.RoleClient) {
		t.Error("expected HasRole = false for missing context")
	}
}

func TestIsAdmin(t *testing.T) {
	if !IsAdmin(WithAuth(context.Background(), AuthContext{Role: model.RoleAdmin})) {
		t.Error("expected IsAdmin = true for admin role")
	}
	if IsAdmin(WithAuth(context.Background(), AuthContext{Role: model.RoleCompany})) {
		t.Error("expected IsAdmin = false for company role")
	}
	if IsAdmin(context.Background()) {
		t.Error("expected IsAdmin = false for missing context")
	}
}
