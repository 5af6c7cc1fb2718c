// Package auth carries the signed-in identity of a request through its
// context.
package auth

import (
	"context"

	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/session"
)

type contextKey struct{}

type AuthContext struct {
	SessionID int64
	Role      model.Role
	Name      string
	Email     string
	Points    *int
	// Entry is the browser's per-session state.
	Entry *session.Entry
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// FromEntry builds the context value for a signed-in entry.
func FromEntry(e *session.Entry) (AuthContext, bool) {
	id, ok := e.Store.Identity()
	if !ok {
		return AuthContext{}, false
	}
	return AuthContext{
		SessionID: e.Store.SessionID(),
		Role:      id.Role,
		Name:      id.Name,
		Email:     id.Email,
		Points:    id.Points,
		Entry:     e,
	}, true
}

func SessionID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.SessionID
}

// HasRole reports whether the request is signed in with one of roles.
func HasRole(ctx context.Context, roles ...model.Role) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	for _, r := range roles {
		if ac.Role == r {
			return true
		}
	}
	return false
}

func IsAdmin(ctx context.Context) bool {
	return HasRole(ctx, model.RoleAdmin)
}
