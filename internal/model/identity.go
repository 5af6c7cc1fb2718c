package model

import "fmt"

// Role is the closed set of account kinds the backend issues tokens for.
type Role string

const (
	RoleClient  Role = "client"
	RoleCompany Role = "company"
	RoleAdmin   Role = "admin"
)

// Roles lists every role in display order.
var Roles = []Role{RoleClient, RoleCompany, RoleAdmin}

// ParseRole validates s against the closed role set.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleClient, RoleCompany, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Label() string {
	switch r {
	case RoleClient:
		return "Cliente"
	case RoleCompany:
		return "Empresa"
	case RoleAdmin:
		return "Administrador"
	}
	return string(r)
}

// Identity is the authenticated account as reported by the backend.
type Identity struct {
	Role   Role   `json:"type"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Points *int   `json:"points,omitempty"`
}
