package model

import "time"

// Status values shared by the admin-managed entities.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusPending   = "pending"
	StatusSuspended = "suspended"
)

// StatusLabel returns the pt-BR label for an entity status.
func StatusLabel(status string) string {
	switch status {
	case StatusActive:
		return "Ativo"
	case StatusInactive:
		return "Inativo"
	case StatusPending:
		return "Pendente"
	case StatusSuspended:
		return "Suspenso"
	}
	return status
}

// Plan values for companies.
const (
	PlanBasic      = "basic"
	PlanPremium    = "premium"
	PlanEnterprise = "enterprise"
)

func PlanLabel(plan string) string {
	switch plan {
	case PlanBasic:
		return "Básico"
	case PlanPremium:
		return "Premium"
	case PlanEnterprise:
		return "Enterprise"
	}
	return plan
}

type Company struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	CNPJ          string     `json:"cnpj"`
	Website       string     `json:"website,omitempty"`
	Address       string     `json:"raw_address"`
	Phone         string     `json:"phone,omitempty"`
	Description   string     `json:"description,omitempty"`
	Plan          string     `json:"plan,omitempty"`
	Status        string     `json:"status"`
	Image         string     `json:"img,omitempty"`
	ProductsCount int        `json:"productsCount,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type AdminProduct struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Quantity     string     `json:"quantity"`
	Unity        string     `json:"unity"`
	SKU          string     `json:"sku"`
	AveragePrice float64    `json:"average_price"`
	Category     string     `json:"category"`
	Status       string     `json:"status"`
	Image        string     `json:"img,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CPF       string     `json:"cpf,omitempty"`
	Type      Role       `json:"type"`
	Status    string     `json:"status"`
	Companies []int64    `json:"companies,omitempty"`
	DeletedAt *time.Time `json:"deleted_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// SoftDeletable is implemented by entities with a nullable delete timestamp.
type SoftDeletable interface {
	EntityID() int64
	Deleted() bool
}

func (c Company) EntityID() int64      { return c.ID }
func (c Company) Deleted() bool        { return c.DeletedAt != nil }
func (p AdminProduct) EntityID() int64 { return p.ID }
func (p AdminProduct) Deleted() bool   { return p.DeletedAt != nil }
func (u User) EntityID() int64         { return u.ID }
func (u User) Deleted() bool           { return u.DeletedAt != nil }
