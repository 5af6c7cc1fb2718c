package model

import (
	"strings"
	"time"
)

type ListStatus string

const (
	ListActive    ListStatus = "active"
	ListCompleted ListStatus = "completed"
)

// ParseListStatus accepts the English and Portuguese spellings the backend has used.
func ParseListStatus(s string) ListStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "concluida", "concluída":
		return ListCompleted
	}
	return ListActive
}

func (s ListStatus) Label() string {
	if s == ListCompleted {
		return "Concluída"
	}
	return "Ativa"
}

// LineItem is one purchased product line of a persisted list.
type LineItem struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Quantity        int     `json:"quantity"`
	Unity           string  `json:"unity"`
	UnitPrice       float64 `json:"unit_price"`
	MerchantID      int64   `json:"merchant_id"`
	MerchantName    string  `json:"merchant_name"`
	MerchantAddress string  `json:"merchant_address"`
	Category        string  `json:"category"`
	Completed       bool    `json:"completed"`
}

func (li LineItem) Subtotal() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

type ShoppingList struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Favorite  bool       `json:"favorite"`
	Optimized bool       `json:"optimized"`
	Status    ListStatus `json:"status"`
	Items     []LineItem `json:"items"`
	Total     float64    `json:"total"`
	CreatedAt time.Time  `json:"created_at"`
}

// ListSummary is a row of the "My Lists" listing.
type ListSummary struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Favorite         bool       `json:"favorite"`
	Status           ListStatus `json:"status"`
	Total            float64    `json:"total"`
	ProductsQuantity int        `json:"productsQuantity"`
}
