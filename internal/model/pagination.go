package model

// PaginationMeta is the backend's paging block for any listing.
type PaginationMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
	From        int `json:"from"`
	To          int `json:"to"`
}

// Page is one page of a listing.
type Page[T any] struct {
	Items []T
	Meta  PaginationMeta
}
