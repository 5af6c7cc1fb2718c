package model

// Product is a catalogue entry offered to the shopping-list builder.
type Product struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	AveragePrice float64 `json:"average_price"`
	Category     string  `json:"category"`
	Unity        string  `json:"unity"`
	UnityID      int64   `json:"unity_id"`
	IsFavorite   bool    `json:"isFavorite"`
	Image        string  `json:"img,omitempty"`
}

type Unity struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

type Category struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}
