package forms

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/format"
	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/validation"
)

// ProductStatuses are the statuses offered by the product form.
var ProductStatuses = []string{model.StatusActive, model.StatusInactive}

type Product struct {
	Name         string `form:"name" validate:"required,max=255"`
	Quantity     string `form:"quantity" validate:"required"`
	Unity        string `form:"unity" validate:"required"`
	SKU          string `form:"sku"`
	AveragePrice string `form:"average_price" validate:"omitempty,numeric"`
	Category     string `form:"category" validate:"required"`
	Status       string `form:"status" validate:"required,oneof=active inactive"`
	Image        Image  `form:"-" validate:"-"`
}

func NewProduct() Product {
	return Product{Status: model.StatusActive}
}

func ProductFrom(p model.AdminProduct, assetOrigin string) Product {
	price := ""
	if p.AveragePrice != 0 {
		price = strconv.FormatFloat(p.AveragePrice, 'f', 2, 64)
	}
	return Product{
		Name:         p.Name,
		Quantity:     p.Quantity,
		Unity:        p.Unity,
		SKU:          p.SKU,
		AveragePrice: price,
		Category:     p.Category,
		Status:       p.Status,
		Image:        Image{URL: format.FullImageURL(assetOrigin, p.Image)},
	}
}

// DecodeProduct reads the submitted product form. A decimal comma in the
// price is accepted.
func DecodeProduct(r *http.Request) (Product, error) {
	img, err := ReadImage(r, ImageField)
	p := Product{
		Name:         value(r, "name"),
		Quantity:     value(r, "quantity"),
		Unity:        value(r, "unity"),
		SKU:          value(r, "sku"),
		AveragePrice: strings.ReplaceAll(value(r, "average_price"), ",", "."),
		Category:     value(r, "category"),
		Status:       value(r, "status"),
		Image:        img,
	}
	if p.Category == "" && p.Name != "" {
		p.Category = SuggestCategory(p.Name)
	}
	return p, err
}

func (p Product) Validate(v *validation.Validator) error {
	return v.Validate(p)
}

func (p Product) Payload() api.Payload {
	fields := map[string]any{
		"name":     p.Name,
		"quantity": p.Quantity,
		"unity":    p.Unity,
		"sku":      p.SKU,
		"category": p.Category,
		"status":   p.Status,
	}
	if price, err := strconv.ParseFloat(p.AveragePrice, 64); err == nil {
		fields["average_price"] = price
	}
	return api.Payload{Fields: fields, File: p.Image.File}
}
