package forms

import (
	"net/http"
	"strings"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/format"
	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/validation"
)

// CompanyStatuses are the statuses offered by the company form.
var CompanyStatuses = []string{model.StatusActive, model.StatusInactive, model.StatusPending}

// CompanyPlans are the plans offered by the company form.
var CompanyPlans = []string{model.PlanBasic, model.PlanPremium, model.PlanEnterprise}

// Company is the company form. CNPJ and Phone hold the masked display value.
type Company struct {
	Name        string `form:"name" validate:"required,max=255"`
	Email       string `form:"email" validate:"required,email"`
	CNPJ        string `form:"cnpj" validate:"required,cnpj"`
	Phone       string `form:"phone"`
	Website     string `form:"website" validate:"omitempty,url"`
	Status      string `form:"status" validate:"required,oneof=active inactive pending"`
	Plan        string `form:"plan" validate:"omitempty,oneof=basic premium enterprise"`
	Address     string `form:"raw_address" validate:"required"`
	Description string `form:"description"`
	Image       Image  `form:"-" validate:"-"`
}

// NewCompany is the empty create form.
func NewCompany() Company {
	return Company{Status: model.StatusActive, Plan: model.PlanBasic}
}

// CompanyFrom fills the edit form from a stored company.
func CompanyFrom(c model.Company, assetOrigin string) Company {
	return Company{
		Name:        c.Name,
		Email:       c.Email,
		CNPJ:        format.CNPJ(c.CNPJ),
		Phone:       format.Phone(c.Phone),
		Website:     c.Website,
		Status:      c.Status,
		Plan:        c.Plan,
		Address:     c.Address,
		Description: c.Description,
		Image:       Image{URL: format.FullImageURL(assetOrigin, c.Image)},
	}
}

// DecodeCompany reads the submitted company form.
func DecodeCompany(r *http.Request) (Company, error) {
	img, err := ReadImage(r, ImageField)
	c := Company{
		Name:        value(r, "name"),
		Email:       value(r, "email"),
		CNPJ:        format.CNPJ(value(r, "cnpj")),
		Phone:       format.Phone(value(r, "phone")),
		Website:     value(r, "website"),
		Status:      value(r, "status"),
		Plan:        value(r, "plan"),
		Address:     value(r, "raw_address"),
		Description: value(r, "description"),
		Image:       img,
	}
	return c, err
}

func (c Company) Validate(v *validation.Validator) error {
	return v.Validate(c)
}

// Payload strips the masks and attaches a newly chosen image.
func (c Company) Payload() api.Payload {
	fields := map[string]any{
		"name":        c.Name,
		"email":       c.Email,
		"cnpj":        format.Digits(c.CNPJ),
		"phone":       format.Digits(c.Phone),
		"website":     c.Website,
		"status":      c.Status,
		"plan":        c.Plan,
		"raw_address": c.Address,
		"description": c.Description,
	}
	return api.Payload{Fields: fields, File: c.Image.File}
}

func value(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}
