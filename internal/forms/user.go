package forms

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/format"
	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/validation"
)

// UserStatuses are the statuses offered by the user form.
var UserStatuses = []string{model.StatusActive, model.StatusInactive, model.StatusSuspended}

type User struct {
	Name      string     `form:"name" validate:"required,max=255"`
	Email     string     `form:"email" validate:"required,email"`
	CPF       string     `form:"cpf" validate:"omitempty,cpf"`
	Type      model.Role `form:"type" validate:"required,oneof=client company admin"`
	Status    string     `form:"status" validate:"required,oneof=active inactive suspended"`
	Companies []int64    `form:"companies" validate:"-"`
}

func NewUser() User {
	return User{Type: model.RoleClient, Status: model.StatusActive}
}

func UserFrom(u model.User) User {
	return User{
		Name:      u.Name,
		Email:     u.Email,
		CPF:       format.CPF(u.CPF),
		Type:      u.Type,
		Status:    u.Status,
		Companies: slices.Clone(u.Companies),
	}
}

// DecodeUser reads the submitted user form. Company selections arrive as
// repeated "companies" values.
func DecodeUser(r *http.Request) (User, error) {
	if err := r.ParseForm(); err != nil {
		return User{}, err
	}
	u := User{
		Name:   value(r, "name"),
		Email:  value(r, "email"),
		CPF:    format.CPF(value(r, "cpf")),
		Status: value(r, "status"),
	}
	var companies []int64
	for _, s := range r.Form["companies"] {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil && !slices.Contains(companies, id) {
			companies = append(companies, id)
		}
	}
	u.Companies = companies
	u.SetType(model.Role(value(r, "type")))
	return u, nil
}

// SetType changes the account type. Leaving "company" drops the company
// associations.
func (u *User) SetType(t model.Role) {
	u.Type = t
	if t != model.RoleCompany {
		u.Companies = nil
	}
}

// NeedsCompanies reports whether the company picker is shown and required.
func (u User) NeedsCompanies() bool {
	return u.Type == model.RoleCompany
}

func (u User) Validate(v *validation.Validator) error {
	extra := FieldErrors{}
	if u.NeedsCompanies() && len(u.Companies) == 0 {
		extra.Add("companies", "Selecione pelo menos uma empresa.")
	}
	return merge(v.Validate(u), extra)
}

func (u User) Payload() api.Payload {
	companies := u.Companies
	if !u.NeedsCompanies() || companies == nil {
		companies = []int64{}
	}
	return api.Payload{Fields: map[string]any{
		"name":      u.Name,
		"email":     u.Email,
		"cpf":       format.Digits(u.CPF),
		"type":      string(u.Type),
		"status":    u.Status,
		"companies": companies,
	}}
}
