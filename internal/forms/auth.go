package forms

import (
	"net/http"

	"github.com/dukerupert/smartshop/internal/api"
	"github.com/dukerupert/smartshop/internal/model"
	"github.com/dukerupert/smartshop/internal/validation"
)

type Login struct {
	Email    string     `form:"email" validate:"required,email"`
	Password string     `form:"password" validate:"required"`
	Role     model.Role `form:"user_type" validate:"required,oneof=client company admin"`
}

func DecodeLogin(r *http.Request) Login {
	role := model.Role(value(r, "user_type"))
	if role == "" {
		role = model.RoleClient
	}
	return Login{Email: value(r, "email"), Password: r.FormValue("password"), Role: role}
}

func (l Login) Validate(v *validation.Validator) error {
	return v.Validate(l)
}

func (l Login) Credentials() api.Credentials {
	return api.Credentials{Email: l.Email, Password: l.Password, Role: l.Role}
}

type Register struct {
	Name         string     `form:"name" validate:"required,max=255"`
	Email        string     `form:"email" validate:"required,email"`
	Password     string     `form:"password" validate:"required,min=8"`
	Confirmation string     `form:"password_confirmation" validate:"-"`
	Role         model.Role `form:"user_type" validate:"required,oneof=client company"`
}

func DecodeRegister(r *http.Request) Register {
	role := model.Role(value(r, "user_type"))
	if role == "" {
		role = model.RoleClient
	}
	return Register{
		Name:         value(r, "name"),
		Email:        value(r, "email"),
		Password:     r.FormValue("password"),
		Confirmation: r.FormValue("password_confirmation"),
		Role:         role,
	}
}

// Validate checks the confirmation locally so a mismatch never reaches the
// backend.
func (f Register) Validate(v *validation.Validator) error {
	extra := FieldErrors{}
	if f.Password != f.Confirmation {
		extra.Add("password_confirmation", "As senhas não coincidem!")
	}
	return merge(v.Validate(f), extra)
}

func (f Register) Registration() api.Registration {
	return api.Registration{
		Name:                 f.Name,
		Email:                f.Email,
		Password:             f.Password,
		PasswordConfirmation: f.Confirmation,
		Role:                 f.Role,
	}
}
