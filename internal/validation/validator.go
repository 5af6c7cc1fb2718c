// Package validation checks form structs with validator/v10 before they
// reach the backend and reports failures in the backend's field-error shape.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/dukerupert/smartshop/internal/errors"
	"github.com/dukerupert/smartshop/internal/format"
)

// Validator wraps go-playground/validator with app error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator keyed by form field names. Besides the built-in
// tags it understands "cnpj" and "cpf" (digit count after stripping masks).
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation("cnpj", digitCount(14))
	_ = v.RegisterValidation("cpf", digitCount(11))

	return &Validator{v: v}
}

func digitCount(n int) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return len(format.Digits(fl.Field().String())) == n
	}
}

// Validate validates a struct. Failures come back as a validation error
// whose fields map each form field to its messages.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string][]string, len(validationErrs))
	for _, e := range validationErrs {
		fields[e.Field()] = append(fields[e.Field()], friendlyMessage(e))
	}
	return apperrors.Validation("Verifique os campos destacados.", fields)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "Campo obrigatório."
	case "email":
		return "Informe um e-mail válido."
	case "min":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("Selecione pelo menos %s.", e.Param())
		}
		return fmt.Sprintf("Deve ter pelo menos %s caracteres.", e.Param())
	case "max":
		return fmt.Sprintf("Deve ter no máximo %s caracteres.", e.Param())
	case "url":
		return "Informe uma URL válida."
	case "oneof":
		return "Valor inválido. Opções: " + strings.ReplaceAll(e.Param(), " ", ", ") + "."
	case "gte":
		return "Deve ser maior ou igual a " + e.Param() + "."
	case "gt":
		return "Deve ser maior que " + e.Param() + "."
	case "eqfield":
		return "Os valores não conferem."
	case "cnpj":
		return "CNPJ deve ter 14 dígitos."
	case "cpf":
		return "CPF deve ter 11 dígitos."
	default:
		return "Valor inválido."
	}
}
