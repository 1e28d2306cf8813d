// Package validator wraps go-playground/validator with the conventions used
// across the catalog: json field names in errors, decimal comparisons and an
// "enum" tag for types that validate themselves.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Validator interface {
	Validate(s any) error
}

var _ Validator = (*DefaultValidator)(nil)

type DefaultValidator struct {
	v *validator.Validate
}

func NewDefaultValidator() (*DefaultValidator, error) {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	if err := v.RegisterValidation("enum", validateEnum); err != nil {
		return nil, fmt.Errorf("register enum validation: %w", err)
	}
	return &DefaultValidator{v: v}, nil
}

func (v *DefaultValidator) Validate(s any) error {
	return v.v.Struct(s)
}

// IsValidationError reports whether err wraps tag validation failures.
func IsValidationError(err error) bool {
	var errs validator.ValidationErrors
	return errors.As(err, &errs)
}

var messages = map[string]func(fe validator.FieldError) string{
	"required": func(validator.FieldError) string { return "field is required" },
	"url":      func(validator.FieldError) string { return "must be a fully-qualified URL" },
	"min":      bound("must be at least %s"),
	"max":      bound("must be at most %s"),
	"gt":       bound("must be greater than %s"),
	"gte":      bound("must be greater than or equal to %s"),
	"lte":      bound("must be less than or equal to %s"),
	"oneof":    bound("must be one of [%s]"),
	"enum": func(fe validator.FieldError) string {
		return fmt.Sprintf("invalid enum value: %v", fe.Value())
	},
}

func bound(format string) func(validator.FieldError) string {
	return func(fe validator.FieldError) string { return fmt.Sprintf(format, fe.Param()) }
}

// ValidationErrorMessage renders fe for API clients.
func ValidationErrorMessage(fe validator.FieldError) string {
	if msg, ok := messages[fe.Tag()]; ok {
		return msg(fe)
	}
	return "is invalid"
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// decimalValue lets numeric tags compare decimals through their float value.
func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}

func validateEnum(fl validator.FieldLevel) bool {
	e, ok := fl.Field().Interface().(interface{ Validate() error })
	return ok && e.Validate() == nil
}
