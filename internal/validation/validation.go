// Package validation checks service inputs against their `validate` struct tags and
// turns failures into apperr validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/studybud/backend/internal/apperr"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(fieldLabel)
	})
	return validate
}

// fieldLabel names fields after their json tag, with underscores read as spaces.
func fieldLabel(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		name = f.Name
	}
	return strings.ReplaceAll(name, "_", " ")
}

// Struct validates s. The first failing field becomes the message of the returned error.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("invalid input")
	}
	return apperr.Validation("%s", message(fieldErrs[0]))
}

// Email reports whether value is a syntactically valid email address.
func Email(value string) bool {
	return instance().Var(value, "required,email") == nil
}

func message(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "invalid email address"
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
	case "eqfield":
		return fmt.Sprintf("%s does not match", field)
	case "alphanum":
		return fmt.Sprintf("%s may only contain letters and numbers", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
