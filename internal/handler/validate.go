package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validator adapts go-playground/validator to echo.Validator so handlers
// can call c.Validate.
type Validator struct{}

// Validate implements echo.Validator.
func (Validator) Validate(i any) error { return validate.Struct(i) }

// invalid writes a 400 listing the failed fields.
func invalid(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "http_url":
		return "must be an http or https URL"
	case "excluded_with":
		return "must not be combined with " + strings.ToLower(fe.Param())
	case "email":
		return "must be an email address"
	default:
		return fmt.Sprintf("failed %q", fe.Tag())
	}
}
