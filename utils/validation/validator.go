package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

// Validator wraps the go-playground validator
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports JSON field names
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct using struct tags and returns a
// validation error listing every offending field
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	fields := FormatValidationErrors(err)
	if len(fields) == 0 {
		return apperr.Internal(err)
	}
	return apperr.Validation("Validation failed", fields...)
}

// ParseBody decodes the JSON body into dst and validates it
func (v *Validator) ParseBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return v.ValidateStruct(dst)
}

// FormatValidationErrors converts validation errors to field errors
func FormatValidationErrors(err error) []apperr.FieldError {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	out := make([]apperr.FieldError, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := fieldPath(e.Namespace())
		var msg string
		switch e.Tag() {
		case "required", "required_without":
			msg = fmt.Sprintf("%s is required", field)
		case "email":
			msg = "Invalid email format"
		case "min":
			msg = fmt.Sprintf("%s must be at least %s", field, unit(e))
		case "max":
			msg = fmt.Sprintf("%s must be at most %s", field, unit(e))
		case "gte":
			msg = fmt.Sprintf("%s must be greater than or equal to %s", field, e.Param())
		case "lte":
			msg = fmt.Sprintf("%s must be less than or equal to %s", field, e.Param())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of: %s", field, e.Param())
		case "uuid4", "uuid":
			msg = fmt.Sprintf("%s must be a valid id", field)
		default:
			msg = fmt.Sprintf("%s is invalid", field)
		}
		out = append(out, apperr.FieldError{Field: field, Message: msg, Code: e.Tag()})
	}
	return out
}

// fieldPath drops the root struct name from a namespace
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func unit(e validator.FieldError) string {
	switch e.Kind() {
	case reflect.String:
		return e.Param() + " characters"
	case reflect.Slice, reflect.Map, reflect.Array:
		return e.Param() + " items"
	}
	return e.Param()
}

// SanitizeString removes null bytes and surrounding whitespace
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}
