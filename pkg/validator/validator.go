// Package validator wraps go-playground/validator with the portal's custom rules and
// turns field errors into messages suitable for API responses.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the plain calendar date format accepted by the "date" rule.
const DateLayout = "2006-01-02"

var global = New()

// New returns a validator with custom rules registered and JSON field names in errors.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", notBlank)
	_ = v.RegisterValidation("date", validDate)
	return v
}

// Struct validates s with the shared validator.
func Struct(s interface{}) error {
	return global.Struct(s)
}

// Email reports whether s is a syntactically valid email address.
func Email(s string) bool {
	return global.Var(s, "required,email") == nil
}

// Message converts a validation error into a single human-readable message.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "date":
		return fmt.Sprintf("%s must be a date (yyyy-MM-dd) or RFC 3339 timestamp", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validDate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

// ParseDate accepts yyyy-MM-dd (UTC midnight) or an RFC 3339 timestamp and returns UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}
