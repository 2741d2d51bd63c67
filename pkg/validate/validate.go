// Package validate checks request payloads against struct schemas and
// reports violations as ordered field errors.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aussiebroadwan/splitsub/pkg/apperr"
)

// FieldError is one violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Validator wraps go-playground/validator with field names taken from the
// json, query or path struct tags.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "path"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &Validator{validate: v}
}

// Struct validates s and returns the violations in field declaration order.
// Each field reports only its first failing tag.
func (v *Validator) Struct(s any) []FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Message: err.Error(), Code: "invalid"}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, translate(fe))
	}
	return out
}

// Failed wraps field errors into the Validation error sent to clients.
// Field level details are always safe to disclose.
func Failed(errs []FieldError) error {
	return apperr.Validation("Validation failed").WithSafeDetails(errs)
}

func translate(fe validator.FieldError) FieldError {
	field := fieldPath(fe)
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	var msg, code string
	switch fe.Tag() {
	case "required", "required_with", "required_without":
		msg, code = fmt.Sprintf("%s is required", field), "required"
	case "email":
		msg, code = fmt.Sprintf("%s must be a valid email address", field), "invalid_string"
	case "uuid", "uuid4":
		msg, code = fmt.Sprintf("%s must be a valid UUID", field), "invalid_string"
	case "min", "gte":
		msg, code = fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unit), "too_small"
	case "max", "lte":
		msg, code = fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unit), "too_big"
	case "oneof":
		msg, code = fmt.Sprintf("%s must be one of [%s]", field, fe.Param()), "invalid_enum_value"
	case "nefield":
		msg, code = fmt.Sprintf("%s must differ from %s", field, lowerFirst(fe.Param())), "custom"
	default:
		msg, code = fmt.Sprintf("%s failed validation for %s", field, fe.Tag()), "invalid"
	}

	return FieldError{Field: field, Message: msg, Code: code}
}

// fieldPath turns "LoginRequest.address.city" into "address.city".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
