// Package validator wraps go-playground/validator with JSON field names and domain errors.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/talentdex/internal/domain"
)

// ValidationError maps JSON field paths to messages. It unwraps to domain.ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return domain.ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return domain.ErrValidation }

// Validator validates transport DTOs.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator that reports fields by their json tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s. Field failures come back as *ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate: %w", err)
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fieldPath(fe)] = message(fe)
	}
	return &ValidationError{Fields: fields}
}

// fieldPath strips the root struct name from the namespace ("searchBody.skills[0].name" -> "skills[0].name").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("must have at least %s items or characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if isSized(fe.Kind()) {
			return fmt.Sprintf("must have at most %s items or characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gtefield":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "ip":
		return "must be a valid IP address"
	default:
		return fmt.Sprintf("failed on %q", fe.Tag())
	}
}

func isSized(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map
}
