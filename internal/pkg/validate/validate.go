// Package validate runs struct-tag validation and converts failures into
// apperror.Validation errors with per-field messages.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/neonarte/neon-backend/internal/pkg/apperror"
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		// Report json names instead of Go field names.
		instance.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return instance
}

// Struct validates v and returns nil or an *apperror.Error.
func Struct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("Error de validación", map[string]string{"_": err.Error()})
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return apperror.Validation("Error de validación", fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "gt":
		return fmt.Sprintf("debe ser mayor a %s", fe.Param())
	case "gte", "min":
		return fmt.Sprintf("debe ser al menos %s", fe.Param())
	case "lte", "max":
		return fmt.Sprintf("debe ser como máximo %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("debe ser uno de: %s", fe.Param())
	case "email":
		return "debe ser un email válido"
	default:
		return fmt.Sprintf("no cumple la regla %s", fe.Tag())
	}
}

// Binding converts a gin binding failure into a Validation error. Field
// names from gin's validator are Go names and are reported in snake_case.
func Binding(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("Datos de la solicitud inválidos", map[string]string{"body": "formato inválido"})
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[snake(fe.Field())] = message(fe)
	}
	return apperror.Validation("Error de validación", fields)
}

func snake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(name[i-1] >= 'A' && name[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
