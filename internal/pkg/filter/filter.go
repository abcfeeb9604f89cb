// Package filter parses list query filters.
package filter

import (
	"fmt"
	"strings"

	"github.com/neonarte/neon-backend/internal/pkg/apperror"
)

// Statuses splits a comma-separated status filter. Blank entries are
// skipped; any unknown value is a validation error on field.
func Statuses[T ~string](raw, field string, valid func(T) bool) ([]T, error) {
	var out []T
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		status := T(part)
		if !valid(status) {
			return nil, apperror.InvalidField(field, fmt.Sprintf("estado desconocido: %q", part))
		}
		out = append(out, status)
	}
	return out, nil
}
