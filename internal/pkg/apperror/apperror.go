// Package apperror defines the error taxonomy shared by every domain
// service. Handlers map a Kind to an HTTP status in one place and render the
// Message; the wrapped cause is only logged.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindValidation     Kind = "validation_error"
	KindAuthentication Kind = "authentication_error"
	KindAuthorization  Kind = "authorization_error"
	KindNotFound       Kind = "not_found"
	KindStockConflict  Kind = "stock_conflict"
	KindConflict       Kind = "conflict"
	KindUpstreamOracle Kind = "upstream_oracle_error"
	KindPersistence    Kind = "persistence_error"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind              `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed or missing input.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// InvalidField is a Validation error for a single field.
func InvalidField(field, message string) *Error {
	return Validation("Error de validación", map[string]string{field: message})
}

// Unauthenticated reports missing or bad credentials.
func Unauthenticated(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

// Forbidden reports an actor whose role or ownership does not allow the
// requested operation.
func Forbidden(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// NotFound reports a missing resource.
func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s no encontrado", resource)}
}

// StockConflict reports insufficient stock at debit time.
func StockConflict(message string) *Error {
	return &Error{Kind: KindStockConflict, Message: message}
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Upstream wraps a failed or unparseable oracle call.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstreamOracle, Message: message, Err: err}
}

// Persistence wraps a storage failure. The message shown to callers is
// generic; op is kept in the wrapped error for the logs.
func Persistence(op string, err error) *Error {
	return &Error{
		Kind:    KindPersistence,
		Message: "Error interno al guardar los datos",
		Err:     fmt.Errorf("%s: %w", op, err),
	}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the classification of err. Unclassified errors are
// reported as persistence failures.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindPersistence
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindStockConflict, KindConflict:
		return http.StatusConflict
	case KindUpstreamOracle:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
