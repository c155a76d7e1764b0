package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lib/pq"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindValidation
	KindInvalidTransition
	KindPaymentRequired
	KindConflict
	KindRateLimited
)

// Error is a business-rule violation raised where it is detected and
// translated to the response envelope at the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Code is the machine-readable error code sent to clients.
func (e *Error) Code() string {
	switch e.Kind {
	case KindNotFound:
		return "NOT_FOUND"
	case KindForbidden:
		return "FORBIDDEN"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindInvalidTransition:
		return "INVALID_TRANSITION"
	case KindPaymentRequired:
		return "PAYMENT_REQUIRED"
	case KindConflict:
		return "CONFLICT"
	case KindRateLimited:
		return "RATE_LIMIT_EXCEEDED"
	default:
		return "INTERNAL_ERROR"
	}
}

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation, KindInvalidTransition, KindPaymentRequired:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Validation(message string, details interface{}) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// InvalidTransition names both statuses in its message.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("Invalid status transition from %s to %s", from, to),
		Details: map[string]string{"fromStatus": from, "toStatus": to},
	}
}

func PaymentRequired(message string) *Error {
	return &Error{Kind: KindPaymentRequired, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "Too many requests"}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool          { return KindOf(err) == KindNotFound }
func IsForbidden(err error) bool         { return KindOf(err) == KindForbidden }
func IsUnauthorized(err error) bool      { return KindOf(err) == KindUnauthorized }
func IsValidation(err error) bool        { return KindOf(err) == KindValidation }
func IsInvalidTransition(err error) bool { return KindOf(err) == KindInvalidTransition }
func IsPaymentRequired(err error) bool   { return KindOf(err) == KindPaymentRequired }
func IsConflict(err error) bool          { return KindOf(err) == KindConflict }

// FromDB maps driver errors onto the taxonomy. sql.ErrNoRows becomes
// NotFound(resource); unique violations become Conflict. Anything else is
// returned unchanged.
func FromDB(err error, resource string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		e := NotFound(resource)
		e.Err = err
		return e
	}
	if IsUniqueViolation(err) {
		return &Error{Kind: KindConflict, Message: "A record with this value already exists", Err: err}
	}
	return err
}

func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// SQLite reports constraint failures only through the message.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
