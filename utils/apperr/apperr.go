package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindUpstream
)

// Status returns the HTTP status code for the kind
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Code returns the default machine-readable code for the kind
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION_FAILED"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindRateLimited:
		return "TOO_MANY_REQUESTS"
	case KindUpstream:
		return "UPSTREAM_UNAVAILABLE"
	}
	return "INTERNAL_ERROR"
}

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error is the application error carried from services to the transport layer
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two application errors by code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Wrap returns a copy of e carrying cause
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of e with a different message
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Code: kind.Code(), Message: msg}
}

func Validation(msg string, fields ...FieldError) *Error {
	e := newError(KindValidation, msg)
	e.Fields = fields
	return e
}

func Unauthenticated(msg string) *Error { return newError(KindUnauthenticated, msg) }

func Forbidden(msg string) *Error { return newError(KindForbidden, msg) }

func NotFound(msg string) *Error { return newError(KindNotFound, msg) }

func Conflict(msg string) *Error { return newError(KindConflict, msg) }

func RateLimited(msg string) *Error { return newError(KindRateLimited, msg) }

// Upstream reports an external collaborator failure
func Upstream(msg string, cause error) *Error {
	e := newError(KindUpstream, msg)
	e.Err = cause
	return e
}

// Internal wraps an unexpected fault
func Internal(cause error) *Error {
	e := newError(KindInternal, "Internal server error")
	e.Err = cause
	return e
}

// Named errors
var (
	ErrInvalidCredentials = &Error{Kind: KindUnauthenticated, Code: "INVALID_CREDENTIALS", Message: "Invalid email or password"}
	ErrDuplicateEmail     = &Error{Kind: KindConflict, Code: "DUPLICATE_EMAIL", Message: "User with this email already exists"}
	ErrUserNotFound       = &Error{Kind: KindUnauthenticated, Code: "USER_NOT_FOUND", Message: "User not found"}
	ErrAlreadyEnrolled    = &Error{Kind: KindConflict, Code: "ALREADY_ENROLLED", Message: "Already enrolled in this course"}
	ErrAlreadyPurchased   = &Error{Kind: KindConflict, Code: "ALREADY_PURCHASED", Message: "Course already purchased"}
	ErrPaymentRequired    = &Error{Kind: KindValidation, Code: "PAYMENT_REQUIRED", Message: "Payment required."}

	ErrAIServiceUnavailable       = &Error{Kind: KindUpstream, Code: "AI_SERVICE_UNAVAILABLE", Message: "AI service is temporarily unavailable"}
	ErrStorageUnavailable         = &Error{Kind: KindUpstream, Code: "STORAGE_UNAVAILABLE", Message: "Storage service is temporarily unavailable"}
	ErrPaymentProviderUnavailable = &Error{Kind: KindUpstream, Code: "PAYMENT_PROVIDER_UNAVAILABLE", Message: "Payment provider is temporarily unavailable"}
)

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// As converts err into an application error, wrapping foreign errors as internal
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
