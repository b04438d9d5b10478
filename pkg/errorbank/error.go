// Package errorbank defines the application error type shared by the HTTP
// and gRPC transports.
package errorbank

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind enumerates supported application error categories.
type Kind string

const (
	KindBadRequest        Kind = "bad_request"
	KindValidation        Kind = "validation"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInvalidTransition Kind = "invalid_transition"
	KindInvalidState      Kind = "invalid_state"
	KindPersistence       Kind = "persistence"
	KindInternal          Kind = "internal"
)

type mapping struct {
	http int
	grpc codes.Code
}

var mappings = map[Kind]mapping{
	KindBadRequest:        {http.StatusBadRequest, codes.InvalidArgument},
	KindValidation:        {http.StatusBadRequest, codes.InvalidArgument},
	KindUnauthorized:      {http.StatusUnauthorized, codes.Unauthenticated},
	KindForbidden:         {http.StatusForbidden, codes.PermissionDenied},
	KindNotFound:          {http.StatusNotFound, codes.NotFound},
	KindConflict:          {http.StatusConflict, codes.Aborted},
	KindInvalidTransition: {http.StatusConflict, codes.FailedPrecondition},
	KindInvalidState:      {http.StatusConflict, codes.FailedPrecondition},
	KindPersistence:       {http.StatusInternalServerError, codes.Unavailable},
	KindInternal:          {http.StatusInternalServerError, codes.Internal},
}

const retryableDetail = "retryable"

// AppError carries a kind, a client-safe message, optional details and the
// underlying cause.
type AppError struct {
	kind    Kind
	message string
	details map[string]any
	cause   error
}

// Option mutates an AppError during construction.
type Option func(*AppError)

// WithCause attaches an underlying error.
func WithCause(err error) Option {
	return func(e *AppError) { e.cause = err }
}

// WithDetail adds a single named detail value.
func WithDetail(key string, value any) Option {
	return func(e *AppError) {
		if e.details == nil {
			e.details = make(map[string]any)
		}
		e.details[key] = value
	}
}

// New constructs an AppError of the given kind.
func New(kind Kind, message string, opts ...Option) *AppError {
	if message == "" {
		message = string(kind)
	}
	e := &AppError{kind: kind, message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Kind returns the error category.
func (e *AppError) Kind() Kind {
	if e == nil {
		return KindInternal
	}
	return e.kind
}

// Message returns the client-safe message, without the cause.
func (e *AppError) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Details returns optional metadata about the error.
func (e *AppError) Details() map[string]any {
	if e == nil {
		return nil
	}
	return e.details
}

// Retryable reports whether repeating the whole operation may succeed.
func (e *AppError) Retryable() bool {
	retry, _ := e.Details()[retryableDetail].(bool)
	return retry
}

// StatusCode resolves the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	if m, ok := mappings[e.Kind()]; ok {
		return m.http
	}
	return http.StatusInternalServerError
}

// GRPCCode maps the error kind onto a gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if m, ok := mappings[e.Kind()]; ok {
		return m.grpc
	}
	return codes.Internal
}

func BadRequest(message string, opts ...Option) *AppError {
	return New(KindBadRequest, message, opts...)
}

// Validation is for input the caller must correct.
func Validation(message string, opts ...Option) *AppError {
	return New(KindValidation, message, opts...)
}

func Unauthorized(message string, opts ...Option) *AppError {
	return New(KindUnauthorized, message, opts...)
}

func Forbidden(message string, opts ...Option) *AppError {
	return New(KindForbidden, message, opts...)
}

func NotFound(message string, opts ...Option) *AppError {
	return New(KindNotFound, message, opts...)
}

// Conflict is for a concurrent write that won the race.
func Conflict(message string, opts ...Option) *AppError {
	return New(KindConflict, message, opts...)
}

// InvalidTransition is for a status edge the workflow does not allow.
func InvalidTransition(message string, opts ...Option) *AppError {
	return New(KindInvalidTransition, message, opts...)
}

// InvalidState is for an action the current status forbids.
func InvalidState(message string, opts ...Option) *AppError {
	return New(KindInvalidState, message, opts...)
}

// Persistence is for a failed transaction. Nothing was written and the whole
// operation is safe to retry.
func Persistence(message string, opts ...Option) *AppError {
	opts = append([]Option{WithDetail(retryableDetail, true)}, opts...)
	return New(KindPersistence, message, opts...)
}

func Internal(message string, opts ...Option) *AppError {
	return New(KindInternal, message, opts...)
}

// From returns the AppError in err's chain, wrapping anything else as internal.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", WithCause(err))
}

// IsKind reports whether err carries an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind() == kind
}

// FieldErrors collects per-field validation messages.
type FieldErrors map[string]string

// Add records a message for field, keeping the first one.
func (f FieldErrors) Add(field, message string) {
	if _, ok := f[field]; !ok {
		f[field] = message
	}
}

// Err returns a validation error listing every field, or nil when empty.
func (f FieldErrors) Err(message string) error {
	if len(f) == 0 {
		return nil
	}
	return Validation(message, WithDetail("fields", map[string]string(f)))
}
