package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable, client-facing error kind written into the response envelope.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	CodeItemUnavailable    Code = "ITEM_UNAVAILABLE"
	CodeDuplicateEntry     Code = "DUPLICATE_ENTRY"
	CodePaymentNotVerified Code = "PAYMENT_NOT_VERIFIED"
	CodeInvalidMetadata    Code = "INVALID_METADATA"
	CodeGatewayUnavailable Code = "GATEWAY_UNAVAILABLE"
)

// Metadata controls how a code is rendered over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type exposure uint8

const (
	hideDetails exposure = iota
	showDetails
	retryHidden
	retryShown
)

func meta(status int, message string, e exposure) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  message,
		Retryable:      e == retryHidden || e == retryShown,
		DetailsAllowed: e == showDetails || e == retryShown,
	}
}

var catalog = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, "validation failed", showDetails),
	CodeUnauthorized:  meta(http.StatusUnauthorized, "authentication required", hideDetails),
	CodeForbidden:     meta(http.StatusForbidden, "access denied", hideDetails),
	CodeNotFound:      meta(http.StatusNotFound, "resource not found", hideDetails),
	CodeConflict:      meta(http.StatusConflict, "conflict detected", hideDetails),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, "state transition disallowed", showDetails),
	CodeIdempotency:   meta(http.StatusConflict, "idempotency key reused", showDetails),
	CodeRateLimit:     meta(http.StatusTooManyRequests, "rate limit exceeded", hideDetails),
	CodeInternal:      meta(http.StatusInternalServerError, "internal server error", retryHidden),
	CodeDependency:    meta(http.StatusServiceUnavailable, "dependency unavailable", retryShown),

	CodeItemUnavailable:    meta(http.StatusConflict, "item is no longer available", showDetails),
	CodeDuplicateEntry:     meta(http.StatusConflict, "entry already exists", showDetails),
	CodePaymentNotVerified: meta(http.StatusBadRequest, "payment verification failed", showDetails),
	CodeInvalidMetadata:    meta(http.StatusBadRequest, "transaction metadata is invalid", showDetails),
	CodeGatewayUnavailable: meta(http.StatusBadGateway, "payment gateway unavailable", retryHidden),
}

// MetadataFor falls back to the internal-error rendering for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := catalog[code]; ok {
		return m
	}
	return catalog[CodeInternal]
}

// Error is a coded error carrying an optional public payload and an internal cause.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code to cause; a nil cause behaves like New.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets the payload rendered under error.details when the code allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether the outermost coded error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
