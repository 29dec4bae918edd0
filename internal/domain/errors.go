package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so transports can map it without inspecting messages.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindInvalidState
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	default:
		return "internal"
	}
}

// Machine-readable codes carried in error responses.
const (
	CodeInvalidInput      = "INVALID_INPUT"
	CodeNotAvailable      = "NOT_AVAILABLE"
	CodeDuplicateCondo    = "DUPLICATE_CONDO"
	CodeUsernameTaken     = "USERNAME_TAKEN"
	CodeEmailTaken        = "EMAIL_EXISTS"
	CodeNotFound          = "NOT_FOUND"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidQRCode     = "INVALID_QR_CODE"
	CodeTooEarly          = "TOO_EARLY"
	CodeTooManyGuests     = "TOO_MANY_GUESTS"
	CodePayloadTooLarge   = "PAYMENT_IMAGE_TOO_LARGE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newErr(KindValidation, CodeInvalidInput, format, args...)
}

func ValidationCode(code, format string, args ...any) *Error {
	return newErr(KindValidation, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return newErr(KindConflict, code, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newErr(KindNotFound, CodeNotFound, format, args...)
}

func InvalidState(code, format string, args ...any) *Error {
	return newErr(KindInvalidState, code, format, args...)
}

func Unauthorized(code, format string, args ...any) *Error {
	return newErr(KindUnauthorized, code, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newErr(KindForbidden, CodeForbidden, format, args...)
}

func Internal(err error, format string, args ...any) *Error {
	e := newErr(KindInternal, CodeInternal, format, args...)
	e.Err = err
	return e
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Is reports whether err is a domain error of the given kind.
func Is(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// CodeOf returns the response code for err.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Sentinel errors returned by repositories; services translate them.
var (
	ErrOverlap       = errors.New("booking range overlaps an active booking")
	ErrDuplicate     = errors.New("unique constraint violated")
	ErrSerialization = errors.New("transaction serialization failure")
)
