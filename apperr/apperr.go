// Package apperr defines the error taxonomy shared by services and
// controllers. Every failure that reaches a handler is an *Error carrying
// a kind (which decides the HTTP status) and a stable code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindDuplicate
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindUpstream
)

const (
	CodeValidation             = "Validation"
	CodeDuplicateEmail         = "DuplicateEmail"
	CodeDuplicateTable         = "DuplicateTable"
	CodeUnauthenticated        = "Unauthenticated"
	CodeUnapproved             = "Unapproved"
	CodePendingApproval        = "PendingApproval"
	CodeForbidden              = "Forbidden"
	CodeInvalidCredentials     = "InvalidCredentials"
	CodeInvalidRefreshToken    = "InvalidRefreshToken"
	CodeNotFound               = "NotFound"
	CodeTableNotFound          = "TableNotFound"
	CodeMenuItemNotFound       = "MenuItemNotFound"
	CodeCategoryNotFound       = "CategoryNotFound"
	CodeCategoryInUse          = "CategoryInUse"
	CodeStaffNotFound          = "StaffNotFound"
	CodeStaffAlreadyApproved   = "StaffAlreadyApproved"
	CodeOrderNotFound          = "OrderNotFound"
	CodeQueryNotFound          = "QueryNotFound"
	CodeUserNotFound           = "UserNotFound"
	CodeTableReferenceRequired = "TableReferenceRequired"
	CodeRateLimited            = "RateLimited"
	CodeUpstreamFailure        = "UpstreamFailure"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error

	status int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status is the HTTP status the error should be rendered with.
func (e *Error) Status() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicate, KindConflict:
		return http.StatusConflict
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WithStatus overrides the status derived from the kind.
func (e *Error) WithStatus(status int) *Error {
	e.status = status
	return e
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, CodeForbidden, message)
}

func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, CodeUnauthenticated, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

// Upstream wraps a store or network fault.
func Upstream(op string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: CodeUpstreamFailure, Message: op + " failed", Err: err}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of err, or CodeUpstreamFailure for foreign errors.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeUpstreamFailure
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
