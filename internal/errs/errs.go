// Package errs carries the error codes shared by the note service, the HTML
// handlers and the MCP tools. A code decides the HTTP status; a field ties a
// validation failure to the form input that caused it.
package errs

import (
	"errors"
	"net/http"
)

type Code string

const (
	InvalidArgument  Code = "invalid_argument"
	NotFound         Code = "not_found"
	AlreadyExists    Code = "already_exists"
	Unauthenticated  Code = "unauthenticated"
	PermissionDenied Code = "permission_denied"
	Internal         Code = "internal"
)

// Error is what the service layer returns for anything a caller may show.
// Message is safe to render; Err keeps the cause for logs and errors.Is.
type Error struct {
	Code    Code
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap keeps cause reachable through errors.Is/As while showing message.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Err: cause}
}

// OnField is Wrap for a failure that belongs to one form input.
func OnField(code Code, field, message string, cause error) error {
	return &Error{Code: code, Field: field, Message: message, Err: cause}
}

func find(err error) (*Error, bool) {
	var coded *Error
	if err == nil || !errors.As(err, &coded) {
		return nil, false
	}
	return coded, true
}

// CodeOf treats nil, plain errors and uncoded *Error values as Internal.
func CodeOf(err error) Code {
	if coded, ok := find(err); ok && coded.Code != "" {
		return coded.Code
	}
	return Internal
}

func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf is the text a response may carry. Plain errors from drivers
// or the filesystem become "internal error".
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	if coded, ok := find(err); ok && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// FieldOf names the form input err is attached to; "" for none.
func FieldOf(err error) string {
	if coded, ok := find(err); ok {
		return coded.Field
	}
	return ""
}

func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case Unauthenticated:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case AlreadyExists:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
