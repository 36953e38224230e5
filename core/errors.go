package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError is returned when the requested resource does not exist.
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{message: msg}
}

func (err NotFoundError) Error() string {
	return err.message
}

// PermissionError is returned when the caller is not allowed to act on a resource.
type PermissionError struct {
	message string
}

func NewPermissionError(msg string) error {
	return &PermissionError{message: msg}
}

func (err PermissionError) Error() string {
	return err.message
}

// DownstreamError reports a failure of an external collaborator (mail, upload, ...).
// Message is safe to show to clients; Err is only logged.
type DownstreamError struct {
	Message string
	Err     error
}

func NewDownstreamError(msg string, err error) error {
	return &DownstreamError{Message: msg, Err: err}
}

func (err DownstreamError) Error() string {
	if err.Err == nil {
		return err.Message
	}
	return err.Message + ": " + err.Err.Error()
}

func (err DownstreamError) Unwrap() error {
	return err.Err
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
