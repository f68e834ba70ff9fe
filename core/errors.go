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

// NotFoundError wraps a domain "not found" sentinel so that the outer layers can map it without knowing every domain.
type NotFoundError struct {
	Err error
}

func NewNotFoundError(err error) error {
	return &NotFoundError{err}
}

func (err NotFoundError) Error() string { return err.Err.Error() }

// PermissionError is returned when the actor is not allowed to perform an operation.
type PermissionError struct {
	Err error
}

func NewPermissionError(err error) error {
	return &PermissionError{err}
}

func (err PermissionError) Error() string { return err.Err.Error() }

// IsNotFound reports whether the cause of `err` is a *NotFoundError wrapping `target` (any when target is nil).
func IsNotFound(err error, target ...error) bool {
	nfErr, ok := errors.Cause(err).(*NotFoundError)
	if !ok {
		return false
	}
	return len(target) == 0 || nfErr.Err == target[0]
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
