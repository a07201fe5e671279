// Package apperr holds the domain error taxonomy shared by the state manager,
// the tool adapter and the HTTP handlers.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
)

type ErrorType string

const (
	ErrTypeNotFound          ErrorType = "NOT_FOUND"
	ErrTypeValidation        ErrorType = "VALIDATION_FAILED"
	ErrTypeAlreadyCompleted  ErrorType = "ALREADY_COMPLETED"
	ErrTypeUnsupportedMethod ErrorType = "UNSUPPORTED_METHOD"
	ErrTypeInvalidInput      ErrorType = "INVALID_INPUT"
	ErrTypeUnavailable       ErrorType = "UNAVAILABLE"
	ErrTypeInternal          ErrorType = "INTERNAL"
)

type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte

	// Missing lists absent required fields for VALIDATION_FAILED.
	Missing []string
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		var stackErr *goerrors.Error
		if errors.As(err, &stackErr) {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func NotFound(message string, err error) *DomainError {
	return New(ErrTypeNotFound, message, err)
}

// ValidationFailed reports the required fields that are still absent.
func ValidationFailed(missing []string) *DomainError {
	e := New(ErrTypeValidation, "missing required fields: "+strings.Join(missing, ", "), nil)
	e.Missing = append([]string(nil), missing...)
	return e
}

func AlreadyCompleted(message string) *DomainError {
	return New(ErrTypeAlreadyCompleted, message, nil)
}

func UnsupportedMethod(method string) *DomainError {
	return New(ErrTypeUnsupportedMethod, "method not found: "+method, nil)
}

func InvalidInput(message string, err error) *DomainError {
	return New(ErrTypeInvalidInput, message, err)
}

func Unavailable(message string, err error) *DomainError {
	return New(ErrTypeUnavailable, message, err)
}

func Internal(message string, err error) *DomainError {
	return New(ErrTypeInternal, message, err)
}

// TypeOf returns the domain type of err, or INTERNAL when err carries none.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ErrTypeInternal
}

// Is reports whether err is a DomainError of the given type.
func Is(err error, errType ErrorType) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Type == errType
}

// MissingFields extracts the missing-field list of a VALIDATION_FAILED error.
func MissingFields(err error) []string {
	var de *DomainError
	if errors.As(err, &de) && de.Type == ErrTypeValidation {
		return de.Missing
	}
	return nil
}

// Message returns the human-readable message without the type prefix.
func Message(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		if de.Err != nil && de.Type == ErrTypeUnavailable {
			return fmt.Sprintf("%s: %v", de.Message, de.Err)
		}
		return de.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
