package model

import (
	"errors"
	"fmt"
)

// Failure classes shared by the backend client and the submitter.
var (
	ErrTransport  = errors.New("transport failure")
	ErrRejected   = errors.New("rejected by server")
	ErrValidation = errors.New("validation failed")
)

// ServiceError is a failed backend call. Message is what a user should see:
// the server's own text when it sent one, a fallback otherwise.
type ServiceError struct {
	Kind    error // ErrTransport or ErrRejected
	Status  int   // HTTP status, 0 when no response arrived
	Message string
	Err     error // underlying cause, if any
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Message)
}

// Unwrap exposes both the class and the cause to errors.Is.
func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrRejected):
		return KindRejected
	default:
		return KindTransport
	}
}

// UserMessage returns the text to show a user for err.
func UserMessage(err error) string {
	var se *ServiceError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
