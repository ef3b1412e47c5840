package recurrence

import (
	"errors"
	"fmt"
)

// ErrorType represents the kind of expansion error
type ErrorType string

const (
	ErrInvalidInput ErrorType = "invalid_input"
)

// Error represents a recurrence expansion error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsInvalidInput reports whether err is, or wraps, an invalid input error
func IsInvalidInput(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrInvalidInput
}

func invalidInput(message string, err error) *Error {
	return &Error{Type: ErrInvalidInput, Message: message, Err: err}
}
