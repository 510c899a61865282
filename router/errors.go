package router

import (
	"errors"
	"fmt"
)

// ErrUnknownRoute means no handler is registered for an interaction's
// route. Logged as a warning; the user sees a generic failure.
var ErrUnknownRoute = errors.New("router: no handler registered for route")

// ValidationError is a handler-declared failure: bad arguments or an
// unmet precondition. Msg is shown to the originator as-is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

// Validationf builds a ValidationError with a user-visible message.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// PermissionError is a handler-declared failure: the acting user may not
// perform the operation. Msg is shown to the originator as-is.
type PermissionError struct {
	Msg string
}

func (e *PermissionError) Error() string { return "permission: " + e.Msg }

// Permissionf builds a PermissionError with a user-visible message.
func Permissionf(format string, args ...any) error {
	return &PermissionError{Msg: fmt.Sprintf(format, args...)}
}
