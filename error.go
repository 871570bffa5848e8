package docdex

import (
	"errors"
	"fmt"
)

// Application error codes. Codes classify errors for the caller;
// messages are human-readable and safe to surface externally.
const (
	ECANCELED = "canceled"  // operation canceled by the caller or registry
	ECONFLICT = "conflict"  // transient storage conflict, retry-worthy
	EEXPIRED  = "expired"   // authenticated session no longer valid
	EINTERNAL = "internal"  // unexpected internal error
	EINVALID  = "invalid"   // validation failed
	ENOTFOUND = "not_found" // entity does not exist
)

// Error represents an application error with a machine-readable code
// and a human-readable message.
type Error struct {
	// Code classifies the error for programmatic handling.
	Code string

	// Message is a human-readable description, safe to display.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("docdex error: code=%s message=%s", e.Code, e.Message)
}

// ErrorCode returns the code of the error, if it is an *Error.
// Returns EINTERNAL for non-application errors and "" for nil.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the message of the error, if it is an *Error.
// Returns a generic message for non-application errors and "" for nil.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error."
}

// Errorf constructs an *Error with the given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
