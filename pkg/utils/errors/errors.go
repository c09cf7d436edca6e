package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of an error
type ErrorType uint

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidArgument represents a nil, empty or inconsistent input
	ErrorTypeInvalidArgument
	// ErrorTypeTypeMismatch represents a dispatch target invoked with a variant it does not handle
	ErrorTypeTypeMismatch
	// ErrorTypeMissingCurve represents a market bundle lookup for an unconfigured key
	ErrorTypeMissingCurve
	// ErrorTypeNonConvergence represents a root finder that exhausted its budget
	ErrorTypeNonConvergence
	// ErrorTypeNotFound represents a not found error
	ErrorTypeNotFound
	// ErrorTypeInternal represents an internal error
	ErrorTypeInternal
)

var typeNames = map[ErrorType]string{
	ErrorTypeUnknown:         "unknown",
	ErrorTypeInvalidArgument: "invalid argument",
	ErrorTypeTypeMismatch:    "type mismatch",
	ErrorTypeMissingCurve:    "missing curve",
	ErrorTypeNonConvergence:  "non convergence",
	ErrorTypeNotFound:        "not found",
	ErrorTypeInternal:        "internal",
}

// String returns the name of the error type
func (t ErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ErrorType(%d)", uint(t))
}

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError of the same type, so sentinel values below work with errors.Is
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Type == e.Type
}

// Sentinels for errors.Is checks against the taxonomy
var (
	ErrInvalidArgument = &AppError{Type: ErrorTypeInvalidArgument}
	ErrTypeMismatch    = &AppError{Type: ErrorTypeTypeMismatch}
	ErrMissingCurve    = &AppError{Type: ErrorTypeMissingCurve}
	ErrNonConvergence  = &AppError{Type: ErrorTypeNonConvergence}
	ErrNotFound        = &AppError{Type: ErrorTypeNotFound}
)

// New creates a new error with the given message
func New(message string) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: message,
	}
}

// Newf creates a new error with the given format and arguments
func Newf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a message, keeping the type of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:    TypeOf(err),
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithType wraps an error under the given type
func WithType(err error, errType ErrorType) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:    errType,
		Message: errType.String(),
		Err:     err,
	}
}

// TypeOf returns the type of the outermost AppError in the chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether the outermost AppError in err's chain has the given type
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// Is reports whether err or any of the errors in its chain is target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// InvalidArgument creates a new InvalidArgument error
func InvalidArgument(message string) error {
	return &AppError{
		Type:    ErrorTypeInvalidArgument,
		Message: message,
	}
}

// InvalidArgumentf creates a new InvalidArgument error with a formatted message
func InvalidArgumentf(format string, args ...interface{}) error {
	return InvalidArgument(fmt.Sprintf(format, args...))
}

// TypeMismatch creates a new TypeMismatch error
func TypeMismatch(message string) error {
	return &AppError{
		Type:    ErrorTypeTypeMismatch,
		Message: message,
	}
}

// TypeMismatchf creates a new TypeMismatch error with a formatted message
func TypeMismatchf(format string, args ...interface{}) error {
	return TypeMismatch(fmt.Sprintf(format, args...))
}

// MissingCurve creates a new MissingCurve error
func MissingCurve(message string) error {
	return &AppError{
		Type:    ErrorTypeMissingCurve,
		Message: message,
	}
}

// NonConvergence creates a new NonConvergence error
func NonConvergence(message string, cause error) error {
	return &AppError{
		Type:    ErrorTypeNonConvergence,
		Message: message,
		Err:     cause,
	}
}

// NotFound creates a new NotFound error
func NotFound(message string) error {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// Internal creates a new Internal error
func Internal(message string) error {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
	}
}
