package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Catalog errors
	ErrExtensionNotFound ErrorCode = "EXTENSION_NOT_FOUND"
	ErrExtensionInvalid  ErrorCode = "EXTENSION_INVALID"

	// Resolution and ordering errors
	ErrResolution      ErrorCode = "RESOLUTION"
	ErrDependencyOrder ErrorCode = "DEPENDENCY_ORDER"
	ErrMisordered      ErrorCode = "MISORDERED"

	// Merge errors (recorded, never returned by the merge engine)
	ErrMergeConflict ErrorCode = "MERGE_CONFLICT"

	// Import errors
	ErrImportGeneric             ErrorCode = "GENERIC"
	ErrImportMissingDependencies ErrorCode = "MISSING_DEPENDENCIES"
	ErrImportMissingOrWrongOrder ErrorCode = "MISSING_DEPENDENCIES_OR_WRONG_ORDER"

	// Storage errors
	ErrFileAccess ErrorCode = "FILE_ACCESS"
	ErrFileWrite  ErrorCode = "FILE_WRITE"
	ErrHistory    ErrorCode = "HISTORY"
)

// ExtmanError represents a structured error with code and details
type ExtmanError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *ExtmanError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ExtmanError) Unwrap() error {
	return e.Wrapped
}

// Is matches any *ExtmanError carrying the same code
func (e *ExtmanError) Is(target error) bool {
	var targetErr *ExtmanError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new ExtmanError with the given code and message
func New(code ErrorCode, message string) *ExtmanError {
	return &ExtmanError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new ExtmanError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *ExtmanError {
	return &ExtmanError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with an ExtmanError
func Wrap(err error, code ErrorCode, message string) *ExtmanError {
	if err == nil {
		return nil
	}
	return &ExtmanError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *ExtmanError {
	if err == nil {
		return nil
	}
	return &ExtmanError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *ExtmanError) WithDetail(key string, value interface{}) *ExtmanError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *ExtmanError) WithDetails(details map[string]interface{}) *ExtmanError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// Coder is implemented by domain errors that are not ExtmanErrors themselves
// but still belong to an error category.
type Coder interface {
	ErrorCode() ErrorCode
}

// ErrorCode implements Coder
func (e *ExtmanError) ErrorCode() ErrorCode {
	return e.Code
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return GetErrorCode(err) == code
}

// GetErrorCode returns the code of the outermost coded error in the chain, or
// ErrUnknown if it carries none
func GetErrorCode(err error) ErrorCode {
	if code, ok := findCode(err); ok {
		return code
	}
	return ErrUnknown
}

func findCode(err error) (ErrorCode, bool) {
	for err != nil {
		if c, ok := err.(Coder); ok {
			return c.ErrorCode(), true
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				if code, ok := findCode(e); ok {
					return code, true
				}
			}
			return "", false
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return "", false
		}
	}
	return "", false
}

// GetErrorDetails returns the details from an error, or nil if not an ExtmanError
func GetErrorDetails(err error) map[string]interface{} {
	var extErr *ExtmanError
	if errors.As(err, &extErr) {
		return extErr.Details
	}
	return nil
}
