// Package apperrors holds the error taxonomy shared by the browsekit services.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is wrapped by ConfigurationError when no remote host token is set.
	ErrMissingCredential = errors.New("missing credential")

	// ErrTimeout is wrapped by ExecutionError when a remote call exceeds its budget.
	ErrTimeout = errors.New("remote execution timed out")
)

// ConfigurationError is fatal at startup.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// MissingCredential reports that the environment key holding the remote token is empty.
func MissingCredential(key string) error {
	return &ConfigurationError{Key: key, Err: ErrMissingCredential}
}

// ValidationError rejects an intent before any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ExecutionError is returned when the hosted browser call failed, timed out,
// or answered with a non-success status. UpstreamBody carries the host's
// message when one was sent.
type ExecutionError struct {
	Op           string
	StatusCode   int
	UpstreamBody string
	Err          error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.UpstreamBody != "" {
		msg += ": " + e.UpstreamBody
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was caused by the call budget running out.
func (e *ExecutionError) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

// ExtractionError describes a single field that could not be extracted.
// It never crosses the normalizer boundary; the field becomes null instead.
type ExtractionError struct {
	Field    string
	Selector string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %q (%s): %v", e.Field, e.Selector, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// AsExecution unwraps err into an ExecutionError if it is one.
func AsExecution(err error) (*ExecutionError, bool) {
	var e *ExecutionError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
