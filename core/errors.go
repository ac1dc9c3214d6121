package core

import "github.com/pkg/errors"

// FieldError ties an error message to the struct field it concerns.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a client-facing error. The HTTP layer renders Fields as
// a per-field map when present, or Err's message alone otherwise.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals that the integrity of the service is compromised and the
// server should stop instead of serving the next request.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown checks whether err (at any wrap depth) demands a shutdown.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
