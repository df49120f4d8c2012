package dispatch

import "errors"

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError rejects a request before any send is attempted.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func required(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// TransportError wraps a Message Sender failure for one destination.
type TransportError struct {
	Destination string
	Err         error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "send failed"
	}
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }
