package bridge

import (
	"errors"
	"fmt"

	"kongflow/analytics-bridge/internal/services/analytics"
	"kongflow/analytics-bridge/internal/validation"
)

// ErrorKind is the machine-readable kind carried in the error envelope.
type ErrorKind string

const (
	KindConfiguration  ErrorKind = "configuration"
	KindTransport      ErrorKind = "transport"
	KindBuild          ErrorKind = "build"
	KindValidation     ErrorKind = "validation"
	KindUnknownCommand ErrorKind = "unknown_command"
	KindInternal       ErrorKind = "internal"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Error is returned by Dispatcher.Invoke for every failed invocation.
type Error struct {
	Kind    ErrorKind
	Command string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorBody is the JSON shape of a failed invocation.
type ErrorBody struct {
	Kind    ErrorKind               `json:"kind"`
	Message string                  `json:"message"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

// Envelope wraps ErrorBody as {"error": {...}}.
type Envelope struct {
	Error ErrorBody `json:"error"`
}

// NewEnvelope renders err for the caller. Errors that are not a *Error are
// reported as internal.
func NewEnvelope(err error) Envelope {
	body := ErrorBody{Kind: KindOf(err), Message: err.Error()}

	var be *Error
	if errors.As(err, &be) {
		body.Message = be.Err.Error()
	}

	var ve *validation.Errors
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}

	return Envelope{Error: body}
}

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

func classify(command string, err error) *Error {
	var be *Error
	if errors.As(err, &be) {
		return be
	}

	kind := KindInternal
	var ve *validation.Errors
	switch {
	case errors.Is(err, ErrUnknownCommand):
		kind = KindUnknownCommand
	case errors.Is(err, ErrInvalidPayload), errors.As(err, &ve):
		kind = KindValidation
	default:
		if k, ok := analytics.KindOf(err); ok {
			switch k {
			case analytics.KindConfiguration:
				kind = KindConfiguration
			case analytics.KindTransport:
				kind = KindTransport
			case analytics.KindBuild:
				kind = KindBuild
			}
		}
	}
	return &Error{Kind: kind, Command: command, Err: err}
}
