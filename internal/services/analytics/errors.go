package analytics

import (
	"errors"
	"fmt"
)

// Kind classifies an analytics error.
type Kind string

const (
	// KindConfiguration covers missing or invalid configuration and client
	// construction failures. Fatal at setup.
	KindConfiguration Kind = "configuration"
	// KindTransport covers errors returned by the SDK when handing off events.
	KindTransport Kind = "transport"
	// KindBuild covers requests that cannot be turned into an event.
	KindBuild Kind = "build"
)

var (
	ErrMissingAPIKey  = errors.New("missing API key: set POSTHOG_API_KEY or configure posthog.api_key")
	ErrInvalidConfig  = errors.New("invalid analytics configuration")
	ErrDeviceID       = errors.New("unable to determine device id")
	ErrEmptyEventName = errors.New("event name is required")
)

// Error is returned by every failing wrapper operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("analytics %s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the Kind of err, if it is or wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
