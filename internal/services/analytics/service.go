package analytics

import (
	"context"
)

// Service is the identity-aware analytics façade exposed to the command bridge.
type Service interface {
	// Event capture. Both return a *Error on failure and never retry.
	Capture(ctx context.Context, req CaptureRequest) error
	CaptureBatch(ctx context.Context, reqs []CaptureRequest) error

	// Identity mutation. Local only; nothing is sent.
	Identify(distinctID string)
	Reset()
	RegenerateAutoID() bool

	// Alias emits $create_alias for the current distinct id, or nothing when
	// none is set.
	Alias(ctx context.Context, alias string) error

	// Accessors
	DistinctID() (string, bool)
	DeviceID() string
	Config() Config
	EffectiveDistinctID() string
	AutoIdentifyEnabled() bool

	// Close flushes pending events
	Close() error
}

var _ Service = (*ClientWrapper)(nil)
