// Package testutil provides an in-memory Sender for tests of the analytics
// wrapper and the layers above it.
package testutil

import (
	"context"
	"sync"

	"kongflow/analytics-bridge/internal/services/analytics"
)

// Recorder is a Sender that keeps every accepted event.
type Recorder struct {
	mu      sync.Mutex
	events  []analytics.Event
	batches [][]analytics.Event
	closed  bool

	// SendErr, when set, is returned by Send and SendBatch instead of recording.
	SendErr error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(ctx context.Context, event analytics.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return r.SendErr
	}
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) SendBatch(ctx context.Context, events []analytics.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return r.SendErr
	}
	batch := append([]analytics.Event(nil), events...)
	r.batches = append(r.batches, batch)
	r.events = append(r.events, batch...)
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Events returns a copy of every recorded event, batched or not.
func (r *Recorder) Events() []analytics.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]analytics.Event(nil), r.events...)
}

// Batches returns a copy of every recorded batch.
func (r *Recorder) Batches() [][]analytics.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]analytics.Event(nil), r.batches...)
}

// Last returns the most recent event.
func (r *Recorder) Last() (analytics.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return analytics.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
