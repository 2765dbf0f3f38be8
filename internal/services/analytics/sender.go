package analytics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/posthog/posthog-go"

	"kongflow/analytics-bridge/internal/logger"
	"kongflow/analytics-bridge/internal/metrics"
)

// Sender hands events to the analytics backend. Implementations add no retry or
// backoff of their own.
type Sender interface {
	Send(ctx context.Context, event Event) error
	SendBatch(ctx context.Context, events []Event) error
	Close() error
}

// SenderFactory builds the Sender for a validated config.
type SenderFactory func(cfg Config, log *logger.Logger) (Sender, error)

// PostHogSender enqueues events on a posthog-go client, which batches, retries
// and delivers them in the background.
type PostHogSender struct {
	client posthog.Client
}

// NewPostHogSender is the default SenderFactory.
func NewPostHogSender(cfg Config, log *logger.Logger) (Sender, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.RequestTimeout()

	client, err := posthog.NewWithConfig(
		cfg.APIKey,
		posthog.Config{
			Endpoint:  cfg.APIEndpoint,
			Interval:  cfg.FlushInterval,
			BatchSize: cfg.BatchSize,
			Transport: transport,
			Logger:    log,
			Callback:  deliveryCallback{log: log},
			Verbose:   cfg.Options.Debug,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostHog client: %w", err)
	}

	return &PostHogSender{client: client}, nil
}

func (s *PostHogSender) Send(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return newError(KindTransport, "send", err)
	}
	if err := s.client.Enqueue(toCapture(event)); err != nil {
		return newError(KindTransport, "send", err)
	}
	return nil
}

// SendBatch enqueues events in order. The SDK queue only rejects once closed,
// so a failure on the first message means none were accepted.
func (s *PostHogSender) SendBatch(ctx context.Context, events []Event) error {
	if err := ctx.Err(); err != nil {
		return newError(KindTransport, "send_batch", err)
	}
	for i, event := range events {
		if err := s.client.Enqueue(toCapture(event)); err != nil {
			return newError(KindTransport, "send_batch", fmt.Errorf("event %d of %d: %w", i+1, len(events), err))
		}
	}
	return nil
}

// Close flushes queued events and stops the client.
func (s *PostHogSender) Close() error {
	return s.client.Close()
}

func toCapture(event Event) posthog.Capture {
	props := posthog.NewProperties()
	for k, v := range event.Properties {
		props.Set(k, v)
	}

	capture := posthog.Capture{
		Uuid:       event.UUID,
		DistinctId: event.DistinctID,
		Event:      event.Name,
		Timestamp:  event.Timestamp,
		Properties: props,
	}

	if len(event.Groups) > 0 {
		groups := posthog.NewGroups()
		for groupType, groupID := range event.Groups {
			groups.Set(groupType, groupID)
		}
		capture.Groups = groups
	}

	return capture
}

type deliveryCallback struct {
	log *logger.Logger
}

func (c deliveryCallback) Success(msg posthog.APIMessage) {
	metrics.RecordDelivery(true)
}

func (c deliveryCallback) Failure(msg posthog.APIMessage, err error) {
	metrics.RecordDelivery(false)
	c.log.Warnf("analytics delivery failed: %v", err)
}
