package analytics

import (
	"context"
	"fmt"

	"kongflow/analytics-bridge/internal/logger"
	"kongflow/analytics-bridge/internal/metrics"
	"kongflow/analytics-bridge/internal/validation"
)

// ClientWrapper implements Service on top of a Sender.
type ClientWrapper struct {
	config   Config
	identity *IdentityStore
	builder  *EventBuilder
	handle   *clientHandle
	log      *logger.Logger
}

type wrapperOptions struct {
	factory      SenderFactory
	deviceSource DeviceIDSource
	log          *logger.Logger
}

// Option customizes NewClientWrapper.
type Option func(*wrapperOptions)

// WithSenderFactory replaces the PostHog sender factory.
func WithSenderFactory(factory SenderFactory) Option {
	return func(o *wrapperOptions) { o.factory = factory }
}

// WithSender uses sender as-is.
func WithSender(sender Sender) Option {
	return WithSenderFactory(func(Config, *logger.Logger) (Sender, error) {
		return sender, nil
	})
}

// WithDeviceIDSource overrides the source selected by Config.DeviceIDSource.
func WithDeviceIDSource(src DeviceIDSource) Option {
	return func(o *wrapperOptions) { o.deviceSource = src }
}

func WithLogger(log *logger.Logger) Option {
	return func(o *wrapperOptions) { o.log = log }
}

// Validate checks a config after defaults have been applied.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return newError(KindConfiguration, "config", ErrMissingAPIKey)
	}
	if err := validation.Struct(c); err != nil {
		return newError(KindConfiguration, "config", fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return nil
}

// NewClientWrapper validates cfg, resolves the device id and, for InitEager,
// constructs the SDK client. A missing API key fails before any network use.
func NewClientWrapper(cfg Config, opts ...Option) (*ClientWrapper, error) {
	o := wrapperOptions{factory: NewPostHogSender}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.New("analytics")
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if o.deviceSource == nil {
		o.deviceSource = sourceFor(cfg.DeviceIDSource)
	}
	deviceID, err := resolveDeviceID(o.deviceSource)
	if err != nil {
		return nil, err
	}

	handle, err := newClientHandle(cfg, o.factory, o.log)
	if err != nil {
		return nil, err
	}

	identity := NewIdentityStore(deviceID, cfg.AutoIdentify)
	// With auto-identify the store starts out holding the device-derived id.
	identity.RegenerateAutoID()

	o.log.Infof("analytics wrapper ready (endpoint=%s, init=%s, auto_identify=%t)",
		cfg.APIEndpoint, cfg.InitStrategy, cfg.AutoIdentify)

	return &ClientWrapper{
		config:   cfg,
		identity: identity,
		builder:  NewEventBuilder(identity),
		handle:   handle,
		log:      o.log,
	}, nil
}

// Capture builds one event and hands it to the sender.
func (w *ClientWrapper) Capture(ctx context.Context, req CaptureRequest) error {
	return w.send(ctx, "capture", req)
}

// CaptureBatch builds every request before sending any. One bad request fails
// the whole batch and nothing is submitted.
func (w *ClientWrapper) CaptureBatch(ctx context.Context, reqs []CaptureRequest) error {
	if len(reqs) == 0 {
		return nil
	}

	events, err := w.builder.BuildAll(reqs)
	if err != nil {
		return w.fail("capture_batch", err)
	}

	sender, err := w.handle.Sender()
	if err != nil {
		return w.fail("capture_batch", err)
	}
	if err := sender.SendBatch(ctx, events); err != nil {
		return w.fail("capture_batch", err)
	}

	metrics.RecordSubmitted("capture_batch", len(events))
	w.log.Debugf("captured batch of %d events", len(events))
	return nil
}

// Identify sets the distinct id used by subsequent captures. It sends nothing.
func (w *ClientWrapper) Identify(distinctID string) {
	w.identity.Identify(distinctID)
}

// Alias emits $create_alias for the current distinct id. With no distinct id
// set it does nothing and returns nil.
func (w *ClientWrapper) Alias(ctx context.Context, alias string) error {
	distinctID, ok := w.identity.DistinctID()
	if !ok {
		w.log.Debugf("alias %q skipped: no distinct id set", alias)
		return nil
	}

	return w.send(ctx, "alias", CaptureRequest{
		Event:      EventCreateAlias,
		DistinctID: distinctID,
		Properties: map[string]interface{}{PropAlias: alias},
	})
}

// Reset clears the distinct id.
func (w *ClientWrapper) Reset() {
	w.identity.Reset()
}

// RegenerateAutoID sets the distinct id to the device-derived id when
// auto-identify is enabled.
func (w *ClientWrapper) RegenerateAutoID() bool {
	return w.identity.RegenerateAutoID()
}

func (w *ClientWrapper) DistinctID() (string, bool) {
	return w.identity.DistinctID()
}

func (w *ClientWrapper) DeviceID() string {
	return w.identity.DeviceID()
}

// Config returns a copy of the configuration.
func (w *ClientWrapper) Config() Config {
	return w.config
}

func (w *ClientWrapper) EffectiveDistinctID() string {
	return w.identity.EffectiveID()
}

func (w *ClientWrapper) AutoIdentifyEnabled() bool {
	return w.identity.AutoIdentifyEnabled()
}

// Close flushes and stops the SDK client if it was constructed.
func (w *ClientWrapper) Close() error {
	return w.handle.Close()
}

func (w *ClientWrapper) send(ctx context.Context, op string, req CaptureRequest) error {
	event, err := w.builder.Build(req)
	if err != nil {
		return w.fail(op, err)
	}

	sender, err := w.handle.Sender()
	if err != nil {
		return w.fail(op, err)
	}
	if err := sender.Send(ctx, event); err != nil {
		return w.fail(op, err)
	}

	metrics.RecordSubmitted(op, 1)
	w.log.Debug("captured event", map[string]interface{}{
		"op":         op,
		"event":      event.Name,
		"distinctId": event.DistinctID,
		"anonymous":  event.Anonymous,
	})
	return nil
}

func (w *ClientWrapper) fail(op string, err error) error {
	kind, ok := KindOf(err)
	if !ok {
		kind = KindTransport
		err = newError(kind, op, err)
	}
	metrics.RecordOperationError(op, string(kind))
	w.log.Warnf("analytics %s failed: %v", op, err)
	return err
}
