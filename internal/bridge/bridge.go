// Package bridge maps named commands carrying JSON payloads onto an
// analytics.Service. It knows nothing about transports; internal/server
// exposes it over HTTP.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"kongflow/analytics-bridge/internal/logger"
	"kongflow/analytics-bridge/internal/metrics"
	"kongflow/analytics-bridge/internal/services/analytics"
	"kongflow/analytics-bridge/internal/services/ulid"
	"kongflow/analytics-bridge/internal/validation"
)

// Command names.
const (
	CmdCapture          = "capture"
	CmdCaptureBatch     = "capture_batch"
	CmdIdentify         = "identify"
	CmdAlias            = "alias"
	CmdReset            = "reset"
	CmdGetDistinctID    = "get_distinct_id"
	CmdGetDeviceID      = "get_device_id"
	CmdGetConfig        = "get_config"
	CmdRegenerateAutoID = "regenerate_auto_id"
	CmdPing             = "ping"
)

// Response is the result of a successful invocation.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result"`
}

// PingRequest is echoed back unchanged by the ping command.
type PingRequest struct {
	Value *string `json:"value,omitempty"`
}

type handlerFunc func(ctx context.Context, payload []byte) (interface{}, error)

// Dispatcher routes commands to the analytics service.
type Dispatcher struct {
	svc      analytics.Service
	ids      *ulid.Service
	log      *logger.Logger
	handlers map[string]handlerFunc
}

func New(svc analytics.Service, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.New("bridge")
	}
	d := &Dispatcher{
		svc: svc,
		ids: ulid.New(),
		log: log,
	}
	d.handlers = map[string]handlerFunc{
		CmdCapture:          d.capture,
		CmdCaptureBatch:     d.captureBatch,
		CmdIdentify:         d.identify,
		CmdAlias:            d.alias,
		CmdReset:            d.reset,
		CmdGetDistinctID:    d.getDistinctID,
		CmdGetDeviceID:      d.getDeviceID,
		CmdGetConfig:        d.getConfig,
		CmdRegenerateAutoID: d.regenerateAutoID,
		CmdPing:             d.ping,
	}
	return d
}

// Commands lists the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs command with payload. Every call is assigned an invocation id,
// which is returned in the Response and logged along with the time encoded in
// it. Failures are always a *Error.
func (d *Dispatcher) Invoke(ctx context.Context, command string, payload []byte) (Response, error) {
	id := d.ids.Generate()
	start := time.Now()
	issuedAt, _ := ulid.Time(id)

	var (
		result interface{}
		err    error
		label  = command
	)
	if h, ok := d.handlers[command]; ok {
		result, err = h(ctx, payload)
	} else {
		label = "unknown"
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	elapsed := time.Since(start)
	metrics.RecordInvocation(label, elapsed, err)

	zl := d.log.Zerolog()
	if err != nil {
		be := classify(command, err)
		zl.Warn().
			Str("invocation", id).
			Time("issued_at", issuedAt).
			Str("command", command).
			Str("kind", string(be.Kind)).
			Dur("elapsed", elapsed).
			Err(be.Err).
			Msg("command failed")
		return Response{ID: id}, be
	}

	zl.Debug().
		Str("invocation", id).
		Time("issued_at", issuedAt).
		Str("command", command).
		Dur("elapsed", elapsed).
		Msg("command ok")
	return Response{ID: id, Result: result}, nil
}

// decode unmarshals payload into v and validates it. Numbers inside free-form
// maps are kept as json.Number so large integers pass through unchanged.
func decode(payload []byte, v interface{}) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return validation.Struct(v)
}

func (d *Dispatcher) capture(ctx context.Context, payload []byte) (interface{}, error) {
	var req analytics.CaptureRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return nil, d.svc.Capture(ctx, req)
}

func (d *Dispatcher) captureBatch(ctx context.Context, payload []byte) (interface{}, error) {
	var req analytics.BatchCaptureRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	return nil, d.svc.CaptureBatch(ctx, req.Events)
}

// identify sets the distinct id. When properties are supplied they are sent
// as a $identify event under the new id.
func (d *Dispatcher) identify(ctx context.Context, payload []byte) (interface{}, error) {
	var req analytics.IdentifyRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}

	d.svc.Identify(req.DistinctID)
	if req.Properties == nil {
		return nil, nil
	}
	return nil, d.svc.Capture(ctx, analytics.CaptureRequest{
		Event:      analytics.EventIdentify,
		DistinctID: req.DistinctID,
		Properties: req.Properties,
	})
}

func (d *Dispatcher) alias(ctx context.Context, payload []byte) (interface{}, error) {
	var req analytics.AliasRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}

	d.svc.Identify(req.DistinctID)
	return nil, d.svc.Alias(ctx, req.Alias)
}

func (d *Dispatcher) reset(context.Context, []byte) (interface{}, error) {
	d.svc.Reset()
	return nil, nil
}

func (d *Dispatcher) getDistinctID(context.Context, []byte) (interface{}, error) {
	if id, ok := d.svc.DistinctID(); ok {
		return id, nil
	}
	return nil, nil
}

func (d *Dispatcher) getDeviceID(context.Context, []byte) (interface{}, error) {
	return d.svc.DeviceID(), nil
}

func (d *Dispatcher) getConfig(context.Context, []byte) (interface{}, error) {
	return d.svc.Config(), nil
}

func (d *Dispatcher) regenerateAutoID(context.Context, []byte) (interface{}, error) {
	return d.svc.RegenerateAutoID(), nil
}

func (d *Dispatcher) ping(_ context.Context, payload []byte) (interface{}, error) {
	var req PingRequest
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}
	return req, nil
}
