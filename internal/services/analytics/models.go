// Package analytics is the identity-aware façade over the PostHog Go SDK.
//
// A ClientWrapper owns:
//   - the identity state (an optional user-chosen distinct id plus an immutable device id)
//   - the handle to the SDK client, built eagerly or on first use
//   - the mapping from capture requests to outbound events
//
// Transport, serialization and retry are left entirely to the SDK.
package analytics

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Well-known event names and property keys.
const (
	EventIdentify    = "$identify"
	EventCreateAlias = "$create_alias"

	PropDeviceID             = "$device_id"
	PropProcessPersonProfile = "$process_person_profile"
	PropAlias                = "alias"

	autoIDPrefix = "$device:"
)

// InitStrategy controls when the SDK client is constructed.
type InitStrategy string

const (
	InitEager InitStrategy = "eager"
	InitLazy  InitStrategy = "lazy"
)

// DeviceIDSourceKind selects how the device id is obtained.
type DeviceIDSourceKind string

const (
	DeviceIDMachine DeviceIDSourceKind = "machine"
	DeviceIDRandom  DeviceIDSourceKind = "random"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultAPIEndpoint           = "https://us.i.posthog.com"
	DefaultRequestTimeoutSeconds = 30
	DefaultBatchSize             = 250
	DefaultFlushInterval         = 5 * time.Second
)

// Options are client-side settings passed through unchanged to whoever reads
// the config back (the host's web layer); the Go side does not act on them.
type Options struct {
	DisableCookie           bool   `json:"disableCookie,omitempty" koanf:"disable_cookie"`
	DisableSessionRecording bool   `json:"disableSessionRecording,omitempty" koanf:"disable_session_recording"`
	CapturePageview         bool   `json:"capturePageview,omitempty" koanf:"capture_pageview"`
	CapturePageleave        bool   `json:"capturePageleave,omitempty" koanf:"capture_pageleave"`
	Debug                   bool   `json:"debug,omitempty" koanf:"debug"`
	Persistence             string `json:"persistence,omitempty" koanf:"persistence"`
	PersonProfiles          string `json:"personProfiles,omitempty" koanf:"person_profiles"`
}

// Config is the wrapper configuration. It is copied at construction and never
// mutated afterwards.
type Config struct {
	APIKey                string             `json:"apiKey" koanf:"api_key"`
	APIEndpoint           string             `json:"apiEndpoint" koanf:"api_endpoint" validate:"required,http_url"`
	RequestTimeoutSeconds int                `json:"requestTimeoutSeconds" koanf:"request_timeout_seconds" validate:"min=1"`
	AutoIdentify          bool               `json:"autoIdentify" koanf:"auto_identify"`
	InitStrategy          InitStrategy       `json:"initStrategy" koanf:"init_strategy" validate:"oneof=eager lazy"`
	DeviceIDSource        DeviceIDSourceKind `json:"deviceIdSource" koanf:"device_id_source" validate:"oneof=machine random"`
	BatchSize             int                `json:"batchSize" koanf:"batch_size" validate:"min=1"`
	FlushInterval         time.Duration      `json:"flushInterval" koanf:"flush_interval" validate:"gt=0"`
	Options               Options            `json:"options" koanf:"options"`
}

// DefaultConfig returns a Config with every optional field set. APIKey is left
// empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		APIEndpoint:           DefaultAPIEndpoint,
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
		AutoIdentify:          false,
		InitStrategy:          InitEager,
		DeviceIDSource:        DeviceIDMachine,
		BatchSize:             DefaultBatchSize,
		FlushInterval:         DefaultFlushInterval,
	}
}

// RequestTimeout returns the configured request timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// MarshalJSON renders FlushInterval as a duration string such as "5s".
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	return json.Marshal(struct {
		plain
		FlushInterval string `json:"flushInterval"`
	}{
		plain:         plain(c),
		FlushInterval: c.FlushInterval.String(),
	})
}

// withDefaults fills zero values and normalizes the endpoint. An endpoint that
// points at the capture path ("/i/v0/e/") is reduced to its host, since the SDK
// appends its own paths.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.APIEndpoint = strings.TrimSpace(c.APIEndpoint)
	if c.APIEndpoint == "" {
		c.APIEndpoint = d.APIEndpoint
	}
	c.APIEndpoint = strings.TrimRight(c.APIEndpoint, "/")
	c.APIEndpoint = strings.TrimSuffix(c.APIEndpoint, "/i/v0/e")
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = d.RequestTimeoutSeconds
	}
	if c.InitStrategy == "" {
		c.InitStrategy = d.InitStrategy
	}
	if c.DeviceIDSource == "" {
		c.DeviceIDSource = d.DeviceIDSource
	}
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = d.FlushInterval
	}
	return c
}

// GroupID is a group identifier. It decodes from either a JSON string or number.
type GroupID string

func (g *GroupID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = GroupID(s)
		return nil
	}

	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("group id must be a string or number, got %s", data)
	}
	*g = GroupID(data)
	return nil
}

// CaptureRequest is an inbound request to capture one event.
type CaptureRequest struct {
	Event      string                 `json:"event" validate:"required"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	DistinctID string                 `json:"distinctId,omitempty"`
	Groups     map[string]GroupID     `json:"groups,omitempty"`
	Timestamp  *time.Time             `json:"timestamp,omitempty"`
	Anonymous  bool                   `json:"anonymous,omitempty"`
}

// BatchCaptureRequest carries several capture requests submitted together.
type BatchCaptureRequest struct {
	Events []CaptureRequest `json:"events" validate:"required,min=1,dive"`
}

// IdentifyRequest sets the distinct id, optionally recording person properties.
type IdentifyRequest struct {
	DistinctID string                 `json:"distinctId" validate:"required"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// AliasRequest links Alias to DistinctID.
type AliasRequest struct {
	DistinctID string `json:"distinctId" validate:"required"`
	Alias      string `json:"alias" validate:"required"`
}

// Event is the outbound, wire-ready event handed to a Sender. A zero Timestamp
// leaves the choice to the SDK.
type Event struct {
	UUID       string
	Name       string
	DistinctID string
	Anonymous  bool
	Properties map[string]interface{}
	Groups     map[string]string
	Timestamp  time.Time
}
