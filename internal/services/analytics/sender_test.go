package analytics

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kongflow/analytics-bridge/internal/logger"
)

func TestToCapture(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	capture := toCapture(Event{
		UUID:       "0b5c1f9e-8a3e-4c55-9a52-0f6f5b1f0a11",
		Name:       "purchase",
		DistinctID: "user-1",
		Properties: map[string]interface{}{"amount": 9.99, PropDeviceID: "dev-1"},
		Groups:     map[string]string{"company": "acme"},
		Timestamp:  ts,
	})

	assert.Equal(t, "purchase", capture.Event)
	assert.Equal(t, "user-1", capture.DistinctId)
	assert.Equal(t, "0b5c1f9e-8a3e-4c55-9a52-0f6f5b1f0a11", capture.Uuid)
	assert.Equal(t, ts, capture.Timestamp)
	assert.Equal(t, 9.99, capture.Properties["amount"])
	assert.Equal(t, "dev-1", capture.Properties[PropDeviceID])
	assert.Equal(t, "acme", capture.Groups["company"])

	bare := toCapture(Event{Name: "bare", DistinctID: "d"})
	assert.Nil(t, bare.Groups)
	assert.True(t, bare.Timestamp.IsZero())
}

// batchRecorder is a minimal stand-in for the PostHog /batch/ endpoint.
type batchRecorder struct {
	mu     sync.Mutex
	events []map[string]interface{}
	apiKey string
}

func (b *batchRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/batch") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer gz.Close()
		body = gz
	}

	var payload struct {
		APIKey string                   `json:"api_key"`
		Batch  []map[string]interface{} `json:"batch"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.apiKey = payload.APIKey
	b.events = append(b.events, payload.Batch...)
	b.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":1}`))
}

func (b *batchRecorder) snapshot() (string, []map[string]interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.apiKey, append([]map[string]interface{}(nil), b.events...)
}

func TestPostHogSender_DeliversToEndpoint(t *testing.T) {
	rec := &batchRecorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	cfg := Config{
		APIKey:        "phc_integration",
		APIEndpoint:   srv.URL,
		FlushInterval: 50 * time.Millisecond,
	}.withDefaults()
	require.NoError(t, cfg.Validate())

	sender, err := NewPostHogSender(cfg, logger.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sender.Send(ctx, Event{
		UUID:       "6f1f7f43-50a4-4b3e-9b8e-8b7d1b3f2c10",
		Name:       "single",
		DistinctID: "user-1",
		Properties: map[string]interface{}{PropDeviceID: "dev-1"},
	}))
	require.NoError(t, sender.SendBatch(ctx, []Event{
		{Name: "batch-a", DistinctID: "user-1", Properties: map[string]interface{}{}},
		{Name: "batch-b", DistinctID: "user-2", Properties: map[string]interface{}{}, Groups: map[string]string{"company": "acme"}},
	}))

	// Close flushes the queue.
	require.NoError(t, sender.Close())

	apiKey, events := rec.snapshot()
	assert.Equal(t, "phc_integration", apiKey)
	require.Len(t, events, 3)

	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e["event"].(string))
	}
	assert.ElementsMatch(t, []string{"single", "batch-a", "batch-b"}, names)

	for _, e := range events {
		if e["event"] == "single" {
			assert.Equal(t, "user-1", e["distinct_id"])
			props := e["properties"].(map[string]interface{})
			assert.Equal(t, "dev-1", props[PropDeviceID])
		}
	}
}

func TestPostHogSender_ClosedClientIsTransportError(t *testing.T) {
	srv := httptest.NewServer(&batchRecorder{})
	defer srv.Close()

	sender, err := NewPostHogSender(Config{APIKey: "phc_closed", APIEndpoint: srv.URL}.withDefaults(), logger.Nop())
	require.NoError(t, err)
	require.NoError(t, sender.Close())

	err = sender.Send(context.Background(), Event{Name: "late", DistinctID: "d"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))

	err = sender.SendBatch(context.Background(), []Event{{Name: "late", DistinctID: "d"}})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))
}

func TestPostHogSender_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(&batchRecorder{})
	defer srv.Close()

	sender, err := NewPostHogSender(Config{APIKey: "k", APIEndpoint: srv.URL}.withDefaults(), logger.Nop())
	require.NoError(t, err)
	defer sender.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = sender.Send(ctx, Event{Name: "e", DistinctID: "d"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransport))
	assert.ErrorIs(t, err, context.Canceled)
}
