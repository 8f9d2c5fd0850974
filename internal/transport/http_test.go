package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconkit/beacon/internal/config"
	"github.com/beaconkit/beacon/internal/observability"
	"github.com/beaconkit/beacon/internal/telemetry"
)

func testCollectorConfig(url string) config.CollectorConfig {
	cfg := config.DefaultCollectorConfig()
	cfg.URL = url
	cfg.APIKey = "beacon-test-key"
	cfg.SendsPerSecond = 100
	cfg.SendBurst = 100
	return cfg
}

func sampleBatch() telemetry.Batch {
	return telemetry.Batch{
		ID:          "batch-1",
		SessionID:   "session-1",
		Version:     "1.2.3",
		Environment: "test",
		SentAt:      time.Now().UTC(),
		Events: []telemetry.Event{
			{Kind: telemetry.KindAction, Name: "button_click"},
			{Kind: telemetry.KindPerformance, Name: "render", Value: 12.5},
		},
	}
}

func TestNewHTTP_RequiresURL(t *testing.T) {
	_, err := NewHTTP(config.DefaultCollectorConfig(), observability.NewNop())
	assert.Error(t, err)
}

func TestHTTP_Send(t *testing.T) {
	var (
		mu       sync.Mutex
		received telemetry.Batch
		header   http.Header
		method   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method = r.Method
		header = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender, err := NewHTTP(testCollectorConfig(srv.URL), observability.NewNop())
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), sampleBatch()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, "beacon-test-key", header.Get("X-API-Key"))
	assert.Equal(t, "batch-1", received.ID)
	require.Len(t, received.Events, 2)
	assert.Equal(t, telemetry.KindAction, received.Events[0].Kind)
}

func TestHTTP_SendWithoutAPIKey(t *testing.T) {
	var sawKey bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawKey = r.Header.Get("X-API-Key") != ""
	}))
	defer srv.Close()

	cfg := testCollectorConfig(srv.URL)
	cfg.APIKey = ""
	sender, err := NewHTTP(cfg, observability.NewNop())
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), sampleBatch()))
	assert.False(t, sawKey, "no API key header when none is configured")
}

func TestHTTP_SendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "burst limit", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	sender, err := NewHTTP(testCollectorConfig(srv.URL), observability.NewNop())
	require.NoError(t, err)

	err = sender.Send(context.Background(), sampleBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestHTTP_SendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	sender, err := NewHTTP(testCollectorConfig(url), observability.NewNop())
	require.NoError(t, err)

	assert.Error(t, sender.Send(context.Background(), sampleBatch()))
}

func TestHTTP_SendRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	cfg := testCollectorConfig(srv.URL)
	cfg.SendsPerSecond = 0.001
	cfg.SendBurst = 1
	sender, err := NewHTTP(cfg, observability.NewNop())
	require.NoError(t, err)

	require.NoError(t, sender.Send(context.Background(), sampleBatch()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = sender.Send(ctx, sampleBatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Send(context.Background(), sampleBatch()))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Send(ctx, sampleBatch()))
	assert.Equal(t, 1, m.Len())

	m.SetError(errors.New("collector offline"))
	assert.Error(t, m.Send(ctx, sampleBatch()))
	assert.Equal(t, 1, m.Len())

	m.SetError(nil)
	require.NoError(t, m.Send(ctx, sampleBatch()))

	batches := m.Batches()
	require.Len(t, batches, 2)
	assert.Equal(t, "batch-1", batches[0].ID)
}
