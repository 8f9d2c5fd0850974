// Package transport delivers telemetry batches to the collector.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/beaconkit/beacon/internal/config"
	"github.com/beaconkit/beacon/internal/constants"
	"github.com/beaconkit/beacon/internal/observability"
	"github.com/beaconkit/beacon/internal/telemetry"
)

// HTTP posts batches as JSON to the configured collector endpoint. A
// client-side rate limiter keeps an agent in a tight retry loop from
// hammering the collector.
type HTTP struct {
	client   *http.Client
	endpoint string
	apiKey   string
	limiter  *rate.Limiter
	log      *observability.Logger
}

var _ telemetry.Sender = (*HTTP)(nil)

// NewHTTP creates a sender for the collector described by cfg.
func NewHTTP(cfg config.CollectorConfig, log *observability.Logger) (*HTTP, error) {
	if cfg.URL == "" {
		return nil, errors.New("collector URL must not be empty")
	}
	return &HTTP{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.URL,
		apiKey:   cfg.APIKey,
		limiter:  rate.NewLimiter(rate.Limit(cfg.SendsPerSecond), cfg.SendBurst),
		log:      log,
	}, nil
}

// Send delivers one batch. Any non-2xx/3xx response is an error so the
// caller's retry policy takes over.
func (h *HTTP) Send(ctx context.Context, batch telemetry.Batch) error {
	if err := h.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode batch %s: %w", batch.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build collector request: %w", err)
	}
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	if h.apiKey != "" {
		req.Header.Set(constants.HeaderXAPIKey, h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver batch %s: %w", batch.ID, err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("collector rejected batch %s: status %d", batch.ID, resp.StatusCode)
	}

	h.log.Debug("Batch delivered",
		zap.String("batch_id", batch.ID),
		zap.Int("events", len(batch.Events)),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
