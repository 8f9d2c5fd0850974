// Package telemetry collects structured application events into a bounded
// queue and delivers them to a collector in batches, spooling undeliverable
// events to a durable store so they survive restarts.
package telemetry

import (
	"context"
	"time"
)

// Kind classifies an event.
type Kind string

const (
	KindAction      Kind = "action"
	KindPageView    Kind = "pageview"
	KindEngagement  Kind = "engagement"
	KindPerformance Kind = "performance"
	KindError       Kind = "error"
	KindInfo        Kind = "info"
)

// Event is a single structured telemetry record. Events are immutable once
// created. Context carries flat string attributes only; nested payloads do
// not belong in events.
type Event struct {
	Kind      Kind              `json:"kind"`
	Name      string            `json:"name"`
	Value     float64           `json:"value,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Batch is the delivery envelope for a set of events.
type Batch struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Version     string    `json:"version"`
	Environment string    `json:"environment"`
	SentAt      time.Time `json:"sent_at"`
	Events      []Event   `json:"events"`
}

// Sender delivers a batch to the collector.
type Sender interface {
	Send(ctx context.Context, batch Batch) error
}

// Store spools events that could not be delivered so they survive restarts.
type Store interface {
	Persist(ctx context.Context, events []Event) error
	LoadPersisted(ctx context.Context) ([]Event, error)
	Clear(ctx context.Context) error
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
