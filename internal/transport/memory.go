package transport

import (
	"context"
	"sync"

	"github.com/beaconkit/beacon/internal/telemetry"
)

// Discard accepts and drops every batch. It stands in for the collector
// when none is configured, so the rest of the pipeline behaves normally.
type Discard struct{}

var _ telemetry.Sender = Discard{}

func (Discard) Send(ctx context.Context, batch telemetry.Batch) error {
	return nil
}

// Memory records batches in memory. It backs integration tests that
// need to observe exactly what would have gone over the wire.
type Memory struct {
	mu      sync.Mutex
	batches []telemetry.Batch
	err     error
}

var _ telemetry.Sender = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

// SetError makes subsequent Send calls fail with err. Passing nil
// restores delivery.
func (m *Memory) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) Send(ctx context.Context, batch telemetry.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, batch)
	return nil
}

// Batches returns a copy of everything delivered so far.
func (m *Memory) Batches() []telemetry.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]telemetry.Batch(nil), m.batches...)
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}
