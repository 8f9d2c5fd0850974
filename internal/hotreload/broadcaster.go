package hotreload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Listener is a callback invoked after a reload has been applied
type Listener func(ctx context.Context, event Event) error

// Broadcaster fans reload notifications out to named listeners
type Broadcaster struct {
	listeners map[string]Listener
	mu        sync.RWMutex
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		listeners: make(map[string]Listener),
	}
}

// AddListener adds a listener with a unique name
func (b *Broadcaster) AddListener(name string, listener Listener) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.listeners[name]; exists {
		return fmt.Errorf("listener %s already exists", name)
	}

	b.listeners[name] = listener
	slog.Debug("Added event listener", "name", name)
	return nil
}

// RemoveListener removes a listener by name
func (b *Broadcaster) RemoveListener(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.listeners, name)
	slog.Debug("Removed event listener", "name", name)
}

// Broadcast notifies all registered listeners concurrently and reports
// how many of them failed
func (b *Broadcaster) Broadcast(ctx context.Context, event Event) error {
	type namedListener struct {
		name     string
		listener Listener
	}

	b.mu.RLock()
	snapshot := make([]namedListener, 0, len(b.listeners))
	for name, listener := range b.listeners {
		snapshot = append(snapshot, namedListener{name: name, listener: listener})
	}
	b.mu.RUnlock()

	if len(snapshot) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(snapshot))

	for _, nl := range snapshot {
		wg.Add(1)
		go func(n string, l Listener) {
			defer wg.Done()
			if err := l(ctx, event); err != nil {
				errCh <- fmt.Errorf("listener %s failed: %w", n, err)
			}
		}(nl.name, nl.listener)
	}

	wg.Wait()
	close(errCh)

	failed := 0
	for err := range errCh {
		failed++
		slog.Error("Listener error", "error", err)
	}
	if failed > 0 {
		return fmt.Errorf("broadcast failed with %d errors", failed)
	}

	return nil
}

// Close removes all listeners
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.listeners = make(map[string]Listener)
	slog.Debug("Event broadcaster closed")
}

// ListenerCount returns the number of registered listeners
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// HasListener checks if a listener with the given name exists
func (b *Broadcaster) HasListener(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.listeners[name]
	return exists
}
