package hotreload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Reloadable is a component that can rebuild its state from the current
// configuration
type Reloadable interface {
	Reload(ctx context.Context) error
	Name() string
}

// Coordinator manages the reload process
type Coordinator struct {
	watcher      *Watcher
	broadcaster  *Broadcaster
	reloadables  map[string]Reloadable
	eventChan    chan Event
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	debounceTime time.Duration
	wg           sync.WaitGroup
	isRunning    bool
}

// NewCoordinator creates a new reload coordinator. Listeners registered
// on the broadcaster are notified after the components have reloaded.
func NewCoordinator(watcher *Watcher, broadcaster *Broadcaster) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())

	return &Coordinator{
		watcher:      watcher,
		broadcaster:  broadcaster,
		reloadables:  make(map[string]Reloadable),
		eventChan:    make(chan Event, 100),
		ctx:          ctx,
		cancel:       cancel,
		debounceTime: 500 * time.Millisecond,
	}
}

// Register adds a reloadable component to the coordinator
func (c *Coordinator) Register(reloadable Reloadable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	name := reloadable.Name()
	if _, exists := c.reloadables[name]; exists {
		return fmt.Errorf("reloadable %s already registered", name)
	}

	c.reloadables[name] = reloadable
	slog.Info("Registered reloadable component", "name", name)
	return nil
}

// Unregister removes a reloadable component from the coordinator
func (c *Coordinator) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.reloadables, name)
	slog.Info("Unregistered reloadable component", "name", name)
}

// Start begins watching and coordinating reloads
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("coordinator already running")
	}
	c.isRunning = true
	c.mu.Unlock()

	c.watcher.Start()

	c.wg.Add(2)
	go c.processEvents()
	go c.coordinateReloads()

	slog.Info("Reload coordinator started")
	return nil
}

// Stop stops the coordination. The watcher stops first so no new events
// arrive while the workers drain.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return
	}
	c.isRunning = false
	c.mu.Unlock()

	c.cancel()
	c.watcher.Stop()
	c.wg.Wait()

	slog.Info("Reload coordinator stopped")
}

// processEvents forwards watcher events into the debounce loop
func (c *Coordinator) processEvents() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case event, ok := <-c.watcher.Events():
			if !ok {
				return
			}
			select {
			case c.eventChan <- event:
			case <-c.ctx.Done():
				return
			}
		}
	}
}

// coordinateReloads folds bursts of file events into a single reload.
// Editors that save through a temp file and rename produce several
// events for one logical change.
func (c *Coordinator) coordinateReloads() {
	defer c.wg.Done()

	var (
		debounceTimer *time.Timer
		fire          <-chan time.Time // nil until the timer is armed
		events        []Event
	)

	for {
		select {
		case <-c.ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event := <-c.eventChan:
			events = append(events, event)

			if debounceTimer == nil {
				debounceTimer = time.NewTimer(c.debounce())
				fire = debounceTimer.C
			} else {
				if !debounceTimer.Stop() {
					select {
					case <-fire:
					default:
					}
				}
				debounceTimer.Reset(c.debounce())
			}

		case <-fire:
			if len(events) > 0 {
				c.triggerReload(events)
				events = events[:0]
			}
			debounceTimer = nil
			fire = nil
		}
	}
}

// triggerReload reloads all registered components for one batch of
// events, then notifies listeners
func (c *Coordinator) triggerReload(events []Event) {
	c.mu.RLock()
	reloadables := make([]Reloadable, 0, len(c.reloadables))
	for _, r := range c.reloadables {
		reloadables = append(reloadables, r)
	}
	c.mu.RUnlock()

	slog.Info("Configuration change detected", "events", len(events))
	for _, event := range events {
		slog.Debug("Reload triggered by", "path", event.Path, "operation", event.Op.String())
	}

	if len(reloadables) > 0 {
		var wg sync.WaitGroup
		errCh := make(chan error, len(reloadables))

		for _, reloadable := range reloadables {
			wg.Add(1)
			go func(r Reloadable) {
				defer wg.Done()
				if err := r.Reload(c.ctx); err != nil {
					errCh <- fmt.Errorf("failed to reload %s: %w", r.Name(), err)
				} else {
					slog.Info("Successfully reloaded component", "name", r.Name())
				}
			}(reloadable)
		}

		wg.Wait()
		close(errCh)

		failed := 0
		for err := range errCh {
			failed++
			slog.Error("Reload error", "error", err)
		}
		if failed > 0 {
			slog.Error("Reload completed with errors", "errors", failed)
		} else {
			slog.Info("Reload completed successfully")
		}
	}

	// Listeners run after the components have settled.
	if c.broadcaster != nil {
		for _, event := range events {
			if err := c.broadcaster.Broadcast(c.ctx, event); err != nil {
				slog.Error("Listener notification failed", "error", err)
			}
		}
	}
}

// SetDebounceTime sets the debounce time for reload events
func (c *Coordinator) SetDebounceTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.debounceTime = d
}

func (c *Coordinator) debounce() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.debounceTime
}

// IsRunning returns whether the coordinator is currently running
func (c *Coordinator) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}
