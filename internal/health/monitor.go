package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/beaconkit/beacon/internal/config"
	"github.com/beaconkit/beacon/internal/constants"
	"github.com/beaconkit/beacon/internal/observability"
)

var (
	// ErrNotRunning is returned by Check when the monitor has not been
	// started or has already been stopped.
	ErrNotRunning = errors.New("health monitor is not running")
	// ErrAlreadyRunning is returned by Start when the monitor is running.
	ErrAlreadyRunning = errors.New("health monitor is already running")
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("a stopped monitor cannot be restarted; construct a new one")
)

// CheckFunc probes one dependency. It must respect ctx and return a
// status plus an optional human-readable message.
type CheckFunc func(ctx context.Context) (CheckStatus, string)

// Emitter receives a performance event per evaluation cycle. It is
// satisfied by the telemetry logger.
type Emitter interface {
	Performance(name string, value float64, attrs map[string]string)
}

// Monitor evaluates all registered checks concurrently, each under its
// own timeout, and replaces the latest snapshot atomically. A check that
// never resolves or panics is recorded as a failure without disturbing
// its siblings.
type Monitor struct {
	cfg         config.HealthConfig
	version     string
	environment string
	log         *observability.Logger
	metrics     *observability.Metrics
	emitter     Emitter

	mu        sync.RWMutex
	checks    map[string]CheckFunc
	latest    Status
	hasLatest bool
	running   bool
	stopped   bool
	cancel    context.CancelFunc

	reloadCh chan time.Duration
	wg       sync.WaitGroup
}

// New creates a Monitor with an empty check registry. The emitter may
// be nil.
func New(cfg config.HealthConfig, version, environment string, log *observability.Logger, metrics *observability.Metrics, emitter Emitter) *Monitor {
	return &Monitor{
		cfg:         cfg,
		version:     version,
		environment: environment,
		log:         log,
		metrics:     metrics,
		emitter:     emitter,
		checks:      make(map[string]CheckFunc),
		reloadCh:    make(chan time.Duration, 1),
	}
}

// Register adds a named check. The registry is fixed once the monitor
// starts.
func (m *Monitor) Register(name string, check CheckFunc) error {
	if name == "" {
		return errors.New("check name must not be empty")
	}
	if check == nil {
		return fmt.Errorf("check %q must not be nil", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("cannot register check %q: %w", name, ErrAlreadyRunning)
	}
	if _, exists := m.checks[name]; exists {
		return fmt.Errorf("check %q already registered", name)
	}
	m.checks[name] = check
	return nil
}

// Start launches the periodic evaluation loop. The first cycle runs
// immediately so a snapshot becomes available without waiting a full
// interval.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	checkCount := len(m.checks)
	m.mu.Unlock()

	m.log.Info("Health monitor started",
		zap.Int("checks", checkCount),
		zap.Duration("interval", m.cfg.Interval),
		zap.Duration("check_timeout", m.cfg.CheckTimeout),
	)

	m.wg.Add(1)
	go m.run(runCtx)
	return nil
}

// Stop halts the evaluation loop and waits for an in-flight cycle to
// finish. A cycle completing after Stop discards its snapshot. Stop is
// idempotent, and the monitor cannot be restarted afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	m.stopped = true
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.log.Info("Health monitor stopped")
}

// Check runs a full evaluation cycle on demand, bounded by ctx, and
// atomically installs the result as the latest snapshot. Concurrent
// calls are safe: each produces a complete snapshot.
func (m *Monitor) Check(ctx context.Context) (Status, error) {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if !running {
		return Status{}, ErrNotRunning
	}

	status := m.runCycle(ctx)
	m.applySnapshot(status)
	return status, nil
}

// Latest returns a copy of the most recent snapshot, or false when no
// cycle has completed yet.
func (m *Monitor) Latest() (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.hasLatest {
		return Status{}, false
	}
	return copyStatus(m.latest), true
}

// SetInterval changes the evaluation period of a running monitor. Used
// by configuration hot reload.
func (m *Monitor) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case m.reloadCh <- d:
	default:
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-m.reloadCh:
			ticker.Reset(d)
			m.log.Info("Health check interval updated", zap.Duration("interval", d))
		case <-ticker.C:
			m.cycle(ctx)
		}
	}
}

// cycle evaluates all checks and installs the snapshot. A panic in the
// monitor's own bookkeeping is logged and dropped.
func (m *Monitor) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Health cycle panicked", zap.Any("panic_value", r))
		}
	}()

	start := time.Now()
	status := m.runCycle(ctx)
	installed := m.applySnapshot(status)
	if installed && m.emitter != nil {
		m.emitter.Performance(constants.EventHealthCycle,
			float64(time.Since(start))/float64(time.Millisecond),
			map[string]string{"status": string(status.Overall)},
		)
	}
}

// runCycle evaluates every registered check concurrently and assembles
// a complete snapshot. The results map is local until fully populated,
// so readers can never observe a partial cycle.
func (m *Monitor) runCycle(ctx context.Context) Status {
	m.mu.RLock()
	checks := make(map[string]CheckFunc, len(m.checks))
	for name, fn := range m.checks {
		checks[name] = fn
	}
	m.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var (
		wg    sync.WaitGroup
		resMu sync.Mutex
	)
	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			result := m.runCheck(ctx, name, fn)
			resMu.Lock()
			results[name] = result
			resMu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	return Status{
		Overall:     Aggregate(results),
		Checks:      results,
		Version:     m.version,
		Environment: m.environment,
		Timestamp:   time.Now().UTC(),
	}
}

// runCheck executes one check under its individual timeout. A panic
// becomes a synthetic failure, and a check that never resolves is cut
// off when the timeout fires, leaving its goroutine behind but not
// blocking the cycle.
func (m *Monitor) runCheck(ctx context.Context, name string, fn CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, m.cfg.CheckTimeout)
	defer cancel()

	type outcome struct {
		status  CheckStatus
		message string
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{CheckFail, fmt.Sprintf("check panicked: %v", r)}
			}
		}()
		status, message := fn(checkCtx)
		done <- outcome{status, message}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-checkCtx.Done():
		if errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
			out = outcome{CheckFail, fmt.Sprintf("check timed out after %s", m.cfg.CheckTimeout)}
		} else {
			out = outcome{CheckFail, "check canceled"}
		}
	}

	switch out.status {
	case CheckPass, CheckWarn, CheckFail:
	default:
		out = outcome{CheckFail, fmt.Sprintf("check returned invalid status %q", out.status)}
	}

	duration := time.Since(start)
	m.metrics.RecordCheck(name, string(out.status), duration)
	if out.status != CheckPass {
		m.log.Warn("Health check did not pass",
			zap.String("check", name),
			zap.String("status", string(out.status)),
			zap.String("message", out.message),
			zap.Duration("duration", duration),
		)
	}

	return CheckResult{
		Status:     out.status,
		DurationMs: float64(duration) / float64(time.Millisecond),
		Message:    out.message,
		Timestamp:  time.Now().UTC(),
	}
}

// applySnapshot atomically replaces the latest snapshot. It reports
// false when the monitor stopped while the cycle was in flight, in
// which case the result is discarded.
func (m *Monitor) applySnapshot(status Status) bool {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return false
	}
	previous := m.latest.Overall
	had := m.hasLatest
	m.latest = copyStatus(status)
	m.hasLatest = true
	m.mu.Unlock()

	m.metrics.SetHealthStatus(string(status.Overall))
	if !had || previous != status.Overall {
		fields := []zap.Field{
			zap.String("status", string(status.Overall)),
			zap.Int("checks", len(status.Checks)),
		}
		if had {
			fields = append(fields, zap.String("previous", string(previous)))
		}
		if status.Overall == StateHealthy {
			m.log.Info("Health state changed", fields...)
		} else {
			m.log.Warn("Health state changed", fields...)
		}
	}
	return true
}

func copyStatus(status Status) Status {
	cp := status
	cp.Checks = make(map[string]CheckResult, len(status.Checks))
	for name, result := range status.Checks {
		cp.Checks[name] = result
	}
	return cp
}
