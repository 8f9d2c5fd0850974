package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/beaconkit/beacon/internal/config"
	"github.com/beaconkit/beacon/internal/observability"
)

var (
	// ErrAlreadyRunning is returned by Start when the logger is running.
	ErrAlreadyRunning = errors.New("telemetry: already running")
	// ErrStopped is returned by Start after the logger has been stopped.
	// A stopped logger cannot be restarted; construct a new one.
	ErrStopped = errors.New("telemetry: stopped")
)

// pendingBatch is a batch awaiting redelivery.
type pendingBatch struct {
	batch       Batch
	attempts    int
	nextAttempt time.Time
}

// Logger accepts events from any goroutine without blocking, queues them in
// a bounded buffer, and flushes batches to the collector on an interval.
// Failed batches are retried with exponential backoff; batches that exhaust
// their attempts are spooled to the durable store. Intake after Stop is a
// silent no-op so instrumented call sites never have to handle lifecycle
// errors.
type Logger struct {
	cfg     config.TelemetryConfig
	sender  Sender
	store   Store
	log     *observability.Logger
	metrics *observability.Metrics
	clock   Clock

	queue       *Queue
	sessionID   string
	version     string
	environment string

	mu      sync.Mutex // guards pending, running, cancel
	pending []pendingBatch
	running bool
	cancel  context.CancelFunc

	stopped  atomic.Bool
	flushMu  sync.Mutex // serializes flush passes
	reloadCh chan time.Duration
	wg       sync.WaitGroup
}

// New creates a telemetry logger. The sender and store may be nil; a nil
// sender drops batches at flush time and a nil store disables spooling.
func New(cfg config.TelemetryConfig, version, environment string, sender Sender, store Store, log *observability.Logger, metrics *observability.Metrics) *Logger {
	return &Logger{
		cfg:         cfg,
		sender:      sender,
		store:       store,
		log:         log,
		metrics:     metrics,
		clock:       realClock{},
		queue:       NewQueue(cfg.QueueSize),
		sessionID:   uuid.NewString(),
		version:     version,
		environment: environment,
		reloadCh:    make(chan time.Duration, 1),
	}
}

// Start requeues events spooled by a previous run and begins the flush loop.
func (l *Logger) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.stopped.Load() {
		l.mu.Unlock()
		return ErrStopped
	}
	if l.running {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.running = true
	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.mu.Unlock()

	if l.store != nil {
		events, err := l.store.LoadPersisted(ctx)
		if err != nil {
			l.log.Warn("Failed to load spooled events", zap.Error(err))
		} else if len(events) > 0 {
			for _, ev := range events {
				l.enqueue(ev)
			}
			if err := l.store.Clear(ctx); err != nil {
				l.log.Warn("Failed to clear event spool", zap.Error(err))
			}
			l.log.Info("Requeued spooled events", zap.Int("count", len(events)))
		}
	}

	l.wg.Add(1)
	go l.run(runCtx)

	l.log.Info("Telemetry logger started",
		zap.String("session_id", l.sessionID),
		zap.Int("queue_size", l.queue.Cap()),
		zap.Duration("flush_interval", l.cfg.FlushInterval),
	)
	return nil
}

// Stop halts the flush loop, delivers what it can, and spools the rest.
// It is idempotent; intake afterwards is a silent no-op.
func (l *Logger) Stop(ctx context.Context) error {
	if l.stopped.Swap(true) {
		return nil
	}

	l.mu.Lock()
	running := l.running
	cancel := l.cancel
	l.running = false
	l.mu.Unlock()

	if !running {
		return nil
	}

	cancel()
	l.wg.Wait()

	// Final best-effort flush, then spool whatever is still undelivered.
	l.flushOnce(ctx)

	l.mu.Lock()
	pending := l.pending
	l.pending = nil
	l.mu.Unlock()
	for _, p := range pending {
		l.spool(ctx, p.batch, "shutdown")
	}

	l.log.Info("Telemetry logger stopped", zap.String("session_id", l.sessionID))
	return nil
}

// Track queues an arbitrary event. Missing kind and timestamp are filled in.
func (l *Logger) Track(ev Event) {
	defer func() {
		if r := recover(); r != nil && l.log != nil {
			l.log.Error("Telemetry intake panicked", zap.Any("panic", r))
		}
	}()

	if l.stopped.Load() {
		return
	}

	if ev.Kind == "" {
		ev.Kind = KindInfo
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.clock.Now()
	}

	l.enqueue(ev)
}

// TrackAction records a user action such as a button press.
func (l *Logger) TrackAction(name string, attrs map[string]string) {
	l.Track(Event{Kind: KindAction, Name: name, Context: attrs})
}

// TrackPageView records a route or page visit.
func (l *Logger) TrackPageView(page string, attrs map[string]string) {
	l.Track(Event{Kind: KindPageView, Name: page, Context: attrs})
}

// TrackEngagement records an engagement measure such as time-on-page.
func (l *Logger) TrackEngagement(name string, value float64, attrs map[string]string) {
	l.Track(Event{Kind: KindEngagement, Name: name, Value: value, Context: attrs})
}

// Performance records a timing measurement in milliseconds.
func (l *Logger) Performance(name string, value float64, attrs map[string]string) {
	l.Track(Event{Kind: KindPerformance, Name: name, Value: value, Context: attrs})
}

// Error records an error occurrence.
func (l *Logger) Error(name string, attrs map[string]string) {
	l.Track(Event{Kind: KindError, Name: name, Context: attrs})
}

// Info records an informational event about the core itself.
func (l *Logger) Info(name string, attrs map[string]string) {
	l.Track(Event{Kind: KindInfo, Name: name, Context: attrs})
}

// Flush synchronously drains the queue and attempts delivery, including any
// retries that have come due. Delivery failures are not surfaced; they follow
// the usual retry-then-spool path.
func (l *Logger) Flush(ctx context.Context) {
	if l.stopped.Load() {
		return
	}
	l.flushOnce(ctx)
}

// QueueDepth returns the number of currently queued events.
func (l *Logger) QueueDepth() int {
	return l.queue.Len()
}

// QueueCapacity returns the queue capacity.
func (l *Logger) QueueCapacity() int {
	return l.queue.Cap()
}

// SessionID returns the identifier stamped on every batch from this logger.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// SetFlushInterval updates the flush cadence. Applied on the next loop
// iteration; zero and negative values are ignored.
func (l *Logger) SetFlushInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case l.reloadCh <- d:
	default:
	}
}

func (l *Logger) enqueue(ev Event) {
	if l.queue.Push(ev) {
		l.metrics.EventsDropped.WithLabelValues("queue_full").Inc()
	}
	l.metrics.EventsEnqueued.WithLabelValues(string(ev.Kind)).Inc()
	l.metrics.QueueDepth.Set(float64(l.queue.Len()))
}

func (l *Logger) run(ctx context.Context) {
	defer l.wg.Done()

	interval := l.cfg.FlushInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-l.reloadCh:
			if d != interval {
				interval = d
				ticker.Reset(d)
				l.log.Info("Flush interval updated", zap.Duration("interval", d))
			}
		case <-ticker.C:
			l.flushOnce(ctx)
		}
	}
}

// flushOnce drains the queue eagerly, so each event belongs to exactly one
// batch even if delivery fails afterwards.
func (l *Logger) flushOnce(ctx context.Context) {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			l.log.Error("Telemetry flush panicked", zap.Any("panic", r))
		}
	}()

	start := time.Now()

	l.retryDue(ctx)

	events := l.queue.Drain()
	l.metrics.QueueDepth.Set(float64(l.queue.Len()))
	if len(events) > 0 {
		batch := l.newBatch(events)
		if err := l.send(ctx, batch); err != nil {
			l.log.Warn("Batch delivery failed, scheduling retry",
				zap.String("batch_id", batch.ID),
				zap.Int("events", len(batch.Events)),
				zap.Error(err),
			)
			l.scheduleRetry(ctx, batch, 1)
		} else {
			l.metrics.BatchesSent.Inc()
		}
	}

	l.metrics.FlushDuration.Observe(time.Since(start).Seconds())
}

// retryDue redelivers pending batches whose backoff has elapsed.
func (l *Logger) retryDue(ctx context.Context) {
	now := l.clock.Now()

	l.mu.Lock()
	var due, rest []pendingBatch
	for _, p := range l.pending {
		if p.nextAttempt.After(now) {
			rest = append(rest, p)
		} else {
			due = append(due, p)
		}
	}
	l.pending = rest
	l.mu.Unlock()

	for _, p := range due {
		l.metrics.BatchesRetried.Inc()
		err := l.send(ctx, p.batch)
		if err == nil {
			l.metrics.BatchesSent.Inc()
			continue
		}

		p.attempts++
		if l.cfg.Retry.Exhausted(p.attempts) {
			l.log.Warn("Batch delivery exhausted retries",
				zap.String("batch_id", p.batch.ID),
				zap.Int("attempts", p.attempts),
				zap.Error(err),
			)
			l.spool(ctx, p.batch, "retries exhausted")
			continue
		}
		l.scheduleRetry(ctx, p.batch, p.attempts)
	}
}

func (l *Logger) send(ctx context.Context, batch Batch) error {
	if l.sender == nil {
		return errors.New("telemetry: no sender configured")
	}
	sctx, cancel := context.WithTimeout(ctx, l.cfg.SendTimeout)
	defer cancel()
	return l.sender.Send(sctx, batch)
}

// scheduleRetry enqueues a batch for redelivery. When the retry buffer is
// full the oldest pending batch is spooled to make room.
func (l *Logger) scheduleRetry(ctx context.Context, batch Batch, attempts int) {
	var overflow *pendingBatch

	l.mu.Lock()
	if len(l.pending) >= l.cfg.RetryBufferSize {
		ov := l.pending[0]
		l.pending = l.pending[1:]
		overflow = &ov
	}
	l.pending = append(l.pending, pendingBatch{
		batch:       batch,
		attempts:    attempts,
		nextAttempt: l.clock.Now().Add(l.cfg.Retry.Delay(attempts)),
	})
	l.mu.Unlock()

	if overflow != nil {
		l.spool(ctx, overflow.batch, "retry buffer overflow")
	}
}

// spool hands a batch's events to the durable store.
func (l *Logger) spool(ctx context.Context, batch Batch, reason string) {
	if l.store == nil {
		l.metrics.EventsDropped.WithLabelValues("no_store").Add(float64(len(batch.Events)))
		return
	}
	if err := l.store.Persist(ctx, batch.Events); err != nil {
		l.metrics.EventsDropped.WithLabelValues("spool_failed").Add(float64(len(batch.Events)))
		l.log.Error("Failed to spool events",
			zap.String("batch_id", batch.ID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	l.metrics.EventsPersisted.Add(float64(len(batch.Events)))
	l.log.Info("Spooled events for later delivery",
		zap.Int("events", len(batch.Events)),
		zap.String("reason", reason),
	)
}

func (l *Logger) newBatch(events []Event) Batch {
	return Batch{
		ID:          uuid.NewString(),
		SessionID:   l.sessionID,
		Version:     l.version,
		Environment: l.environment,
		SentAt:      l.clock.Now(),
		Events:      events,
	}
}
