package errwatch

import (
	"fmt"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/beaconkit/beacon/internal/config"
	"github.com/beaconkit/beacon/internal/constants"
	"github.com/beaconkit/beacon/internal/observability"
)

// Watcher deduplicates captured errors by fingerprint. Every occurrence
// is counted; only occurrences crossing a log-scale threshold (first,
// tenth, hundredth, ...) are forwarded to the emitter, and a global rate
// limiter bounds emission across all fingerprints.
//
// A Watcher never lets a failure inside its own bookkeeping escape to
// the caller.
type Watcher struct {
	cfg     config.ErrorsConfig
	emitter Emitter
	log     *observability.Logger
	metrics *observability.Metrics
	clock   Clock

	mu      sync.Mutex
	seen    *cache.Cache
	limiter *rate.Limiter
	stopped atomic.Bool
}

// New creates a Watcher. The emitter may be nil, in which case errors
// are still counted and logged but nothing is forwarded to telemetry.
func New(cfg config.ErrorsConfig, emitter Emitter, log *observability.Logger, metrics *observability.Metrics) *Watcher {
	return &Watcher{
		cfg:     cfg,
		emitter: emitter,
		log:     log,
		metrics: metrics,
		clock:   realClock{},
		seen:    cache.New(cfg.Retention, cfg.Retention/2),
		limiter: rate.NewLimiter(rate.Limit(cfg.EmitPerSecond), cfg.EmitBurst),
	}
}

// Handle records an application error. Nil errors and calls after Stop
// are ignored.
func (w *Watcher) Handle(err error, source Source, attrs map[string]string) {
	if err == nil || w.stopped.Load() {
		return
	}
	w.record(err.Error(), callerFrame(), source, attrs)
}

// Recover is meant to be deferred directly:
//
//	defer watcher.Recover(errwatch.SourceTask, nil)
//
// It always swallows the panic so the process survives, and records it
// unless the watcher has been stopped.
func (w *Watcher) Recover(source Source, attrs map[string]string) {
	r := recover()
	if r == nil {
		return
	}
	w.capturePanic(r, source, attrs)
}

// CapturePanic records an already-recovered panic value. It exists for
// callers that run their own recover, such as HTTP middleware that must
// also write an error response.
func (w *Watcher) CapturePanic(r any, source Source, attrs map[string]string) {
	if r == nil {
		return
	}
	w.capturePanic(r, source, attrs)
}

// Go runs fn on a new goroutine with panic capture attached, so a
// crashing background task is reported instead of killing the process.
func (w *Watcher) Go(name string, fn func()) {
	go func() {
		defer w.Recover(SourceTask, map[string]string{constants.ContextKeyTask: name})
		fn()
	}()
}

// Snapshot returns a copy of every tracked error, most recently seen
// first.
func (w *Watcher) Snapshot() []CapturedError {
	w.mu.Lock()
	defer w.mu.Unlock()

	items := w.seen.Items()
	out := make([]CapturedError, 0, len(items))
	for _, item := range items {
		out = append(out, *item.Object.(*CapturedError))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].Fingerprint < out[j].Fingerprint
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}

// Len returns the number of tracked fingerprints.
func (w *Watcher) Len() int {
	return w.seen.ItemCount()
}

// Stop disables intake. Subsequent Handle and capture calls become
// no-ops; Snapshot remains readable. Stop is idempotent.
func (w *Watcher) Stop() {
	if w.stopped.Swap(true) {
		return
	}
	w.log.Info("Error watcher stopped", zap.Int("tracked_errors", w.seen.ItemCount()))
}

func (w *Watcher) capturePanic(r any, source Source, attrs map[string]string) {
	if w.stopped.Load() {
		return
	}
	w.log.Error("Recovered panic",
		zap.Any("panic_value", r),
		zap.String("source", string(source)),
		zap.ByteString("stack", debug.Stack()),
	)
	w.record(fmt.Sprintf("panic: %v", r), callerFrame(), source, attrs)
}

// record is the shared capture path. A panic inside it is logged and
// dropped so error handling can never take the application down.
func (w *Watcher) record(message, frame string, source Source, attrs map[string]string) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Error capture panicked", zap.Any("panic_value", r))
		}
	}()

	key := fingerprint(message, frame, source)
	now := w.clock.Now()

	w.mu.Lock()
	var ce *CapturedError
	if item, found := w.seen.Get(key); found {
		ce = item.(*CapturedError)
		ce.Count++
		ce.LastSeen = now
	} else {
		w.evictOldestLocked()
		ce = &CapturedError{
			Fingerprint: key,
			Message:     message,
			Frame:       frame,
			Source:      source,
			Context:     cloneAttrs(attrs),
			Count:       1,
			FirstSeen:   now,
			LastSeen:    now,
		}
	}
	w.seen.Set(key, ce, cache.DefaultExpiration)
	entry := *ce
	w.mu.Unlock()

	w.metrics.ErrorsCaptured.WithLabelValues(string(source)).Inc()

	if entry.Count == 1 {
		w.log.Error("Captured error",
			zap.String("error", message),
			zap.String("frame", frame),
			zap.String("source", string(source)),
			zap.String("fingerprint", key),
		)
	} else {
		w.log.Debug("Recurring error",
			zap.String("fingerprint", key),
			zap.Int("count", entry.Count),
		)
	}

	if !w.shouldEmit(entry.Count) {
		return
	}
	if !w.limiter.Allow() {
		w.log.Debug("Error emission suppressed by rate limit", zap.String("fingerprint", key))
		return
	}
	w.emit(entry)
}

// shouldEmit implements the log-scale policy: emit at each configured
// occurrence threshold, then every EmitEvery occurrences past the last
// threshold.
func (w *Watcher) shouldEmit(count int) bool {
	last := 0
	for _, n := range w.cfg.EmitOccurrences {
		if count == n {
			return true
		}
		if n > last {
			last = n
		}
	}
	return w.cfg.EmitEvery > 0 && count > last && count%w.cfg.EmitEvery == 0
}

func (w *Watcher) emit(entry CapturedError) {
	if w.emitter == nil {
		return
	}
	attrs := map[string]string{
		"fingerprint": entry.Fingerprint,
		"message":     entry.Message,
		"frame":       entry.Frame,
		"source":      string(entry.Source),
		"count":       strconv.Itoa(entry.Count),
	}
	for k, v := range entry.Context {
		if _, taken := attrs[k]; !taken {
			attrs[k] = v
		}
	}
	w.emitter.Error("error_captured", attrs)
}

// evictOldestLocked makes room for a new fingerprint by dropping the
// least recently seen entry once the table is full. Callers hold w.mu.
func (w *Watcher) evictOldestLocked() {
	if w.cfg.MaxFingerprints <= 0 {
		return
	}
	items := w.seen.Items()
	if len(items) < w.cfg.MaxFingerprints {
		return
	}

	var oldestKey string
	var oldestSeen time.Time
	for key, item := range items {
		ce := item.Object.(*CapturedError)
		if oldestKey == "" || ce.LastSeen.Before(oldestSeen) {
			oldestKey, oldestSeen = key, ce.LastSeen
		}
	}
	if oldestKey != "" {
		w.seen.Delete(oldestKey)
		w.log.Debug("Evicted least recently seen error", zap.String("fingerprint", oldestKey))
	}
}

func fingerprint(message, frame string, source Source) string {
	sum := xxhash.Sum64String(message + "|" + frame + "|" + string(source))
	return strconv.FormatUint(sum, 16)
}

// callerFrame walks up the stack to the first frame outside this
// package and the runtime, which is where the error actually happened.
func callerFrame() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !isInternalFrame(frame) {
			return fmt.Sprintf("%s (%s:%d)", frame.Function, filepath.Base(frame.File), frame.Line)
		}
		if !more {
			return "unknown"
		}
	}
}

func isInternalFrame(frame runtime.Frame) bool {
	if strings.HasPrefix(frame.Function, "runtime.") {
		return true
	}
	// Frames from this package's tests count as caller code.
	return strings.Contains(frame.Function, "internal/errwatch") &&
		!strings.HasSuffix(frame.File, "_test.go")
}

func cloneAttrs(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
