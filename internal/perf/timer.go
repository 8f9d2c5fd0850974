// Package perf times named operations and reports each measurement as
// a telemetry performance event, a metric sample, and a trace span.
package perf

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/beaconkit/beacon/internal/constants"
	"github.com/beaconkit/beacon/internal/observability"
)

// Emitter receives one performance event per finished measurement. It
// is satisfied by the telemetry logger.
type Emitter interface {
	Performance(name string, value float64, attrs map[string]string)
}

// Timer measures operation durations. Every measurement produces
// exactly one performance event, whether the operation succeeds, fails
// or panics.
type Timer struct {
	emitter Emitter
	tracer  *observability.Tracer
	metrics *observability.Metrics
}

// New creates a Timer. The emitter and tracer may be nil, in which case
// the corresponding outputs are skipped.
func New(emitter Emitter, tracer *observability.Tracer, metrics *observability.Metrics) *Timer {
	return &Timer{
		emitter: emitter,
		tracer:  tracer,
		metrics: metrics,
	}
}

// Measure runs fn inside a span and records its duration. The error
// from fn is returned unmodified; a panic still records the measurement
// before propagating.
func (t *Timer) Measure(ctx context.Context, name string, fn func(context.Context) error) error {
	var span trace.Span
	if t.tracer != nil {
		ctx, span = t.tracer.StartSpan(ctx, name)
	}
	start := time.Now()

	var err error
	completed := false
	defer func() {
		t.finish(name, start, completed && err == nil, span)
	}()

	err = fn(ctx)
	completed = true
	return err
}

// Start begins a manual measurement and returns its stop function:
//
//	stop := timer.Start("load_dashboard")
//	...
//	stop(err)
//
// Calling stop more than once records only the first call.
func (t *Timer) Start(name string) func(error) {
	start := time.Now()
	var once sync.Once
	return func(err error) {
		once.Do(func() {
			t.finish(name, start, err == nil, nil)
		})
	}
}

func (t *Timer) finish(name string, start time.Time, succeeded bool, span trace.Span) {
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(
			attribute.Float64("duration_ms", float64(duration)/float64(time.Millisecond)),
			attribute.Bool("succeeded", succeeded),
		)
		span.End()
	}
	if t.metrics != nil {
		t.metrics.RecordOperation(name, succeeded, duration)
	}
	if t.emitter != nil {
		t.emitter.Performance(name, float64(duration)/float64(time.Millisecond), map[string]string{
			constants.ContextKeySucceeded: strconv.FormatBool(succeeded),
		})
	}
}
