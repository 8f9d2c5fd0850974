package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	EventsEnqueued  *prometheus.CounterVec
	EventsDropped   *prometheus.CounterVec
	EventsPersisted prometheus.Counter
	BatchesSent     prometheus.Counter
	BatchesRetried  prometheus.Counter
	FlushDuration   prometheus.Histogram
	QueueDepth      prometheus.Gauge

	ErrorsCaptured *prometheus.CounterVec

	CheckDuration     *prometheus.HistogramVec
	CheckStatus       *prometheus.GaugeVec
	HealthStatus      prometheus.Gauge
	OperationDuration *prometheus.HistogramVec

	registry *prometheus.Registry
	handler  http.Handler
}

func NewMetrics() *Metrics {
	return &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of admin HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status_code"},
		),
		EventsEnqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_events_enqueued_total",
				Help: "Total number of telemetry events accepted into the queue",
			},
			[]string{"kind"},
		),
		EventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemetry_events_dropped_total",
				Help: "Total number of telemetry events dropped",
			},
			[]string{"reason"},
		),
		EventsPersisted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telemetry_events_persisted_total",
				Help: "Total number of telemetry events written to the durable spool",
			},
		),
		BatchesSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telemetry_batches_sent_total",
				Help: "Total number of telemetry batches delivered to the collector",
			},
		),
		BatchesRetried: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "telemetry_batches_retried_total",
				Help: "Total number of telemetry batch delivery retries",
			},
		),
		FlushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "telemetry_flush_duration_seconds",
				Help:    "Telemetry flush duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "telemetry_queue_depth",
				Help: "Number of telemetry events currently queued",
			},
		),
		ErrorsCaptured: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "errors_captured_total",
				Help: "Total number of errors captured, by source",
			},
			[]string{"source"},
		),
		CheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "health_check_duration_seconds",
				Help:    "Health check duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"check"},
		),
		CheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "health_check_status",
				Help: "Latest health check status (1 = pass, 0.5 = warn, 0 = fail)",
			},
			[]string{"check"},
		),
		HealthStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "app_health_status",
				Help: "Overall health status (1 = healthy, 0.5 = degraded, 0 = unhealthy)",
			},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "operation_duration_seconds",
				Help:    "Measured operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "succeeded"},
		),
	}
}

func (m *Metrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)

	m.RequestCount.WithLabelValues(method, endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// SetHealthStatus maps an overall status string onto the health gauge:
// healthy = 1, degraded = 0.5, anything else = 0.
func (m *Metrics) SetHealthStatus(status string) {
	switch status {
	case "healthy":
		m.HealthStatus.Set(1)
	case "degraded":
		m.HealthStatus.Set(0.5)
	default:
		m.HealthStatus.Set(0)
	}
}

// RecordCheck records the outcome of a single health check run.
func (m *Metrics) RecordCheck(name, status string, duration time.Duration) {
	m.CheckDuration.WithLabelValues(name).Observe(duration.Seconds())

	switch status {
	case "pass":
		m.CheckStatus.WithLabelValues(name).Set(1)
	case "warn":
		m.CheckStatus.WithLabelValues(name).Set(0.5)
	default:
		m.CheckStatus.WithLabelValues(name).Set(0)
	}
}

// RecordOperation records a measured operation's duration.
func (m *Metrics) RecordOperation(name string, succeeded bool, duration time.Duration) {
	m.OperationDuration.WithLabelValues(name, strconv.FormatBool(succeeded)).Observe(duration.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	if m.handler != nil {
		return m.handler
	}
	return promhttp.Handler()
}

func (m *Metrics) Register() error {
	m.registry = prometheus.NewRegistry()

	collectors := []prometheus.Collector{
		m.RequestCount,
		m.RequestDuration,
		m.EventsEnqueued,
		m.EventsDropped,
		m.EventsPersisted,
		m.BatchesSent,
		m.BatchesRetried,
		m.FlushDuration,
		m.QueueDepth,
		m.ErrorsCaptured,
		m.CheckDuration,
		m.CheckStatus,
		m.HealthStatus,
		m.OperationDuration,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}

	// Create the handler using our custom registry
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})

	return nil
}
