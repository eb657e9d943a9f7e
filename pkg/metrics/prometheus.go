package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         *prometheus.Registry

	// Attendance
	scans          *prometheus.CounterVec
	recorderErrors *prometheus.CounterVec
	lockWait       prometheus.Histogram
	txRetries      prometheus.Counter
	domainEvents   *prometheus.CounterVec
	eventHandlers  *prometheus.HistogramVec

	// Analytics
	forecastDuration prometheus.Histogram
	forecastSeries   prometheus.Gauge
	skippedRecords   prometheus.Counter
	cacheLookups     *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Jobs
	jobRuns *prometheus.CounterVec
}

// NewManager creates a Manager. Without WithPrometheusRegistry a private
// registry with Go and process collectors is created.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "attendance",
		subsystem:        "hub",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      map[string]string{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m.initializeMetrics()
	return m
}

// Nop returns a disabled manager on a throwaway registry.
func Nop() *Manager {
	return NewManager(WithMetricsEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scans = auto.NewCounterVec(
		m.counterOpts("scans_total", "Scan and manual attendance operations by operation and outcome"),
		[]string{"operation", "outcome"},
	)
	m.recorderErrors = auto.NewCounterVec(
		m.counterOpts("recorder_errors_total", "Recorder failures by operation and error kind"),
		[]string{"operation", "kind"},
	)
	m.lockWait = auto.NewHistogram(
		m.histogramOpts("lock_wait_seconds", "Time spent acquiring the per student/event lock"),
	)
	m.txRetries = auto.NewCounter(
		m.counterOpts("transaction_retries_total", "Locked transactions re-run after a transient database error"),
	)
	m.domainEvents = auto.NewCounterVec(
		m.counterOpts("domain_events_total", "Domain events published by type"),
		[]string{"type"},
	)
	m.eventHandlers = auto.NewHistogramVec(
		m.histogramOpts("event_handler_duration_seconds", "Domain event handler latency by event type and result"),
		[]string{"type", "result"},
	)

	m.forecastDuration = auto.NewHistogram(
		m.histogramOpts("forecast_compute_seconds", "Forecast computation latency including snapshot load"),
	)
	m.forecastSeries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "forecast_series",
		Help:        "Number of base event series in the last computed forecast",
		ConstLabels: m.constLabels,
	})
	m.skippedRecords = auto.NewCounter(
		m.counterOpts("forecast_skipped_records_total", "Snapshot records ignored while grouping"),
	)
	m.cacheLookups = auto.NewCounterVec(
		m.counterOpts("forecast_cache_lookups_total", "Forecast cache lookups by result"),
		[]string{"result"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by route, method and status code"),
		[]string{"route", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_seconds", "HTTP request latency"),
		[]string{"route", "method"},
	)

	m.jobRuns = auto.NewCounterVec(
		m.counterOpts("job_runs_total", "Background job executions by job and result"),
		[]string{"job", "result"},
	)
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordScan counts a recorder outcome, e.g. ("scan_in", "joined").
func (m *Manager) RecordScan(operation, outcome string) {
	if !m.enabled {
		return
	}
	m.scans.WithLabelValues(operation, outcome).Inc()
}

// RecordRecorderError counts a recorder failure by error kind.
func (m *Manager) RecordRecorderError(operation, kind string) {
	if !m.enabled {
		return
	}
	m.recorderErrors.WithLabelValues(operation, kind).Inc()
}

// ObserveLockWait records how long a key lock took to acquire.
func (m *Manager) ObserveLockWait(d time.Duration) {
	if !m.enabled {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

// RecordTxRetry counts a retried transaction.
func (m *Manager) RecordTxRetry() {
	if !m.enabled {
		return
	}
	m.txRetries.Inc()
}

// RecordDomainEvent counts a published domain event.
func (m *Manager) RecordDomainEvent(eventType string) {
	if !m.enabled {
		return
	}
	m.domainEvents.WithLabelValues(eventType).Inc()
}

// ObserveEventHandler records one handler execution; a non-nil err counts
// as a failure.
func (m *Manager) ObserveEventHandler(eventType string, d time.Duration, err error) {
	if !m.enabled {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.eventHandlers.WithLabelValues(eventType, result).Observe(d.Seconds())
}

// ObserveForecast records a forecast computation.
func (m *Manager) ObserveForecast(d time.Duration, series, skipped int) {
	if !m.enabled {
		return
	}
	m.forecastDuration.Observe(d.Seconds())
	m.forecastSeries.Set(float64(series))
	m.skippedRecords.Add(float64(skipped))
}

// RecordCacheHit counts a forecast cache hit.
func (m *Manager) RecordCacheHit() {
	if !m.enabled {
		return
	}
	m.cacheLookups.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts a forecast cache miss.
func (m *Manager) RecordCacheMiss() {
	if !m.enabled {
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(route, method string, status int, d time.Duration) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// RecordJobRun counts a scheduler job execution.
func (m *Manager) RecordJobRun(job string, err error) {
	if !m.enabled {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}
