package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the data hub.
type Metrics struct {
	config MetricsConfig

	// Push metrics
	pushesAccepted *prometheus.CounterVec
	pushesFiltered *prometheus.CounterVec
	pushDuration   *prometheus.HistogramVec

	// Resource metrics
	resourcesByVariant *prometheus.GaugeVec
	handlerCalls       *prometheus.CounterVec

	// Observation buffer metrics
	bufferOccupancy *prometheus.GaugeVec
	bufferBackups   *prometheus.CounterVec

	// Policy metrics
	policyDenials   *prometheus.CounterVec
	policyDuration  *prometheus.HistogramVec

	// Error metrics
	errorsByCode *prometheus.CounterVec

	// System metrics
	updateWindowsOpen prometheus.Gauge
	suspendedEntries  prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		pushesAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pushes_accepted_total",
				Help:      "Total number of samples accepted onto the tree",
			},
			[]string{"variant"},
		),
		pushesFiltered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pushes_filtered_total",
				Help:      "Total number of samples rejected by an Observation filter",
			},
			[]string{"reason"},
		),
		pushDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "push_duration_seconds",
				Help:      "Duration of a push through the tree, including routed fan-out",
				Buckets:   buckets,
			},
			[]string{"variant"},
		),

		resourcesByVariant: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "resources_by_variant",
				Help:      "Current number of resources by variant",
			},
			[]string{"variant"},
		),
		handlerCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_calls_total",
				Help:      "Total number of push handler invocations",
			},
			[]string{"path"},
		),

		bufferOccupancy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "observation_buffer_occupancy",
				Help:      "Current number of samples held in an Observation's ring buffer",
			},
			[]string{"path"},
		),
		bufferBackups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observation_buffer_backups_total",
				Help:      "Total number of Observation buffer backups persisted",
			},
			[]string{"path", "status"},
		),

		policyDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_denials_total",
				Help:      "Total number of create/route requests denied by policy",
			},
			[]string{"operation"},
		),
		policyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "policy_evaluation_duration_seconds",
				Help:      "Duration of a policy evaluation",
				Buckets:   buckets,
			},
			[]string{"operation"},
		),

		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by result code",
			},
			[]string{"code"},
		),

		updateWindowsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "update_windows_open",
				Help:      "1 while an administrative update window is open, else 0",
			},
		),
		suspendedEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "suspended_entries",
				Help:      "Current number of entries suspended during an open update window",
			},
		),
	}

	registry.MustRegister(
		m.pushesAccepted,
		m.pushesFiltered,
		m.pushDuration,
		m.resourcesByVariant,
		m.handlerCalls,
		m.bufferOccupancy,
		m.bufferBackups,
		m.policyDenials,
		m.policyDuration,
		m.errorsByCode,
		m.updateWindowsOpen,
		m.suspendedEntries,
	)

	return m, nil
}

// RecordPushAccepted increments the accepted-push counter for variant.
func (m *Metrics) RecordPushAccepted(variant string, duration time.Duration) {
	if m.pushesAccepted == nil {
		return
	}
	m.pushesAccepted.WithLabelValues(variant).Inc()
	m.pushDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

// RecordPushFiltered increments the filtered-push counter for reason
// ("min-period", "range", "change-by").
func (m *Metrics) RecordPushFiltered(reason string) {
	if m.pushesFiltered == nil {
		return
	}
	m.pushesFiltered.WithLabelValues(reason).Inc()
}

// SetResourceCount sets the current count of resources of a given variant.
func (m *Metrics) SetResourceCount(variant string, count float64) {
	if m.resourcesByVariant == nil {
		return
	}
	m.resourcesByVariant.WithLabelValues(variant).Set(count)
}

// RecordHandlerCall increments the handler-call counter for path.
func (m *Metrics) RecordHandlerCall(path string) {
	if m.handlerCalls == nil {
		return
	}
	m.handlerCalls.WithLabelValues(path).Inc()
}

// SetBufferOccupancy sets the current ring-buffer occupancy for an
// Observation at path.
func (m *Metrics) SetBufferOccupancy(path string, count float64) {
	if m.bufferOccupancy == nil {
		return
	}
	m.bufferOccupancy.WithLabelValues(path).Set(count)
}

// RecordBufferBackup records an attempted buffer backup and its outcome
// ("ok" or "error").
func (m *Metrics) RecordBufferBackup(path, status string) {
	if m.bufferBackups == nil {
		return
	}
	m.bufferBackups.WithLabelValues(path, status).Inc()
}

// RecordPolicyDenial records a create/route request denied by policy.
func (m *Metrics) RecordPolicyDenial(operation string) {
	if m.policyDenials == nil {
		return
	}
	m.policyDenials.WithLabelValues(operation).Inc()
}

// RecordPolicyEvaluation records how long a policy evaluation took.
func (m *Metrics) RecordPolicyEvaluation(operation string, duration time.Duration) {
	if m.policyDuration == nil {
		return
	}
	m.policyDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordError records an error by result code.
func (m *Metrics) RecordError(code string) {
	if m.errorsByCode == nil {
		return
	}
	m.errorsByCode.WithLabelValues(code).Inc()
}

// SetUpdateWindowOpen reflects whether an administrative update window is
// currently open.
func (m *Metrics) SetUpdateWindowOpen(open bool) {
	if m.updateWindowsOpen == nil {
		return
	}
	if open {
		m.updateWindowsOpen.Set(1)
	} else {
		m.updateWindowsOpen.Set(0)
	}
}

// SetSuspendedEntries sets the current count of update-window-suspended
// entries.
func (m *Metrics) SetSuspendedEntries(count float64) {
	if m.suspendedEntries == nil {
		return
	}
	m.suspendedEntries.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
