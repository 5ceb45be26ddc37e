package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/barangay-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and
// the approval workflow.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	transitions        *prometheus.CounterVec
	rejections         *prometheus.CounterVec
	issued             *prometheus.CounterVec
	renderFailures     prometheus.Counter
	projectionFailures *prometheus.CounterVec
	queuePending       *prometheus.GaugeVec
	notifyFailures     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transitions_total",
		Help: "Committed status transitions per record kind",
	}, []string{"kind", "from", "to"})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_transition_rejections_total",
		Help: "Transition attempts refused before any write",
	}, []string{"kind", "reason"})

	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificates_issued_total",
		Help: "Certificates issued per certificate type",
	}, []string{"type"})

	renderFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "certificate_render_failures_total",
		Help: "Issued certificates whose PDF could not be rendered or stored",
	})

	projectionFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "approval_queue_projection_failures_total",
		Help: "Pending records skipped because they could not be projected",
	}, []string{"kind"})

	queuePending := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "approval_queue_pending",
		Help: "Pending records seen on the last queue read",
	}, []string{"kind"})

	notifyFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_failures_total",
		Help: "Domain events that could not be recorded or delivered",
	}, []string{"stage"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, transitions, rejections, issued, renderFailures,
		projectionFailures, queuePending, notifyFailures, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		transitions:        transitions,
		rejections:         rejections,
		issued:             issued,
		renderFailures:     renderFailures,
		projectionFailures: projectionFailures,
		queuePending:       queuePending,
		notifyFailures:     notifyFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the private registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordTransition counts a committed status change.
func (m *MetricsService) RecordTransition(kind models.RecordKind, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(kind), from, to).Inc()
}

// RecordRejection counts a refused transition attempt.
func (m *MetricsService) RecordRejection(kind models.RecordKind, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(string(kind), reason).Inc()
}

// RecordIssued counts an issued certificate.
func (m *MetricsService) RecordIssued(certificateType string) {
	if m == nil {
		return
	}
	m.issued.WithLabelValues(certificateType).Inc()
}

// RecordRenderFailure counts a degraded issuance.
func (m *MetricsService) RecordRenderFailure() {
	if m == nil {
		return
	}
	m.renderFailures.Inc()
}

// RecordProjectionFailure counts a skipped queue record.
func (m *MetricsService) RecordProjectionFailure(kind models.RecordKind) {
	if m == nil {
		return
	}
	m.projectionFailures.WithLabelValues(string(kind)).Inc()
}

// SetQueuePending publishes the per-kind counts from the latest queue read.
func (m *MetricsService) SetQueuePending(stats models.QueueStats) {
	if m == nil {
		return
	}
	for _, kind := range models.RecordKinds {
		m.queuePending.WithLabelValues(string(kind)).Set(float64(stats.Count(kind)))
	}
}

// RecordNotificationFailure counts an event lost at the given stage.
func (m *MetricsService) RecordNotificationFailure(stage string) {
	if m == nil {
		return
	}
	m.notifyFailures.WithLabelValues(stage).Inc()
}
