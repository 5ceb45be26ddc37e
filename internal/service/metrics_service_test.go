package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/barangay-api/internal/models"
)

func TestMetricsServiceRecordsWorkflowCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordTransition(models.KindCertificate, "pending", "approved")
	m.RecordTransition(models.KindCertificate, "pending", "approved")
	m.RecordRejection(models.KindBlotter, "invalid_transition")
	m.RecordIssued("Barangay Clearance")
	m.RecordRenderFailure()
	m.RecordNotificationFailure("persist")
	m.SetQueuePending(models.QueueStats{TotalPending: 3, Certificates: 2, Incidents: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("certificate", "pending", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("blotter", "invalid_transition")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renderFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifyFailures.WithLabelValues("persist")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queuePending.WithLabelValues("certificate")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.queuePending.WithLabelValues("blotter")))
}

func TestMetricsServiceHandlerServesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/approvals", http.StatusOK, 20*time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/api/v1/approvals",status="200"} 1`)
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordTransition(models.KindIncident, "Recorded", "Monitoring")
		m.RecordProjectionFailure(models.KindIncident)
		m.SetQueuePending(models.QueueStats{})
	})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
