package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/diploma-portal/internal/models"
)

// MetricsService owns the Prometheus registry of the gateway. A nil
// *MetricsService is valid and records nothing.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	authorityDuration *prometheus.HistogramVec
	verifications     *prometheus.CounterVec
	bulkRows          *prometheus.CounterVec
	auditDropped      prometheus.Counter
}

// NewMetricsService registers the gateway collectors.
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

	authorityDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authority_request_duration_seconds",
		Help:    "Duration of calls to the diploma authority",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"operation", "outcome"})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_outcomes_total",
		Help: "Verification verdicts by outcome and reason",
	}, []string{"outcome", "reason"})

	bulkRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulk_issuance_rows_total",
		Help: "Rows processed by bulk issuance",
	}, []string{"status"})

	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_entries_dropped_total",
		Help: "Audit entries that could not be queued",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, authorityDuration, verifications, bulkRows, auditDropped, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		authorityDuration: authorityDuration,
		verifications:     verifications,
		bulkRows:          bulkRows,
		auditDropped:      auditDropped,
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

// Registry exposes the underlying registry.
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveAuthorityCall records the timing of one authority call.
func (m *MetricsService) ObserveAuthorityCall(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.authorityDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

// RecordVerification counts a verification verdict.
func (m *MetricsService) RecordVerification(result models.VerificationResult) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(string(result.Outcome), string(result.Reason)).Inc()
}

// RecordBulkReport counts processed bulk rows.
func (m *MetricsService) RecordBulkReport(report *models.BulkReport) {
	if m == nil || report == nil {
		return
	}
	m.bulkRows.WithLabelValues(string(models.BulkRowSuccess)).Add(float64(report.Success))
	m.bulkRows.WithLabelValues(string(models.BulkRowFailed)).Add(float64(report.Failed))
}

// RecordAuditDropped counts an audit entry that was lost.
func (m *MetricsService) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}
