package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mutation outcomes recorded by the ledgers.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	payments        *prometheus.CounterVec
	overdueSwept    prometheus.Counter
	attendanceMarks *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	paymentCount         uint64
	overdueCount         uint64
	markCount            uint64
	failedMutations      uint64
}

// MetricsSnapshot is a point-in-time summary of ledger activity.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	PaymentsProcessed        uint64    `json:"paymentsProcessed"`
	FeesMarkedOverdue        uint64    `json:"feesMarkedOverdue"`
	AttendanceMarks          uint64    `json:"attendanceMarks"`
	FailedMutations          uint64    `json:"failedMutations"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
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

	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_mutations_total",
		Help: "Ledger mutations by operation and outcome",
	}, []string{"operation", "outcome"})

	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_total",
		Help: "Payments recorded by payment method",
	}, []string{"method"})

	overdueSwept := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_fees_marked_overdue_total",
		Help: "Fees flipped to overdue by the sweep",
	})

	attendanceMarks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_attendance_marks_total",
		Help: "Attendance marks written by status",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, mutations, payments, overdueSwept, attendanceMarks, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		mutations:       mutations,
		payments:        payments,
		overdueSwept:    overdueSwept,
		attendanceMarks: attendanceMarks,
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

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordMutation counts a ledger mutation by outcome.
func (m *MetricsService) RecordMutation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
		atomic.AddUint64(&m.failedMutations, 1)
	}
	m.mutations.WithLabelValues(operation, outcome).Inc()
}

// RecordPayment counts a settled fee.
func (m *MetricsService) RecordPayment(method string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(method).Inc()
	atomic.AddUint64(&m.paymentCount, 1)
}

// RecordOverdueSweep adds the number of fees flipped by one sweep.
func (m *MetricsService) RecordOverdueSweep(updated int) {
	if m == nil || updated <= 0 {
		return
	}
	m.overdueSwept.Add(float64(updated))
	atomic.AddUint64(&m.overdueCount, uint64(updated))
}

// RecordAttendanceMark counts one written mark.
func (m *MetricsService) RecordAttendanceMark(status string) {
	if m == nil {
		return
	}
	m.attendanceMarks.WithLabelValues(status).Inc()
	atomic.AddUint64(&m.markCount, 1)
}

// Snapshot returns aggregated metrics suitable for a summary endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		PaymentsProcessed:        atomic.LoadUint64(&m.paymentCount),
		FeesMarkedOverdue:        atomic.LoadUint64(&m.overdueCount),
		AttendanceMarks:          atomic.LoadUint64(&m.markCount),
		FailedMutations:          atomic.LoadUint64(&m.failedMutations),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
