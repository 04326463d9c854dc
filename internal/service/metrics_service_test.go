package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/fees", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/fees", http.StatusCreated, 40*time.Millisecond)
	m.RecordMutation("create_fee", nil)
	m.RecordMutation("create_fee", errors.New("boom"))
	m.RecordPayment("cash")
	m.RecordPayment("card")
	m.RecordOverdueSweep(3)
	m.RecordOverdueSweep(0)
	m.RecordAttendanceMark("late")

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.PaymentsProcessed)
	assert.Equal(t, uint64(3), snap.FeesMarkedOverdue)
	assert.Equal(t, uint64(1), snap.AttendanceMarks)
	assert.Equal(t, uint64(1), snap.FailedMutations)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("create_fee", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payments.WithLabelValues("cash")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.overdueSwept))
}

func TestMetricsServiceHandlerExposesLedgerSeries(t *testing.T) {
	m := NewMetricsService()
	m.RecordPayment("online")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `ledger_payments_total{method="online"} 1`))
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordMutation("create_fee", nil)
	m.RecordPayment("cash")
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
	assert.Nil(t, m.Registry())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
